package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerETLTools() {
	s.mcp.AddTool(mcp.NewTool("list_etl_sources",
		mcp.WithDescription("List available export source types with their configuration schemas"),
	), s.handleListETLSources)

	s.mcp.AddTool(mcp.NewTool("list_export_jobs",
		mcp.WithDescription("List the configured export jobs with their target, trigger and last run status"),
	), s.handleListExportJobs)

	s.mcp.AddTool(mcp.NewTool("run_export_job",
		mcp.WithDescription(`DESTRUCTIVE: Run a configured export job. In replace mode the target table, collection or CSV file is rebuilt.
Optional sourceConfigJSON overrides the job's source settings for this run, e.g. {"datasetId":"..."} or {"filePath":"..."}.`),
		mcp.WithString("job", mcp.Description("Export job name"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration overrides as JSON (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunExportJob)

	s.mcp.AddTool(mcp.NewTool("preview_etl_source",
		mcp.WithDescription("Preview records from a source without writing anything"),
		mcp.WithString("sourceType", mcp.Description("Source type (use list_etl_sources)"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum records (default 10)")),
	), s.handlePreviewETLSource)
}

func (s *Server) handleListETLSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.export.ListSources())
}

func (s *Server) handleListExportJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.export.ListJobs()
	if err != nil {
		return nil, err
	}
	return jsonResult(jobs)
}

func (s *Server) handleRunExportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("job", "")
	if name == "" {
		return nil, fmt.Errorf("job is required")
	}
	overrides, err := sourceConfigArg(req.GetArguments(), "sourceConfigJSON")
	if err != nil {
		return nil, err
	}

	result, err := s.export.RunJob(ctx, name, overrides)
	if err != nil {
		return nil, fmt.Errorf("run export job: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handlePreviewETLSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sourceType := req.GetString("sourceType", "")
	cfg, err := sourceConfigArg(args, "sourceConfigJSON")
	if err != nil {
		return nil, err
	}
	if sourceType == "" || cfg == nil {
		return nil, fmt.Errorf("sourceType and sourceConfigJSON are required")
	}

	limit := 10
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	preview, err := s.export.Preview(ctx, sourceType, cfg, limit)
	if err != nil {
		return nil, fmt.Errorf("preview source: %w", err)
	}
	return jsonResult(preview)
}
