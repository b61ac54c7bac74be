package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("harvest_report",
		mcp.WithPromptDescription("Write a harvest report for one dataset: volumes, diameter classes, species mix, data quality"),
		mcp.WithArgument("dataset",
			mcp.ArgumentDescription("Dataset ID or .pri file path"),
			mcp.RequiredArgument(),
		),
	), s.handleHarvestReportPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("export_pipeline",
		mcp.WithPromptDescription("Check a dataset and push it through a configured export job"),
		mcp.WithArgument("dataset",
			mcp.ArgumentDescription("Dataset ID"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("job",
			mcp.ArgumentDescription("Export job name"),
			mcp.RequiredArgument(),
		),
	), s.handleExportPipelinePrompt)
}

func (s *Server) handleHarvestReportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	dataset := req.Params.Arguments["dataset"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Harvest report for %s", dataset),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Write a harvest report for dataset "%s". Follow these steps:

1. Call dataset_summary to get the file info, the resolved columns and the tree and log statistics
2. For each distribution listed in the summary, call histogram with the dataset and that name
3. Call species_distribution to get the species mix
4. Report the number of trees and logs, mean and spread of DBH, height and volume, the diameter classes that hold most stems, and the species shares

Mention any warnings from the summary and any semantic key that did not resolve, since the statistics behind it are missing.`, dataset),
				},
			},
		},
	}, nil
}

func (s *Server) handleExportPipelinePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	dataset := req.Params.Arguments["dataset"]
	job := req.Params.Arguments["job"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Export %s with %s", dataset, job),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Export dataset "%s" with the job "%s". Follow these steps:

1. Call list_export_jobs and confirm the job exists and which target and table it writes
2. Call preview_etl_source with sourceType "dataset" and sourceConfigJSON {"datasetId":"%s"} to check the records look right
3. Run run_export_job with job "%s" and sourceConfigJSON {"datasetId":"%s"}
4. Report the rows read and written and the final status`, dataset, job, dataset, job, dataset),
				},
			},
		},
	}, nil
}
