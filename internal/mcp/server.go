package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"forestnav/internal/domain"
	"forestnav/internal/service"
)

// Server is the MCP server for forestnav.
// It exposes tools, resources, and prompts so AI agents can load harvester
// files, query their statistics and run exports.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger

	// Services (injected from the command layer)
	datasets domain.DatasetStore
	ingest   *service.IngestService
	analysis *service.AnalysisService
	export   *service.ExportService
}

// Deps holds all dependencies passed from the command layer to the MCP server.
type Deps struct {
	Logger   *zap.Logger
	Datasets domain.DatasetStore
	Ingest   *service.IngestService
	Analysis *service.AnalysisService
	Export   *service.ExportService
	Version  string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		logger:   logger,
		datasets: deps.Datasets,
		ingest:   deps.Ingest,
		analysis: deps.Analysis,
		export:   deps.Export,
	}

	s.mcp = server.NewMCPServer(
		"forestnav",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	s.registerDatasetTools()
	s.registerStatsTools()
	s.registerResources()
	s.registerPrompts()
	if s.export != nil {
		s.registerETLTools()
	}

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting mcp stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }

// openDataset resolves the "dataset" argument, a stored ID or a file path.
func (s *Server) openDataset(ctx context.Context, req mcp.CallToolRequest) (*domain.Dataset, error) {
	ref := req.GetString("dataset", "")
	if ref == "" {
		return nil, fmt.Errorf("dataset is required")
	}
	return s.analysis.Open(ctx, ref)
}
