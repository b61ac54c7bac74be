package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"forestnav/internal/stats"
)

func (s *Server) registerStatsTools() {
	s.mcp.AddTool(mcp.NewTool("histogram",
		mcp.WithDescription("Bin one distribution of a dataset. Names: "+strings.Join(stats.DistributionNames(), ", ")+
			", log_diameter (top and butt diameters on shared edges). Without overrides the configured bin settings apply."),
		mcp.WithString("dataset", mcp.Description("Dataset ID or .pri file path"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Distribution name"), mcp.Required()),
		mcp.WithString("start", mcp.Description("Range start (optional, needs end)")),
		mcp.WithString("end", mcp.Description("Range end (optional, needs start)")),
		mcp.WithString("width", mcp.Description("Bin width with a range, bin count without one (optional)")),
	), s.handleHistogram)

	s.mcp.AddTool(mcp.NewTool("species_distribution",
		mcp.WithDescription("Count trees per species code, most frequent first"),
		mcp.WithString("dataset", mcp.Description("Dataset ID or .pri file path"), mcp.Required()),
	), s.handleSpeciesDistribution)
}

func (s *Server) handleHistogram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ds, err := s.openDataset(ctx, req)
	if err != nil {
		return nil, err
	}
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	p := stats.ParseBinParams(req.GetString("start", ""), req.GetString("end", ""), req.GetString("width", ""))

	if name == "log_diameter" {
		buckets, err := s.analysis.LogDiameter(ds, p)
		if err != nil {
			return nil, err
		}
		return jsonResult(map[string]any{"name": name, "bins": buckets})
	}
	dist, err := s.analysis.Histogram(ds, name, p)
	if err != nil {
		return nil, err
	}
	return jsonResult(dist)
}

func (s *Server) handleSpeciesDistribution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ds, err := s.openDataset(ctx, req)
	if err != nil {
		return nil, err
	}
	counts, err := s.analysis.Species(ds)
	if err != nil {
		return nil, err
	}
	return jsonResult(counts)
}
