package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"forestnav/internal/domain"
	"forestnav/internal/stats"
)

func (s *Server) registerDatasetTools() {
	if s.ingest != nil {
		s.mcp.AddTool(mcp.NewTool("ingest_pri_file",
			mcp.WithDescription("Parse a StanForD .pri harvester production file and store it as a dataset. Files already ingested with identical bytes return the stored dataset."),
			mcp.WithString("path", mcp.Description("Path of the .pri file on the server"), mcp.Required()),
		), s.handleIngestPRIFile)
	}

	s.mcp.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List stored datasets, newest first, with their file info (name, encoding, producing software, tree and log counts)"),
	), s.handleListDatasets)

	s.mcp.AddTool(mcp.NewTool("dataset_summary",
		mcp.WithDescription("Describe a dataset: file info, which semantic keys (dbh, height, volume, species, length, diameters, ids) resolved to which column, descriptive statistics of the tree and log measures, mean position, and the distributions that have data"),
		mcp.WithString("dataset", mcp.Description("Dataset ID, or path of a .pri file to analyse without storing it"), mcp.Required()),
	), s.handleDatasetSummary)
}

func (s *Server) handleIngestPRIFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	res, err := s.ingest.Ingest(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleListDatasets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.datasets == nil {
		return nil, fmt.Errorf("no dataset store configured")
	}
	list, err := s.datasets.ListDatasets()
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.DatasetSummary{}
	}
	return jsonResult(list)
}

// datasetSummary is the dataset_summary payload.
type datasetSummary struct {
	ID            string             `json:"id,omitempty"`
	SourcePath    string             `json:"sourcePath"`
	Info          domain.FileInfo    `json:"info"`
	Resolution    domain.Resolution  `json:"resolution"`
	Stats         stats.DatasetStats `json:"stats"`
	Distributions []string           `json:"distributions"`
	Warnings      []string           `json:"warnings,omitempty"`
}

func (s *Server) handleDatasetSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ds, err := s.openDataset(ctx, req)
	if err != nil {
		return nil, err
	}
	return jsonResult(datasetSummary{
		ID:            ds.ID,
		SourcePath:    ds.SourcePath,
		Info:          ds.Info,
		Resolution:    ds.Resolution,
		Stats:         s.analysis.Summary(ds),
		Distributions: s.analysis.Available(ds),
		Warnings:      ds.Warnings,
	})
}
