package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	datasetsURI        = "forestnav://datasets"
	datasetURIPrefix   = "forestnav://dataset/"
	datasetURISuffix   = "/summary"
	datasetURITemplate = datasetURIPrefix + "{datasetId}" + datasetURISuffix
)

func (s *Server) registerResources() {
	if s.datasets == nil {
		return
	}

	// ── forestnav://datasets ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		datasetsURI,
		"Stored Datasets",
		mcp.WithMIMEType("application/json"),
	), s.handleDatasetsResource)

	// ── forestnav://dataset/{datasetId}/summary ────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			datasetURITemplate,
			"Dataset Summary",
		),
		s.handleDatasetResource,
	)
}

func (s *Server) handleDatasetsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := s.datasets.ListDatasets()
	if err != nil {
		return nil, err
	}

	type datasetEntry struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Trees int    `json:"trees"`
		Logs  int    `json:"logs"`
	}

	entries := make([]datasetEntry, 0, len(list))
	for _, d := range list {
		entries = append(entries, datasetEntry{ID: d.ID, Name: d.Info.Name, Trees: d.Info.TreeCount, Logs: d.Info.LogCount})
	}

	data, _ := json.MarshalIndent(entries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      datasetsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleDatasetResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := datasetIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract datasetId from URI: %s", uri)
	}

	ds, err := s.datasets.GetDataset(id)
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(datasetSummary{
		ID:            ds.ID,
		SourcePath:    ds.SourcePath,
		Info:          ds.Info,
		Resolution:    ds.Resolution,
		Stats:         s.analysis.Summary(ds),
		Distributions: s.analysis.Available(ds),
		Warnings:      ds.Warnings,
	}, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// datasetIDFromURI extracts the ID from "forestnav://dataset/{id}/summary".
func datasetIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, datasetURIPrefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, datasetURISuffix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
