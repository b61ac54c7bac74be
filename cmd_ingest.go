package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"forestnav/internal/service"
)

var (
	ingestForce   bool
	ingestJobs    int
	ingestExport  bool
	ingestPattern string
	ingestJSON    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest PATH...",
	Short: "Decode PRI files and keep them in the dataset store",
	Long: `Decode PRI files and store the resulting datasets. A directory
argument ingests every file in it matching --pattern. Files whose bytes
were ingested before are skipped unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "Store files even if their content was ingested before")
	ingestCmd.Flags().IntVarP(&ingestJobs, "jobs", "j", 0, "Files decoded in parallel (0 for one per CPU)")
	ingestCmd.Flags().BoolVar(&ingestExport, "export", false, "Run the dataset_loaded export jobs for every stored dataset")
	ingestCmd.Flags().StringVar(&ingestPattern, "pattern", "", "File name glob for directory arguments (default from config)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Print the results as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := app.Open(); err != nil {
		return err
	}
	ctx := cmd.Context()
	app.ingest.SkipDuplicates = !ingestForce
	if ingestExport {
		app.ingest.OnLoaded(app.export.DatasetLoaded)
	}

	pattern := ingestPattern
	if pattern == "" {
		pattern = cfg.Watch.Pattern
	}

	var (
		results []*service.IngestResult
		errs    []error
		files   []string
	)
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			files = append(files, arg)
			continue
		}
		res, err := app.ingest.ScanDir(ctx, arg, pattern)
		results = append(results, res...)
		errs = append(errs, err)
	}
	if len(files) > 0 {
		res, err := app.ingest.IngestMany(ctx, files, ingestJobs)
		results = append(results, res...)
		errs = append(errs, err)
	}

	out := cmd.OutOrStdout()
	if ingestJSON {
		if err := printJSON(out, results); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	rows := make([][]string, 0, len(results))
	stored := 0
	for _, r := range results {
		status := "stored"
		switch {
		case r.Error != "":
			status = "error: " + r.Error
		case r.Duplicate:
			status = "duplicate"
		default:
			stored++
		}
		rows = append(rows, []string{
			shortID(r.ID), filepath.Base(r.Path),
			humanize.Comma(int64(r.Info.TreeCount)), humanize.Comma(int64(r.Info.LogCount)),
			status,
		})
	}
	printTable(out, []string{"ID", "FILE", "TREES", "LOGS", "STATUS"}, rows)
	fmt.Fprintf(out, "\n%d of %d files stored\n", stored, len(results))
	return errors.Join(errs...)
}

// shortID trims a UUID to its first group for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
