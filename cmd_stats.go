package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"forestnav/internal/stats"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats FILE|DATASET_ID",
	Short: "Describe the tree and log measures of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the summary as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ds, err := app.Dataset(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	summary := app.analysis.Summary(ds)

	out := cmd.OutOrStdout()
	if statsJSON {
		return printJSON(out, summary)
	}

	fmt.Fprintf(out, "%s: %s trees, %s logs\n\n", ds.Info.Name,
		humanize.Comma(int64(ds.Info.TreeCount)), humanize.Comma(int64(ds.Info.LogCount)))
	printSummaries(out, "Trees", summary.Tree)
	printSummaries(out, "Logs", summary.Log)
	if c := summary.Center; c != nil {
		fmt.Fprintf(out, "Center: %s, %s\n", c.Lat, c.Lon)
	}
	return nil
}

func printSummaries(w io.Writer, title string, cols []stats.ColumnSummary) {
	if len(cols) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	rows := make([][]string, len(cols))
	for i, c := range cols {
		rows[i] = []string{
			string(c.Key), c.Column, fmt.Sprint(c.Count),
			fmtValue(c.Mean), fmtValue(c.Std), fmtValue(c.Min),
			fmtValue(c.Median), fmtValue(c.Max),
		}
	}
	printTable(w, []string{"KEY", "COLUMN", "COUNT", "MEAN", "STD", "MIN", "MEDIAN", "MAX"}, rows)
	fmt.Fprintln(w)
}
