package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"forestnav/internal/domain"
	"forestnav/internal/stats"
)

// histogram bar width when stdout is not a terminal
const defaultBarWidth = 40

var (
	histStart string
	histEnd   string
	histWidth string
	histList  bool
	histJSON  bool
)

var histCmd = &cobra.Command{
	Use:   "hist FILE|DATASET_ID [NAME]",
	Short: "Bin a distribution of a dataset",
	Long: `Bin a named distribution of a dataset and draw it as bars.

NAME is one of the distributions listed by --list; log_diameter shows top
and butt log diameters side by side. Without --start and --end the bins
span the observed values. --width is a bin width when a range is given
and a bin count otherwise.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runHist,
}

func init() {
	histCmd.Flags().StringVar(&histStart, "start", "", "Lower edge of the first bin")
	histCmd.Flags().StringVar(&histEnd, "end", "", "Upper edge of the last bin")
	histCmd.Flags().StringVar(&histWidth, "width", "", "Bin width, or bin count without a range")
	histCmd.Flags().BoolVar(&histList, "list", false, "List the distributions the dataset has data for")
	histCmd.Flags().BoolVar(&histJSON, "json", false, "Print the bins as JSON")
}

func runHist(cmd *cobra.Command, args []string) error {
	ds, err := app.Dataset(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if histList || len(args) == 1 {
		for _, name := range app.analysis.Available(ds) {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	name := args[1]
	params := stats.ParseBinParams(histStart, histEnd, histWidth)

	switch name {
	case "species":
		return runSpeciesOn(out, ds)
	case "log_diameter":
		buckets, err := app.analysis.LogDiameter(ds, params)
		if err != nil {
			return err
		}
		if histJSON {
			return printJSON(out, buckets)
		}
		printDiameterBuckets(out, buckets)
		return nil
	}

	dist, err := app.analysis.Histogram(ds, name, params)
	if err != nil {
		return err
	}
	if histJSON {
		return printJSON(out, dist)
	}

	fmt.Fprintf(out, "%s\n%s [%s], %d values\n\n", dist.Title, dist.Column, dist.Unit, dist.Count)
	printBuckets(out, dist.Bins)
	return nil
}

func barWidth() int {
	if w := terminalWidth(); w > 0 {
		return max(10, w-40)
	}
	return defaultBarWidth
}

func printBuckets(w io.Writer, bins []stats.Bucket) {
	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}
	width := barWidth()
	rows := make([][]string, len(bins))
	for i, b := range bins {
		rows[i] = []string{fmtEdge(b.Start), fmtEdge(b.End), strconv.Itoa(b.Count), bar(b.Count, peak, width)}
	}
	printTable(w, []string{"FROM", "TO", "COUNT", ""}, rows)
}

func printDiameterBuckets(w io.Writer, bins []stats.DiameterBucket) {
	peak := 0
	for _, b := range bins {
		peak = max(peak, deref(b.Top), deref(b.Butt))
	}
	width := barWidth() / 2
	rows := make([][]string, len(bins))
	for i, b := range bins {
		rows[i] = []string{
			fmtEdge(b.Start), fmtEdge(b.End),
			countCell(b.Top), countCell(b.Butt),
			runewidth.FillRight(bar(deref(b.Top), peak, width), width) + " " + bar(deref(b.Butt), peak, width),
		}
	}
	printTable(w, []string{"FROM", "TO", "TOP", "BUTT", ""}, rows)
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func countCell(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func fmtEdge(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func fmtValue(v domain.Value) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.V, 'f', 2, 64)
}
