package main

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"forestnav/internal/domain"
)

var speciesJSON bool

var speciesCmd = &cobra.Command{
	Use:   "species FILE|DATASET_ID",
	Short: "Count trees per species code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := app.Dataset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return runSpeciesOn(cmd.OutOrStdout(), ds)
	},
}

func init() {
	speciesCmd.Flags().BoolVar(&speciesJSON, "json", false, "Print the counts as JSON")
}

func runSpeciesOn(w io.Writer, ds *domain.Dataset) error {
	counts, err := app.analysis.Species(ds)
	if err != nil {
		return err
	}
	if speciesJSON || histJSON {
		return printJSON(w, counts)
	}
	peak := 0
	for _, c := range counts {
		peak = max(peak, c.Count)
	}
	width := barWidth()
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Value, strconv.Itoa(c.Count), bar(c.Count, peak, width)}
	}
	printTable(w, []string{"SPECIES", "TREES", ""}, rows)
	return nil
}
