package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"forestnav/internal/domain"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Decode a PRI file and report what was found",
	Long: `Decode a PRI file and print its metadata, table sizes, the column
chosen for every semantic key and any structural warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the report as JSON")
}

// parseReport is the JSON form of the parse command output.
type parseReport struct {
	Info       domain.FileInfo     `json:"info"`
	Columns    map[string][]string `json:"columns"`
	Resolution domain.Resolution   `json:"resolution"`
	Warnings   []string            `json:"warnings,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	ds, err := app.loader.LoadFile(path, progressPrinter(filepath.Base(path)))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if parseJSON {
		return printJSON(out, parseReport{
			Info: ds.Info,
			Columns: map[string][]string{
				string(domain.EntityTree): ds.Tree.Columns,
				string(domain.EntityLog):  ds.Log.Columns,
			},
			Resolution: ds.Resolution,
			Warnings:   ds.Warnings,
		})
	}

	info := ds.Info
	fmt.Fprintf(out, "File:      %s\n", info.Name)
	fmt.Fprintf(out, "Size:      %s\n", humanize.Bytes(uint64(info.Size)))
	fmt.Fprintf(out, "Encoding:  %s\n", info.Encoding)
	if info.Software != "" {
		fmt.Fprintf(out, "Software:  %s\n", info.Software)
	}
	fmt.Fprintf(out, "Trees:     %s (%d columns)\n", humanize.Comma(int64(info.TreeCount)), len(ds.Tree.Columns))
	fmt.Fprintf(out, "Logs:      %s (%d columns)\n", humanize.Comma(int64(info.LogCount)), len(ds.Log.Columns))
	fmt.Fprintln(out)

	var rows [][]string
	for _, k := range domain.AllKeys {
		ref, ok := ds.Resolution.Lookup(k)
		if !ok {
			rows = append(rows, []string{string(k), "", "unresolved"})
			continue
		}
		rows = append(rows, []string{string(k), string(ref.Kind), ref.Column})
	}
	printTable(out, []string{"KEY", "TABLE", "COLUMN"}, rows)

	if len(ds.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range ds.Warnings {
			fmt.Fprintf(out, "  %s\n", w)
		}
	}
	return nil
}
