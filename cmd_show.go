package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"forestnav/internal/domain"
	"forestnav/internal/etl"
)

var (
	showTable   string
	showLimit   int
	showColumns []string
	showJSON    bool
)

var showCmd = &cobra.Command{
	Use:   "show FILE|DATASET_ID",
	Short: "Print the tree or log table of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showTable, "table", "t", string(domain.EntityTree), "Table to print: tree or log")
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 20, "Show at most this many rows (0 for all)")
	showCmd.Flags().StringSliceVar(&showColumns, "columns", nil, "Only these columns, comma separated")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print rows as JSON records")
}

func runShow(cmd *cobra.Command, args []string) error {
	kind := domain.EntityKind(showTable)
	if kind != domain.EntityTree && kind != domain.EntityLog {
		return fmt.Errorf("unknown table %q (want tree or log)", showTable)
	}

	ds, err := app.Dataset(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	t := ds.Table(kind)
	if t == nil {
		return fmt.Errorf("dataset has no %s table", kind)
	}

	cols := t.Columns
	if len(showColumns) > 0 {
		for _, c := range showColumns {
			if !t.HasColumn(c) {
				return fmt.Errorf("no column %q in %s table (have %s)", c, kind, strings.Join(t.Columns, ", "))
			}
		}
		cols = showColumns
	}

	out := cmd.OutOrStdout()
	if showJSON {
		n := t.Len()
		if showLimit > 0 {
			n = min(n, showLimit)
		}
		data := make([]map[string]any, n)
		for i := range data {
			rec := etl.RowRecord(t, i).Data
			maps.DeleteFunc(rec, func(k string, _ any) bool { return !slices.Contains(cols, k) })
			data[i] = rec
		}
		return printJSON(out, data)
	}

	rows := make([][]string, 0, t.Len())
	for i := range t.Rows {
		row := t.Row(i)
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = row[c]
		}
		rows = append(rows, cells)
	}
	printTable(out, cols, limitRows(rows, showLimit))
	if showLimit > 0 && t.Len() > showLimit {
		fmt.Fprintf(out, "\n%d of %d rows\n", showLimit, t.Len())
	}
	return nil
}
