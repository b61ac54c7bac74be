package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"forestnav/internal/pri"
)

var (
	rawMatrix bool
	rawLimit  int
	rawJSON   bool
)

var rawCmd = &cobra.Command{
	Use:   "raw FILE",
	Short: "List the raw variable records of a PRI file",
	Long: `List every well-formed record of a PRI file with its StanForD
description. With --matrix the records are laid out side by side, one
column per record and its tokens running down the rows.`,
	Args: cobra.ExactArgs(1),
	RunE: runRaw,
}

func init() {
	rawCmd.Flags().BoolVar(&rawMatrix, "matrix", false, "Lay the records out as a token matrix")
	rawCmd.Flags().IntVarP(&rawLimit, "limit", "n", 0, "Show at most this many rows (0 for all)")
	rawCmd.Flags().BoolVar(&rawJSON, "json", false, "Print the records as JSON")
}

func runRaw(cmd *cobra.Command, args []string) error {
	res, err := app.loader.Parser(pri.WithRawRecords()).ParseFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rawJSON {
		return printJSON(out, res.Raw)
	}

	if rawMatrix {
		header, rows := pri.RawMatrix(res.Raw)
		printTable(out, header, limitRows(rows, rawLimit))
		return nil
	}

	rows := make([][]string, 0, len(res.Raw))
	for _, r := range res.Raw {
		desc := ""
		if v, err := strconv.Atoi(r.Var); err == nil {
			if t, err := strconv.Atoi(r.Type); err == nil {
				desc = pri.Describe(v, t)
			}
		}
		rows = append(rows, []string{r.Var, r.Type, desc, strconv.Itoa(len(r.Tokens)), strings.Join(strings.Fields(r.Value), " ")})
	}
	printTable(out, []string{"VAR", "TYPE", "DESCRIPTION", "TOKENS", "VALUE"}, limitRows(rows, rawLimit))
	fmt.Fprintf(out, "\n%d records\n", len(res.Raw))
	return nil
}

// limitRows returns the first n rows, or all of them when n is not positive.
func limitRows(rows [][]string, n int) [][]string {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
