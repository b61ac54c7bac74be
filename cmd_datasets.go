package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var datasetsJSON bool

var datasetsCmd = &cobra.Command{
	Use:     "datasets",
	Aliases: []string{"ds"},
	Short:   "Manage stored datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored datasets, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Open(); err != nil {
			return err
		}
		list, err := app.datasets.ListDatasets()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if datasetsJSON {
			return printJSON(out, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No datasets. Run 'forestnav ingest FILE' to add one.")
			return nil
		}
		rows := make([][]string, len(list))
		for i, d := range list {
			rows[i] = []string{
				shortID(d.ID), d.Info.Name, humanize.Bytes(uint64(d.Info.Size)),
				humanize.Comma(int64(d.Info.TreeCount)), humanize.Comma(int64(d.Info.LogCount)),
				d.Info.Software, humanize.Time(d.CreatedAt),
			}
		}
		printTable(out, []string{"ID", "FILE", "SIZE", "TREES", "LOGS", "SOFTWARE", "LOADED"}, rows)
		return nil
	},
}

var datasetsRemoveCmd = &cobra.Command{
	Use:     "rm ID...",
	Aliases: []string{"remove"},
	Short:   "Delete stored datasets",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, ref := range args {
			id, err := app.ResolveID(ref)
			if err != nil {
				return err
			}
			if err := app.datasets.DeleteDataset(id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	datasetsListCmd.Flags().BoolVar(&datasetsJSON, "json", false, "Print the list as JSON")
	datasetsCmd.AddCommand(datasetsListCmd, datasetsRemoveCmd)
}
