package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"forestnav/internal/etl"
)

var (
	exportSet   []string
	exportLimit int
	exportJSON  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run and inspect the configured export jobs",
	Long: `Export jobs read a PRI file or a stored dataset, run it through a
transform chain and write the result to a target: sqlite, postgres,
mysql, mongodb or a directory of CSV files. Jobs and targets are declared
in the configuration file.`,
}

var exportRunCmd = &cobra.Command{
	Use:   "run JOB",
	Short: "Run an export job now",
	Long: `Run an export job now. --set overrides a source setting for this
run only, for example --set filePath=harvest.pri or --set datasetId=ID.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Open(); err != nil {
			return err
		}
		overrides, err := parseSettings(exportSet)
		if err != nil {
			return err
		}
		if id := overrides.String("datasetId"); id != "" {
			if overrides["datasetId"], err = app.ResolveID(id); err != nil {
				return err
			}
		}

		res, err := app.export.RunJob(cmd.Context(), args[0], overrides)
		if res != nil {
			out := cmd.OutOrStdout()
			if exportJSON {
				if perr := printJSON(out, res); perr != nil {
					return perr
				}
			} else if res.Status == "success" {
				fmt.Fprintf(out, "%s: read %s, wrote %s rows in %s\n", args[0],
					humanize.Comma(int64(res.RowsRead)), humanize.Comma(int64(res.RowsWritten)),
					res.Duration.Round(time.Millisecond))
			}
		}
		return err
	},
}

var exportJobsCmd = &cobra.Command{
	Use:     "jobs",
	Aliases: []string{"list"},
	Short:   "List export jobs and their last run",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Open(); err != nil {
			return err
		}
		jobs, err := app.export.ListJobs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if exportJSON {
			return printJSON(out, jobs)
		}
		rows := make([][]string, len(jobs))
		for i, j := range jobs {
			trigger := j.TriggerType
			if j.TriggerType == etl.TriggerSchedule {
				trigger += " " + j.TriggerConfig
			}
			lastRun := "never"
			if !j.LastRunAt.IsZero() {
				lastRun = humanize.Time(j.LastRunAt)
			}
			enabled := "yes"
			if !j.Enabled {
				enabled = "no"
			}
			rows[i] = []string{
				j.Name, j.SourceType, j.Target.Name + "/" + j.Target.Table,
				string(j.SyncMode), trigger, enabled, lastRun, j.LastStatus,
			}
		}
		printTable(out, []string{"JOB", "SOURCE", "TARGET", "MODE", "TRIGGER", "ENABLED", "LAST RUN", "STATUS"}, rows)
		return nil
	},
}

var exportLogsCmd = &cobra.Command{
	Use:   "logs JOB",
	Short: "Show the recent runs of an export job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Open(); err != nil {
			return err
		}
		logs, err := app.export.ListRunLogs(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if exportJSON {
			return printJSON(out, logs)
		}
		rows := make([][]string, len(logs))
		for i, l := range logs {
			rows[i] = []string{
				l.StartedAt.Local().Format(time.DateTime),
				l.FinishedAt.Sub(l.StartedAt).Round(time.Millisecond).String(),
				l.Status, fmt.Sprint(l.RowsRead), fmt.Sprint(l.RowsWritten), l.Error,
			}
		}
		printTable(out, []string{"STARTED", "TOOK", "STATUS", "READ", "WRITTEN", "ERROR"}, rows)
		return nil
	},
}

var exportSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the source types and their settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		specs := etl.ListSources()
		out := cmd.OutOrStdout()
		if exportJSON {
			return printJSON(out, specs)
		}
		var rows [][]string
		for _, s := range specs {
			for _, f := range s.ConfigFields {
				req := ""
				if f.Required {
					req = "required"
				}
				rows = append(rows, []string{s.Type, f.Key, f.Type, req, f.Help})
			}
		}
		printTable(out, []string{"SOURCE", "SETTING", "TYPE", "", "HELP"}, rows)
		return nil
	},
}

var exportPreviewCmd = &cobra.Command{
	Use:   "preview SOURCE",
	Short: "Read a few records from a source without writing them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Open(); err != nil {
			return err
		}
		settings, err := parseSettings(exportSet)
		if err != nil {
			return err
		}
		if id := settings.String("datasetId"); id != "" {
			if settings["datasetId"], err = app.ResolveID(id); err != nil {
				return err
			}
		}
		res, err := app.export.Preview(cmd.Context(), args[0], settings, exportLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportJSON {
			return printJSON(out, res)
		}
		header := res.Schema.FieldNames()
		rows := make([][]string, len(res.Records))
		for i, r := range res.Records {
			row := make([]string, len(header))
			for j, h := range header {
				if v := r.Data[h]; v != nil {
					row[j] = fmt.Sprint(v)
				}
			}
			rows[i] = row
		}
		printTable(out, header, rows)
		return nil
	},
}

// parseSettings turns key=value pairs into a source configuration.
func parseSettings(pairs []string) (etl.SourceConfig, error) {
	out := etl.SourceConfig{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid setting %q (want key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}

func init() {
	exportCmd.PersistentFlags().BoolVar(&exportJSON, "json", false, "Print JSON")
	exportRunCmd.Flags().StringArrayVar(&exportSet, "set", nil, "Source setting override as key=value (repeatable)")
	exportPreviewCmd.Flags().StringArrayVar(&exportSet, "set", nil, "Source setting as key=value (repeatable)")
	exportPreviewCmd.Flags().IntVarP(&exportLimit, "limit", "n", 10, "Records to read")

	exportCmd.AddCommand(exportRunCmd, exportJobsCmd, exportLogsCmd, exportSourcesCmd, exportPreviewCmd)
}
