package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "forestnav/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the dataset tools over MCP on stdin/stdout",
	Long: `Run forestnav as a Model Context Protocol server on stdin/stdout so
an AI agent can ingest PRI files, query their statistics and run exports.
Logs go to stderr or the configured log file, never to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Open(); err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		app.ingest.OnLoaded(app.export.DatasetLoaded)

		srv := mcpserver.New(mcpserver.Deps{
			Logger:   logger,
			Datasets: app.datasets,
			Ingest:   app.ingest,
			Analysis: app.analysis,
			Export:   app.export,
			Version:  version,
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ServeStdio() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			waitCtx, waitCancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer waitCancel()
			app.export.WaitRunning(waitCtx)
			return nil
		}
	},
}
