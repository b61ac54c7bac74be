package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownGrace bounds how long in-flight ingests and exports may finish.
const shutdownGrace = 30 * time.Second

var (
	watchInbox    string
	watchSchedule string
	watchNoScan   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest PRI files as they arrive in the inbox",
	Long: `Watch the inbox directory and ingest every matching file once it
has stopped changing. Stored datasets trigger the dataset_loaded export
jobs and the scheduled export jobs run on their cron expressions. Files
already in the inbox are ingested on start unless --no-scan is given.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchInbox, "inbox", "", "Directory to watch (default from config)")
	watchCmd.Flags().StringVar(&watchSchedule, "rescan", "", "Cron expression for a full inbox rescan")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "Do not ingest the files already in the inbox")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := app.Open(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	wc := cfg.Watch
	if watchInbox != "" {
		wc.Inbox = watchInbox
	}
	if watchSchedule != "" {
		wc.Schedule = watchSchedule
	}
	if wc.Inbox == "" {
		return fmt.Errorf("no inbox: set watch.inbox in %s or pass --inbox", configPath)
	}

	app.ingest.OnLoaded(app.export.DatasetLoaded)

	n, err := app.export.StartSchedules(ctx)
	if err != nil {
		// Bad schedules are reported; the good ones still run.
		logger.Warn("export schedules", zap.Error(err))
	}

	if err := app.ingest.Watch(ctx, wc, cfg.GetWatchDebounce()); err != nil {
		return err
	}
	if !watchNoScan {
		if _, err := app.ingest.ScanDir(ctx, wc.Inbox, wc.Pattern); err != nil {
			logger.Warn("initial inbox scan", zap.Error(err))
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for %s (%d scheduled jobs). Press Ctrl+C to stop.\n", wc.Inbox, wc.Pattern, n)
	<-ctx.Done()

	logger.Info("shutting down")
	app.ingest.Stop()
	app.export.Stop()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer waitCancel()
	app.ingest.WaitRunning(waitCtx)
	app.export.WaitRunning(waitCtx)
	return nil
}
