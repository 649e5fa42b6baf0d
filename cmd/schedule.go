package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MisterSynergy/rfc-protect/core/config"
	"github.com/MisterSynergy/rfc-protect/core/logger"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scheduleCmd runs reconciliations on the configured cron schedule.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run reconciliations on a cron schedule",
	Long: `Runs the reconciliation on the cron expression configured under
protect.schedule (default: weekly, Monday 03:00). Overlapping runs are
skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		l, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		c := cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		))
		_, err = c.AddFunc(cfg.Protect.Schedule, func() {
			l.Info("scheduled run starting", zap.String("schedule", cfg.Protect.Schedule))
			rep, err := executeRun(ctx, cfg, l, cfg.Protect.DryRun)
			if err != nil {
				l.Error("scheduled run failed", zap.Error(err))
				return
			}
			printRunReport(l, rep)
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Protect.Schedule, err)
		}

		c.Start()
		l.Info("scheduler started", zap.String("schedule", cfg.Protect.Schedule))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		l.Info("Shutting down scheduler...")
		cancel()
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	RootCmd.AddCommand(scheduleCmd)
}
