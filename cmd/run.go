package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/MisterSynergy/rfc-protect/core/config"
	"github.com/MisterSynergy/rfc-protect/core/database"
	"github.com/MisterSynergy/rfc-protect/core/logger"
	"github.com/MisterSynergy/rfc-protect/core/storage"
	"github.com/MisterSynergy/rfc-protect/feature/protect"
	"github.com/MisterSynergy/rfc-protect/feature/protect/wiki"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dryRunFlag bool

// runCmd performs one reconciliation run.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one protection reconciliation",
	Long: `Run one full reconciliation: load the usage snapshot, the blacklist and
the current protection state, decide which protections to add, lift or
leave in cooldown, and apply the surviving decisions against the live wiki.

Examples:
  # Report decisions without changing anything
  rfc-protect run --dry-run

  # Full run
  rfc-protect run`,
	RunE: runReconciliation,
}

func init() {
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Compute and report decisions without executing them")
	RootCmd.AddCommand(runCmd)
}

func runReconciliation(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	rep, err := executeRun(cmd.Context(), cfg, l, dryRunFlag || cfg.Protect.DryRun)
	if err != nil {
		return err
	}

	printRunReport(l, rep)
	return nil
}

// executeRun wires a Service from the configuration and performs one run.
// Shared by the run and schedule commands.
func executeRun(ctx context.Context, cfg *config.Config, l *zap.Logger, dryRun bool) (*protect.RunReport, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to replica: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	early, err := protect.LoadEarlyProtections(cfg.Protect.EarlyProtectionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load early protections: %w", err)
	}

	client := wiki.NewClient(wiki.ClientConfig{
		Endpoint:   cfg.Protect.APIEndpoint,
		OAuthToken: cfg.Protect.OAuthToken,
		Logger:     l,
	})

	var archive *protect.Archive
	if cfg.Storage.Enabled {
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to archive storage: %w", err)
		}
		if archive, err = protect.NewArchive(ctx, store, cfg.Storage.Bucket); err != nil {
			return nil, fmt.Errorf("failed to open report archive: %w", err)
		}
	}

	svc, err := protect.NewService(protect.ServiceConfig{
		Snapshot:       protect.NewSnapshotLoader(cfg.Protect.SnapshotURL, cfg.Protect.SnapshotCache, l),
		Blacklist:      protect.NewBlacklistLoader(cfg.Protect.BlacklistURL, l),
		Protection:     protect.NewReplicaReader(db, cfg.Protect.Whitelist(), early),
		Store:          client,
		Subscribers:    client,
		Stats:          client,
		Publisher:      client,
		Archive:        archive,
		Logger:         l,
		Policy:         cfg.Protect.Policy,
		SnapshotURL:    cfg.Protect.SnapshotURL,
		BlacklistURL:   cfg.Protect.BlacklistURL,
		ReportPage:     cfg.Protect.ReportPage,
		ReportTemplate: cfg.Protect.ReportTemplate,
		DumpDir:        cfg.Protect.DumpDir,
		Parallelism:    cfg.Protect.Parallelism,
		EditInterval:   time.Duration(cfg.Protect.EditIntervalSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	return svc.Run(ctx, protect.RunOpts{DryRun: dryRun})
}

// printRunReport logs the report's headline numbers.
func printRunReport(l *zap.Logger, rep *protect.RunReport) {
	l.Info("run report",
		zap.String("run_id", rep.RunID),
		zap.Bool("dry_run", rep.DryRun),
		zap.Int("snapshot_size", rep.SnapshotSize),
		zap.Int("qualifying", rep.Qualifying),
		zap.Int("protected_highly_used", rep.ProtectedHighlyUsed),
		zap.Int("protected_other", rep.ProtectedOther),
		zap.Int("proposed_adds", rep.ProposedAdds),
		zap.Int("proposed_removes", rep.ProposedRemoves),
		zap.Int("cooldown", rep.CooldownCount),
		zap.Int("added", rep.AddedCount),
		zap.Int("lifted", rep.LiftedCount),
	)

	if rep.AddsWithheld {
		l.Warn("addition batch withheld", zap.String("reason", rep.AddsWithheldReason))
	}
	if rep.RemovesWithheld {
		l.Warn("removal batch withheld", zap.String("reason", rep.RemovesWithheldReason))
	}

	for outcome, n := range rep.AdditionStats {
		l.Info("addition processing", zap.String("outcome", string(outcome)), zap.Int("count", n))
	}
	for outcome, n := range rep.RemovalStats {
		l.Info("removal processing", zap.String("outcome", string(outcome)), zap.Int("count", n))
	}
}
