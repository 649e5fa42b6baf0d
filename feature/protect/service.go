package protect

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SnapshotSource loads the usage snapshot.
type SnapshotSource interface {
	Load(ctx context.Context) ([]UsageRecord, error)
}

// BlacklistSource loads the exclusion list.
type BlacklistSource interface {
	Load(ctx context.Context) (BlacklistSet, error)
}

// ProtectionSource provides the pre-run protection snapshot.
type ProtectionSource interface {
	ProtectedItems(ctx context.Context) (map[string]ProtectionRecord, error)
}

// SiteStats provides wiki-wide statistics for the report.
type SiteStats interface {
	TotalItems(ctx context.Context) (int, error)
}

// ReportPublisher saves a rendered report to its on-wiki page.
type ReportPublisher interface {
	SavePage(ctx context.Context, title, text, summary string) error
}

// ServiceConfig wires a Service. Snapshot, Blacklist, Protection, Store and
// Logger are required; the rest are optional collaborators.
type ServiceConfig struct {
	Snapshot   SnapshotSource
	Blacklist  BlacklistSource
	Protection ProtectionSource
	Store      StateStore
	Logger     *zap.Logger

	Subscribers SubscriberCounter // required when the policy sets a minimum
	Stats       SiteStats
	Publisher   ReportPublisher
	Archive     *Archive

	Policy         Policy
	SnapshotURL    string
	BlacklistURL   string
	ReportPage     string
	ReportTemplate string // path to a wikitext template file; empty uses the built-in
	DumpDir        string

	Parallelism  int
	EditInterval time.Duration
}

// Service runs the full reconciliation pipeline: load, decide, gate,
// execute, report.
type Service struct {
	cfg    ServiceConfig
	logger *zap.Logger
}

// NewService validates the policy and creates a service. An invalid policy
// is a configuration error and aborts before any work.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, logger: cfg.Logger}, nil
}

// RunOpts holds per-run options.
type RunOpts struct {
	// DryRun computes, gates and reports decisions without executing any
	// mutation.
	DryRun bool
}

// Run performs one reconciliation run and returns its report. Loader
// failures abort the run with no decisions computed; per-item execution
// failures are recorded in the report and never abort the run.
func (s *Service) Run(ctx context.Context, opts RunOpts) (*RunReport, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()
	l := s.logger.With(zap.String("run_id", runID))
	l.Info("reconciliation run starting", zap.Bool("dry_run", opts.DryRun))

	snapshot, err := s.cfg.Snapshot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load usage snapshot: %w", err)
	}
	blacklist, err := s.cfg.Blacklist.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}
	protection, err := s.cfg.Protection.ProtectedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load protection state: %w", err)
	}

	if s.cfg.Policy.MinSubscribedProjects > 0 {
		if s.cfg.Subscribers == nil {
			return nil, fmt.Errorf("policy requires %d subscribed projects but no subscriber source is configured",
				s.cfg.Policy.MinSubscribedProjects)
		}
		if err := EnrichSubscribers(ctx, snapshot, s.cfg.Subscribers, s.cfg.Policy); err != nil {
			return nil, fmt.Errorf("enrich subscriber counts: %w", err)
		}
	}

	totalItems := 0
	if s.cfg.Stats != nil {
		if totalItems, err = s.cfg.Stats.TotalItems(ctx); err != nil {
			// The total only feeds the qualifying percentage; a failed
			// lookup degrades the report, not the run.
			l.Warn("total item count unavailable", zap.Error(err))
			totalItems = 0
		}
	}

	plan := Decide(snapshot, blacklist, protection, s.cfg.Policy)
	gate := Gate(plan, s.cfg.Policy)
	adds := CapApproved(gate.Adds, s.cfg.Policy.HardLimit)
	removes := CapApproved(gate.Removes, s.cfg.Policy.HardLimit)

	l.Info("plan computed",
		zap.Int("snapshot", plan.Counts.SnapshotSize),
		zap.Int("adds", plan.Counts.Adds),
		zap.Int("removes", plan.Counts.Removes),
		zap.Int("cooldowns", plan.Counts.Cooldowns),
		zap.Bool("adds_withheld", gate.AddsWithheld),
		zap.Bool("removes_withheld", gate.RemovesWithheld))

	if s.cfg.DumpDir != "" {
		if err := WriteDecisionDumps(s.cfg.DumpDir, plan); err != nil {
			l.Warn("decision dumps failed", zap.Error(err))
		}
	}

	var results []ExecResult
	if !opts.DryRun && (len(adds) > 0 || len(removes) > 0) {
		exec := NewExecutor(ExecutorConfig{
			Store:        s.cfg.Store,
			Logger:       l,
			Parallelism:  s.cfg.Parallelism,
			EditInterval: s.cfg.EditInterval,
		})
		results = exec.Run(ctx, adds, removes)
	}

	rep := BuildReport(BuildReportInput{
		RunID:         runID,
		Timestamp:     started,
		DryRun:        opts.DryRun,
		Policy:        s.cfg.Policy,
		SnapshotURL:   s.cfg.SnapshotURL,
		BlacklistURL:  s.cfg.BlacklistURL,
		Plan:          plan,
		Gate:          gate,
		Results:       results,
		TotalItems:    totalItems,
		BlacklistSize: len(blacklist),
	})

	wikitext, err := s.renderReport(rep)
	if err != nil {
		l.Warn("report rendering failed", zap.Error(err))
		wikitext = ""
	}

	if s.cfg.Archive != nil && wikitext != "" {
		if err := s.cfg.Archive.Store(ctx, rep, wikitext); err != nil {
			l.Warn("report archiving failed", zap.Error(err))
		}
	}

	// The on-wiki page only changes when something happened, matching the
	// weekly cadence readers expect. A failed render publishes nothing:
	// saving an empty page would blank the live report.
	if s.cfg.Publisher != nil && s.cfg.ReportPage != "" && wikitext != "" && !opts.DryRun && rep.AddedCount+rep.LiftedCount > 0 {
		const summary = "update page protection management statistics"
		if err := s.cfg.Publisher.SavePage(ctx, s.cfg.ReportPage, wikitext, summary); err != nil {
			l.Warn("report publication failed", zap.Error(err))
		}
	}

	l.Info("reconciliation run finished",
		zap.Int("added", rep.AddedCount),
		zap.Int("lifted", rep.LiftedCount),
		zap.Duration("elapsed", time.Since(started)))
	return rep, nil
}

func (s *Service) renderReport(rep *RunReport) (string, error) {
	tmpl := ""
	if s.cfg.ReportTemplate != "" {
		data, err := os.ReadFile(s.cfg.ReportTemplate)
		if err != nil {
			return "", fmt.Errorf("read report template: %w", err)
		}
		tmpl = string(data)
	}
	return rep.Render(tmpl)
}
