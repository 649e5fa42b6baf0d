package protect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// StateStore is the capability the executor needs from the live wiki: read
// the current protection of an item and set or clear the highly-used
// semi-protection. Implemented by the wiki API client; tests use an
// in-memory fake.
type StateStore interface {
	// ReadState returns the live protection kind of the item.
	ReadState(ctx context.Context, itemID string) (ProtectionKind, error)
	// Protect applies the highly-used indefinite semi-protection.
	Protect(ctx context.Context, itemID string) error
	// Unprotect clears the highly-used semi-protection.
	Unprotect(ctx context.Context, itemID string) error
}

// Outcome is the terminal state of one executed decision.
type Outcome string

const (
	// OutcomeApplied means the mutation was submitted successfully.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkippedStale means the live state no longer matched the
	// snapshot-time state, so the item was left untouched.
	OutcomeSkippedStale Outcome = "skipped_stale_state"
	// OutcomeFailed means the remote call failed after bounded retries.
	OutcomeFailed Outcome = "failed"
)

// ExecResult records the outcome of one decision.
type ExecResult struct {
	ItemID  string  `json:"item_id"`
	Action  Action  `json:"action"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// ExecutorConfig holds the knobs for NewExecutor.
type ExecutorConfig struct {
	// Store is the live protection state capability. Required.
	Store StateStore
	// Logger receives per-item outcomes. Required.
	Logger *zap.Logger
	// Parallelism bounds the number of concurrent item mutations.
	// Defaults to 1 (fully serial, the original bot's behaviour).
	Parallelism int
	// EditInterval paces mutations across all workers, one write per
	// interval. Zero disables pacing.
	EditInterval time.Duration
	// WriteRetries is the number of extra attempts after a failed write.
	// Defaults to 2. Reads are never retried.
	WriteRetries int
	// RetryBackoff is the pause between write attempts.
	// Defaults to 2s.
	RetryBackoff time.Duration
}

// Executor applies gated decisions one item at a time, re-verifying each
// item's live protection immediately before mutating it.
type Executor struct {
	store        StateStore
	logger       *zap.Logger
	limiter      *rate.Limiter
	parallelism  int
	writeRetries int
	retryBackoff time.Duration
}

// NewExecutor creates an executor from the configuration, applying
// defaults for unset fields.
func NewExecutor(cfg ExecutorConfig) *Executor {
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	retries := cfg.WriteRetries
	if retries == 0 {
		retries = 2
	}
	if retries < 0 {
		retries = 0
	}
	backoff := cfg.RetryBackoff
	if backoff == 0 {
		backoff = 2 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.EditInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.EditInterval), 1)
	}
	return &Executor{
		store:        cfg.Store,
		logger:       cfg.Logger,
		limiter:      limiter,
		parallelism:  parallelism,
		writeRetries: retries,
		retryBackoff: backoff,
	}
}

// Run executes the removal batch followed by the addition batch and returns
// one result per completed item. Items are independent: a failure on one
// never aborts the others, and each item is wholly owned by a single worker
// so its read-then-write sequence is never interleaved with another
// operation on the same item. Cancellation is honoured between items, never
// mid-mutation; results for items not reached are simply absent.
func (e *Executor) Run(ctx context.Context, adds, removes []Decision) []ExecResult {
	results := make([]ExecResult, 0, len(adds)+len(removes))
	results = append(results, e.runBatch(ctx, removes)...)
	results = append(results, e.runBatch(ctx, adds)...)
	return results
}

func (e *Executor) runBatch(ctx context.Context, batch []Decision) []ExecResult {
	results := make([]ExecResult, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, d := range batch {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = e.executeOne(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	completed := results[:0]
	for _, r := range results {
		if r.ItemID != "" {
			completed = append(completed, r)
		}
	}
	return completed
}

// executeOne re-reads the item's live protection and applies the decision
// only if the state still matches what the decision assumed.
func (e *Executor) executeOne(ctx context.Context, d Decision) ExecResult {
	res := ExecResult{ItemID: d.ItemID, Action: d.Action}

	if err := e.limiter.Wait(ctx); err != nil {
		// A cancelled wait means the item was never reached; it stays
		// out of the report rather than counting as a failure.
		if ctx.Err() != nil {
			return ExecResult{}
		}
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		return res
	}

	live, err := e.store.ReadState(ctx, d.ItemID)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = fmt.Sprintf("live state read: %v", err)
		e.logger.Warn("live state read failed",
			zap.String("item", d.ItemID), zap.Error(err))
		return res
	}

	switch d.Action {
	case ActionAdd:
		// Never overwrite a protection someone else set in the meantime.
		if live != ProtectionNone {
			res.Outcome = OutcomeSkippedStale
			res.Detail = fmt.Sprintf("live protection is %s, expected none", live)
			e.logger.Info("skipping stale addition",
				zap.String("item", d.ItemID), zap.String("live", string(live)))
			return res
		}
		err = e.writeWithRetry(ctx, d.ItemID, e.store.Protect)
	case ActionRemove:
		// Never lift a protection this engine did not set.
		if live != ProtectionHighlyUsed {
			res.Outcome = OutcomeSkippedStale
			res.Detail = fmt.Sprintf("live protection is %s, expected %s", live, ProtectionHighlyUsed)
			e.logger.Info("skipping stale removal",
				zap.String("item", d.ItemID), zap.String("live", string(live)))
			return res
		}
		err = e.writeWithRetry(ctx, d.ItemID, e.store.Unprotect)
	default:
		res.Outcome = OutcomeFailed
		res.Detail = fmt.Sprintf("action %s is not executable", d.Action)
		return res
	}

	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		e.logger.Warn("mutation failed",
			zap.String("item", d.ItemID), zap.String("action", string(d.Action)), zap.Error(err))
		return res
	}

	res.Outcome = OutcomeApplied
	e.logger.Info("mutation applied",
		zap.String("item", d.ItemID),
		zap.String("action", string(d.Action)),
		zap.Int("usage", d.Usage),
		zap.String("reason", d.Reason))
	return res
}

// writeWithRetry retries the idempotent write a bounded number of times.
// Cancellation is only honoured between attempts so a submitted mutation is
// never abandoned halfway.
func (e *Executor) writeWithRetry(ctx context.Context, itemID string, write func(context.Context, string) error) error {
	var err error
	for attempt := 0; attempt <= e.writeRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
			case <-time.After(e.retryBackoff):
			}
		}
		if err = write(ctx, itemID); err == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", e.writeRetries+1, err)
}
