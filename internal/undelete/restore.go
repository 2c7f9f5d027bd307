package undelete

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/logger"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"

	"golang.org/x/time/rate"
)

type Status int

const (
	StatusRestored Status = iota
	StatusAlreadyGone
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusRestored:
		return "restored"
	case StatusAlreadyGone:
		return "already-gone"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// RestoreOutcome is the result of acting on one latest delete marker.
type RestoreOutcome struct {
	Key       string
	VersionID string
	Status    Status
	Err       error
}

func (o RestoreOutcome) failed() bool {
	return o.Status == StatusFailed || o.Status == StatusSkipped
}

type RestoreResult struct {
	Pages    int
	Scanned  int
	Outcomes []RestoreOutcome
}

func (r RestoreResult) Restored() int { return r.count(StatusRestored) }

func (r RestoreResult) AlreadyGone() int { return r.count(StatusAlreadyGone) }

func (r RestoreResult) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failures returns the outcomes that left a delete marker in place.
func (r RestoreResult) Failures() []RestoreOutcome {
	var out []RestoreOutcome
	for _, o := range r.Outcomes {
		if o.failed() {
			out = append(out, o)
		}
	}
	return out
}

func (r RestoreResult) HasFailures() bool {
	for _, o := range r.Outcomes {
		if o.failed() {
			return true
		}
	}
	return false
}

// Err joins the per-key failures, or returns nil when there are none.
func (r RestoreResult) Err() error {
	var errs []error
	for _, o := range r.Failures() {
		errs = append(errs, fmt.Errorf("%s: %w", o.Key, o.Err))
	}
	return errors.Join(errs...)
}

// RestoreError aborts a fail-fast restore pass.
type RestoreError struct {
	Key       string
	VersionID string
	Err       error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore %s@%s: %v", e.Key, e.VersionID, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

type ExecutorOptions struct {
	Out      io.Writer
	FailFast bool
	Limiter  *rate.Limiter
}

// Executor removes every latest delete marker found by its lister, one
// delete call at a time.
type Executor struct {
	store  storage.VersionStore
	lister *Lister
	opts   ExecutorOptions
}

func NewExecutor(store storage.VersionStore, lister *Lister, opts ExecutorOptions) *Executor {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Executor{store: store, lister: lister, opts: opts}
}

func (e *Executor) Run(ctx context.Context) (RestoreResult, error) {
	var result RestoreResult
	seen := make(map[string]struct{})

	for page, err := range e.lister.KeyPages(ctx) {
		if err != nil {
			return result, err
		}
		result.Pages++
		result.Scanned += len(page.Entries)

		for _, entry := range FilterLatestDeleteMarkers(page) {
			if _, dup := seen[entry.Key]; dup {
				logger.Ctx(ctx).Warn().Str("key", entry.Key).Str("version_id", entry.VersionID).
					Msg("skipping repeated latest delete marker")
				continue
			}
			seen[entry.Key] = struct{}{}

			outcome, err := e.restore(ctx, entry)
			if outcome != nil {
				result.Outcomes = append(result.Outcomes, *outcome)
			}
			if err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

// restore returns a nil outcome only when no attempt was made.
func (e *Executor) restore(ctx context.Context, entry storage.VersionEntry) (*RestoreOutcome, error) {
	log := logger.Ctx(ctx)
	outcome := &RestoreOutcome{Key: entry.Key, VersionID: entry.VersionID}

	if entry.Key == "" || entry.VersionID == "" {
		outcome.Status = StatusSkipped
		outcome.Err = fmt.Errorf("delete marker key=%q version_id=%q: %w", entry.Key, entry.VersionID, storage.ErrMissingField)
		log.Error().Err(outcome.Err).Msg("skipping delete marker")
		if e.opts.FailFast {
			return outcome, &RestoreError{Key: entry.Key, VersionID: entry.VersionID, Err: outcome.Err}
		}
		return outcome, nil
	}

	if e.opts.Limiter != nil {
		if err := e.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for delete slot: %w", err)
		}
	}

	bucket := e.lister.loc.Bucket
	err := e.store.DeleteObjectVersion(ctx, bucket, entry.Key, entry.VersionID)
	switch {
	case err == nil:
		outcome.Status = StatusRestored
		fmt.Fprintf(e.opts.Out, "Restored object: %s\n", entry.Key)
		log.Debug().Str("key", entry.Key).Str("version_id", entry.VersionID).Msg("removed delete marker")
		return outcome, nil
	case errors.Is(err, storage.ErrVersionNotFound):
		outcome.Status = StatusAlreadyGone
		log.Warn().Str("key", entry.Key).Str("version_id", entry.VersionID).Msg("delete marker already removed")
		return outcome, nil
	}

	outcome.Status = StatusFailed
	outcome.Err = err
	log.Error().Err(err).Str("key", entry.Key).Str("version_id", entry.VersionID).Msg("restore failed")
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, ctxErr
	}
	if e.opts.FailFast {
		return outcome, &RestoreError{Key: entry.Key, VersionID: entry.VersionID, Err: err}
	}
	return outcome, nil
}
