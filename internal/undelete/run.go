package undelete

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/logger"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"

	"golang.org/x/time/rate"
)

type Options struct {
	Location storage.Location
	PageSize int
	FailFast bool
	// DeletesPerSecond throttles delete calls; zero means unlimited.
	DeletesPerSecond float64
	Out              io.Writer
}

// Report collects both passes of one run.
type Report struct {
	Location storage.Location
	Restore  RestoreResult
	Verify   VerifyResult
}

func (r Report) Remaining() int { return len(r.Verify.Findings) }

// Run restores every latest delete marker under opts.Location, then lists
// again from scratch and reports the markers that are still latest. A
// listing failure in either pass ends the run; per-key restore failures are
// carried in the report.
func Run(ctx context.Context, store storage.VersionStore, opts Options) (Report, error) {
	report := Report{Location: opts.Location}
	if store == nil {
		return report, errors.New("version store is required")
	}
	if opts.Location.Bucket == "" {
		return report, fmt.Errorf("bucket: %w", storage.ErrMissingField)
	}

	log := logger.Ctx(ctx).With().
		Str("bucket", opts.Location.Bucket).
		Str("prefix", opts.Location.Prefix).
		Logger()
	ctx = logger.WithLogger(ctx, &log)

	log.Info().Msg("restore pass started")
	executor := NewExecutor(store, NewLister(store, opts.Location, opts.PageSize), ExecutorOptions{
		Out:      opts.Out,
		FailFast: opts.FailFast,
		Limiter:  newDeleteLimiter(opts.DeletesPerSecond),
	})
	restored, err := executor.Run(ctx)
	report.Restore = restored
	if err != nil {
		return report, fmt.Errorf("restore pass: %w", err)
	}
	log.Info().
		Int("pages", restored.Pages).
		Int("scanned", restored.Scanned).
		Int("restored", restored.Restored()).
		Int("already_gone", restored.AlreadyGone()).
		Int("failed", len(restored.Failures())).
		Msg("restore pass finished")

	log.Info().Msg("verification pass started")
	verified, err := NewVerifier(NewLister(store, opts.Location, opts.PageSize), opts.Out).Run(ctx)
	report.Verify = verified
	if err != nil {
		return report, fmt.Errorf("verification pass: %w", err)
	}
	log.Info().
		Int("pages", verified.Pages).
		Int("scanned", verified.Scanned).
		Int("remaining", len(verified.Findings)).
		Msg("verification pass finished")

	return report, nil
}

func newDeleteLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Max(1, math.Floor(perSecond)))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
