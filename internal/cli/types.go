package cli

import (
	"errors"
	"fmt"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/config"
)

const (
	ExitOK             = 0
	ExitFatal          = 1
	ExitUsage          = 2
	ExitRestoreFailure = 3
)

// UsageError means the command line was wrong and no work was attempted.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

// RestoreFailuresError means both passes ran but some markers could not be
// removed.
type RestoreFailuresError struct {
	Failed    int
	Attempted int
	// Err joins the per-key causes.
	Err error
}

func (e *RestoreFailuresError) Error() string {
	return fmt.Sprintf("%d of %d restores failed", e.Failed, e.Attempted)
}

func (e *RestoreFailuresError) Unwrap() error { return e.Err }

// ExitCode maps a Run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsage
	}
	var restoreErr *RestoreFailuresError
	if errors.As(err, &restoreErr) {
		return ExitRestoreFailure
	}
	return ExitFatal
}

type runOptions struct {
	ConfigPath string
	URI        string

	Region           string
	Endpoint         string
	Profile          string
	PathStyle        bool
	MaxAttempts      int
	PageSize         int
	RequestTimeout   int
	FailFast         bool
	DeletesPerSecond float64
	LogLevel         string
	LogFormat        string

	// names of the flags given on the command line
	set map[string]bool
}

// applyTo overlays the flags that were given explicitly onto cfg.
func (o runOptions) applyTo(cfg *config.Config) {
	if o.set["region"] {
		cfg.S3.Region = o.Region
	}
	if o.set["endpoint"] {
		cfg.S3.Endpoint = o.Endpoint
	}
	if o.set["profile"] {
		cfg.S3.Profile = o.Profile
	}
	if o.set["path-style"] {
		cfg.S3.UsePathStyle = o.PathStyle
	}
	if o.set["max-attempts"] {
		cfg.S3.MaxAttempts = o.MaxAttempts
	}
	if o.set["page-size"] {
		cfg.S3.PageSize = o.PageSize
	}
	if o.set["request-timeout"] {
		cfg.S3.RequestTimeoutSeconds = o.RequestTimeout
	}
	if o.set["fail-fast"] {
		cfg.Restore.FailFast = o.FailFast
	}
	if o.set["rate"] {
		cfg.Restore.DeletesPerSecond = o.DeletesPerSecond
	}
	if o.set["log-level"] {
		cfg.Log.Level = o.LogLevel
	}
	if o.set["log-format"] {
		cfg.Log.Format = o.LogFormat
	}
}
