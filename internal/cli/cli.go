package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/config"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/logger"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/state"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/undelete"
)

// Run restores every object under one s3://bucket/prefix whose latest
// version is a delete marker, then reports the ones still hidden.
func Run(ctx context.Context, args []string) error {
	configPath, err := state.ConfigPath()
	if err != nil {
		return err
	}

	opts, err := parseRunArgs(args, configPath)
	if err != nil {
		return err
	}

	loc, err := storage.ParseURI(opts.URI)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log, err := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	ctx = logger.WithLogger(ctx, &log)

	store, err := newVersionStore(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}

	report, err := undelete.Run(ctx, store, undelete.Options{
		Location:         loc,
		PageSize:         cfg.S3.PageSize,
		FailFast:         cfg.Restore.FailFast,
		DeletesPerSecond: cfg.Restore.DeletesPerSecond,
		Out:              os.Stdout,
	})
	if err != nil {
		return err
	}

	printReport(report)

	if report.Restore.HasFailures() {
		return &RestoreFailuresError{
			Failed:    len(report.Restore.Failures()),
			Attempted: len(report.Restore.Outcomes),
			Err:       report.Restore.Err(),
		}
	}
	return nil
}

func loadConfig(opts runOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	opts.applyTo(cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}
