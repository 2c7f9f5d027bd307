package cli

import (
	"context"
	"fmt"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/config"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/undelete"

	"github.com/dustin/go-humanize"
)

var newVersionStore = func(ctx context.Context, cfg config.S3Config) (storage.VersionStore, error) {
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func printReport(report undelete.Report) {
	for _, failure := range report.Restore.Failures() {
		fmt.Printf("Failed to restore object: %s (%s: %v)\n", failure.Key, failure.Status, failure.Err)
	}

	fmt.Printf(
		"restore complete: scanned=%s restored=%s already_gone=%s failed=%s remaining=%s\n",
		count(report.Restore.Scanned),
		count(report.Restore.Restored()),
		count(report.Restore.AlreadyGone()),
		count(len(report.Restore.Failures())),
		count(report.Remaining()),
	)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}
