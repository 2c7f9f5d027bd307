package cli

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/config"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	original := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = original

	out, readErr := io.ReadAll(r)
	_ = r.Close()
	if readErr != nil {
		t.Fatalf("read stdout: %v", readErr)
	}
	return string(out), runErr
}

func setCLIHome(t *testing.T) string {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CONFIG_HOME", homeDir)
	return homeDir
}

// useVersionStore swaps the S3 constructor for the duration of the test and
// records the settings it was called with.
func useVersionStore(t *testing.T, store storage.VersionStore) *config.S3Config {
	t.Helper()

	seen := &config.S3Config{}
	original := newVersionStore
	newVersionStore = func(_ context.Context, cfg config.S3Config) (storage.VersionStore, error) {
		*seen = cfg
		return store, nil
	}
	t.Cleanup(func() { newVersionStore = original })
	return seen
}
