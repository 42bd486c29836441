// Package testutil provides test helper utilities for ddt tests.
package testutil

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ddtlab/ddt/internal/devserver"
)

// TempFiles creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// RehearsalService starts an in-memory design service and returns its
// base URL. A zero Seed is replaced by 1 so designs are reproducible.
func RehearsalService(t *testing.T, opts devserver.Options) string {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	ts := httptest.NewServer(devserver.NewServer(opts).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// StudyConfig returns a ddt.yaml for a short study against url.
func StudyConfig(url string) string {
	return `version: 1
participant: "p-test"
server:
  url: ` + url + `
  request_timeout: 5000
session:
  count: 2
trials:
  show_tutorial: false
  num_main_trials: 3
  fixation_ms: 0
`
}
