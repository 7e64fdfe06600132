// Package testutil provides test helpers and utilities for forge tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempConfigDir creates a temporary directory for test configuration files.
// It is removed when the test ends.
func TempConfigDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// WriteTempFile writes content to a file in the specified directory.
func WriteTempFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create directory for %s", filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "failed to write temp file: %s", filename)

	return path
}

// WriteConfig renders b as forge.yaml or forge.toml in dir and returns its path.
func WriteConfig(t *testing.T, dir string, b *ConfigBuilder, format string) string {
	t.Helper()

	var (
		content string
		err     error
	)
	switch format {
	case "toml":
		content, err = b.ToTOML()
	default:
		format = "yaml"
		content, err = b.ToYAML()
	}
	require.NoError(t, err, "failed to render config")

	return WriteTempFile(t, dir, "forge."+format, content)
}

// ChangeDir changes to a directory for the duration of the test.
// Tests using it must not run in parallel.
func ChangeDir(t *testing.T, dir string) {
	t.Helper()

	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))

	t.Cleanup(func() {
		_ = os.Chdir(original)
	})
}
