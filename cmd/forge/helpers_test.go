package main

import (
	"bytes"
	"testing"

	"github.com/felixgeelhaar/forge/internal/domain/config"
	"github.com/felixgeelhaar/forge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every package-level flag variable to its default.
func resetFlags() {
	cfgFile = ""
	verbose = false
	jsonOutput = false

	viewsUser = ""
	viewsTenant = ""
	viewsRoles = nil
	viewsPermissions = nil

	auditLimit = 20
	auditEventType = ""
	auditPlugin = ""
	auditFailures = false
	auditSeverity = nil
	auditSince = 0
}

// executeCommand runs rootCmd with args and returns what it wrote.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// writeConfig writes b as forge.yaml in a fresh directory.
func writeConfig(t *testing.T, b *testutil.ConfigBuilder) string {
	t.Helper()
	return testutil.WriteConfig(t, testutil.TempConfigDir(t), b, "yaml")
}

// assertUserError checks that err carries a UserError with code.
func assertUserError(t *testing.T, err error, code string) {
	t.Helper()
	ue := config.GetUserError(err)
	require.NotNil(t, ue, "expected a user error, got %v", err)
	assert.Equal(t, code, ue.Code)
}
