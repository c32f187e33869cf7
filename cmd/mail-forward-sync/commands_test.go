// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// mockEnv selects the in-memory collaborators and a temporary history.
func mockEnv(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{
		"DIRECTORY_SOURCE": "mock",
		"FORWARD_TARGET":   "mock",
		"HISTORY_DB":       filepath.Join(t.TempDir(), "history.db"),
		"LOG_LEVEL":        "error",
	}
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, env map[string]string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	code := execute(context.Background(), args, &stdout, &stderr, lookup)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestSyncDryRun(t *testing.T) {
	res := run(t, mockEnv(t), "sync")

	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "SYNCHRONIZATION REPORT")
	assert.Contains(t, res.stdout, "dry-run")
	assert.Contains(t, res.stdout, "To add (3):")
	assert.Contains(t, res.stdout, "   + ada@example.org")
	assert.NotContains(t, res.stdout, "former@example.org")
	assert.Contains(t, res.stdout, "Run with --apply")
}

func TestSyncApply(t *testing.T) {
	res := run(t, mockEnv(t), "sync", "--apply")

	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Synchronization finished: 3 added, 0 removed.")
}

func TestSyncJSON(t *testing.T) {
	res := run(t, mockEnv(t), "sync", "--format", "json")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var event struct {
		RunID   string `json:"run_id"`
		Kind    string `json:"kind"`
		Success bool   `json:"success"`
		DryRun  bool   `json:"dry_run"`
		State   string `json:"state"`
		Diff    struct {
			ToAdd []string `json:"to_add"`
		} `json:"diff"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &event), res.stdout)
	assert.NotEmpty(t, event.RunID)
	assert.Equal(t, "sync", event.Kind)
	assert.True(t, event.Success)
	assert.True(t, event.DryRun)
	assert.Equal(t, "SUCCESS", event.State)
	assert.Equal(t, []string{"ada@example.org", "grace@example.org", "linus@example.org"}, event.Diff.ToAdd)
}

func TestSyncTargetNotConfigured(t *testing.T) {
	env := mockEnv(t)
	env["FORWARD_TARGET"] = "sieve"

	res := run(t, env, "sync")

	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stdout, "Synchronization FAILED")
	assert.Contains(t, res.stderr, "synchronization failed")
}

func TestCompareSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.txt")
	require.NoError(t, os.WriteFile(path, []byte("# export\nada@example.org\nstale@example.org\n"), 0o600))

	res := run(t, mockEnv(t), "compare", path)

	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Snapshot emails.txt")
	assert.Contains(t, res.stdout, "   - stale@example.org")
	assert.Contains(t, res.stdout, "Comparison finished: Directory: 3 | Target: 2 | Add: 2 | Remove: 1 | Unchanged: 1")
}

func TestCompareMissingSnapshot(t *testing.T) {
	res := run(t, mockEnv(t), "compare", filepath.Join(t.TempDir(), "missing.txt"))

	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "comparison failed")
}

func TestCompareArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "neither file nor live", args: []string{"compare"}},
		{name: "file and live", args: []string{"compare", "--live", "emails.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, mockEnv(t), tt.args...)
			assert.Equal(t, ExitCommandError, res.code)
		})
	}
}

func TestCompareLive(t *testing.T) {
	res := run(t, mockEnv(t), "compare", "--live")

	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "mock target")
	assert.Contains(t, res.stdout, "Add: 3 | Remove: 0")
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		env  func(map[string]string)
		args []string
	}{
		{name: "invalid format", args: []string{"sync", "--format", "xml"}},
		{name: "unknown flag", args: []string{"sync", "--force"}},
		{
			name: "missing api key",
			env:  func(e map[string]string) { e["DIRECTORY_SOURCE"] = "easyverein" },
			args: []string{"sync"},
		},
		{
			name: "malformed boolean",
			env:  func(e map[string]string) { e["DRY_RUN"] = "maybe" },
			args: []string{"sync"},
		},
		{name: "missing env file", args: []string{"sync", "--env", "/nonexistent/.env"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := mockEnv(t)
			if tt.env != nil {
				tt.env(env)
			}
			res := run(t, env, tt.args...)
			assert.Equal(t, ExitCommandError, res.code)
			assert.Contains(t, res.stderr, "Error: ")
		})
	}
}

func TestExportEmails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.txt")

	res := run(t, mockEnv(t), "export", "-o", path)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Exported 3 active members to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Active members: 3")
	assert.True(t, strings.HasSuffix(string(data), "ada@example.org\ngrace@example.org\nlinus@example.org\n"))
}

func TestExportCSVToStdout(t *testing.T) {
	res := run(t, mockEnv(t), "export", "--csv", "-o", "-")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "ada@example.org")
	assert.Equal(t, 3, strings.Count(lines[1], ";"))
}

func TestExportThenCompare(t *testing.T) {
	env := mockEnv(t)
	path := filepath.Join(t.TempDir(), "emails.txt")

	require.Equal(t, ExitSuccess, run(t, env, "export", "-o", path).code)
	res := run(t, env, "compare", path)

	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Add: 0 | Remove: 0 | Unchanged: 3")
}

func TestTestConnections(t *testing.T) {
	res := run(t, mockEnv(t), "test")

	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "directory: OK")
	assert.Contains(t, res.stdout, "target:    OK")
}

func TestTestConnectionsProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	env := mockEnv(t)
	env["FORWARD_TARGET"] = "rules"
	env["RULES_API_URL"] = srv.URL
	env["TARGET_EMAIL"] = "board@example.org"
	env["TARGET_PASSWORD"] = "wrong"

	res := run(t, env, "test")

	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stdout, "directory: OK", "the directory check still completes")
	assert.Contains(t, res.stdout, "target:    FAILED")
	assert.Contains(t, res.stderr, "Error: connection test failed")
}

func TestTestConnectionsTargetNotConfigured(t *testing.T) {
	env := mockEnv(t)
	env["FORWARD_TARGET"] = "sieve"

	t.Run("all", func(t *testing.T) {
		res := run(t, env, "test")
		require.Equal(t, ExitSuccess, res.code, res.stderr)
		assert.Contains(t, res.stdout, "not configured")
	})

	t.Run("target only", func(t *testing.T) {
		res := run(t, env, "test", "--target-only", "--format", "yaml")
		assert.Equal(t, ExitFailure, res.code)

		var checks []ConnectionCheck
		require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &checks), res.stdout)
		require.Len(t, checks, 1)
		assert.Equal(t, ConnectionCheck{Name: "target", Status: CheckNotConfigured}, checks[0])
	})
}

func TestHistory(t *testing.T) {
	env := mockEnv(t)

	require.Equal(t, ExitSuccess, run(t, env, "sync").code)
	require.Equal(t, ExitSuccess, run(t, env, "compare", "--live").code)

	res := run(t, env, "history", "--format", "json")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var entries []historyEntry
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &entries), res.stdout)
	require.Len(t, entries, 2)
	assert.Equal(t, "compare", entries[0].Kind)
	assert.Equal(t, "sync", entries[1].Kind)
	assert.True(t, entries[1].DryRun)
	assert.Equal(t, 3, entries[1].ToAdd)
	assert.Equal(t, "SUCCESS", entries[1].State)

	res = run(t, env, "history", "--limit", "1")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "TIMESTAMP")
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "compare")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	env := mockEnv(t)
	delete(env, "HISTORY_DB")

	res := run(t, env, "history")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "HISTORY_DB is not set")
}

func TestHistoryEmpty(t *testing.T) {
	res := run(t, mockEnv(t), "history")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No runs recorded.")
}
