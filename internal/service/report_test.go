// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestReportDiffTextGolden(t *testing.T) {
	tests := []struct {
		name   string
		a      []string
		t      []string
		mode   ReportMode
		label  string
		golden string
	}{
		{
			name:   "mixed diff in apply mode",
			a:      []string{"c@x.org", "a@x.org", "b@x.org"},
			t:      []string{"d@x.org", "b@x.org"},
			mode:   ModeApply,
			golden: "report_mixed_apply",
		},
		{
			name:   "in sync dry run",
			a:      []string{"a@x.org", "b@x.org"},
			t:      []string{"b@x.org", "a@x.org"},
			mode:   ModeDryRun,
			golden: "report_in_sync_dry_run",
		},
		{
			name:   "comparison against snapshot",
			a:      []string{"b@x.org", "a@x.org"},
			t:      []string{"old@x.org"},
			mode:   ModeCompare,
			label:  "Snapshot members.txt",
			golden: "report_compare_snapshot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reporter := NewReporter(&buf, FormatText).WithTargetLabel(tt.label)
			diff := ComputeDiff(model.NewEmailSet(tt.a...), model.NewEmailSet(tt.t...))

			require.NoError(t, reporter.ReportDiff(context.Background(), diff, tt.mode))
			newGoldie(t).Assert(t, tt.golden, buf.Bytes())
		})
	}
}

func TestReportDiffJSON(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&buf, FormatJSON)
	diff := ComputeDiff(model.NewEmailSet("a@x.org", "b@x.org"), model.NewEmailSet("b@x.org", "c@x.org"))

	require.NoError(t, reporter.ReportDiff(context.Background(), diff, ModeDryRun))

	var doc struct {
		Mode string             `json:"mode"`
		Diff model.SyncDiffView `json:"diff"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "dry-run", doc.Mode)
	assert.Equal(t, []string{"a@x.org"}, doc.Diff.ToAdd)
	assert.Equal(t, []string{"c@x.org"}, doc.Diff.ToRemove)
	assert.Equal(t, []string{"b@x.org"}, doc.Diff.Unchanged)
	assert.Equal(t, 2, doc.Diff.AuthoritativeCount)
	assert.True(t, doc.Diff.HasChanges)
}

func TestReportDiffYAML(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(&buf, FormatYAML)
	diff := ComputeDiff(model.NewEmailSet("a@x.org"), model.EmailSet{})

	require.NoError(t, reporter.ReportDiff(context.Background(), diff, ModeApply))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "apply", doc["mode"])
	d, ok := doc["diff"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a@x.org"}, d["to_add"])
}

func TestNewReporterFallsBackToText(t *testing.T) {
	assert.Equal(t, FormatText, NewReporter(&bytes.Buffer{}, "xml").Format())
	assert.Equal(t, FormatYAML, NewReporter(&bytes.Buffer{}, "yaml").Format())
}

func TestReportResultText(t *testing.T) {
	withChanges := ComputeDiff(model.NewEmailSet("a@x.org"), model.EmailSet{})
	noChanges := ComputeDiff(model.NewEmailSet("a@x.org"), model.NewEmailSet("a@x.org"))
	verification := ComputeDiff(model.NewEmailSet("a@x.org"), model.EmailSet{})

	tests := []struct {
		name     string
		result   model.SyncResult
		contains []string
	}{
		{
			name:     "dry run with changes hints at apply",
			result:   model.SyncResult{Success: true, DryRun: true, Diff: withChanges, Kind: model.RunKindSync},
			contains: []string{"--apply"},
		},
		{
			name:     "nothing to do",
			result:   model.SyncResult{Success: true, Diff: noChanges, Kind: model.RunKindSync},
			contains: []string{"nothing to do"},
		},
		{
			name:     "applied",
			result:   model.SyncResult{Success: true, Diff: withChanges, Added: 1, Kind: model.RunKindSync},
			contains: []string{"1 added, 0 removed"},
		},
		{
			name:     "comparison",
			result:   model.SyncResult{Success: true, Diff: withChanges, Kind: model.RunKindCompare},
			contains: []string{"Comparison finished", "Add: 1"},
		},
		{
			name: "failed after partial apply",
			result: model.SyncResult{
				Diff:         withChanges,
				Kind:         model.RunKindSync,
				ErrorMessage: "add b@x.org: rejected",
				Added:        2,
				Verification: &verification,
			},
			contains: []string{"FAILED: add b@x.org: rejected", "2 added, 0 removed", "Target state after failure"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewReporter(&buf, FormatText).ReportResult(tt.result))
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestReportResultMachineFormats(t *testing.T) {
	result := model.NewSyncResult(model.SyncResult{
		RunID:     "run-42",
		Success:   false,
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Errors:    []string{"add a@x.org: rejected"},
		LastState: model.StateDone,
	})

	var jsonBuf bytes.Buffer
	require.NoError(t, NewReporter(&jsonBuf, FormatJSON).ReportResult(result))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, "run-42", decoded["run_id"])
	assert.Equal(t, "FAILED", decoded["state"])

	var yamlBuf bytes.Buffer
	require.NoError(t, NewReporter(&yamlBuf, FormatYAML).ReportResult(result))
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &doc))
	assert.Equal(t, "run-42", doc["run_id"])
	assert.Equal(t, "FAILED", doc["state"])
	assert.Equal(t, "DONE", doc["last_state"])
	assert.Equal(t, "2024-01-02T03:04:05Z", doc["timestamp"])
}
