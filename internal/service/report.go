// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Report output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ReportMode names the kind of run a diff report belongs to.
type ReportMode string

// Report modes.
const (
	ModeDryRun  ReportMode = "dry-run"
	ModeApply   ReportMode = "apply"
	ModeCompare ReportMode = "compare"
)

const reportRule = "============================================================"

// DiffReporter renders the diff before any mutation happens.
type DiffReporter interface {
	ReportDiff(ctx context.Context, diff model.SyncDiff, mode ReportMode) error
}

// Reporter writes human or machine readable reports.
type Reporter struct {
	w           io.Writer
	format      string
	targetLabel string
}

// NewReporter returns a Reporter writing in the given format. Unknown formats fall back to text.
func NewReporter(w io.Writer, format string) *Reporter {
	switch format {
	case FormatJSON, FormatYAML:
	default:
		format = FormatText
	}
	return &Reporter{w: w, format: format, targetLabel: "Target"}
}

// WithTargetLabel names the compared target, e.g. a snapshot file.
func (r *Reporter) WithTargetLabel(label string) *Reporter {
	if label != "" {
		r.targetLabel = label
	}
	return r
}

// Format returns the effective output format.
func (r *Reporter) Format() string {
	return r.format
}

type diffDocument struct {
	Mode ReportMode         `json:"mode" yaml:"mode"`
	Diff model.SyncDiffView `json:"diff" yaml:"diff"`
}

// ReportDiff writes the diff report.
func (r *Reporter) ReportDiff(_ context.Context, diff model.SyncDiff, mode ReportMode) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(diffDocument{Mode: mode, Diff: diff.View()})
	case FormatYAML:
		return r.writeYAML(diffDocument{Mode: mode, Diff: diff.View()})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", reportRule)
	switch mode {
	case ModeCompare:
		b.WriteString("COMPARISON REPORT\n")
	default:
		b.WriteString("SYNCHRONIZATION REPORT\n")
	}
	fmt.Fprintf(&b, "%s\n\n", reportRule)
	fmt.Fprintf(&b, "%-28s %s\n", "Mode:", mode)
	fmt.Fprintf(&b, "%-28s %d active members\n", "Directory (source of truth):", len(diff.AuthoritativeEmails))
	fmt.Fprintf(&b, "%-28s %d forwarding addresses\n", r.targetLabel+" (current):", len(diff.TargetEmails))
	fmt.Fprintf(&b, "%-28s %d\n", "Unchanged:", len(diff.Unchanged))

	if len(diff.ToAdd) > 0 {
		fmt.Fprintf(&b, "\nTo add (%d):\n", len(diff.ToAdd))
		for _, e := range diff.ToAdd.Sorted() {
			fmt.Fprintf(&b, "   + %s\n", e)
		}
	}
	if len(diff.ToRemove) > 0 {
		fmt.Fprintf(&b, "\nTo remove (%d):\n", len(diff.ToRemove))
		for _, e := range diff.ToRemove.Sorted() {
			fmt.Fprintf(&b, "   - %s\n", e)
		}
	}
	if !diff.HasChanges() {
		b.WriteString("\nNo changes required, already in sync.\n")
	}
	fmt.Fprintf(&b, "\n%s\n", reportRule)

	_, err := io.WriteString(r.w, b.String())
	return err
}

// ReportResult writes the final outcome of a run.
func (r *Reporter) ReportResult(result model.SyncResult) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(result.Event())
	case FormatYAML:
		return r.writeYAML(resultDocument(result))
	}

	var b strings.Builder
	switch {
	case result.Success && result.Kind == model.RunKindCompare:
		fmt.Fprintf(&b, "Comparison finished: %s\n", result.Diff.Summary())
	case result.Success && result.DryRun && result.Diff.HasChanges():
		b.WriteString("Dry run finished. Run with --apply to perform these changes.\n")
	case result.Success && !result.Diff.HasChanges():
		b.WriteString("Synchronization finished: nothing to do.\n")
	case result.Success:
		fmt.Fprintf(&b, "Synchronization finished: %d added, %d removed.\n", result.Added, result.Removed)
	default:
		fmt.Fprintf(&b, "Synchronization FAILED: %s\n", result.ErrorMessage)
		if result.Added > 0 || result.Removed > 0 {
			fmt.Fprintf(&b, "Applied before failing: %d added, %d removed.\n", result.Added, result.Removed)
		}
		if result.Verification != nil {
			fmt.Fprintf(&b, "Target state after failure: %s\n", result.Verification.Summary())
		}
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// yaml.v3 does not flatten embedded structs without an inline tag, so the
// YAML result document is spelled out.
type resultYAML struct {
	RunID        string              `yaml:"run_id"`
	Kind         model.RunKind       `yaml:"kind"`
	State        model.RunState      `yaml:"state"`
	LastState    model.RunState      `yaml:"last_state"`
	DryRun       bool                `yaml:"dry_run"`
	Added        int                 `yaml:"added"`
	Removed      int                 `yaml:"removed"`
	ErrorMessage string              `yaml:"error_message,omitempty"`
	Errors       []string            `yaml:"errors,omitempty"`
	Timestamp    string              `yaml:"timestamp"`
	Diff         model.SyncDiffView  `yaml:"diff"`
	Verification *model.SyncDiffView `yaml:"verification,omitempty"`
}

func resultDocument(result model.SyncResult) resultYAML {
	ev := result.Event()
	return resultYAML{
		RunID:        result.RunID,
		Kind:         result.Kind,
		State:        result.State(),
		LastState:    result.LastState,
		DryRun:       result.DryRun,
		Added:        result.Added,
		Removed:      result.Removed,
		ErrorMessage: result.ErrorMessage,
		Errors:       result.Errors,
		Timestamp:    result.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Diff:         ev.Diff,
		Verification: ev.Verification,
	}
}

func (r *Reporter) writeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Reporter) writeYAML(v any) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
