// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunState is a state of the synchronization state machine.
type RunState string

// States in the order a run may visit them.
const (
	StateInit         RunState = "INIT"
	StateConnecting   RunState = "CONNECTING"
	StateComparing    RunState = "COMPARING"
	StateNoChangeDone RunState = "NO_CHANGE_DONE"
	StateDryRunDone   RunState = "DRY_RUN_DONE"
	StateCompareDone  RunState = "COMPARE_DONE"
	StateApplying     RunState = "APPLYING"
	StateSaving       RunState = "SAVING"
	StateDone         RunState = "DONE"
	StateSuccess      RunState = "SUCCESS"
	StateFailed       RunState = "FAILED"
)

// MaxReportedErrors bounds how many collected errors end up in ErrorMessage.
const MaxReportedErrors = 5

// RunKind tells a synchronization apart from a comparison-only run.
type RunKind string

// Run kinds.
const (
	RunKindSync    RunKind = "sync"
	RunKindCompare RunKind = "compare"
)

// SyncResult is the immutable outcome of one invocation.
type SyncResult struct {
	RunID        string    `json:"run_id"`
	Kind         RunKind   `json:"kind"`
	Success      bool      `json:"success"`
	Diff         SyncDiff  `json:"-"`
	DryRun       bool      `json:"dry_run"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`

	// LastState is the last state entered before the terminal SUCCESS/FAILED.
	LastState RunState      `json:"last_state"`
	Added     int           `json:"added"`
	Removed   int           `json:"removed"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration_ns"`

	// Verification is the re-computed diff after a failed apply, when enabled.
	Verification *SyncDiff `json:"-"`
}

// NewSyncResult fills RunID and Timestamp when they are not set.
func NewSyncResult(r SyncResult) SyncResult {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.Diff.AuthoritativeEmails == nil {
		r.Diff = EmptyDiff()
	}
	if r.Kind == "" {
		r.Kind = RunKindSync
	}
	return r
}

// State returns SUCCESS or FAILED.
func (r SyncResult) State() RunState {
	if r.Success {
		return StateSuccess
	}
	return StateFailed
}

// PartialApply reports whether some mutations succeeded while others failed.
func (r SyncResult) PartialApply() bool {
	return len(r.Errors) > 0 && (r.Added > 0 || r.Removed > 0)
}

// JoinErrors renders at most MaxReportedErrors messages separated by "; ".
func JoinErrors(errs []string) string {
	if len(errs) > MaxReportedErrors {
		errs = errs[:MaxReportedErrors]
	}
	return strings.Join(errs, "; ")
}

// SyncResultEvent is the serializable form published and recorded for a run.
type SyncResultEvent struct {
	SyncResult
	State        RunState      `json:"state"`
	Diff         SyncDiffView  `json:"diff"`
	Verification *SyncDiffView `json:"verification,omitempty"`
}

// Event returns the serializable form of the result.
func (r SyncResult) Event() SyncResultEvent {
	ev := SyncResultEvent{
		SyncResult: r,
		State:      r.State(),
		Diff:       r.Diff.View(),
	}
	if r.Verification != nil {
		v := r.Verification.View()
		ev.Verification = &v
	}
	return ev
}
