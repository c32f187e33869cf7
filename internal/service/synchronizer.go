// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/log"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/redaction"
)

// Mutation operation names reported to SyncMetrics.
const (
	OperationAdd    = "add"
	OperationRemove = "remove"
	OperationSave   = "save"
)

// MsgTargetNotConfigured is the message of runs started without a forwarding target.
const MsgTargetNotConfigured = "target not configured"

// Synchronizer reconciles the forwarding target with the directory.
// One Synchronizer runs one invocation at a time; all collaborator calls are sequential.
type Synchronizer struct {
	directory port.DirectorySource
	target    port.ForwardingTarget
	filter    model.GroupFilter
	dryRun    bool

	logger    *slog.Logger
	reporter  DiffReporter
	recorder  port.RunRecorder
	publisher port.ResultPublisher
	metrics   port.SyncMetrics
	now       func() time.Time

	guardEmptySource       bool
	verifyAfterFailedApply bool
	runTimeout             time.Duration
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithDryRun sets whether mutations are skipped. Runs are dry by default.
func WithDryRun(dryRun bool) Option {
	return func(s *Synchronizer) { s.dryRun = dryRun }
}

// WithGroupFilter restricts the directory to one group.
func WithGroupFilter(filter model.GroupFilter) Option {
	return func(s *Synchronizer) { s.filter = filter }
}

// WithLogger injects the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReporter sets where the pre-mutation diff report goes.
func WithReporter(reporter DiffReporter) Option {
	return func(s *Synchronizer) { s.reporter = reporter }
}

// WithRecorder persists every finished run.
func WithRecorder(recorder port.RunRecorder) Option {
	return func(s *Synchronizer) { s.recorder = recorder }
}

// WithPublisher announces every finished run.
func WithPublisher(publisher port.ResultPublisher) Option {
	return func(s *Synchronizer) { s.publisher = publisher }
}

// WithMetrics observes runs and mutations.
func WithMetrics(metrics port.SyncMetrics) Option {
	return func(s *Synchronizer) { s.metrics = metrics }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// WithEmptySourceGuard refuses to apply a diff that would remove every
// forwarding address because the directory returned nothing.
func WithEmptySourceGuard(enabled bool) Option {
	return func(s *Synchronizer) { s.guardEmptySource = enabled }
}

// WithVerifyAfterFailedApply re-reads the target after a failed apply and
// attaches the recomputed diff to the result.
func WithVerifyAfterFailedApply(enabled bool) Option {
	return func(s *Synchronizer) { s.verifyAfterFailedApply = enabled }
}

// WithRunTimeout bounds the whole run, including adapter-internal retries.
// Zero means no bound.
func WithRunTimeout(timeout time.Duration) Option {
	return func(s *Synchronizer) { s.runTimeout = timeout }
}

// NewSynchronizer wires a Synchronizer. target may be nil when the forwarding
// target is not configured; runs then fail at INIT.
func NewSynchronizer(directory port.DirectorySource, target port.ForwardingTarget, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		directory: directory,
		target:    target,
		dryRun:    true,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DryRun reports whether the synchronizer skips mutations.
func (s *Synchronizer) DryRun() bool {
	return s.dryRun
}

// run carries the mutable state of one invocation.
type run struct {
	s        *Synchronizer
	id       string
	kind     model.RunKind
	started  time.Time
	state    model.RunState
	acquired bool
	released bool

	diff         model.SyncDiff
	verification *model.SyncDiff
	added        int
	removed      int
	errs         []string
}

func (s *Synchronizer) newRun(kind model.RunKind) *run {
	return &run{
		s:       s,
		id:      uuid.New().String(),
		kind:    kind,
		started: s.now(),
		state:   model.StateInit,
		diff:    model.EmptyDiff(),
	}
}

func (r *run) enter(ctx context.Context, state model.RunState) {
	r.s.logger.DebugContext(ctx, "run state changed", "from", r.state, "to", state)
	r.state = state
}

// Sync connects, compares and then either reports or applies the diff.
// It never panics and never returns an error; the outcome is in the result.
func (s *Synchronizer) Sync(ctx context.Context) model.SyncResult {
	r := s.newRun(model.RunKindSync)
	ctx = log.AppendCtx(ctx, slog.String("run_id", r.id))

	s.logger.InfoContext(ctx, "synchronization started",
		"dry_run", s.dryRun,
		"group_filter", s.filter.Enabled(),
	)

	result := r.execute(ctx, r.synchronize)
	s.finish(ctx, result)
	return result
}

// Compare connects and compares without mutating anything. The target may be
// the live account or a read-only snapshot.
func (s *Synchronizer) Compare(ctx context.Context) model.SyncResult {
	r := s.newRun(model.RunKindCompare)
	ctx = log.AppendCtx(ctx, slog.String("run_id", r.id))

	s.logger.InfoContext(ctx, "comparison started", "group_filter", s.filter.Enabled())

	result := r.execute(ctx, r.compare)
	s.finish(ctx, result)
	return result
}

// execute runs body with panic recovery, the run timeout and a single Release.
func (r *run) execute(ctx context.Context, body func(context.Context) model.SyncResult) (result model.SyncResult) {
	if r.s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.s.runTimeout)
		defer cancel()
	}

	defer r.release(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			message := fmt.Sprint(rec)
			if err, ok := rec.(error); ok {
				message = err.Error()
			}
			r.s.logger.ErrorContext(ctx, "unexpected failure during run",
				"state", r.state,
				"panic", message,
				log.PriorityCritical(),
			)
			// an unexpected failure discards the diff
			r.diff = model.EmptyDiff()
			result = r.fail(message)
		}
	}()

	return body(ctx)
}

// release gives the target connection back exactly once, if it was acquired.
func (r *run) release(ctx context.Context) {
	if !r.acquired || r.released {
		return
	}
	r.released = true
	if err := r.s.target.Release(context.WithoutCancel(ctx)); err != nil {
		r.s.logger.WarnContext(ctx, "failed to release forwarding target", "error", err)
	}
}

func (r *run) result(success bool, message string) model.SyncResult {
	return model.NewSyncResult(model.SyncResult{
		RunID:        r.id,
		Kind:         r.kind,
		Success:      success,
		Diff:         r.diff,
		DryRun:       r.s.dryRun || r.kind == model.RunKindCompare,
		ErrorMessage: message,
		Timestamp:    r.s.now(),
		LastState:    r.state,
		Added:        r.added,
		Removed:      r.removed,
		Errors:       r.errs,
		Duration:     r.s.now().Sub(r.started),
		Verification: r.verification,
	})
}

func (r *run) succeed() model.SyncResult {
	return r.result(true, "")
}

func (r *run) fail(message string) model.SyncResult {
	return r.result(false, message)
}

// connect performs INIT -> CONNECTING -> COMPARING. On failure it returns a
// FAILED result and false.
func (r *run) connect(ctx context.Context) (model.SyncResult, bool) {
	s := r.s

	if s.directory == nil {
		return r.fail("directory source not configured"), false
	}
	if s.target == nil {
		s.logger.ErrorContext(ctx, "forwarding target not configured")
		return r.fail(MsgTargetNotConfigured), false
	}

	r.enter(ctx, model.StateConnecting)

	// directory first; the target is not touched when it fails
	if err := s.directory.Probe(ctx); err != nil {
		s.logger.ErrorContext(ctx, "directory connection failed", "error", err)
		return r.fail(fmt.Sprintf("directory connection failed: %v", err)), false
	}

	r.acquired = true
	if err := s.target.Probe(ctx); err != nil {
		s.logger.ErrorContext(ctx, "forwarding target connection failed", "error", err)
		return r.fail(fmt.Sprintf("target connection failed: %v", err)), false
	}

	r.enter(ctx, model.StateComparing)

	authoritative, err := s.directory.FetchActiveEmails(ctx, s.filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch directory addresses", "error", err)
		return r.fail(fmt.Sprintf("failed to fetch directory addresses: %v", err)), false
	}

	current, err := s.target.FetchCurrentAddresses(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch forwarding addresses", "error", err)
		return r.fail(fmt.Sprintf("failed to fetch forwarding addresses: %v", err)), false
	}

	r.diff = ComputeDiff(authoritative, current)

	s.logger.InfoContext(ctx, "comparison computed",
		"authoritative", len(r.diff.AuthoritativeEmails),
		"target", len(r.diff.TargetEmails),
		"to_add", len(r.diff.ToAdd),
		"to_remove", len(r.diff.ToRemove),
		"unchanged", len(r.diff.Unchanged),
	)

	return model.SyncResult{}, true
}

func (r *run) report(ctx context.Context, mode ReportMode) {
	if r.s.reporter == nil {
		return
	}
	if err := r.s.reporter.ReportDiff(ctx, r.diff, mode); err != nil {
		r.s.logger.WarnContext(ctx, "failed to write diff report", "error", err)
	}
}

func (r *run) compare(ctx context.Context) model.SyncResult {
	if res, ok := r.connect(ctx); !ok {
		return res
	}
	r.report(ctx, ModeCompare)
	r.enter(ctx, model.StateCompareDone)
	return r.succeed()
}

func (r *run) synchronize(ctx context.Context) model.SyncResult {
	s := r.s

	if res, ok := r.connect(ctx); !ok {
		return res
	}

	mode := ModeApply
	if s.dryRun {
		mode = ModeDryRun
	}
	r.report(ctx, mode)

	if !r.diff.HasChanges() {
		r.enter(ctx, model.StateNoChangeDone)
		s.logger.InfoContext(ctx, "no changes required")
		return r.succeed()
	}

	if s.dryRun {
		r.enter(ctx, model.StateDryRunDone)
		s.logger.InfoContext(ctx, "dry run, no changes applied")
		return r.succeed()
	}

	if s.guardEmptySource && len(r.diff.AuthoritativeEmails) == 0 {
		s.logger.ErrorContext(ctx, "directory returned no addresses, refusing to remove all forwarding addresses",
			"to_remove", len(r.diff.ToRemove),
			log.PriorityCritical(),
		)
		return r.fail(fmt.Sprintf("directory returned no active addresses; refusing to remove all %d forwarding addresses", len(r.diff.ToRemove)))
	}

	return r.apply(ctx)
}

// apply performs APPLYING -> SAVING -> DONE.
func (r *run) apply(ctx context.Context) model.SyncResult {
	s := r.s
	r.enter(ctx, model.StateApplying)

	if err := s.target.BeginEdit(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to begin edit on forwarding target", "error", err)
		return r.fail(fmt.Sprintf("failed to begin edit: %v", err))
	}

	for _, email := range r.diff.ToRemove.Sorted() {
		err := s.target.RemoveAddress(ctx, email)
		r.observeMutation(OperationRemove, err)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to remove forwarding address",
				"email", redaction.RedactEmail(email.String()),
				"error", err,
			)
			// continue with the remaining addresses
			r.errs = append(r.errs, fmt.Sprintf("remove %s: %v", email, err))
			continue
		}
		r.removed++
		s.logger.InfoContext(ctx, "forwarding address removed", "email", redaction.RedactEmail(email.String()))
	}

	for _, email := range r.diff.ToAdd.Sorted() {
		err := s.target.AddAddress(ctx, email)
		r.observeMutation(OperationAdd, err)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to add forwarding address",
				"email", redaction.RedactEmail(email.String()),
				"error", err,
			)
			r.errs = append(r.errs, fmt.Sprintf("add %s: %v", email, err))
			continue
		}
		r.added++
		s.logger.InfoContext(ctx, "forwarding address added", "email", redaction.RedactEmail(email.String()))
	}

	if r.added+r.removed > 0 {
		r.enter(ctx, model.StateSaving)
		err := s.target.Save(ctx)
		r.observeMutation(OperationSave, err)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to save forwarding changes", "error", err, log.PriorityCritical())
			r.errs = append([]string{fmt.Sprintf("save failed: %v", err)}, r.errs...)
			r.verify(ctx)
			return r.fail(model.JoinErrors(r.errs))
		}
	}

	r.enter(ctx, model.StateDone)

	if len(r.errs) > 0 {
		s.logger.ErrorContext(ctx, "synchronization finished with errors",
			"errors", len(r.errs),
			"added", r.added,
			"removed", r.removed,
			log.PriorityCritical(),
		)
		r.verify(ctx)
		return r.fail(model.JoinErrors(r.errs))
	}

	s.logger.InfoContext(ctx, "synchronization applied", "added", r.added, "removed", r.removed)
	return r.succeed()
}

func (r *run) observeMutation(operation string, err error) {
	if r.s.metrics != nil {
		r.s.metrics.ObserveMutation(operation, err)
	}
}

// verify re-reads the target after a failed apply and keeps the recomputed diff.
func (r *run) verify(ctx context.Context) {
	if !r.s.verifyAfterFailedApply {
		return
	}
	current, err := r.s.target.FetchCurrentAddresses(ctx)
	if err != nil {
		r.s.logger.WarnContext(ctx, "failed to re-read forwarding target after failed apply", "error", err)
		return
	}
	v := ComputeDiff(r.diff.AuthoritativeEmails, current)
	r.verification = &v
	r.s.logger.InfoContext(ctx, "target state after failed apply", "summary", v.Summary())
}

// finish hands the result to the recorder, publisher and metrics. Their
// failures are logged and never change the result.
func (s *Synchronizer) finish(ctx context.Context, result model.SyncResult) {
	attrs := []any{
		"success", result.Success,
		"last_state", result.LastState,
		"added", result.Added,
		"removed", result.Removed,
		"duration_ms", result.Duration.Milliseconds(),
	}
	if result.Success {
		s.logger.InfoContext(ctx, "run finished", attrs...)
	} else {
		s.logger.ErrorContext(ctx, "run failed", append(attrs, "error", result.ErrorMessage)...)
	}

	ctx = context.WithoutCancel(ctx)
	if s.metrics != nil {
		s.sink(ctx, "metrics", func() error {
			s.metrics.ObserveRun(result)
			return nil
		})
	}
	if s.recorder != nil {
		s.sink(ctx, "recorder", func() error { return s.recorder.RecordRun(ctx, result) })
	}
	if s.publisher != nil {
		s.sink(ctx, "publisher", func() error { return s.publisher.PublishResult(ctx, result) })
	}
}

// sink runs one output of finish. Errors and panics are logged only.
func (s *Synchronizer) sink(ctx context.Context, name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "run output panicked", "sink", name, "panic", fmt.Sprint(rec))
		}
	}()
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "run output failed", "sink", name, "error", err)
	}
}
