// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
)

// MockResultPublisher keeps published results in memory.
type MockResultPublisher struct {
	mu        sync.Mutex
	published []model.SyncResult
	err       error
}

// Ensure MockResultPublisher implements the ResultPublisher interface
var _ port.ResultPublisher = (*MockResultPublisher)(nil)

// NewMockResultPublisher creates a new mock publisher for testing
func NewMockResultPublisher() *MockResultPublisher {
	return &MockResultPublisher{}
}

// SetError makes every publish fail with err.
func (m *MockResultPublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Published returns the results published so far.
func (m *MockResultPublisher) Published() []model.SyncResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.published)
}

// PublishResult records the result (mock implementation - no broker involved)
func (m *MockResultPublisher) PublishResult(ctx context.Context, result model.SyncResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, result)
	slog.DebugContext(ctx, "mock result published", "run_id", result.RunID, "success", result.Success)
	return nil
}

// MockRunRecorder keeps recorded runs in memory.
type MockRunRecorder struct {
	mu      sync.Mutex
	records []port.RunRecord
	err     error
}

var _ port.RunRecorder = (*MockRunRecorder)(nil)

// NewMockRunRecorder creates an empty recorder.
func NewMockRunRecorder() *MockRunRecorder {
	return &MockRunRecorder{}
}

// SetError makes every RecordRun fail with err.
func (m *MockRunRecorder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// RecordRun implements port.RunRecorder.
func (m *MockRunRecorder) RecordRun(ctx context.Context, result model.SyncResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, port.RunRecord{
		RunID:              result.RunID,
		Kind:               result.Kind,
		State:              result.State(),
		LastState:          result.LastState,
		DryRun:             result.DryRun,
		AuthoritativeCount: len(result.Diff.AuthoritativeEmails),
		TargetCount:        len(result.Diff.TargetEmails),
		ToAddCount:         len(result.Diff.ToAdd),
		ToRemoveCount:      len(result.Diff.ToRemove),
		Added:              result.Added,
		Removed:            result.Removed,
		ErrorMessage:       result.ErrorMessage,
		Timestamp:          result.Timestamp,
	})
	return nil
}

// ListRuns implements port.RunRecorder, newest first.
func (m *MockRunRecorder) ListRuns(ctx context.Context, limit int) ([]port.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.records)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements port.RunRecorder.
func (m *MockRunRecorder) Close() error {
	return nil
}

// MockMetrics counts observations.
type MockMetrics struct {
	mu        sync.Mutex
	Runs      []model.SyncResult
	Mutations map[string]int
	Failures  map[string]int
}

var _ port.SyncMetrics = (*MockMetrics)(nil)

// NewMockMetrics creates empty counters.
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Mutations: make(map[string]int),
		Failures:  make(map[string]int),
	}
}

// ObserveRun implements port.SyncMetrics.
func (m *MockMetrics) ObserveRun(result model.SyncResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs = append(m.Runs, result)
}

// ObserveMutation implements port.SyncMetrics.
func (m *MockMetrics) ObserveMutation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mutations[operation]++
	if err != nil {
		m.Failures[operation]++
	}
}
