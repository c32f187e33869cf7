// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

// RunRecord is a persisted summary of a finished run.
type RunRecord struct {
	RunID              string
	Kind               model.RunKind
	State              model.RunState
	LastState          model.RunState
	DryRun             bool
	AuthoritativeCount int
	TargetCount        int
	ToAddCount         int
	ToRemoveCount      int
	Added              int
	Removed            int
	ErrorMessage       string
	Timestamp          time.Time
}

// RunRecorder persists run outcomes for the history command.
type RunRecorder interface {
	RecordRun(ctx context.Context, result model.SyncResult) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
