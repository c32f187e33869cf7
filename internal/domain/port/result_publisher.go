// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

// ResultPublisher announces finished runs to downstream consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result model.SyncResult) error
}

// SyncMetrics observes runs and individual mutations.
type SyncMetrics interface {
	ObserveRun(result model.SyncResult)
	ObserveMutation(operation string, err error)
}
