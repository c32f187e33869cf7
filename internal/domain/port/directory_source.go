// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package port defines the interfaces for external dependencies and adapters.
package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

// DirectorySource is the authoritative membership directory.
// Implementations return errors.Directory on failure.
type DirectorySource interface {
	// Probe verifies connectivity and credentials.
	Probe(ctx context.Context) error

	// FetchActiveEmails returns the normalized addresses of all active members,
	// restricted to the group when the filter is enabled.
	FetchActiveEmails(ctx context.Context, filter model.GroupFilter) (model.EmailSet, error)

	// FetchActiveMembers returns detail records of all active members with an address.
	FetchActiveMembers(ctx context.Context, filter model.GroupFilter) ([]model.MemberRecord, error)
}
