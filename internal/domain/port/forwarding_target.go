// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

// ForwardingTarget is the webmail account whose forwarding rules are brought
// into conformance with the directory. A target is owned by one run at a time.
// Implementations return errors.Target on failure.
type ForwardingTarget interface {
	// Probe connects and authenticates. It acquires the connection that
	// Release later gives back.
	Probe(ctx context.Context) error

	// FetchCurrentAddresses returns the normalized forwarding addresses.
	FetchCurrentAddresses(ctx context.Context) (model.EmailSet, error)

	// BeginEdit prepares a batch of mutations. Targets without edit
	// sessions treat it as a no-op.
	BeginEdit(ctx context.Context) error

	AddAddress(ctx context.Context, email model.EmailAddress) error
	RemoveAddress(ctx context.Context, email model.EmailAddress) error

	// Save persists the mutations made since BeginEdit.
	Save(ctx context.Context) error

	// Release frees the connection. It is idempotent and safe to call
	// when Probe never succeeded.
	Release(ctx context.Context) error
}

// TargetDescriber is implemented by targets that can name themselves in reports.
type TargetDescriber interface {
	Describe() string
}
