// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package snapshot provides a read-only forwarding target backed by an
// address list file, used to compare the directory with an earlier export.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

// Target reads forwarding addresses from a file with one address per line.
// Blank lines and lines starting with '#' are ignored, so export files can be
// compared directly.
type Target struct {
	path string

	mu        sync.Mutex
	addresses model.EmailSet
}

var (
	_ port.ForwardingTarget = (*Target)(nil)
	_ port.TargetDescriber  = (*Target)(nil)
)

// NewTarget creates a snapshot target for path. The file is read on Probe.
func NewTarget(path string) *Target {
	return &Target{path: path}
}

// Describe implements port.TargetDescriber.
func (t *Target) Describe() string {
	return "Snapshot " + filepath.Base(t.path)
}

// Probe reads and parses the file.
func (t *Target) Probe(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		return errors.NewTarget(fmt.Sprintf("cannot open snapshot %s", t.path), err)
	}
	defer f.Close()

	addresses, err := model.ParseAddressList(f)
	if err != nil {
		return errors.NewTarget(fmt.Sprintf("cannot read snapshot %s", t.path), err)
	}
	t.addresses = addresses
	slog.InfoContext(ctx, "snapshot loaded", "file", t.path, "addresses", addresses.Len())
	return nil
}

// FetchCurrentAddresses returns the addresses read by Probe.
func (t *Target) FetchCurrentAddresses(_ context.Context) (model.EmailSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.addresses == nil {
		return nil, errors.NewTarget("snapshot not loaded")
	}
	return t.addresses.Clone(), nil
}

func (t *Target) readOnly() error {
	return errors.NewTarget(fmt.Sprintf("snapshot %s is read-only", filepath.Base(t.path)))
}

// BeginEdit always fails: snapshots are never modified.
func (t *Target) BeginEdit(context.Context) error { return t.readOnly() }

// AddAddress always fails.
func (t *Target) AddAddress(context.Context, model.EmailAddress) error { return t.readOnly() }

// RemoveAddress always fails.
func (t *Target) RemoveAddress(context.Context, model.EmailAddress) error { return t.readOnly() }

// Save always fails.
func (t *Target) Save(context.Context) error { return t.readOnly() }

// Release drops the loaded addresses.
func (t *Target) Release(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addresses = nil
	return nil
}
