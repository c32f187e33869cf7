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
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

// Directory operation names accepted by SetErrorForOperation.
const (
	OpProbe              = "Probe"
	OpFetchActiveEmails  = "FetchActiveEmails"
	OpFetchActiveMembers = "FetchActiveMembers"
)

// MockDirectory is an in-memory DirectorySource.
type MockDirectory struct {
	mu       sync.Mutex
	members  []model.MemberRecord
	groups   map[string][]int64 // group id or name -> member ids
	opErrors map[string]error
	calls    []string
}

var _ port.DirectorySource = (*MockDirectory)(nil)

// NewMockDirectory creates a directory holding the given members.
func NewMockDirectory(members ...model.MemberRecord) *MockDirectory {
	return &MockDirectory{
		members:  slices.Clone(members),
		groups:   make(map[string][]int64),
		opErrors: make(map[string]error),
	}
}

// NewMockDirectoryWithEmails creates a directory of active members with the given addresses.
func NewMockDirectoryWithEmails(emails ...string) *MockDirectory {
	members := make([]model.MemberRecord, 0, len(emails))
	for i, e := range emails {
		members = append(members, model.MemberRecord{
			ID:     int64(i + 1),
			Email:  model.NormalizeEmail(e),
			Active: true,
		})
	}
	return NewMockDirectory(members...)
}

// NewSampleDirectory returns a small directory for local runs with DIRECTORY_SOURCE=mock.
func NewSampleDirectory() *MockDirectory {
	first, last := "Ada", "Lovelace"
	number := "1001"
	d := NewMockDirectory(
		model.MemberRecord{ID: 1, Email: "ada@example.org", FirstName: &first, LastName: &last, MembershipNumber: &number, Active: true},
		model.MemberRecord{ID: 2, Email: "grace@example.org", Active: true},
		model.MemberRecord{ID: 3, Email: "linus@example.org", Active: true},
		model.MemberRecord{ID: 4, Email: "former@example.org", Active: false},
	)
	d.SetGroupMembers("choir", 1, 2)
	return d
}

// SetGroupMembers assigns member ids to a group, addressable by id or name.
func (m *MockDirectory) SetGroupMembers(group string, ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group] = ids
}

// SetErrorForOperation makes the named operation fail with err.
func (m *MockDirectory) SetErrorForOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opErrors[operation] = err
}

// Calls returns the operations invoked so far, in order.
func (m *MockDirectory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *MockDirectory) record(operation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, operation)
	if err, ok := m.opErrors[operation]; ok {
		return err
	}
	return nil
}

// Probe implements port.DirectorySource.
func (m *MockDirectory) Probe(ctx context.Context) error {
	if err := m.record(OpProbe); err != nil {
		return err
	}
	slog.DebugContext(ctx, "mock directory probed", "members", len(m.members))
	return nil
}

// FetchActiveEmails implements port.DirectorySource.
func (m *MockDirectory) FetchActiveEmails(ctx context.Context, filter model.GroupFilter) (model.EmailSet, error) {
	if err := m.record(OpFetchActiveEmails); err != nil {
		return nil, err
	}
	members, err := m.active(filter)
	if err != nil {
		return nil, err
	}
	set := make(model.EmailSet, len(members))
	for _, member := range members {
		set.Add(member.Email.String())
	}
	return set, nil
}

// FetchActiveMembers implements port.DirectorySource.
func (m *MockDirectory) FetchActiveMembers(ctx context.Context, filter model.GroupFilter) ([]model.MemberRecord, error) {
	if err := m.record(OpFetchActiveMembers); err != nil {
		return nil, err
	}
	return m.active(filter)
}

func (m *MockDirectory) active(filter model.GroupFilter) ([]model.MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var allowed []int64
	if filter.Enabled() {
		key := filter.ID
		if key == "" {
			key = filter.Name
		}
		ids, ok := m.groups[key]
		if !ok {
			return nil, errors.NewDirectory("group not found: " + key)
		}
		allowed = ids
	}

	out := make([]model.MemberRecord, 0, len(m.members))
	for _, member := range m.members {
		if !member.Active || !member.Email.Valid() {
			continue
		}
		if filter.Enabled() && !slices.Contains(allowed, member.ID) {
			continue
		}
		out = append(out, member)
	}
	return out, nil
}
