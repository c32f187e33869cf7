// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

// Target operation names accepted by SetErrorForOperation and PanicOn.
const (
	OpFetchCurrentAddresses = "FetchCurrentAddresses"
	OpBeginEdit             = "BeginEdit"
	OpAddAddress            = "AddAddress"
	OpRemoveAddress         = "RemoveAddress"
	OpSave                  = "Save"
	OpRelease               = "Release"
)

// MockTarget is an in-memory ForwardingTarget. Mutations go to a working
// copy that Save persists.
type MockTarget struct {
	mu         sync.Mutex
	persisted  model.EmailSet
	working    model.EmailSet
	connected  bool
	releases   int
	opErrors   map[string]error
	addrErrors map[model.EmailAddress]error
	panicOn    string
	calls      []string
}

var _ port.ForwardingTarget = (*MockTarget)(nil)

// NewMockTarget creates a target that currently forwards to the given addresses.
func NewMockTarget(emails ...string) *MockTarget {
	persisted := model.NewEmailSet(emails...)
	return &MockTarget{
		persisted:  persisted,
		working:    persisted.Clone(),
		opErrors:   make(map[string]error),
		addrErrors: make(map[model.EmailAddress]error),
	}
}

// SetErrorForOperation makes the named operation fail with err.
func (m *MockTarget) SetErrorForOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opErrors[operation] = err
}

// SetErrorForAddress makes AddAddress and RemoveAddress fail for one address.
func (m *MockTarget) SetErrorForAddress(email string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrErrors[model.NormalizeEmail(email)] = err
}

// PanicOn makes the named operation panic.
func (m *MockTarget) PanicOn(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicOn = operation
}

// Calls returns the operations invoked so far. Mutations include the address,
// e.g. "AddAddress a@x.org".
func (m *MockTarget) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// MutationCalls returns only AddAddress, RemoveAddress and Save calls.
func (m *MockTarget) MutationCalls() []string {
	var out []string
	for _, c := range m.Calls() {
		op, _, _ := strings.Cut(c, " ")
		switch op {
		case OpAddAddress, OpRemoveAddress, OpSave:
			out = append(out, c)
		}
	}
	return out
}

// Persisted returns the addresses as last saved.
func (m *MockTarget) Persisted() model.EmailSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persisted.Clone()
}

// ReleaseCount returns how many times Release was called.
func (m *MockTarget) ReleaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// Describe implements port.TargetDescriber.
func (m *MockTarget) Describe() string {
	return "mock target"
}

func (m *MockTarget) record(call, operation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.panicOn == operation {
		panic(fmt.Sprintf("mock target panic in %s", operation))
	}
	if err, ok := m.opErrors[operation]; ok {
		return err
	}
	return nil
}

// Probe implements port.ForwardingTarget.
func (m *MockTarget) Probe(ctx context.Context) error {
	if err := m.record(OpProbe, OpProbe); err != nil {
		return err
	}
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

// FetchCurrentAddresses implements port.ForwardingTarget.
func (m *MockTarget) FetchCurrentAddresses(ctx context.Context) (model.EmailSet, error) {
	if err := m.record(OpFetchCurrentAddresses, OpFetchCurrentAddresses); err != nil {
		return nil, err
	}
	return m.Persisted(), nil
}

// BeginEdit implements port.ForwardingTarget.
func (m *MockTarget) BeginEdit(ctx context.Context) error {
	if err := m.record(OpBeginEdit, OpBeginEdit); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working = m.persisted.Clone()
	return nil
}

// AddAddress implements port.ForwardingTarget.
func (m *MockTarget) AddAddress(ctx context.Context, email model.EmailAddress) error {
	if err := m.mutate(OpAddAddress, email); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working[email] = struct{}{}
	return nil
}

// RemoveAddress implements port.ForwardingTarget.
func (m *MockTarget) RemoveAddress(ctx context.Context, email model.EmailAddress) error {
	if err := m.mutate(OpRemoveAddress, email); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.working[email]; !ok {
		return errors.NewNotFound("forwarding address not found: " + email.String())
	}
	delete(m.working, email)
	return nil
}

func (m *MockTarget) mutate(operation string, email model.EmailAddress) error {
	if err := m.record(operation+" "+email.String(), operation); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return errors.NewTarget("not connected")
	}
	if err, ok := m.addrErrors[email]; ok {
		return err
	}
	return nil
}

// Save implements port.ForwardingTarget.
func (m *MockTarget) Save(ctx context.Context) error {
	if err := m.record(OpSave, OpSave); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted = m.working.Clone()
	return nil
}

// Release implements port.ForwardingTarget.
func (m *MockTarget) Release(ctx context.Context) error {
	err := m.record(OpRelease, OpRelease)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	m.connected = false
	return err
}
