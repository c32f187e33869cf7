// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeDiff(t *testing.T) {
	tests := []struct {
		name          string
		authoritative []string
		target        []string
		toAdd         []string
		toRemove      []string
		unchanged     []string
		hasChanges    bool
	}{
		{
			name:          "already in sync",
			authoritative: []string{"a@x.org", "b@x.org"},
			target:        []string{"b@x.org", "a@x.org"},
			toAdd:         []string{},
			toRemove:      []string{},
			unchanged:     []string{"a@x.org", "b@x.org"},
		},
		{
			name:          "mixed diff",
			authoritative: []string{"a@x.org", "b@x.org", "c@x.org"},
			target:        []string{"b@x.org", "d@x.org"},
			toAdd:         []string{"a@x.org", "c@x.org"},
			toRemove:      []string{"d@x.org"},
			unchanged:     []string{"b@x.org"},
			hasChanges:    true,
		},
		{
			name:          "empty authoritative removes everything",
			authoritative: nil,
			target:        []string{"a@x.org", "b@x.org"},
			toAdd:         []string{},
			toRemove:      []string{"a@x.org", "b@x.org"},
			unchanged:     []string{},
			hasChanges:    true,
		},
		{
			name:          "empty target adds everything",
			authoritative: []string{"a@x.org"},
			target:        nil,
			toAdd:         []string{"a@x.org"},
			toRemove:      []string{},
			unchanged:     []string{},
			hasChanges:    true,
		},
		{
			name:          "both empty",
			toAdd:         []string{},
			toRemove:      []string{},
			unchanged:     []string{},
			authoritative: nil,
			target:        nil,
		},
		{
			name:          "case and whitespace are not differences",
			authoritative: []string{"  Foo@Example.COM "},
			target:        []string{"foo@example.com"},
			toAdd:         []string{},
			toRemove:      []string{},
			unchanged:     []string{"foo@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := ComputeDiff(model.NewEmailSet(tt.authoritative...), model.NewEmailSet(tt.target...))

			assert.Equal(t, tt.toAdd, diff.ToAdd.Strings())
			assert.Equal(t, tt.toRemove, diff.ToRemove.Strings())
			assert.Equal(t, tt.unchanged, diff.Unchanged.Strings())
			assert.Equal(t, tt.hasChanges, diff.HasChanges())
		})
	}
}

// rawSet builds a set without normalizing, to feed un-normalized input to ComputeDiff.
func rawSet(values ...string) model.EmailSet {
	set := make(model.EmailSet, len(values))
	for _, v := range values {
		set[model.EmailAddress(v)] = struct{}{}
	}
	return set
}

func TestComputeDiffNormalizesRawInput(t *testing.T) {
	diff := ComputeDiff(rawSet(" A@X.ORG"), rawSet("a@x.org "))

	assert.False(t, diff.HasChanges())
	assert.Equal(t, []string{"a@x.org"}, diff.Unchanged.Strings())
	assert.Equal(t, []string{"a@x.org"}, diff.AuthoritativeEmails.Strings())
}

func TestComputeDiffPartitionsUnion(t *testing.T) {
	a := model.NewEmailSet("a@x.org", "b@x.org", "c@x.org", "e@x.org")
	b := model.NewEmailSet("c@x.org", "d@x.org", "e@x.org", "f@x.org")

	diff := ComputeDiff(a, b)
	union := a.Union(b)

	covered := diff.ToAdd.Union(diff.ToRemove).Union(diff.Unchanged)
	assert.Equal(t, union.Strings(), covered.Strings())
	assert.Empty(t, diff.ToAdd.Intersection(diff.ToRemove))
	assert.Empty(t, diff.ToAdd.Intersection(diff.Unchanged))
	assert.Empty(t, diff.ToRemove.Intersection(diff.Unchanged))
	assert.Equal(t, len(union), len(diff.ToAdd)+len(diff.ToRemove)+len(diff.Unchanged))
}

func TestComputeDiffIsSymmetric(t *testing.T) {
	a := model.NewEmailSet("a@x.org", "b@x.org")
	b := model.NewEmailSet("b@x.org", "c@x.org")

	forward := ComputeDiff(a, b)
	backward := ComputeDiff(b, a)

	assert.Equal(t, forward.ToAdd.Strings(), backward.ToRemove.Strings())
	assert.Equal(t, forward.ToRemove.Strings(), backward.ToAdd.Strings())
	assert.Equal(t, forward.Unchanged.Strings(), backward.Unchanged.Strings())
}

func TestComputeDiffIsIdempotentAfterApplying(t *testing.T) {
	a := model.NewEmailSet("a@x.org", "b@x.org", "c@x.org")
	target := model.NewEmailSet("c@x.org", "z@x.org")

	diff := ComputeDiff(a, target)

	applied := target.Difference(diff.ToRemove).Union(diff.ToAdd)
	again := ComputeDiff(a, applied)

	assert.False(t, again.HasChanges())
	assert.Equal(t, a.Strings(), again.Unchanged.Strings())
}

func TestComputeDiffDoesNotMutateInputs(t *testing.T) {
	a := model.NewEmailSet("a@x.org")
	b := model.NewEmailSet("b@x.org")

	diff := ComputeDiff(a, b)
	diff.ToAdd.Add("mutated@x.org")

	assert.Equal(t, []string{"a@x.org"}, a.Strings())
	assert.Equal(t, []string{"b@x.org"}, b.Strings())
}
