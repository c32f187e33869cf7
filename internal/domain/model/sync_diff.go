// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "fmt"

// SyncDiff is the comparison of the authoritative set A with the target set T.
// ToAdd = A - T, ToRemove = T - A and Unchanged = A ∩ T partition A ∪ T.
// A SyncDiff is computed fresh for every run and never mutated.
type SyncDiff struct {
	AuthoritativeEmails EmailSet `json:"-"`
	TargetEmails        EmailSet `json:"-"`
	ToAdd               EmailSet `json:"-"`
	ToRemove            EmailSet `json:"-"`
	Unchanged           EmailSet `json:"-"`
}

// EmptyDiff is the diff reported by runs that failed before comparing.
func EmptyDiff() SyncDiff {
	return SyncDiff{
		AuthoritativeEmails: EmailSet{},
		TargetEmails:        EmailSet{},
		ToAdd:               EmailSet{},
		ToRemove:            EmailSet{},
		Unchanged:           EmailSet{},
	}
}

// HasChanges reports whether anything has to be added or removed.
func (d SyncDiff) HasChanges() bool {
	return len(d.ToAdd) > 0 || len(d.ToRemove) > 0
}

// Summary renders the set sizes on one line.
func (d SyncDiff) Summary() string {
	return fmt.Sprintf("Directory: %d | Target: %d | Add: %d | Remove: %d | Unchanged: %d",
		len(d.AuthoritativeEmails),
		len(d.TargetEmails),
		len(d.ToAdd),
		len(d.ToRemove),
		len(d.Unchanged),
	)
}

// SyncDiffView is the serializable form of a SyncDiff with sorted lists.
type SyncDiffView struct {
	AuthoritativeCount int      `json:"authoritative_count" yaml:"authoritative_count"`
	TargetCount        int      `json:"target_count" yaml:"target_count"`
	HasChanges         bool     `json:"has_changes" yaml:"has_changes"`
	ToAdd              []string `json:"to_add" yaml:"to_add"`
	ToRemove           []string `json:"to_remove" yaml:"to_remove"`
	Unchanged          []string `json:"unchanged" yaml:"unchanged"`
}

// View returns the sorted, serializable representation.
func (d SyncDiff) View() SyncDiffView {
	return SyncDiffView{
		AuthoritativeCount: len(d.AuthoritativeEmails),
		TargetCount:        len(d.TargetEmails),
		HasChanges:         d.HasChanges(),
		ToAdd:              d.ToAdd.Strings(),
		ToRemove:           d.ToRemove.Strings(),
		Unchanged:          d.Unchanged.Strings(),
	}
}
