// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import "github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"

// ComputeDiff compares the authoritative set with the target set.
// Both inputs are re-normalized first, so callers may pass raw sets.
// An empty authoritative set yields ToRemove == target; guarding against
// that is left to the caller.
func ComputeDiff(authoritative, target model.EmailSet) model.SyncDiff {
	a := authoritative.Normalized()
	t := target.Normalized()

	return model.SyncDiff{
		AuthoritativeEmails: a,
		TargetEmails:        t,
		ToAdd:               a.Difference(t),
		ToRemove:            t.Difference(a),
		Unchanged:           a.Intersection(t),
	}
}
