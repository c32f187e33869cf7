// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// NATS subject constants for message publishing
const (
	// SyncResultSubject carries the outcome of every finished sync run
	SyncResultSubject = "lfx.mail-forward-sync.sync_result"
	// CompareResultSubject carries the outcome of every comparison-only run
	CompareResultSubject = "lfx.mail-forward-sync.compare_result"
)
