// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package rules

import "time"

// Config holds the webmail rules API settings.
type Config struct {
	// APIURL is the base URL of the rules API, e.g. https://webmail.example/api/v1
	APIURL string

	// Username and Password authenticate as the mailbox owner (HTTP basic auth)
	Username string
	Password string

	// Prefix marks the rules this tool manages; rules without it are ignored
	Prefix string

	// KeepCopy leaves a copy of forwarded messages in the mailbox
	KeepCopy bool

	// Timeout is the per-request timeout
	Timeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:   "MC_",
		KeepCopy: true,
		Timeout:  30 * time.Second,
	}
}
