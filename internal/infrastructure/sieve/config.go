// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sieve

import (
	"crypto/tls"
	"time"
)

// Config holds the configuration for the ManageSieve target
type Config struct {
	// Host and Port of the ManageSieve server
	Host string
	Port int

	// Username and Password of the mailbox whose forwarding is managed
	Username string
	Password string

	// ScriptName is the name of the managed script
	ScriptName string

	// StartTLS upgrades the connection before authenticating
	StartTLS bool

	// KeepLocalCopy uses "redirect :copy" so the mailbox keeps a copy
	KeepLocalCopy bool

	// Timeout bounds dialing and every command round trip
	Timeout time.Duration

	// TLSConfig overrides the TLS client configuration, mainly for tests
	TLSConfig *tls.Config
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:          "imap.strato.de",
		Port:          4190,
		ScriptName:    "forwarding",
		StartTLS:      true,
		KeepLocalCopy: true,
		Timeout:       30 * time.Second,
	}
}
