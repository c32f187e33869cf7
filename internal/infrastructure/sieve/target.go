// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package sieve keeps all forwarding addresses in a single Sieve script
// managed over ManageSieve (RFC 5804).
package sieve

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/redaction"
)

// Target is a ForwardingTarget backed by one redirect script. Mutations are
// collected in memory and uploaded as a whole on Save.
type Target struct {
	config Config

	mu      sync.Mutex
	conn    *conn
	current model.EmailSet
	working model.EmailSet
}

var (
	_ port.ForwardingTarget = (*Target)(nil)
	_ port.TargetDescriber  = (*Target)(nil)
)

// NewTarget creates a Sieve target. It does not connect until Probe.
func NewTarget(cfg Config) (*Target, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.NewConfiguration("mailbox credentials are required for the Sieve target")
	}
	defaults := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.ScriptName == "" {
		cfg.ScriptName = defaults.ScriptName
	}
	return &Target{config: cfg}, nil
}

// Describe implements port.TargetDescriber.
func (t *Target) Describe() string {
	return fmt.Sprintf("Sieve script %q", t.config.ScriptName)
}

func (t *Target) address() string {
	return net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
}

func (t *Target) tlsConfig() *tls.Config {
	if t.config.TLSConfig != nil {
		return t.config.TLSConfig
	}
	return &tls.Config{ServerName: t.config.Host, MinVersion: tls.VersionTLS12}
}

// Probe connects, upgrades to TLS when configured and authenticates.
func (t *Target) Probe(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	slog.InfoContext(ctx, "connecting to ManageSieve server",
		"address", t.address(),
		"starttls", t.config.StartTLS,
	)

	c, err := dial(ctx, t.address(), t.config.Timeout)
	if err != nil {
		return errors.NewTarget("cannot connect to ManageSieve server", err)
	}
	if t.config.StartTLS {
		if err := c.startTLS(t.tlsConfig()); err != nil {
			_ = c.close()
			return errors.NewTarget("STARTTLS failed", err)
		}
	}
	if err := c.authenticatePlain(t.config.Username, t.config.Password); err != nil {
		_ = c.close()
		return errors.NewTarget("ManageSieve login failed", err)
	}

	t.conn = c
	slog.InfoContext(ctx, "ManageSieve login successful", "user", redaction.RedactEmail(t.config.Username))
	return nil
}

// FetchCurrentAddresses reads the managed script. A missing script is an empty set.
func (t *Target) FetchCurrentAddresses(ctx context.Context) (model.EmailSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(ctx); err != nil {
		return nil, err
	}
	return t.current.Clone(), nil
}

func (t *Target) load(ctx context.Context) error {
	if t.conn == nil {
		return errors.NewTarget("not connected")
	}
	script, ok, err := t.conn.getScript(t.config.ScriptName)
	if err != nil {
		return errors.NewTarget("cannot read Sieve script", err)
	}
	if !ok {
		slog.InfoContext(ctx, "Sieve script does not exist yet", "script", t.config.ScriptName)
		t.current = make(model.EmailSet)
		return nil
	}
	t.current = ParseScript(script)
	slog.DebugContext(ctx, "Sieve script loaded", "script", t.config.ScriptName, "addresses", t.current.Len())
	return nil
}

// BeginEdit starts from the persisted addresses.
func (t *Target) BeginEdit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		if err := t.load(ctx); err != nil {
			return err
		}
	}
	t.working = t.current.Clone()
	return nil
}

// AddAddress adds a redirect to the pending script.
func (t *Target) AddAddress(_ context.Context, email model.EmailAddress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.working == nil {
		return errors.NewTarget("no edit in progress")
	}
	if !email.Valid() {
		return errors.NewTarget("invalid address " + redaction.RedactEmail(email.String()))
	}
	if !scriptSafe(email.String()) {
		return errors.NewTarget("address not allowed in a Sieve script "+redaction.RedactEmail(email.String()),
			errors.NewValidation("quotes, backslashes and control characters are not allowed"))
	}
	t.working.Add(email.String())
	return nil
}

// RemoveAddress drops a redirect from the pending script.
func (t *Target) RemoveAddress(_ context.Context, email model.EmailAddress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.working == nil {
		return errors.NewTarget("no edit in progress")
	}
	e := model.NormalizeEmail(email.String())
	if _, ok := t.working[e]; !ok {
		return errors.NewTarget("address not forwarded", errors.NewNotFound(redaction.RedactEmail(e.String())))
	}
	delete(t.working, e)
	return nil
}

// Save uploads and activates the script.
func (t *Target) Save(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil || t.working == nil {
		return errors.NewTarget("no edit in progress")
	}

	script := BuildScript(t.working, t.config.KeepLocalCopy)
	if err := t.conn.putScript(t.config.ScriptName, script); err != nil {
		return errors.NewTarget("cannot upload Sieve script", err)
	}
	if err := t.conn.setActive(t.config.ScriptName); err != nil {
		return errors.NewTarget("cannot activate Sieve script", err)
	}

	t.current = t.working.Clone()
	slog.InfoContext(ctx, "Sieve script uploaded and activated",
		"script", t.config.ScriptName,
		"addresses", t.current.Len(),
	)
	return nil
}

// Release logs out. It is idempotent.
func (t *Target) Release(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.logout()
	t.conn = nil
	t.current = nil
	t.working = nil
	if err != nil {
		slog.WarnContext(ctx, "ManageSieve logout failed", "error", err)
		return errors.NewTarget("logout failed", err)
	}
	slog.DebugContext(ctx, "ManageSieve connection closed")
	return nil
}
