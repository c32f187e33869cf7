// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package rules keeps one webmail filter rule per forwarding address. Each
// managed rule is named "<prefix><address>" and redirects to that address.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/carlmjohnson/requests"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/redaction"
)

// Target is a ForwardingTarget backed by the webmail rules API. Every
// mutation is applied immediately; Save has nothing left to commit.
type Target struct {
	config Config
	base   *requests.Builder

	mu        sync.Mutex
	connected bool
	// ids maps each managed address to its rule id
	ids map[model.EmailAddress]string
}

var (
	_ port.ForwardingTarget = (*Target)(nil)
	_ port.TargetDescriber  = (*Target)(nil)
)

// NewTarget creates a rules target.
func NewTarget(cfg Config) (*Target, error) {
	if cfg.APIURL == "" {
		return nil, errors.NewConfiguration("RULES_API_URL is required for the rules target")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.NewConfiguration("mailbox credentials are required for the rules target")
	}
	if cfg.Prefix == "" {
		return nil, errors.NewConfiguration("a rule prefix is required, unprefixed rules are never managed")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	// Relative paths resolve below the API URL only with a trailing slash.
	apiURL := strings.TrimRight(cfg.APIURL, "/") + "/"

	base := requests.
		URL(apiURL).
		Client(&http.Client{Timeout: cfg.Timeout}).
		BasicAuth(cfg.Username, cfg.Password).
		UserAgent(constants.ServiceName).
		Accept("application/json").
		AddValidator(checkStatus)

	return &Target{config: cfg, base: base}, nil
}

// Describe implements port.TargetDescriber.
func (t *Target) Describe() string {
	return fmt.Sprintf("Filter rules with prefix %q", t.config.Prefix)
}

// Probe lists the rules once to verify the credentials.
func (t *Target) Probe(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}
	slog.InfoContext(ctx, "connecting to webmail rules API", "user", redaction.RedactEmail(t.config.Username))

	if _, err := t.list(ctx); err != nil {
		return errors.NewTarget("webmail rules API login failed", err)
	}
	t.connected = true
	slog.InfoContext(ctx, "webmail rules API login successful")
	return nil
}

// list fetches every rule on the account.
func (t *Target) list(ctx context.Context) ([]Rule, error) {
	var body string
	err := t.base.Clone().
		Path("rules").
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return nil, mapHTTPError(ctx, err)
	}
	return parseRules(body), nil
}

// load rebuilds the address to rule id index from the managed rules.
func (t *Target) load(ctx context.Context) error {
	if !t.connected {
		return errors.NewTarget("not connected")
	}
	all, err := t.list(ctx)
	if err != nil {
		return errors.NewTarget("cannot list filter rules", err)
	}

	ids := make(map[model.EmailAddress]string)
	for _, r := range all {
		e, ok := managedAddress(r, t.config.Prefix)
		if !ok {
			continue
		}
		if _, dup := ids[e]; dup {
			slog.WarnContext(ctx, "duplicate managed rule ignored", "rule_id", r.ID, "email", redaction.RedactEmail(e.String()))
			continue
		}
		ids[e] = r.ID
	}

	t.ids = ids
	slog.DebugContext(ctx, "managed filter rules loaded", "total_rules", len(all), "managed", len(ids), "prefix", t.config.Prefix)
	if len(ids) == 0 {
		slog.WarnContext(ctx, "no managed filter rules found", "prefix", t.config.Prefix)
	}
	return nil
}

// FetchCurrentAddresses returns the addresses of all managed rules.
func (t *Target) FetchCurrentAddresses(ctx context.Context) (model.EmailSet, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(ctx); err != nil {
		return nil, err
	}
	current := make(model.EmailSet, len(t.ids))
	for e := range t.ids {
		current[e] = struct{}{}
	}
	return current, nil
}

// BeginEdit makes sure the rule index is available for removals.
func (t *Target) BeginEdit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ids != nil {
		return nil
	}
	return t.load(ctx)
}

// AddAddress creates a redirect rule named "<prefix><address>".
func (t *Target) AddAddress(ctx context.Context, email model.EmailAddress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return errors.NewTarget("not connected")
	}
	e := model.NormalizeEmail(email.String())
	if !e.Valid() {
		return errors.NewTarget("invalid address " + redaction.RedactEmail(e.String()))
	}

	req := CreateRuleRequest{
		Name:    t.config.Prefix + e.String(),
		Enabled: true,
		Action: Action{
			Type:     actionRedirect,
			To:       e.String(),
			KeepCopy: t.config.KeepCopy,
		},
	}
	var created Rule
	err := t.base.Clone().
		Path("rules").
		BodyJSON(&req).
		ToJSON(&created).
		Fetch(ctx)
	if err != nil {
		return errors.NewTarget("cannot create filter rule", mapHTTPError(ctx, err))
	}

	if t.ids == nil {
		t.ids = make(map[model.EmailAddress]string)
	}
	t.ids[e] = created.ID
	slog.DebugContext(ctx, "filter rule created", "rule_id", created.ID, "email", redaction.RedactEmail(e.String()))
	return nil
}

// RemoveAddress deletes the managed rule of the address.
func (t *Target) RemoveAddress(ctx context.Context, email model.EmailAddress) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return errors.NewTarget("not connected")
	}
	e := model.NormalizeEmail(email.String())
	id, ok := t.ids[e]
	if !ok {
		return errors.NewTarget("no managed rule for address", errors.NewNotFound(redaction.RedactEmail(e.String())))
	}

	err := t.base.Clone().
		Pathf("rules/%s", url.PathEscape(id)).
		Delete().
		Fetch(ctx)
	if err != nil && !isNotFound(err) {
		return errors.NewTarget("cannot delete filter rule", mapHTTPError(ctx, err))
	}

	delete(t.ids, e)
	slog.DebugContext(ctx, "filter rule deleted", "rule_id", id, "email", redaction.RedactEmail(e.String()))
	return nil
}

// Save is a no-op: rules are created and deleted immediately.
func (t *Target) Save(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return errors.NewTarget("not connected")
	}
	return nil
}

// Release forgets the session state. It is idempotent.
func (t *Target) Release(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		slog.DebugContext(ctx, "webmail rules API session released")
	}
	t.connected = false
	t.ids = nil
	return nil
}
