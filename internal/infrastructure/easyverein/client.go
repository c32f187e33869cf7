// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package easyverein reads the authoritative member list from the easyVerein REST API.
package easyverein

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/httpclient"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/redaction"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/utils"
)

// progressEvery controls how often the group scan logs its progress.
const progressEvery = 20

// Client is the easyVerein directory source.
type Client struct {
	config    Config
	http      *httpclient.Client
	limiter   *rate.Limiter
	rateRetry utils.RetryConfig
}

var _ port.DirectorySource = (*Client)(nil)

// NewClient creates a new easyVerein client with the given configuration
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfiguration("an API key is required for the easyVerein directory")
	}

	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaults.APIVersion
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// 429 is handled below with a linear backoff, the transport only retries
	// server and network errors.
	httpConfig := httpclient.Config{
		Timeout:          cfg.Timeout,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       cfg.RetryDelay,
		RetryBackoff:     true,
		MaxDelay:         30 * time.Second,
		RetryRateLimited: false,
	}

	client := &Client{
		config:  cfg,
		http:    httpclient.NewClient(httpConfig),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		rateRetry: utils.RetryConfig{
			MaxAttempts: cfg.RateLimitRetries + 1,
			BaseDelay:   cfg.RateLimitDelay,
			Linear:      true,
			Retryable:   isRateLimited,
		},
	}
	client.http.AddRoundTripper(httpclient.BearerToken{Token: cfg.APIKey})
	client.http.AddRoundTripper(httpclient.UserAgent(constants.ServiceName))

	slog.DebugContext(context.Background(), "easyVerein client initialized",
		"base_url", cfg.BaseURL,
		"api_version", cfg.APIVersion,
	)

	return client, nil
}

// endpoint builds an absolute API URL for path with the given query.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.config.BaseURL + "/" + c.config.APIVersion + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get fetches one JSON document, throttled and retried on rate limiting.
func (c *Client) get(ctx context.Context, rawURL string) (gjson.Result, error) {
	var body []byte
	err := utils.RetryWithExponentialBackoff(ctx, c.rateRetry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.http.Get(ctx, rawURL)
		if err != nil {
			if isRateLimited(err) {
				slog.WarnContext(ctx, "easyVerein rate limit reached")
			}
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.NewUnexpected("easyVerein returned invalid JSON")
	}
	return gjson.ParseBytes(body), nil
}

// listMembers pages through all members following the "next" links.
func (c *Client) listMembers(ctx context.Context) ([]member, error) {
	next := c.endpoint("/member", url.Values{
		"query": {memberQuery},
		"limit": {strconv.Itoa(c.config.PageSize)},
	})

	var members []member
	for next != "" {
		page, err := c.get(ctx, next)
		if err != nil {
			return nil, MapHTTPError(ctx, err)
		}
		for _, r := range page.Get("results").Array() {
			members = append(members, parseMember(r))
		}
		next, err = c.resolveNext(page.Get("next").String())
		if err != nil {
			return nil, err
		}
	}

	slog.DebugContext(ctx, "easyVerein members loaded", "count", len(members))
	return members, nil
}

// resolveNext turns a "next" link into an absolute URL. Relative links are
// resolved against the base URL.
func (c *Client) resolveNext(next string) (string, error) {
	if next == "" {
		return "", nil
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", errors.NewUnexpected("easyVerein returned an invalid page link", err)
	}
	if ref.IsAbs() {
		return next, nil
	}
	base, err := url.Parse(c.config.BaseURL + "/")
	if err != nil {
		return "", errors.NewUnexpected("invalid easyVerein base URL", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// resolveGroupID returns the filter's group id, looking the group up by name
// when only a name is configured.
func (c *Client) resolveGroupID(ctx context.Context, filter model.GroupFilter) (string, error) {
	if filter.ID != "" {
		return filter.ID, nil
	}

	page, err := c.get(ctx, c.endpoint("/member-group", url.Values{
		"name":  {filter.Name},
		"query": {"{id,name}"},
	}))
	if err != nil {
		return "", MapHTTPError(ctx, err)
	}
	for _, r := range page.Get("results").Array() {
		if strings.EqualFold(r.Get("name").String(), filter.Name) {
			return r.Get("id").String(), nil
		}
	}
	return "", errors.NewNotFound(fmt.Sprintf("member group %q not found", filter.Name))
}

// isGroupMember checks one member's membership. A 404 means "not a member".
func (c *Client) isGroupMember(ctx context.Context, memberID int64, groupID string) (bool, error) {
	page, err := c.get(ctx, c.endpoint(fmt.Sprintf("/member/%d/memberGroups", memberID), url.Values{
		"memberGroup": {groupID},
		"query":       {"{id}"},
		"limit":       {"1"},
	}))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return len(page.Get("results").Array()) > 0, nil
}

// active returns the active members that have an address, restricted to the
// group when the filter is enabled.
func (c *Client) active(ctx context.Context, filter model.GroupFilter) ([]member, error) {
	all, err := c.listMembers(ctx)
	if err != nil {
		return nil, err
	}

	var active []member
	var skipped int
	for _, m := range all {
		if m.Resigned {
			slog.DebugContext(ctx, "member skipped (resigned)", "membership_number", m.MembershipNumber)
			skipped++
			continue
		}
		if !model.IsValidEmail(m.email()) {
			slog.WarnContext(ctx, "member has no usable e-mail address", "membership_number", m.MembershipNumber)
			skipped++
			continue
		}
		active = append(active, m)
	}

	if !filter.Enabled() {
		slog.InfoContext(ctx, "active members loaded", "processed", len(active), "skipped", skipped)
		return active, nil
	}

	groupID, err := c.resolveGroupID(ctx, filter)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "checking group membership",
		"group_id", groupID,
		"group_name", filter.Name,
		"candidates", len(active),
	)

	var inGroup []member
	for i, m := range active {
		if (i+1)%progressEvery == 0 {
			slog.InfoContext(ctx, "group membership progress", "checked", i+1, "total", len(active))
		}
		ok, err := c.isGroupMember(ctx, m.ID, groupID)
		if err != nil {
			return nil, MapHTTPError(ctx, err)
		}
		if ok {
			inGroup = append(inGroup, m)
		}
	}

	slog.InfoContext(ctx, "active group members loaded",
		"group_id", groupID,
		"members", len(inGroup),
		"skipped", skipped,
	)
	return inGroup, nil
}

// Probe fetches a single member to verify the API key.
func (c *Client) Probe(ctx context.Context) error {
	page, err := c.get(ctx, c.endpoint("/member", url.Values{
		"query": {"{id}"},
		"limit": {"1"},
	}))
	if err != nil {
		return errors.NewDirectory("easyVerein connection failed", MapHTTPError(ctx, err))
	}
	slog.InfoContext(ctx, "easyVerein connection OK", "members_total", page.Get("count").Int())
	return nil
}

// FetchActiveEmails implements port.DirectorySource.
func (c *Client) FetchActiveEmails(ctx context.Context, filter model.GroupFilter) (model.EmailSet, error) {
	members, err := c.active(ctx, filter)
	if err != nil {
		return nil, errors.NewDirectory("failed to fetch active members from easyVerein", err)
	}

	emails := make(model.EmailSet, len(members))
	for _, m := range members {
		e := emails.Add(m.email())
		slog.DebugContext(ctx, "active member", "membership_number", m.MembershipNumber, "email", redaction.RedactEmail(e.String()))
	}

	slog.InfoContext(ctx, "directory addresses loaded", "members", len(members), "unique_emails", emails.Len())
	return emails, nil
}

// FetchActiveMembers implements port.DirectorySource.
func (c *Client) FetchActiveMembers(ctx context.Context, filter model.GroupFilter) ([]model.MemberRecord, error) {
	members, err := c.active(ctx, filter)
	if err != nil {
		return nil, errors.NewDirectory("failed to fetch member details from easyVerein", err)
	}

	records := make([]model.MemberRecord, 0, len(members))
	for _, m := range members {
		records = append(records, m.record())
	}
	return records, nil
}
