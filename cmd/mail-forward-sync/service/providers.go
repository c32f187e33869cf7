// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service wires the configured collaborator implementations.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/config"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/easyverein"
	infrastructure "github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/nats"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/rules"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/sieve"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/snapshot"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/sqlite"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

// DirectorySource initializes the configured directory implementation.
func DirectorySource(ctx context.Context, cfg config.Config) (port.DirectorySource, error) {
	switch cfg.DirectorySource {
	case constants.DirectorySourceMock:
		slog.InfoContext(ctx, "initializing mock directory source")
		return infrastructure.NewSampleDirectory(), nil
	case constants.DirectorySourceEasyVerein:
		slog.InfoContext(ctx, "initializing easyVerein directory source")
		client, err := easyverein.NewClient(easyverein.Config{
			APIKey:            cfg.EasyVerein.APIKey,
			APIVersion:        cfg.EasyVerein.APIVersion,
			BaseURL:           cfg.EasyVerein.BaseURL,
			Timeout:           cfg.EasyVerein.Timeout,
			MaxRetries:        cfg.EasyVerein.MaxRetries,
			RetryDelay:        cfg.EasyVerein.RetryDelay,
			RequestsPerSecond: cfg.EasyVerein.RequestsPerSecond,
			RateLimitRetries:  cfg.EasyVerein.RateLimitRetries,
			RateLimitDelay:    cfg.EasyVerein.RateLimitDelay,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unsupported directory source: %s", cfg.DirectorySource))
	}
}

// ForwardingTarget initializes the configured target implementation. It
// returns nil without error when no target credentials are configured, so
// runs can fail with "target not configured".
func ForwardingTarget(ctx context.Context, cfg config.Config) (port.ForwardingTarget, error) {
	if !cfg.TargetConfigured() {
		slog.WarnContext(ctx, "forwarding target not configured, TARGET_EMAIL and TARGET_PASSWORD are required")
		return nil, nil
	}

	switch cfg.ForwardTarget {
	case constants.ForwardTargetMock:
		slog.InfoContext(ctx, "initializing mock forwarding target")
		return infrastructure.NewMockTarget(), nil
	case constants.ForwardTargetSieve:
		slog.InfoContext(ctx, "initializing Sieve forwarding target", "host", cfg.Sieve.Host, "script", cfg.Sieve.ScriptName)
		target, err := sieve.NewTarget(sieve.Config{
			Host:          cfg.Sieve.Host,
			Port:          cfg.Sieve.Port,
			Username:      cfg.Target.Email,
			Password:      cfg.Target.Password,
			ScriptName:    cfg.Sieve.ScriptName,
			StartTLS:      cfg.Sieve.StartTLS,
			KeepLocalCopy: cfg.Sieve.KeepLocalCopy,
			Timeout:       cfg.Target.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return target, nil
	case constants.ForwardTargetRules:
		slog.InfoContext(ctx, "initializing filter rules forwarding target", "prefix", cfg.Rules.Prefix)
		target, err := rules.NewTarget(rules.Config{
			APIURL:   cfg.Rules.APIURL,
			Username: cfg.Target.Email,
			Password: cfg.Target.Password,
			Prefix:   cfg.Rules.Prefix,
			KeepCopy: cfg.Sieve.KeepLocalCopy,
			Timeout:  cfg.Target.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return target, nil
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unsupported forwarding target: %s", cfg.ForwardTarget))
	}
}

// SnapshotTarget returns a read-only target for an address list file.
func SnapshotTarget(path string) *snapshot.Target {
	return snapshot.NewTarget(path)
}

// RunRecorder opens the run history, or returns nil when HISTORY_DB is unset.
func RunRecorder(ctx context.Context, cfg config.Config) (port.RunRecorder, error) {
	if cfg.Outputs.HistoryDB == "" {
		return nil, nil
	}
	slog.DebugContext(ctx, "opening run history", "path", cfg.Outputs.HistoryDB)
	store, err := sqlite.Open(cfg.Outputs.HistoryDB)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ResultPublisher connects to NATS, or returns nil when NATS_URL is unset.
// The returned closer flushes and closes the connection.
func ResultPublisher(ctx context.Context, cfg config.Config) (port.ResultPublisher, io.Closer, error) {
	if cfg.Outputs.NATSURL == "" {
		return nil, nil, nil
	}

	natsConfig := nats.DefaultConfig()
	natsConfig.URL = cfg.Outputs.NATSURL
	if cfg.Outputs.NATSTimeout > 0 {
		natsConfig.Timeout = cfg.Outputs.NATSTimeout
	}

	client, err := nats.NewClient(ctx, natsConfig)
	if err != nil {
		return nil, nil, err
	}
	return nats.NewResultPublisher(client), client, nil
}
