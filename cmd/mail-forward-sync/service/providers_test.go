// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/config"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/easyverein"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/rules"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/infrastructure/sieve"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
	pkgerrors "github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

func TestDirectorySource(t *testing.T) {
	ctx := context.Background()

	t.Run("mock", func(t *testing.T) {
		cfg := config.Default()
		cfg.DirectorySource = constants.DirectorySourceMock
		dir, err := DirectorySource(ctx, cfg)
		require.NoError(t, err)
		emails, err := dir.FetchActiveEmails(ctx, cfg.GroupFilter())
		require.NoError(t, err)
		assert.Equal(t, 3, emails.Len())
	})

	t.Run("easyverein", func(t *testing.T) {
		cfg := config.Default()
		cfg.EasyVerein.APIKey = "token"
		dir, err := DirectorySource(ctx, cfg)
		require.NoError(t, err)
		assert.IsType(t, &easyverein.Client{}, dir)
	})

	t.Run("easyverein without api key", func(t *testing.T) {
		dir, err := DirectorySource(ctx, config.Default())
		assert.Nil(t, dir)
		var cfgErr pkgerrors.Configuration
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.Default()
		cfg.DirectorySource = "ldap"
		_, err := DirectorySource(ctx, cfg)
		assert.ErrorContains(t, err, "unsupported directory source")
	})
}

func TestForwardingTarget(t *testing.T) {
	ctx := context.Background()
	withCredentials := func(target string) config.Config {
		cfg := config.Default()
		cfg.ForwardTarget = target
		cfg.Target.Email = "board@example.org"
		cfg.Target.Password = "secret"
		cfg.Rules.APIURL = "https://mail.example.org/api/v1"
		return cfg
	}

	t.Run("not configured", func(t *testing.T) {
		target, err := ForwardingTarget(ctx, config.Default())
		require.NoError(t, err)
		assert.Nil(t, target)
	})

	t.Run("mock needs no credentials", func(t *testing.T) {
		cfg := config.Default()
		cfg.ForwardTarget = constants.ForwardTargetMock
		target, err := ForwardingTarget(ctx, cfg)
		require.NoError(t, err)
		assert.NotNil(t, target)
	})

	t.Run("sieve", func(t *testing.T) {
		target, err := ForwardingTarget(ctx, withCredentials(constants.ForwardTargetSieve))
		require.NoError(t, err)
		assert.IsType(t, &sieve.Target{}, target)
	})

	t.Run("rules", func(t *testing.T) {
		target, err := ForwardingTarget(ctx, withCredentials(constants.ForwardTargetRules))
		require.NoError(t, err)
		assert.IsType(t, &rules.Target{}, target)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ForwardingTarget(ctx, withCredentials("pop3"))
		assert.ErrorContains(t, err, "unsupported forwarding target")
	})
}

func TestOptionalSinksDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	recorder, err := RunRecorder(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, recorder)

	publisher, closer, err := ResultPublisher(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, publisher)
	assert.Nil(t, closer)
}

func TestRunRecorder(t *testing.T) {
	cfg := config.Default()
	cfg.Outputs.HistoryDB = filepath.Join(t.TempDir(), "history.db")

	recorder, err := RunRecorder(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, recorder)
	assert.NoError(t, recorder.Close())
}
