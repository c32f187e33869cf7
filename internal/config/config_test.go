// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
	pkgerrors "github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// noEnvFile points at an empty .env so tests never pick up a developer's ./.env.
func noEnvFile(t *testing.T) string {
	return writeFile(t, ".env", "")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{
		EnvFile: noEnvFile(t),
		Lookup:  mapLookup(map[string]string{constants.EnvEVAPIKey: "secret"}),
	})
	require.NoError(t, err)

	assert.Equal(t, constants.DirectorySourceEasyVerein, cfg.DirectorySource)
	assert.Equal(t, constants.ForwardTargetSieve, cfg.ForwardTarget)
	assert.Equal(t, "v2.0", cfg.EasyVerein.APIVersion)
	assert.Equal(t, "https://easyverein.com/api", cfg.EasyVerein.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.EasyVerein.RateLimitDelay)
	assert.Equal(t, "imap.strato.de", cfg.Sieve.Host)
	assert.Equal(t, 4190, cfg.Sieve.Port)
	assert.Equal(t, "MC_", cfg.Rules.Prefix)
	assert.True(t, cfg.Run.DryRun, "runs are dry by default")
	assert.True(t, cfg.Run.GuardEmptySource)
	assert.False(t, cfg.TargetConfigured())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	cfg, err := Load(Options{
		EnvFile: noEnvFile(t),
		Lookup: mapLookup(map[string]string{
			constants.EnvEVAPIKey:            "secret",
			constants.EnvEVGroupID:           "42",
			constants.EnvEVGroupName:         "choir",
			constants.EnvTargetEmail:         "board@example.org",
			constants.EnvTargetPassword:      "pw",
			constants.EnvSievePort:           "2000",
			constants.EnvSieveKeepLocalCopy:  "no",
			constants.EnvDryRun:              "FALSE",
			constants.EnvRunTimeout:          "2m",
			constants.EnvEVRequestsPerSecond: "1.5",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, model.GroupFilter{ID: "42", Name: "choir"}, cfg.GroupFilter())
	assert.True(t, cfg.TargetConfigured())
	assert.Equal(t, 2000, cfg.Sieve.Port)
	assert.False(t, cfg.Sieve.KeepLocalCopy)
	assert.False(t, cfg.Run.DryRun)
	assert.Equal(t, 2*time.Minute, cfg.Run.Timeout)
	assert.InDelta(t, 1.5, cfg.EasyVerein.RequestsPerSecond, 0.0001)
}

func TestLoadMissingAPIKey(t *testing.T) {
	_, err := Load(Options{EnvFile: noEnvFile(t), Lookup: mapLookup(nil)})
	require.Error(t, err)

	var cfgErr pkgerrors.Configuration
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), constants.EnvEVAPIKey)
}

func TestLoadCollectsMalformedValues(t *testing.T) {
	_, err := Load(Options{
		EnvFile: noEnvFile(t),
		Lookup: mapLookup(map[string]string{
			constants.EnvEVAPIKey:   "secret",
			constants.EnvSievePort:  "many",
			constants.EnvDryRun:     "maybe",
			constants.EnvRunTimeout: "soon",
		}),
	})
	require.Error(t, err)

	var cfgErr pkgerrors.Configuration
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), constants.EnvSievePort)
	assert.Contains(t, err.Error(), constants.EnvDryRun)
	assert.Contains(t, err.Error(), constants.EnvRunTimeout)
}

func TestLoadEnvFileLosesToEnvironment(t *testing.T) {
	envFile := writeFile(t, ".env", "EV_API_KEY=from-file\nTARGET_EMAIL=file@example.org\nTARGET_PASSWORD=pw\n")

	cfg, err := Load(Options{
		EnvFile: envFile,
		Lookup:  mapLookup(map[string]string{constants.EnvTargetEmail: "env@example.org"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.EasyVerein.APIKey)
	assert.Equal(t, "env@example.org", cfg.Target.Email)
	assert.True(t, cfg.TargetConfigured())
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "absent.env"), Lookup: mapLookup(nil)})
	var cfgErr pkgerrors.Configuration
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLoadYAMLFile(t *testing.T) {
	configFile := writeFile(t, "sync.yaml", `
directory_source: mock
forward_target: rules
easyverein:
  group_name: choir
target:
  email: board@example.org
  password: ${RULES_PASSWORD}
  timeout: 5s
rules:
  api_url: https://rules.example.org/api
  prefix: FWD_
run:
  guard_empty_source: false
`)

	cfg, err := Load(Options{
		EnvFile:    noEnvFile(t),
		ConfigFile: configFile,
		Lookup: mapLookup(map[string]string{
			"RULES_PASSWORD":        "expanded",
			constants.EnvRulePrefix: "ENV_",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, constants.DirectorySourceMock, cfg.DirectorySource)
	assert.Equal(t, constants.ForwardTargetRules, cfg.ForwardTarget)
	assert.Equal(t, "choir", cfg.EasyVerein.GroupName)
	assert.Equal(t, "expanded", cfg.Target.Password)
	assert.Equal(t, 5*time.Second, cfg.Target.Timeout)
	assert.Equal(t, "https://rules.example.org/api", cfg.Rules.APIURL)
	assert.Equal(t, "ENV_", cfg.Rules.Prefix, "environment wins over the file")
	assert.False(t, cfg.Run.GuardEmptySource)
	assert.True(t, cfg.Run.DryRun, "unset keys keep their defaults")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "mock collaborators need nothing",
			mutate: func(c *Config) { c.DirectorySource, c.ForwardTarget = "mock", "mock" },
		},
		{
			name:    "unknown directory source",
			mutate:  func(c *Config) { c.DirectorySource = "ldap"; c.EasyVerein.APIKey = "k" },
			wantErr: "unknown source",
		},
		{
			name:    "unknown target",
			mutate:  func(c *Config) { c.EasyVerein.APIKey = "k"; c.ForwardTarget = "pop3" },
			wantErr: "unknown target",
		},
		{
			name: "configured rules target needs an API URL",
			mutate: func(c *Config) {
				c.EasyVerein.APIKey = "k"
				c.ForwardTarget = "rules"
				c.Target.Email, c.Target.Password = "a@x.org", "pw"
			},
			wantErr: constants.EnvRulesAPIURL,
		},
		{
			name:    "group id must be numeric",
			mutate:  func(c *Config) { c.EasyVerein.APIKey = "k"; c.EasyVerein.GroupID = "choir" },
			wantErr: constants.EnvEVGroupID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithDryRunReturnsCopy(t *testing.T) {
	cfg := Default()
	applied := cfg.WithDryRun(false)

	assert.True(t, cfg.Run.DryRun)
	assert.False(t, applied.Run.DryRun)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "YES", "on"} {
		b, err := ParseBool(v)
		require.NoError(t, err)
		assert.True(t, b, v)
	}
	for _, v := range []string{"false", "0", "No", "off"} {
		b, err := ParseBool(v)
		require.NoError(t, err)
		assert.False(t, b, v)
	}
	_, err := ParseBool("perhaps")
	assert.Error(t, err)
}
