// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package config loads the synchronizer configuration from a .env file, an
// optional YAML file and the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	uberconfig "go.uber.org/config"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

const defaultEnvFile = ".env"

// Config is the complete, immutable configuration of one invocation.
type Config struct {
	DirectorySource string     `yaml:"directory_source"`
	ForwardTarget   string     `yaml:"forward_target"`
	EasyVerein      EasyVerein `yaml:"easyverein"`
	Target          Target     `yaml:"target"`
	Sieve           Sieve      `yaml:"sieve"`
	Rules           Rules      `yaml:"rules"`
	Run             Run        `yaml:"run"`
	Log             Log        `yaml:"log"`
	Outputs         Outputs    `yaml:"outputs"`
}

// EasyVerein configures the directory source.
type EasyVerein struct {
	APIKey            string        `yaml:"api_key"`
	APIVersion        string        `yaml:"api_version"`
	BaseURL           string        `yaml:"base_url"`
	GroupID           string        `yaml:"group_id"`
	GroupName         string        `yaml:"group_name"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	RateLimitRetries  int           `yaml:"rate_limit_retries"`
	RateLimitDelay    time.Duration `yaml:"rate_limit_delay"`
}

// Target holds the webmail account credentials shared by all target backends.
type Target struct {
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Sieve configures the ManageSieve backend.
type Sieve struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	ScriptName    string `yaml:"script_name"`
	StartTLS      bool   `yaml:"starttls"`
	KeepLocalCopy bool   `yaml:"keep_local_copy"`
}

// Rules configures the per-address filter rule backend.
type Rules struct {
	APIURL string `yaml:"api_url"`
	Prefix string `yaml:"prefix"`
}

// Run holds orchestration policy.
type Run struct {
	DryRun                 bool          `yaml:"dry_run"`
	GuardEmptySource       bool          `yaml:"guard_empty_source"`
	VerifyAfterFailedApply bool          `yaml:"verify_after_failed_apply"`
	Timeout                time.Duration `yaml:"timeout"`
}

// Log configures pkg/log.
type Log struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Outputs configures the optional run history, events and metrics sinks.
type Outputs struct {
	HistoryDB      string        `yaml:"history_db"`
	NATSURL        string        `yaml:"nats_url"`
	NATSTimeout    time.Duration `yaml:"nats_timeout"`
	PushgatewayURL string        `yaml:"pushgateway_url"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DirectorySource: constants.DirectorySourceEasyVerein,
		ForwardTarget:   constants.ForwardTargetSieve,
		EasyVerein: EasyVerein{
			APIVersion:        "v2.0",
			BaseURL:           "https://easyverein.com/api",
			Timeout:           30 * time.Second,
			MaxRetries:        2,
			RetryDelay:        time.Second,
			RequestsPerSecond: 3.3,
			RateLimitRetries:  3,
			RateLimitDelay:    10 * time.Second,
		},
		Target: Target{Timeout: 30 * time.Second},
		Sieve: Sieve{
			Host:          "imap.strato.de",
			Port:          4190,
			ScriptName:    "forwarding",
			StartTLS:      true,
			KeepLocalCopy: true,
		},
		Rules: Rules{Prefix: "MC_"},
		Run: Run{
			DryRun:                 true,
			GuardEmptySource:       true,
			VerifyAfterFailedApply: true,
		},
		Log:     Log{Level: "info"},
		Outputs: Outputs{NATSTimeout: 10 * time.Second},
	}
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Options selects the configuration sources.
type Options struct {
	// EnvFile is a .env file to read. Empty means ./.env when it exists.
	EnvFile string
	// ConfigFile is a YAML file. Empty means MAIL_SYNC_CONFIG when set.
	ConfigFile string
	// Lookup resolves environment variables. Defaults to os.LookupEnv.
	Lookup LookupFunc
}

// Load builds the configuration. Precedence from lowest to highest is:
// defaults, YAML file, .env file, process environment.
func Load(opts Options) (Config, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return Config{}, err
	}
	// The process environment wins over values from the .env file.
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Default()

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile, _ = env(constants.EnvConfigFile)
	}
	if configFile != "" {
		if err := populateFromFile(&cfg, configFile, env); err != nil {
			return Config{}, err
		}
	}

	p := &parser{env: env}
	p.apply(&cfg)
	if len(p.problems) > 0 {
		return Config{}, errors.NewConfiguration("invalid configuration: " + strings.Join(p.problems, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return map[string]string{}, nil
		}
		path = defaultEnvFile
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("cannot read env file %s", path), err)
	}
	return values, nil
}

func populateFromFile(cfg *Config, path string, env LookupFunc) error {
	provider, err := uberconfig.NewYAML(
		uberconfig.File(path),
		uberconfig.Expand(uberconfig.LookupFunc(env)),
	)
	if err != nil {
		return errors.NewConfiguration(fmt.Sprintf("cannot read config file %s", path), err)
	}
	if err := provider.Get(uberconfig.Root).Populate(cfg); err != nil {
		return errors.NewConfiguration(fmt.Sprintf("cannot decode config file %s", path), err)
	}
	return nil
}

// parser applies environment overrides and collects every malformed value.
type parser struct {
	env      LookupFunc
	problems []string
}

func (p *parser) apply(cfg *Config) {
	p.str(constants.EnvDirectorySource, &cfg.DirectorySource)
	p.str(constants.EnvForwardTarget, &cfg.ForwardTarget)

	ev := &cfg.EasyVerein
	p.str(constants.EnvEVAPIKey, &ev.APIKey)
	p.str(constants.EnvEVAPIVersion, &ev.APIVersion)
	p.str(constants.EnvEVBaseURL, &ev.BaseURL)
	p.str(constants.EnvEVGroupID, &ev.GroupID)
	p.str(constants.EnvEVGroupName, &ev.GroupName)
	p.duration(constants.EnvEVTimeout, &ev.Timeout)
	p.integer(constants.EnvEVMaxRetries, &ev.MaxRetries)
	p.duration(constants.EnvEVRetryDelay, &ev.RetryDelay)
	p.float(constants.EnvEVRequestsPerSecond, &ev.RequestsPerSecond)
	p.integer(constants.EnvEVRateLimitRetries, &ev.RateLimitRetries)
	p.duration(constants.EnvEVRateLimitRetryDelay, &ev.RateLimitDelay)

	p.str(constants.EnvTargetEmail, &cfg.Target.Email)
	p.str(constants.EnvTargetPassword, &cfg.Target.Password)
	p.duration(constants.EnvTargetTimeout, &cfg.Target.Timeout)

	p.str(constants.EnvSieveHost, &cfg.Sieve.Host)
	p.integer(constants.EnvSievePort, &cfg.Sieve.Port)
	p.str(constants.EnvSieveScriptName, &cfg.Sieve.ScriptName)
	p.boolean(constants.EnvSieveStartTLS, &cfg.Sieve.StartTLS)
	p.boolean(constants.EnvSieveKeepLocalCopy, &cfg.Sieve.KeepLocalCopy)

	p.str(constants.EnvRulesAPIURL, &cfg.Rules.APIURL)
	p.str(constants.EnvRulePrefix, &cfg.Rules.Prefix)

	p.boolean(constants.EnvDryRun, &cfg.Run.DryRun)
	p.boolean(constants.EnvGuardEmptySource, &cfg.Run.GuardEmptySource)
	p.boolean(constants.EnvVerifyAfterFailedApply, &cfg.Run.VerifyAfterFailedApply)
	p.duration(constants.EnvRunTimeout, &cfg.Run.Timeout)

	p.str(constants.EnvLogLevel, &cfg.Log.Level)
	p.str(constants.EnvLogFormat, &cfg.Log.Format)
	p.boolean(constants.EnvLogAddSource, &cfg.Log.AddSource)

	p.str(constants.EnvHistoryDB, &cfg.Outputs.HistoryDB)
	p.str(constants.EnvNATSURL, &cfg.Outputs.NATSURL)
	p.duration(constants.EnvNATSTimeout, &cfg.Outputs.NATSTimeout)
	p.str(constants.EnvPushgatewayURL, &cfg.Outputs.PushgatewayURL)
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := p.env(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.problems = append(p.problems, fmt.Sprintf("%s: %q is not an integer", key, v))
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.problems = append(p.problems, fmt.Sprintf("%s: %q is not a number", key, v))
		return
	}
	*dst = f
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.problems = append(p.problems, fmt.Sprintf("%s: %q is not a duration", key, v))
		return
	}
	*dst = d
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	b, err := ParseBool(v)
	if err != nil {
		p.problems = append(p.problems, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*dst = b
}

// ParseBool accepts true/1/yes/on and false/0/no/off in any case.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", v)
}

// Validate checks that the selected collaborators have what they need.
// Missing target credentials are not an error: such a target is reported
// as not configured when a run needs it.
func (c Config) Validate() error {
	var missing, invalid []string

	switch c.DirectorySource {
	case constants.DirectorySourceEasyVerein:
		if c.EasyVerein.APIKey == "" {
			missing = append(missing, constants.EnvEVAPIKey)
		}
		if c.EasyVerein.GroupID != "" {
			if _, err := strconv.ParseInt(c.EasyVerein.GroupID, 10, 64); err != nil {
				invalid = append(invalid, fmt.Sprintf("%s must be numeric", constants.EnvEVGroupID))
			}
		}
	case constants.DirectorySourceMock:
	default:
		invalid = append(invalid, fmt.Sprintf("%s: unknown source %q", constants.EnvDirectorySource, c.DirectorySource))
	}

	switch c.ForwardTarget {
	case constants.ForwardTargetSieve:
		if c.Sieve.Host == "" {
			missing = append(missing, constants.EnvSieveHost)
		}
	case constants.ForwardTargetRules:
		if c.TargetConfigured() && c.Rules.APIURL == "" {
			missing = append(missing, constants.EnvRulesAPIURL)
		}
		if c.Rules.Prefix == "" {
			missing = append(missing, constants.EnvRulePrefix)
		}
	case constants.ForwardTargetMock:
	default:
		invalid = append(invalid, fmt.Sprintf("%s: unknown target %q", constants.EnvForwardTarget, c.ForwardTarget))
	}

	if c.EasyVerein.RequestsPerSecond <= 0 {
		invalid = append(invalid, fmt.Sprintf("%s must be positive", constants.EnvEVRequestsPerSecond))
	}
	if c.Run.Timeout < 0 {
		invalid = append(invalid, fmt.Sprintf("%s must not be negative", constants.EnvRunTimeout))
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing environment variables: "+strings.Join(missing, ", "))
	}
	parts = append(parts, invalid...)
	if len(parts) > 0 {
		return errors.NewConfiguration(strings.Join(parts, "; "))
	}
	return nil
}

// TargetConfigured reports whether a forwarding target can be built.
func (c Config) TargetConfigured() bool {
	if c.ForwardTarget == constants.ForwardTargetMock {
		return true
	}
	return c.Target.Email != "" && c.Target.Password != ""
}

// GroupFilter returns the directory group restriction.
func (c Config) GroupFilter() model.GroupFilter {
	return model.GroupFilter{ID: c.EasyVerein.GroupID, Name: c.EasyVerein.GroupName}
}

// WithDryRun returns a copy with the dry-run flag replaced.
func (c Config) WithDryRun(dryRun bool) Config {
	c.Run.DryRun = dryRun
	return c
}
