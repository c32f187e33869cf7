// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants defines global constants used throughout the synchronizer.
package constants

// Service constants
const (
	// ServiceName is the name of this tool, used as user agent and metrics namespace
	ServiceName = "mail-forward-sync"
)

// Collaborator implementations selectable through configuration
const (
	// DirectorySourceEasyVerein reads members from the easyVerein REST API
	DirectorySourceEasyVerein = "easyverein"
	// DirectorySourceMock serves an in-memory member list
	DirectorySourceMock = "mock"

	// ForwardTargetSieve keeps every address in one Sieve redirect script
	ForwardTargetSieve = "sieve"
	// ForwardTargetRules keeps one webmail filter rule per address
	ForwardTargetRules = "rules"
	// ForwardTargetMock keeps addresses in memory
	ForwardTargetMock = "mock"
)

// Environment variables
const (
	EnvDirectorySource = "DIRECTORY_SOURCE"
	EnvForwardTarget   = "FORWARD_TARGET"
	EnvConfigFile      = "MAIL_SYNC_CONFIG"

	EnvEVAPIKey              = "EV_API_KEY"
	EnvEVAPIVersion          = "EV_API_VERSION"
	EnvEVBaseURL             = "EV_BASE_URL"
	EnvEVGroupID             = "EV_GROUP_ID"
	EnvEVGroupName           = "EV_GROUP_NAME"
	EnvEVTimeout             = "EV_TIMEOUT"
	EnvEVMaxRetries          = "EV_MAX_RETRIES"
	EnvEVRetryDelay          = "EV_RETRY_DELAY"
	EnvEVRequestsPerSecond   = "EV_REQUESTS_PER_SECOND"
	EnvEVRateLimitRetries    = "EV_RATE_LIMIT_RETRIES"
	EnvEVRateLimitRetryDelay = "EV_RATE_LIMIT_DELAY"

	EnvTargetEmail        = "TARGET_EMAIL"
	EnvTargetPassword     = "TARGET_PASSWORD"
	EnvTargetTimeout      = "TARGET_TIMEOUT"
	EnvSieveHost          = "SIEVE_HOST"
	EnvSievePort          = "SIEVE_PORT"
	EnvSieveScriptName    = "SIEVE_SCRIPT_NAME"
	EnvSieveStartTLS      = "SIEVE_STARTTLS"
	EnvSieveKeepLocalCopy = "SIEVE_KEEP_LOCAL_COPY"
	EnvRulesAPIURL        = "RULES_API_URL"
	EnvRulePrefix         = "RULE_PREFIX"

	EnvDryRun                 = "DRY_RUN"
	EnvLogLevel               = "LOG_LEVEL"
	EnvLogFormat              = "LOG_FORMAT"
	EnvLogAddSource           = "LOG_ADD_SOURCE"
	EnvGuardEmptySource       = "GUARD_EMPTY_SOURCE"
	EnvVerifyAfterFailedApply = "VERIFY_AFTER_FAILED_APPLY"
	EnvRunTimeout             = "RUN_TIMEOUT"
	EnvHistoryDB              = "HISTORY_DB"
	EnvNATSURL                = "NATS_URL"
	EnvNATSTimeout            = "NATS_TIMEOUT"
	EnvPushgatewayURL         = "PUSHGATEWAY_URL"
)
