// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package easyverein

import "time"

// Config holds the configuration for the easyVerein client
type Config struct {
	// APIKey is the easyVerein API token
	APIKey string

	// APIVersion is the path segment of the API version, e.g. "v2.0"
	APIVersion string

	// BaseURL is the easyVerein API base URL without version
	BaseURL string

	// Timeout is the HTTP client timeout for requests
	Timeout time.Duration

	// MaxRetries is the number of retries for server and network errors
	MaxRetries int

	// RetryDelay is the delay before the first retry of a server error
	RetryDelay time.Duration

	// RequestsPerSecond throttles all requests
	RequestsPerSecond float64

	// RateLimitRetries is the number of retries after an HTTP 429
	RateLimitRetries int

	// RateLimitDelay grows linearly with every rate limit retry
	RateLimitDelay time.Duration

	// PageSize is the number of members requested per page
	PageSize int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		APIVersion:        "v2.0",
		BaseURL:           "https://easyverein.com/api",
		Timeout:           30 * time.Second,
		MaxRetries:        2,
		RetryDelay:        1 * time.Second,
		RequestsPerSecond: 3.3,
		RateLimitRetries:  3,
		RateLimitDelay:    10 * time.Second,
		PageSize:          100,
	}
}
