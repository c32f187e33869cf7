// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import "time"

// Config holds the transport and retry settings for a Client.
type Config struct {
	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryDelay is the delay before the first retry.
	RetryDelay time.Duration

	// RetryBackoff doubles the delay on each retry and adds jitter.
	RetryBackoff bool

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// RetryRateLimited retries HTTP 429 responses inside the client.
	// Callers with their own rate limit policy turn this off.
	RetryRateLimited bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		RetryDelay:       1 * time.Second,
		RetryBackoff:     true,
		MaxDelay:         30 * time.Second,
		RetryRateLimited: true,
	}
}
