// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import (
	"net/http"
)

// BearerToken injects a static API token into every request.
type BearerToken struct {
	Token string
}

// RoundTrip sets the Authorization header unless the request already carries one.
func (b BearerToken) RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	if b.Token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}
	return next(req)
}

// UserAgent sets a fixed User-Agent header.
type UserAgent string

// RoundTrip sets the User-Agent header.
func (u UserAgent) RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	req.Header.Set("User-Agent", string(u))
	return next(req)
}
