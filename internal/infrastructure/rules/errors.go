// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package rules

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// StatusError is a non-2xx response from the rules API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("rules API returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("rules API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// checkStatus is the response validator for every request.
func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return &StatusError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
}

// mapHTTPError maps rules API failures to domain errors.
func mapHTTPError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		slog.WarnContext(ctx, "rules API HTTP error occurred", "status_code", statusErr.StatusCode)

		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return errors.NewNotFound("rule not found", err)
		case http.StatusConflict:
			return errors.NewConflict("rule already exists", err)
		case http.StatusUnauthorized:
			return errors.NewUnauthorized("webmail login failed, check TARGET_EMAIL and TARGET_PASSWORD", err)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusUnprocessableEntity:
			return errors.NewValidation("rules API rejected the request", err)
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return errors.NewServiceUnavailable("rules API unavailable", err)
		default:
			return errors.NewUnexpected("rules API error", err)
		}
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewServiceUnavailable("rules API request aborted", err)
	}
	return errors.NewUnexpected("rules API request failed", err)
}

func isNotFound(err error) bool {
	var statusErr *StatusError
	return stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
