// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package easyverein

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/httpclient"
)

// MapHTTPError maps httpclient errors to domain errors with proper context logging
func MapHTTPError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var retryableErr *httpclient.RetryableError
	if stderrors.As(err, &retryableErr) {
		slog.WarnContext(ctx, "easyVerein HTTP error occurred",
			"status_code", retryableErr.StatusCode,
		)

		switch retryableErr.StatusCode {
		case http.StatusNotFound:
			return errors.NewNotFound("resource not found in easyVerein", err)
		case http.StatusConflict:
			return errors.NewConflict("easyVerein reported a conflict", err)
		case http.StatusUnauthorized:
			return errors.NewUnauthorized("easyVerein authentication failed, check EV_API_KEY", err)
		case http.StatusForbidden:
			return errors.NewValidation("easyVerein access denied", err)
		case http.StatusTooManyRequests:
			return errors.NewServiceUnavailable("easyVerein rate limit exhausted", err)
		case http.StatusBadRequest:
			return errors.NewValidation(fmt.Sprintf("easyVerein rejected the request: %s", retryableErr.Message), err)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return errors.NewServiceUnavailable("easyVerein service unavailable", err)
		default:
			slog.ErrorContext(ctx, "unexpected easyVerein HTTP status code",
				"status_code", retryableErr.StatusCode,
			)
			return errors.NewUnexpected("easyVerein API error", err)
		}
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewServiceUnavailable("easyVerein request aborted", err)
	}

	slog.ErrorContext(ctx, "easyVerein request failed with non-HTTP error",
		"error", err.Error(),
	)
	return errors.NewUnexpected("easyVerein request failed", err)
}

// isRateLimited reports whether err is an HTTP 429 response.
func isRateLimited(err error) bool {
	var retryableErr *httpclient.RetryableError
	return stderrors.As(err, &retryableErr) && retryableErr.StatusCode == http.StatusTooManyRequests
}

// isNotFound reports whether err is an HTTP 404 response.
func isNotFound(err error) bool {
	var retryableErr *httpclient.RetryableError
	return stderrors.As(err, &retryableErr) && retryableErr.StatusCode == http.StatusNotFound
}
