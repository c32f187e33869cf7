// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

// HeaderRunID carries the run id so consumers can de-duplicate.
const HeaderRunID = "Nats-Msg-Id"

// resultPublisher implements the ResultPublisher interface using NATS
type resultPublisher struct {
	client *NATSClient
}

// PublishResult publishes the result event of a finished run. Synchronizations
// and comparisons go to separate subjects.
func (m *resultPublisher) PublishResult(ctx context.Context, result model.SyncResult) error {
	subject := constants.SyncResultSubject
	if result.Kind == model.RunKindCompare {
		subject = constants.CompareResultSubject
	}
	return m.publish(ctx, subject, result.RunID, result.Event(), string(result.Kind))
}

// publish is the common method for publishing messages to NATS
func (m *resultPublisher) publish(ctx context.Context, subject, id string, message any, messageType string) error {
	if err := m.client.IsReady(ctx); err != nil {
		slog.ErrorContext(ctx, "NATS client is not ready for publishing",
			"error", err,
			"subject", subject,
			"message_type", messageType,
		)
		return errors.NewServiceUnavailable("NATS client is not ready", err)
	}

	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal message to JSON",
			"error", err,
			"subject", subject,
			"message_type", messageType,
		)
		return errors.NewUnexpected("failed to marshal message", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	if id != "" {
		msg.Header.Set(HeaderRunID, id)
	}

	if err := m.client.conn.PublishMsg(msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish message to NATS",
			"error", err,
			"subject", subject,
			"message_type", messageType,
		)
		return errors.NewServiceUnavailable("failed to publish message", err)
	}

	slog.DebugContext(ctx, "message published successfully",
		"subject", subject,
		"message_type", messageType,
		"message_size", len(data),
	)

	return nil
}

// NewResultPublisher creates a new ResultPublisher using NATS
func NewResultPublisher(client *NATSClient) port.ResultPublisher {
	return &resultPublisher{
		client: client,
	}
}
