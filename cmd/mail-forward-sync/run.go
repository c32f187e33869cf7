// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/cmd/mail-forward-sync/service"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/config"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/metrics"
	internalService "github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/service"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/constants"
)

// sinks are the optional outputs of a run: history, events and metrics.
// None of them can fail a run.
type sinks struct {
	cfg       config.Config
	recorder  port.RunRecorder
	publisher port.ResultPublisher
	nats      io.Closer
	registry  *prometheus.Registry
	collector *metrics.Collector
}

func (o *RootOptions) openSinks(ctx context.Context, cfg config.Config) *sinks {
	s := &sinks{cfg: cfg}

	recorder, err := service.RunRecorder(ctx, cfg)
	if err != nil {
		o.logger.WarnContext(ctx, "run history disabled", "error", err)
	}
	s.recorder = recorder

	publisher, closer, err := service.ResultPublisher(ctx, cfg)
	if err != nil {
		o.logger.WarnContext(ctx, "result publishing disabled", "error", err)
	}
	s.publisher, s.nats = publisher, closer

	if cfg.Outputs.PushgatewayURL != "" {
		s.registry = prometheus.NewRegistry()
		s.collector = metrics.NewCollector(s.registry)
	}
	return s
}

func (s *sinks) options() []internalService.Option {
	var opts []internalService.Option
	if s.recorder != nil {
		opts = append(opts, internalService.WithRecorder(s.recorder))
	}
	if s.publisher != nil {
		opts = append(opts, internalService.WithPublisher(s.publisher))
	}
	if s.collector != nil {
		opts = append(opts, internalService.WithMetrics(s.collector))
	}
	return opts
}

// close pushes the metrics and closes the connections.
func (o *RootOptions) closeSinks(ctx context.Context, s *sinks) {
	ctx = context.WithoutCancel(ctx)
	if s.registry != nil {
		// push errors are logged by metrics.Push
		_ = metrics.Push(ctx, s.cfg.Outputs.PushgatewayURL, constants.ServiceName, s.registry)
	}
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			o.logger.WarnContext(ctx, "failed to close NATS connection", "error", err)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			o.logger.WarnContext(ctx, "failed to close run history", "error", err)
		}
	}
}

// synchronizer wires a Synchronizer for cfg and target. The diff report is
// written only in text format; machine formats carry the diff in the result.
func (o *RootOptions) synchronizer(cmd *cobra.Command, cfg config.Config, directory port.DirectorySource, target port.ForwardingTarget, s *sinks) (*internalService.Synchronizer, *internalService.Reporter) {
	reporter := internalService.NewReporter(cmd.OutOrStdout(), o.Format)
	if d, ok := target.(port.TargetDescriber); ok {
		reporter.WithTargetLabel(d.Describe())
	}

	opts := []internalService.Option{
		internalService.WithDryRun(cfg.Run.DryRun),
		internalService.WithGroupFilter(cfg.GroupFilter()),
		internalService.WithLogger(o.logger),
		internalService.WithEmptySourceGuard(cfg.Run.GuardEmptySource),
		internalService.WithVerifyAfterFailedApply(cfg.Run.VerifyAfterFailedApply),
		internalService.WithRunTimeout(cfg.Run.Timeout),
	}
	if reporter.Format() == internalService.FormatText {
		opts = append(opts, internalService.WithReporter(reporter))
	}
	opts = append(opts, s.options()...)

	return internalService.NewSynchronizer(directory, target, opts...), reporter
}
