// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package metrics collects run metrics and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/pkg/errors"
)

const namespace = "mail_forward_sync"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector is the Prometheus implementation of port.SyncMetrics.
type Collector struct {
	runs          *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	addresses     *prometheus.GaugeVec
	duration      *prometheus.HistogramVec
	lastRunTime   prometheus.Gauge
	lastRunFailed prometheus.Gauge
}

var _ port.SyncMetrics = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by kind, outcome and last state.",
		}, []string{"kind", "outcome", "last_state"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Forwarding target mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		addresses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "addresses",
			Help:      "Address set sizes of the last run.",
		}, []string{"set"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Run duration.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"kind"}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run.",
		}),
		lastRunFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_failed",
			Help:      "1 if the last run failed, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.runs,
		c.mutations,
		c.addresses,
		c.duration,
		c.lastRunTime,
		c.lastRunFailed,
	)

	return c
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(result model.SyncResult) {
	c.runs.WithLabelValues(string(result.Kind), outcome(result.Success), string(result.LastState)).Inc()
	c.duration.WithLabelValues(string(result.Kind)).Observe(result.Duration.Seconds())

	c.addresses.WithLabelValues("authoritative").Set(float64(len(result.Diff.AuthoritativeEmails)))
	c.addresses.WithLabelValues("target").Set(float64(len(result.Diff.TargetEmails)))
	c.addresses.WithLabelValues("to_add").Set(float64(len(result.Diff.ToAdd)))
	c.addresses.WithLabelValues("to_remove").Set(float64(len(result.Diff.ToRemove)))
	c.addresses.WithLabelValues("unchanged").Set(float64(len(result.Diff.Unchanged)))

	c.lastRunTime.Set(float64(result.Timestamp.Unix()))
	if result.Success {
		c.lastRunFailed.Set(0)
	} else {
		c.lastRunFailed.Set(1)
	}
}

// ObserveMutation records one add, remove or save.
func (c *Collector) ObserveMutation(operation string, err error) {
	c.mutations.WithLabelValues(operation, outcome(err == nil)).Inc()
}

// Push sends everything gathered by g to the Pushgateway at url, replacing
// the metrics of the job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	err := push.New(url, job).
		Gatherer(g).
		PushContext(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to push metrics", "url", url, "error", err)
		return errors.NewServiceUnavailable("failed to push metrics to the Pushgateway", err)
	}
	slog.DebugContext(ctx, "metrics pushed", "url", url, "job", job)
	return nil
}
