// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-mail-forward-sync/internal/domain/model"
)

// find returns the metric of family name whose labels include want.
func find(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			return m
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return nil
}

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	result := model.NewSyncResult(model.SyncResult{
		Kind:      model.RunKindSync,
		Success:   false,
		LastState: model.StateDone,
		Duration:  3 * time.Second,
		Timestamp: time.Unix(1700000000, 0),
		Diff: model.SyncDiff{
			AuthoritativeEmails: model.NewEmailSet("a@x.org", "b@x.org"),
			TargetEmails:        model.NewEmailSet("b@x.org"),
			ToAdd:               model.NewEmailSet("a@x.org"),
			ToRemove:            model.EmailSet{},
			Unchanged:           model.NewEmailSet("b@x.org"),
		},
	})
	c.ObserveRun(result)
	c.ObserveRun(result)

	runs := find(t, reg, "mail_forward_sync_runs_total", map[string]string{"kind": "sync", "outcome": OutcomeFailure, "last_state": "DONE"})
	assert.Equal(t, 2.0, runs.GetCounter().GetValue())

	assert.Equal(t, 2.0, find(t, reg, "mail_forward_sync_addresses", map[string]string{"set": "authoritative"}).GetGauge().GetValue())
	assert.Equal(t, 1.0, find(t, reg, "mail_forward_sync_addresses", map[string]string{"set": "to_add"}).GetGauge().GetValue())
	assert.Equal(t, 0.0, find(t, reg, "mail_forward_sync_addresses", map[string]string{"set": "to_remove"}).GetGauge().GetValue())
	assert.Equal(t, 1.0, find(t, reg, "mail_forward_sync_last_run_failed", nil).GetGauge().GetValue())
	assert.Equal(t, 1700000000.0, find(t, reg, "mail_forward_sync_last_run_timestamp_seconds", nil).GetGauge().GetValue())

	hist := find(t, reg, "mail_forward_sync_run_duration_seconds", map[string]string{"kind": "sync"}).GetHistogram()
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.Equal(t, 6.0, hist.GetSampleSum())
}

func TestObserveMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveMutation("add", nil)
	c.ObserveMutation("add", nil)
	c.ObserveMutation("add", errors.New("quota"))
	c.ObserveMutation("remove", nil)

	assert.Equal(t, 2.0, find(t, reg, "mail_forward_sync_mutations_total", map[string]string{"operation": "add", "outcome": OutcomeSuccess}).GetCounter().GetValue())
	assert.Equal(t, 1.0, find(t, reg, "mail_forward_sync_mutations_total", map[string]string{"operation": "add", "outcome": OutcomeFailure}).GetCounter().GetValue())
	assert.Equal(t, 1.0, find(t, reg, "mail_forward_sync_mutations_total", map[string]string{"operation": "remove", "outcome": OutcomeSuccess}).GetCounter().GetValue())
}

func TestPush(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveMutation("save", nil)

	require.NoError(t, Push(context.Background(), srv.URL, "mail-forward-sync", reg))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/mail-forward-sync", path)
	assert.NotEmpty(t, body)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	NewCollector(reg)

	assert.Error(t, Push(context.Background(), srv.URL, "mail-forward-sync", reg))
}
