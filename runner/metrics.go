/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"context"
	"fmt"

	"chainguard.dev/eoffix/commitgate"
	"chainguard.dev/eoffix/fixer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job runs are grouped under.
const JobName = "eoffix"

// Metrics counts what a run did. A run is a short-lived process, so the
// counters live on a private registry that is pushed once at exit. A nil
// *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	checked  prometheus.Counter
	skipped  *prometheus.CounterVec
	missing  prometheus.Counter
	fixed    prometheus.Counter
	outcomes *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewMetrics returns Metrics registered on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		checked: factory.NewCounter(prometheus.CounterOpts{
			Name: "eoffix_files_checked_total",
			Help: "Changed files that passed the ignore patterns",
		}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eoffix_files_skipped_total",
			Help: "Changed files excluded from normalization",
		}, []string{"reason"}),
		missing: factory.NewCounter(prometheus.CounterOpts{
			Name: "eoffix_files_missing_total",
			Help: "Changed files absent from the working tree",
		}),
		fixed: factory.NewCounter(prometheus.CounterOpts{
			Name: "eoffix_files_fixed_total",
			Help: "Files rewritten with a normalized ending",
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eoffix_commit_outcomes_total",
			Help: "Commit gate decisions",
		}, []string{"outcome"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eoffix_failures_total",
			Help: "Runs that stopped with an error",
		}, []string{"kind"}),
	}
}

// ObserveResult records the files a fix pass looked at.
func (m *Metrics) ObserveResult(res *fixer.Result) {
	if m == nil || res == nil {
		return
	}
	m.checked.Add(float64(len(res.Checked)))
	m.missing.Add(float64(len(res.Missing)))
	m.fixed.Add(float64(len(res.CommitSet)))
	for _, v := range res.Skipped {
		m.skipped.WithLabelValues(v.Reason.String()).Inc()
	}
}

// ObserveOutcome records a commit gate decision.
func (m *Metrics) ObserveOutcome(o commitgate.Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(o.String()).Inc()
}

// ObserveFailure records a failed run.
func (m *Metrics) ObserveFailure(k Kind) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(k.String()).Inc()
}

// Push sends the registry to the Pushgateway at url, grouped by repository.
func (m *Metrics) Push(ctx context.Context, url, repository string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, JobName).
		Gatherer(m.Registry).
		Grouping("repository", repository).
		PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
