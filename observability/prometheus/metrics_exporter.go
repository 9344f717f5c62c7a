// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package prometheus exports threadkit primitive metrics to Prometheus.
//
//	exporter, err := prometheus.NewMetricsExporter("threadkit", nil, prometheus.ExporterOptions{})
//	mgr, err := thread.NewManager(thread.WithMetrics(exporter))
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/kolkov/threadkit/thread"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// RuntimeBuckets are the histogram buckets for thread run time, in seconds.
	RuntimeBuckets []float64
	// WaitBuckets are the histogram buckets for condition variable waits.
	WaitBuckets []float64
}

// MetricsExporter adapts thread.Metrics to Prometheus collectors.
type MetricsExporter struct {
	live             *prom.GaugeVec
	createdTotal     *prom.CounterVec
	threadRunSeconds *prom.HistogramVec
	waitSeconds      *prom.HistogramVec
}

var _ thread.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers the collectors. A nil reg uses
// prom.DefaultRegisterer. Registering twice on one registry shares the
// existing collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "threadkit"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	runtimeBuckets := opts.RuntimeBuckets
	if len(runtimeBuckets) == 0 {
		runtimeBuckets = prom.ExponentialBuckets(0.001, 4, 10)
	}
	waitBuckets := opts.WaitBuckets
	if len(waitBuckets) == 0 {
		waitBuckets = prom.ExponentialBuckets(0.00001, 10, 7)
	}

	liveVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "primitives_live",
		Help:      "Primitives created and not yet destroyed.",
	}, []string{"kind"})
	createdVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "primitives_created_total",
		Help:      "Total number of primitives created.",
	}, []string{"kind"})
	runVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "thread_run_seconds",
		Help:      "Time thread entry functions ran, by outcome.",
		Buckets:   runtimeBuckets,
	}, []string{"outcome"})
	waitVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "condition_wait_seconds",
		Help:      "Condition variable wait time, by status.",
		Buckets:   waitBuckets,
	}, []string{"status"})

	var err error
	if liveVec, err = registerCollector(reg, liveVec); err != nil {
		return nil, err
	}
	if createdVec, err = registerCollector(reg, createdVec); err != nil {
		return nil, err
	}
	if runVec, err = registerCollector(reg, runVec); err != nil {
		return nil, err
	}
	if waitVec, err = registerCollector(reg, waitVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		live:             liveVec,
		createdTotal:     createdVec,
		threadRunSeconds: runVec,
		waitSeconds:      waitVec,
	}, nil
}

// PrimitiveCreated counts a new primitive.
func (m *MetricsExporter) PrimitiveCreated(kind thread.Kind) {
	if m == nil {
		return
	}
	m.live.WithLabelValues(string(kind)).Inc()
	m.createdTotal.WithLabelValues(string(kind)).Inc()
}

// PrimitiveDestroyed drops a primitive from the live gauge.
func (m *MetricsExporter) PrimitiveDestroyed(kind thread.Kind) {
	if m == nil {
		return
	}
	m.live.WithLabelValues(string(kind)).Dec()
}

// ThreadFinished observes a thread's run time.
func (m *MetricsExporter) ThreadFinished(runtime time.Duration, panicked bool) {
	if m == nil {
		return
	}
	outcome := "returned"
	if panicked {
		outcome = "panicked"
	}
	m.threadRunSeconds.WithLabelValues(outcome).Observe(runtime.Seconds())
}

// WaitCompleted observes a condition variable wait.
func (m *MetricsExporter) WaitCompleted(status thread.WaitStatus, waited time.Duration) {
	if m == nil {
		return
	}
	m.waitSeconds.WithLabelValues(status.String()).Observe(waited.Seconds())
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
