// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// stress.go implements the 'threadkit stress' command.
package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kolkov/threadkit/observability/prometheus"
	"github.com/kolkov/threadkit/thread"
)

// stressConfig holds the parsed 'threadkit stress' arguments.
type stressConfig struct {
	threads    int
	iterations int
	stackSize  int
	metrics    bool
	configPath string
}

// stressResult is what one contention run produced.
type stressResult struct {
	threads  int
	expected int
	counter  int
	elapsed  time.Duration
	stats    thread.Stats
}

func parseStressArgs(args []string, w io.Writer) (*stressConfig, error) {
	fs := flag.NewFlagSet("stress", flag.ContinueOnError)
	fs.SetOutput(w)
	sc := &stressConfig{}
	fs.IntVar(&sc.threads, "threads", 4, "number of threads")
	fs.IntVar(&sc.iterations, "iterations", 10000, "increments per thread")
	fs.IntVar(&sc.stackSize, "stack", 64*1024, "stack region size in bytes")
	fs.BoolVar(&sc.metrics, "metrics", false, "print a metrics summary")
	fs.StringVar(&sc.configPath, "config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if sc.threads < 1 {
		return nil, fmt.Errorf("-threads must be at least 1, got %d", sc.threads)
	}
	if sc.iterations < 0 {
		return nil, fmt.Errorf("-iterations must not be negative, got %d", sc.iterations)
	}
	return sc, nil
}

// stressCommand alternates most- and least-favored threads over one
// recursive mutex and verifies that no increment is lost.
func stressCommand(args []string, w io.Writer) error {
	sc, err := parseStressArgs(args, w)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(sc.configPath)
	if err != nil {
		return err
	}

	opts := []thread.Option{thread.WithConfig(cfg)}
	var reg *prom.Registry
	if sc.metrics {
		reg = prom.NewRegistry()
		exporter, err := prometheus.NewMetricsExporter("threadkit", reg, prometheus.ExporterOptions{})
		if err != nil {
			return err
		}
		opts = append(opts, thread.WithMetrics(exporter))
	}

	res, err := runStress(sc, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "threads:    %d\n", res.threads)
	fmt.Fprintf(w, "increments: %d of %d\n", res.counter, res.expected)
	fmt.Fprintf(w, "elapsed:    %s\n", res.elapsed)
	fmt.Fprintf(w, "live:       %s\n", res.stats)
	if reg != nil {
		if err := printMetrics(w, reg); err != nil {
			return err
		}
	}
	if res.counter != res.expected {
		return fmt.Errorf("lost %d increments", res.expected-res.counter)
	}
	return nil
}

// runStress opens a Manager, runs the scenario and tears every primitive
// down again before closing it.
func runStress(sc *stressConfig, opts ...thread.Option) (*stressResult, error) {
	mgr, err := thread.NewManager(opts...)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	// Each increment takes the counter lock twice to exercise recursion.
	counterMu, err := mgr.InitializeMutex(true, 2)
	if err != nil {
		return nil, err
	}
	defer mgr.FinalizeMutex(counterMu)
	gateMu, err := mgr.InitializeMutex(false, 0)
	if err != nil {
		return nil, err
	}
	defer mgr.FinalizeMutex(gateMu)
	gate, err := mgr.InitializeConditionVariable()
	if err != nil {
		return nil, err
	}
	defer mgr.FinalizeConditionVariable(gate)

	counter := 0
	open := false
	work := func(any) {
		gateMu.Lock()
		for !open {
			gate.Wait(gateMu)
		}
		gateMu.Unlock()

		for i := 0; i < sc.iterations; i++ {
			counterMu.Lock()
			counterMu.Lock()
			counter++
			counterMu.Unlock()
			counterMu.Unlock()
			if i%64 == 63 {
				mgr.YieldThread()
			}
		}
	}

	threads := make([]*thread.Thread, 0, sc.threads)
	openGate := func() {
		gateMu.Lock()
		open = true
		gate.Broadcast()
		gateMu.Unlock()
	}
	defer func() {
		// Release threads still parked at the gate if setup failed.
		openGate()
		for _, th := range threads {
			if th.State() == thread.Running {
				_ = th.Join()
			}
			_ = mgr.DestroyThread(th)
		}
	}()
	for i := 0; i < sc.threads; i++ {
		stack, err := thread.AllocateStack(sc.stackSize)
		if err != nil {
			return nil, err
		}
		p := thread.HighestPriority
		if i%2 == 1 {
			p = thread.LowestPriority
		}
		th, err := mgr.CreateThread(work, nil, stack, p)
		if err != nil {
			return nil, err
		}
		threads = append(threads, th)
		if err := th.SetNamePointer(fmt.Sprintf("stress-%d", i)); err != nil {
			return nil, err
		}
		if err := th.Start(); err != nil {
			return nil, err
		}
	}

	stats := mgr.Stats()
	start := time.Now()
	openGate()

	var joinErr error
	for _, th := range threads {
		if err := th.Join(); err != nil && joinErr == nil {
			joinErr = err
		}
	}
	elapsed := time.Since(start)
	if joinErr != nil {
		return nil, joinErr
	}

	return &stressResult{
		threads:  sc.threads,
		expected: sc.threads * sc.iterations,
		counter:  counter,
		elapsed:  elapsed,
		stats:    stats,
	}, nil
}

// printMetrics writes one line per gathered sample.
func printMetrics(w io.Writer, g prom.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s%s %s\n", mf.GetName(), formatLabels(m.GetLabel()), formatValue(mf.GetType(), m))
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%gs", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "?"
	}
}
