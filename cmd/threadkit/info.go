// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// info.go implements the 'threadkit info' command.
package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kolkov/threadkit/thread"
)

// infoLevels are the portable priorities shown in the mapping table.
var infoLevels = []thread.Priority{
	thread.LowestPriority, 4, 8, 12, thread.DefaultPriority, 20, 24, 28, thread.HighestPriority,
}

// infoCommand prints the platform layer, configuration and priority
// mapping of a freshly opened Manager.
func infoCommand(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(w)
	configPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	mgr, err := thread.NewManager(thread.WithConfig(cfg), thread.WithLogger(thread.NoOpLogger{}))
	if err != nil {
		return err
	}
	defer mgr.Close()

	scale, lossy := mgr.PriorityScale()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "platform:\t%s\n", mgr.PlatformName())
	fmt.Fprintf(tw, "priority scale:\t%s (lossy: %v)\n", scale, lossy)
	fmt.Fprintf(tw, "processor:\t%d\n", mgr.CurrentProcessorNumber())
	fmt.Fprintf(tw, "native priority:\t%v\n", cfg.NativePriority)
	fmt.Fprintf(tw, "native names:\t%v\n", cfg.NativeNames)
	fmt.Fprintf(tw, "enforce lock level:\t%v\n", cfg.EnforceLockLevel)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PORTABLE\tNATIVE")
	for _, p := range infoLevels {
		n, err := mgr.NativePriority(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%d\n", p, n)
	}
	return tw.Flush()
}

// loadConfig reads path when given, then applies environment overrides.
func loadConfig(path string) (thread.Config, error) {
	cfg := thread.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = thread.LoadConfig(path); err != nil {
			return thread.Config{}, err
		}
	}
	cfg = cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return thread.Config{}, err
	}
	return cfg, nil
}
