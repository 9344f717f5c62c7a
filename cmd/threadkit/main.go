// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package main implements the threadkit CLI tool.
//
// The threadkit tool inspects how the portable thread layer maps onto the
// host and exercises it under load:
//
//	threadkit info                 # Platform, priority table, processor
//	threadkit stress -threads 8    # Contention run over one mutex
//	threadkit check ./myproject    # Check a module's go directive
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch command := args[0]; command {
	case "info":
		err = infoCommand(args[1:], stdout)
	case "stress":
		err = stressCommand(args[1:], stdout)
	case "check":
		err = checkCommand(args[1:], stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "threadkit version %s\n", version)
	case "help", "--help", "-h":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}
	if errors.Is(err, flag.ErrHelp) {
		// The flag set already printed its usage.
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `threadkit - Portable thread layer tool

USAGE:
    threadkit <command> [arguments]

COMMANDS:
    info       Show platform, priority mapping and processor number
    stress     Run threads of mixed priority against one mutex
    check      Check that a module's go directive meets the minimum toolchain
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Show how portable priorities map onto the host scheduler
    threadkit info -config threadkit.yaml

    # 16 threads, 100000 increments each, with metrics summary
    threadkit stress -threads 16 -iterations 100000 -metrics

    # Check the module in the current directory
    threadkit check

ENVIRONMENT:
    THREADKIT_ENFORCE_LOCK_LEVEL, THREADKIT_NATIVE_PRIORITY,
    THREADKIT_NATIVE_NAMES and THREADKIT_LOG_LEVEL override the
    configuration file.

`)
}
