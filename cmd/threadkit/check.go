// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// check.go implements the 'threadkit check' command.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
)

// modulePath is the import path consumers require.
const modulePath = "github.com/kolkov/threadkit"

// minGoVersion is the oldest go directive this module supports.
const minGoVersion = "1.24"

var errNoGoMod = errors.New("no go.mod found")

// checkReport describes one consumer go.mod.
type checkReport struct {
	path      string
	module    string
	goVersion string
	toolchain string
	minimum   string
	requires  string // required threadkit version, "" if not required
	ok        bool
}

// checkCommand verifies that the module containing the given directory
// (default: the working directory) declares a go version of at least
// minGoVersion.
func checkCommand(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(w)
	minimum := fs.String("min", minGoVersion, "minimum go directive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	goMod := findGoMod(abs)
	if goMod == "" {
		return fmt.Errorf("%w in %s or any parent", errNoGoMod, abs)
	}
	report, err := checkGoMod(goMod, *minimum)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "go.mod:    %s\n", report.path)
	fmt.Fprintf(w, "module:    %s\n", report.module)
	fmt.Fprintf(w, "go:        %s (minimum %s)\n", report.goVersion, report.minimum)
	if report.toolchain != "" {
		fmt.Fprintf(w, "toolchain: %s\n", report.toolchain)
	}
	if report.requires != "" {
		fmt.Fprintf(w, "requires:  %s %s\n", modulePath, report.requires)
	}
	if !report.ok {
		return fmt.Errorf("go directive %s is older than %s", report.goVersion, report.minimum)
	}
	fmt.Fprintln(w, "ok")
	return nil
}

// findGoMod walks up from startDir looking for a go.mod file and returns
// its path, or "" if none exists.
func findGoMod(startDir string) string {
	dir := startDir
	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// checkGoMod parses goModPath and compares its go directive with minimum.
func checkGoMod(goModPath, minimum string) (*checkReport, error) {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}
	f, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}

	want, ok := goSemver(minimum)
	if !ok {
		return nil, fmt.Errorf("invalid minimum go version %q", minimum)
	}

	report := &checkReport{path: goModPath, minimum: minimum}
	if f.Module != nil {
		report.module = f.Module.Mod.Path
	}
	if f.Toolchain != nil {
		report.toolchain = f.Toolchain.Name
	}
	for _, r := range f.Require {
		if r.Mod.Path == modulePath {
			report.requires = r.Mod.Version
		}
	}
	if f.Go == nil {
		// A go.mod without a go directive means go 1.16.
		report.goVersion = "1.16"
	} else {
		report.goVersion = f.Go.Version
	}

	have, ok := goSemver(report.goVersion)
	if !ok {
		return nil, fmt.Errorf("unrecognized go directive %q", report.goVersion)
	}
	report.ok = semver.Compare(have, want) >= 0
	return report, nil
}

// goSemver converts a Go release version ("1.24", "1.24.1", "1.25rc1")
// to semantic version syntax.
func goSemver(v string) (string, bool) {
	v = strings.TrimPrefix(v, "go")
	pre := ""
	for _, tag := range []string{"rc", "beta"} {
		if i := strings.Index(v, tag); i > 0 {
			v, pre = v[:i], "-"+v[i:]
			break
		}
	}
	if pre != "" && strings.Count(v, ".") == 1 {
		v += ".0"
	}
	s := "v" + v + pre
	if !semver.IsValid(s) {
		return "", false
	}
	return s, true
}
