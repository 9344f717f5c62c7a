// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	l := NewSlogLogger(slog.New(h))

	l.Debug("hidden", F("k", 1))
	l.Warn("native priority not applied", F("tid", 42), F("priority", 31))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written below level: %q", out)
	}
	for _, want := range []string{"level=WARN", "native priority not applied", "tid=42", "priority=31"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNewSlogLogger_NilUsesDefault(t *testing.T) {
	if NewSlogLogger(nil).l != slog.Default() {
		t.Error("NewSlogLogger(nil) does not use slog.Default()")
	}
}
