// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package priority translates between the portable thread priority scale and
// the native priority scale of the host scheduler.
//
// The portable scale is the closed range [Lowest, Highest]; a higher value is
// more favored. A native Scale lists the native values the host accepts,
// ordered from least to most favored, so schedulers where a lower number is
// more favored (Unix nice values) and schedulers where a higher number is
// more favored (Windows thread priorities) are described the same way.
//
// Translation is by position: portable level p maps to the scale index
// round(p * (n-1) / span). When the native scale has at least as many levels
// as the portable one the mapping is injective and ToPortable(ToNative(p)) == p.
// When it has fewer, distinct portable levels may share a native level; the
// loss is toward the native side and order is never inverted.
package priority

import (
	"errors"
	"fmt"
)

// Level is a portable priority.
type Level int

// Portable scale endpoints.
const (
	Lowest  Level = 0
	Highest Level = 31
	Default Level = 15 // nice 0 on Linux, THREAD_PRIORITY_NORMAL on Windows
)

const span = int(Highest - Lowest)

// ErrOutOfRange is returned for a portable level outside [Lowest, Highest]
// or a native value outside the scale.
var ErrOutOfRange = errors.New("priority: value out of range")

// Valid reports whether l lies on the portable scale.
func (l Level) Valid() bool {
	return l >= Lowest && l <= Highest
}

// Scale is an ordered set of native priority values, least favored first.
type Scale struct {
	name   string
	levels []int
}

// NewScale returns a Scale named name over the given native values, which
// must be listed least favored first. At least two values are required.
func NewScale(name string, levels ...int) Scale {
	if len(levels) < 2 {
		panic(fmt.Sprintf("priority: scale %q needs at least two levels", name))
	}
	return Scale{name: name, levels: append([]int(nil), levels...)}
}

// Range returns a Scale over every integer from least to most favored,
// in either direction.
func Range(name string, least, most int) Scale {
	step := 1
	if most < least {
		step = -1
	}
	levels := make([]int, 0, abs(most-least)+1)
	for v := least; ; v += step {
		levels = append(levels, v)
		if v == most {
			break
		}
	}
	return NewScale(name, levels...)
}

// Name returns the scale's descriptive name.
func (s Scale) Name() string { return s.name }

// Len returns the number of native levels.
func (s Scale) Len() int { return len(s.levels) }

// Lossy reports whether distinct portable levels can collapse onto one
// native level.
func (s Scale) Lossy() bool { return len(s.levels) < span+1 }

// ToNative maps a portable level onto the scale.
func ToNative(l Level, s Scale) (int, error) {
	if !l.Valid() {
		return 0, fmt.Errorf("%w: portable %d not in [%d, %d]", ErrOutOfRange, l, Lowest, Highest)
	}
	idx := roundDiv(int(l-Lowest)*(len(s.levels)-1), span)
	return s.levels[idx], nil
}

// ToPortable maps a native value back to the portable scale. Values between
// listed native levels resolve to the nearest one.
func ToPortable(native int, s Scale) (Level, error) {
	lo, hi := s.levels[0], s.levels[len(s.levels)-1]
	if lo > hi {
		lo, hi = hi, lo
	}
	if native < lo || native > hi {
		return 0, fmt.Errorf("%w: native %d not in %s [%d, %d]", ErrOutOfRange, native, s.name, lo, hi)
	}

	idx, best := 0, abs(s.levels[0]-native)
	for i, v := range s.levels[1:] {
		if d := abs(v - native); d < best {
			idx, best = i+1, d
		}
	}
	return Lowest + Level(roundDiv(idx*span, len(s.levels)-1)), nil
}

// roundDiv returns a/b rounded half up, for a >= 0 and b > 0.
func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
