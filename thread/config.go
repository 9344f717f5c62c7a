// Copyright 2025 The threadkit Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Config.ApplyEnv.
const (
	EnvEnforceLockLevel = "THREADKIT_ENFORCE_LOCK_LEVEL"
	EnvNativePriority   = "THREADKIT_NATIVE_PRIORITY"
	EnvNativeNames      = "THREADKIT_NATIVE_NAMES"
	EnvLogLevel         = "THREADKIT_LOG_LEVEL"
)

// Config tunes a Manager.
//
// Example YAML:
//
//	enforce_lock_level: true
//	native_priority: true
//	native_names: false
//	log_level: debug
type Config struct {
	// EnforceLockLevel makes a recursive mutex refuse acquisitions past its
	// configured lock level: TryLock returns false and Lock panics with
	// ErrInvalidState. When false the level is informational only.
	EnforceLockLevel bool `yaml:"enforce_lock_level"`

	// NativePriority pushes thread priorities to the host scheduler. When
	// false priorities are tracked but never applied.
	NativePriority bool `yaml:"native_priority"`

	// NativeNames pushes thread names to the host so debuggers and
	// profilers can show them.
	NativeNames bool `yaml:"native_names"`

	// LogLevel is the minimum level of the default logger: debug, info,
	// warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		NativePriority: true,
		NativeNames:    true,
		LogLevel:       "info",
	}
}

// LoadConfig reads a YAML configuration file. Keys missing from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv returns c with any THREADKIT_* environment variables applied.
// The environment is re-read on every call.
func (c Config) ApplyEnv() Config {
	env.Load()
	if env.Has(EnvEnforceLockLevel) {
		c.EnforceLockLevel = env.Bool(EnvEnforceLockLevel)
	}
	if env.Has(EnvNativePriority) {
		c.NativePriority = env.Bool(EnvNativePriority)
	}
	if env.Has(EnvNativeNames) {
		c.NativeNames = env.Bool(EnvNativeNames)
	}
	c.LogLevel = env.Str(EnvLogLevel, c.LogLevel)
	return c
}

// Validate checks that every field holds a usable value.
func (c Config) Validate() error {
	if _, err := c.level(); err != nil {
		return newError("Config.Validate", ErrInvalidArgument, "log_level %q: %v", c.LogLevel, err)
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}
