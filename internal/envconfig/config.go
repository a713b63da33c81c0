// Package envconfig reads engine settings from the environment.
package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/llaisys/internal/logutil"
)

// Var returns the trimmed value of an environment variable with surrounding
// quotes removed.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the log level selected by LLAISYS_DEBUG.
// Unset or 0 is info, 1 is debug and 2 or more is trace.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("LLAISYS_DEBUG"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			if b {
				level = slog.LevelDebug
			}
		} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			level = slog.Level(i * -4)
		}
	}
	if level < logutil.LevelTrace {
		level = logutil.LevelTrace
	}
	return level
}

// Device returns the default device spec from LLAISYS_DEVICE, for example
// "cpu", "nvidia:1" or "webgpu". It defaults to "cpu".
func Device() string {
	if s := Var("LLAISYS_DEVICE"); s != "" {
		return strings.ToLower(s)
	}
	return "cpu"
}

// EnvVar describes one supported variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every supported variable with its effective value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"LLAISYS_DEBUG":  {"LLAISYS_DEBUG", LogLevel(), "Show additional debug information (e.g. LLAISYS_DEBUG=1)"},
		"LLAISYS_DEVICE": {"LLAISYS_DEVICE", Device(), "Default device for loaded tensors (e.g. cpu, webgpu:0)"},
	}
}
