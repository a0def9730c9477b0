// Package config provides configuration helpers for go-reframe commands.
package config

import "os"

// Defaults for the scan daemon.
const (
	DefaultPort      = "8420"
	DefaultStorePath = "reframe.db"
)

// Port returns the HTTP port from REFRAME_PORT or the default.
func Port() string {
	if p := os.Getenv("REFRAME_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// StorePath returns the sqlite path from REFRAME_DB or the default.
func StorePath() string {
	if p := os.Getenv("REFRAME_DB"); p != "" {
		return p
	}
	return DefaultStorePath
}

// ModelPath returns the detector model path from REFRAME_MODEL.
// Falls back to the provided default if not set.
func ModelPath(defaultPath string) string {
	if p := os.Getenv("REFRAME_MODEL"); p != "" {
		return p
	}
	return defaultPath
}

// DetectorURL returns the remote detector endpoint from REFRAME_DETECTOR_URL.
// Empty means use the local model.
func DetectorURL() string {
	return os.Getenv("REFRAME_DETECTOR_URL")
}

// LogLevel returns the log level from REFRAME_LOG or "info".
func LogLevel() string {
	if l := os.Getenv("REFRAME_LOG"); l != "" {
		return l
	}
	return "info"
}
