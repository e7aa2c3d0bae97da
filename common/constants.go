// Package common provides shared constants, types, and utilities
// used across the ovpnctl application.
package common

import "time"

// Application metadata.
const (
	// AppName is the name of the application binary.
	AppName = "ovpnctl"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "ovpnctl"
)

// File names used by the application.
const (
	ConfigFileName      = "config.yaml"
	CredentialsFileName = ".credentials"
	AuthFileName        = ".auth"
	HistoryFileName     = "history.db"
	LogFileName         = "ovpnctl.log"
	ProfilesDirName     = "profiles"
)

// Management interface defaults. OpenVPN is started with a management
// channel bound to the loopback interface so the supervisor can signal
// and query the daemon without extra privileges.
const (
	DefaultManagementHost = "127.0.0.1"
	DefaultManagementPort = 7505
)

// Default timeouts and intervals.
const (
	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout = 30 * time.Second
	// ManagementDialTimeout bounds the TCP connect to the management interface.
	ManagementDialTimeout = 3 * time.Second
	// ManagementReadTimeout bounds reads and writes on a management connection.
	ManagementReadTimeout = 3 * time.Second
	// SignalFlushWait is how long to keep a management connection open
	// after sending a signal so the daemon can act on it.
	SignalFlushWait = 500 * time.Millisecond
	// StatusFlushWait is how long to wait for a status reply to accumulate.
	StatusFlushWait = 300 * time.Millisecond
	// StatusPollGrace is the settle period after a tunnel comes up before
	// the first status query.
	StatusPollGrace = 2 * time.Second
	// StatusPollInterval is how often to refresh tunnel byte counters.
	StatusPollInterval = 5 * time.Second
	// KillFallbackTimeout bounds the elevated kill used when the
	// management interface cannot be reached.
	KillFallbackTimeout = 10 * time.Second
	// WatcherDebounce coalesces bursts of profile directory events.
	WatcherDebounce = 500 * time.Millisecond
)

// EventBufferSize is the per-subscriber event channel capacity. Slow
// subscribers lose events rather than stall the supervisor.
const EventBufferSize = 64
