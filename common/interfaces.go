// Package common provides shared constants, types, and utilities
// used across the ovpnctl application.
package common

import "time"

// Credentials is a username and password pair for OpenVPN authentication.
type Credentials struct {
	Username string
	Password string
}

// CredentialStore defines the interface for credential storage.
// Implementations may use the system keyring, encrypted files, etc.
type CredentialStore interface {
	// Save stores the credential pair.
	Save(creds Credentials) error
	// Load retrieves the stored credential pair.
	Load() (Credentials, error)
	// Delete removes the stored credential pair.
	Delete() error
	// Exists reports whether a credential pair is stored.
	Exists() bool
}

// SessionRecorder receives tunnel session lifecycle updates for
// persistence. Recording failures are logged and never interrupt the
// session itself.
type SessionRecorder interface {
	// SessionStarted records that a connection attempt began.
	SessionStarted(id, profile string, at time.Time) error
	// SessionConnected records that the tunnel came up.
	SessionConnected(id string, at time.Time) error
	// SessionEnded records the final state of a finished session.
	SessionEnded(id string, at time.Time, assignedIP string, bytesIn, bytesOut uint64, reason string) error
}

// Notifier defines the interface for sending desktop notifications.
type Notifier interface {
	// Notify sends a notification with the given title and message.
	Notify(title, message string) error
	// NotifyWithIcon sends a notification with a custom icon.
	NotifyWithIcon(title, message, icon string) error
}
