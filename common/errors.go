// Package common provides shared constants, types, and utilities
// used across the ovpnctl application.
package common

import "errors"

// Sentinel errors for supervisor and tooling operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Connection errors.
	ErrAlreadyConnected = errors.New("connection already active")
	ErrNotConnected     = errors.New("no active connection")
	ErrDisconnecting    = errors.New("disconnect already in progress")
	ErrTimeout          = errors.New("operation timed out")

	// Launch errors.
	ErrOpenVPNNotFound   = errors.New("openvpn executable not found")
	ErrElevationNotFound = errors.New("no privilege elevation helper found")
	ErrUnexpectedExit    = errors.New("openvpn process exited unexpectedly")

	// Authentication errors.
	ErrAuthFailed       = errors.New("authentication failed")
	ErrEmptyCredentials = errors.New("username and password are required")

	// Management interface errors.
	ErrManagementUnavailable = errors.New("management interface unavailable")

	// Feature errors.
	ErrObfuscationUnsupported = errors.New("obfuscation options not supported by this openvpn build")

	// Profile errors.
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidConfig   = errors.New("invalid configuration file")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrCredentialStorage   = errors.New("failed to store credentials")
	ErrEncryption          = errors.New("encryption error")
	ErrDecryption          = errors.New("decryption error")

	// Configuration errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
