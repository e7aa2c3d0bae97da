// Package common provides shared constants, types, utilities, and interfaces
// used throughout the ovpnctl application.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: Application-wide constants like timeouts, file names, and protocol defaults
//   - Errors: Sentinel errors for consistent error handling across packages
//   - Interfaces: Abstractions for credential storage, session recording, and notifications
//   - Logger: Structured logging with colored console output and rotated file output
//   - Utils: Common utility functions for paths and display formatting
//
// # Usage
//
// Import the package to access shared functionality:
//
//	import "github.com/yllada/ovpnctl/common"
//
//	// Use constants
//	timeout := common.ConnectionTimeout
//
//	// Use logger
//	common.LogInfo("starting connection", "profile", profileName)
//
//	// Check errors
//	if errors.Is(err, common.ErrProfileNotFound) {
//	    // Handle missing profile
//	}
package common
