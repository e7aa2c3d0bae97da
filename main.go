// ovpnctl supervises OpenVPN client connections from the terminal:
// profile discovery and import, credential storage, a foreground
// connect mode with desktop notifications, session history, and an
// interactive full-screen interface.
//
// Usage:
//
//	ovpnctl <command> [flags]
//
// Environment:
//
//	OpenVPN must be installed; root privileges are obtained through
//	pkexec when a tunnel is started (configurable via the elevation
//	setting).
package main

import (
	"os"

	"github.com/yllada/ovpnctl/cli"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

func main() {
	os.Exit(cli.Execute(appVersion, buildTime, commitSHA))
}
