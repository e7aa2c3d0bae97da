// Package vpn supervises OpenVPN client connections.
//
// This package implements the core tunnel functionality including:
//
//   - Supervisor: Spawns the elevated OpenVPN process, tracks its lifecycle,
//     and arbitrates state transitions
//   - Log interpretation: Classifies daemon output lines and extracts the
//     assigned tunnel address
//   - Management interface: Signals and queries the daemon over its loopback
//     management channel
//   - Profiles: Discovers, validates, and imports .ovpn configuration files,
//     with optional directory watching
//
// # Connection Flow
//
// A typical connection flow:
//
//  1. A front end calls Supervisor.Connect() with a profile and credentials
//  2. The supervisor writes a transient auth file and starts OpenVPN through
//     the privilege elevator with a loopback management channel
//  3. A reader goroutine interprets merged stdout/stderr lines and drives
//     state transitions
//  4. Once the tunnel is up, a poller refreshes byte counters over the
//     management interface
//  5. Subscribers receive state changes, raw log lines, info updates, and
//     failures on buffered event channels
//
// # Thread Safety
//
// All exported types in this package are safe for concurrent use. The
// Supervisor uses internal locking to protect session state.
package vpn
