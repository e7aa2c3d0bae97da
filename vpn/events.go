// Package vpn supervises OpenVPN client connections.
// This file contains the connection states and the events delivered to
// subscribers.
package vpn

import (
	"strings"
	"time"

	"github.com/yllada/ovpnctl/common"
)

// State represents the lifecycle state of the supervised tunnel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

// String returns a human-readable state string.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting..."
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting..."
	default:
		return "Unknown"
	}
}

// Event is a notification delivered to supervisor subscribers.
// The concrete types are StateChange, LogLine, InfoUpdate and Failure.
type Event interface {
	isEvent()
}

// StateChange reports a state transition.
type StateChange struct {
	Old    State
	New    State
	Reason string
	At     time.Time
}

// LogLine carries one raw line of OpenVPN output.
type LogLine struct {
	At   time.Time
	Text string
}

// InfoUpdate carries a refreshed snapshot of the session info.
type InfoUpdate struct {
	At   time.Time
	Info Info
}

// Failure reports an operational error. Failures never stop the
// supervisor; they describe why a session degraded or ended.
type Failure struct {
	At  time.Time
	Err error
}

func (StateChange) isEvent() {}
func (LogLine) isEvent()     {}
func (InfoUpdate) isEvent()  {}
func (Failure) isEvent()     {}

// Info summarizes the active session for display. The zero value means
// no session details are known.
type Info struct {
	// AssignedIP is the tunnel address OpenVPN reported, if any.
	AssignedIP string
	// ConnectedSince is when the tunnel came up. Zero while connecting.
	ConnectedSince time.Time
	// BytesIn and BytesOut are cumulative tunnel byte counters.
	BytesIn  uint64
	BytesOut uint64
}

// Summary renders the info as a single display line, e.g.
// "IP: 10.8.0.2 | Duration: 0:05:32 | In: 1.5 MB Out: 312.0 KB".
// Unknown parts are omitted; an empty string means nothing to show.
func (i Info) Summary() string {
	var parts []string
	if i.AssignedIP != "" {
		parts = append(parts, "IP: "+i.AssignedIP)
	}
	if !i.ConnectedSince.IsZero() {
		parts = append(parts, "Duration: "+common.FormatDuration(time.Since(i.ConnectedSince)))
	}
	if i.BytesIn > 0 || i.BytesOut > 0 {
		parts = append(parts, "In: "+common.FormatBytes(i.BytesIn)+" Out: "+common.FormatBytes(i.BytesOut))
	}
	return strings.Join(parts, " | ")
}
