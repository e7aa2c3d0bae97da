// Package vpn supervises OpenVPN client connections.
// This file interprets the daemon's log output.
package vpn

import (
	"strconv"
	"strings"
)

// Markers in OpenVPN output that drive state transitions.
const (
	markerConnected    = "Initialization Sequence Completed"
	markerSigterm      = "SIGTERM"
	markerExiting      = "process exiting"
	markerAuthFailed   = "AUTH_FAILED"
	markerOptionsError = "Options error"
)

// LineClass identifies what a line of OpenVPN output means for the
// connection lifecycle.
type LineClass int

const (
	// LineNone carries no lifecycle meaning.
	LineNone LineClass = iota
	// LineConnected marks the tunnel as fully established.
	LineConnected
	// LineExiting marks the daemon as shutting down.
	LineExiting
	// LineAuthFailed marks a rejected credential pair.
	LineAuthFailed
	// LineObfsUnsupported marks an unsupported scramble/obfuscation option.
	LineObfsUnsupported
)

// ClassifyLine maps one line of OpenVPN output to its lifecycle meaning.
// Rules are checked in order and the first match wins.
func ClassifyLine(line string) LineClass {
	switch {
	case strings.Contains(line, markerConnected):
		return LineConnected
	case strings.Contains(line, markerSigterm), strings.Contains(line, markerExiting):
		return LineExiting
	case strings.Contains(line, markerAuthFailed):
		return LineAuthFailed
	}

	lower := strings.ToLower(line)
	if strings.Contains(lower, "scramble") {
		if strings.Contains(lower, "error") || strings.Contains(line, markerOptionsError) {
			return LineObfsUnsupported
		}
	}
	return LineNone
}

// ExtractTunnelIP pulls the assigned tunnel IPv4 address out of an
// ifconfig log line, e.g.
//
//	net_addr_v4_add: 10.8.0.2/24 dev tun0 ... ifconfig 10.8.0.2 10.8.0.1
//
// Only lines mentioning both ifconfig and a tun device are considered,
// and only a strict dotted quad directly following an ifconfig token
// counts. The last such match in the line wins. The second return
// value reports whether an address was found.
func ExtractTunnelIP(line string) (string, bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "ifconfig") || !strings.Contains(lower, "tun") {
		return "", false
	}

	var ip string
	fields := strings.Fields(line)
	for i, f := range fields {
		if !strings.EqualFold(f, "ifconfig") {
			continue
		}
		if i+1 < len(fields) && isValidIPv4(fields[i+1]) {
			ip = fields[i+1]
		}
	}
	return ip, ip != ""
}

// isValidIPv4 reports whether s is four dot-separated all-digit fields,
// each in [0,255]. Rejects addresses like "10.8.0.999".
func isValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}
