// Package vpn supervises OpenVPN client connections.
// This file contains the client for OpenVPN's management interface.
package vpn

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/yllada/ovpnctl/common"
)

// Status reply fields carrying the tunnel byte counters.
const (
	statusFieldBytesIn  = "TCP/UDP read bytes"
	statusFieldBytesOut = "TCP/UDP write bytes"
)

const (
	greetingBufferSize = 1024
	replyBufferSize    = 8192
)

// Counters holds the cumulative tunnel byte counters reported by the
// daemon over the management interface.
type Counters struct {
	BytesIn  uint64
	BytesOut uint64
}

// ManagementClient issues commands over OpenVPN's management interface.
// Each command opens a fresh short-lived TCP connection to the loopback
// endpoint, consumes the greeting banner, writes one CRLF-terminated
// command, and closes the connection. The daemon does not reliably
// flush replies before the socket closes, so each command waits briefly
// after writing.
type ManagementClient struct {
	addr        string
	dialTimeout time.Duration
	ioTimeout   time.Duration
	signalWait  time.Duration
	statusWait  time.Duration
}

// NewManagementClient returns a client for the management interface at
// host:port.
func NewManagementClient(host string, port int) *ManagementClient {
	return &ManagementClient{
		addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		dialTimeout: common.ManagementDialTimeout,
		ioTimeout:   common.ManagementReadTimeout,
		signalWait:  common.SignalFlushWait,
		statusWait:  common.StatusFlushWait,
	}
}

// Addr returns the management endpoint address.
func (c *ManagementClient) Addr() string {
	return c.addr
}

func (c *ManagementClient) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return nil, common.WrapError(err, "dial management interface")
	}
	conn.SetDeadline(time.Now().Add(c.ioTimeout))

	// Consume the greeting banner
	buf := make([]byte, greetingBufferSize)
	if _, err := conn.Read(buf); err != nil {
		conn.Close()
		return nil, common.WrapError(err, "read management greeting")
	}
	return conn, nil
}

// SendSignal asks the daemon to deliver a signal to itself, e.g.
// SendSignal("SIGTERM") for a clean shutdown. The connection is held
// open briefly so the daemon can act before the socket closes.
func (c *ManagementClient) SendSignal(name string) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "signal %s\r\n", name); err != nil {
		return common.WrapError(err, "send signal command")
	}
	time.Sleep(c.signalWait)
	return nil
}

// QueryStatus requests the daemon's status report and returns refreshed
// byte counters. Counter fields that are missing or malformed in the
// reply keep their values from prev.
func (c *ManagementClient) QueryStatus(prev Counters) (Counters, error) {
	conn, err := c.dial()
	if err != nil {
		return prev, err
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "status\r\n"); err != nil {
		return prev, common.WrapError(err, "send status command")
	}
	time.Sleep(c.statusWait)

	buf := make([]byte, replyBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return prev, common.WrapError(err, "read status reply")
	}
	return parseStatusReply(string(buf[:n]), prev), nil
}

// parseStatusReply scans a status reply for the byte counter lines.
// The counters live in the second comma-separated field, e.g.
//
//	TCP/UDP read bytes,3604
//	TCP/UDP write bytes,4415
func parseStatusReply(reply string, prev Counters) Counters {
	out := prev
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimRight(line, "\r")
		if v, ok := statusCounter(line, statusFieldBytesIn); ok {
			out.BytesIn = v
		}
		if v, ok := statusCounter(line, statusFieldBytesOut); ok {
			out.BytesOut = v
		}
	}
	return out
}

func statusCounter(line, field string) (uint64, bool) {
	if !strings.HasPrefix(line, field) {
		return 0, false
	}
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
