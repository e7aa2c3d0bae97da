package vpn

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeManagementServer mimics OpenVPN's management channel: it greets,
// reads one command per connection, and answers status queries.
type fakeManagementServer struct {
	ln          net.Listener
	statusReply string

	mu       sync.Mutex
	onSignal func(name string)
	commands []string
}

func newFakeManagementServer(t *testing.T, statusReply string) *fakeManagementServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeManagementServer{ln: ln, statusReply: statusReply}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeManagementServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// setOnSignal installs a callback invoked for every signal command.
func (s *fakeManagementServer) setOnSignal(fn func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignal = fn
}

func (s *fakeManagementServer) receivedCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *fakeManagementServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeManagementServer) handle(conn net.Conn) {
	defer conn.Close()
	fmt.Fprintf(conn, ">INFO:OpenVPN Management Interface Version 3 -- type 'help' for more info\r\n")

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}
	cmd := strings.TrimSpace(line)

	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	onSignal := s.onSignal
	s.mu.Unlock()

	if cmd == "status" {
		io.WriteString(conn, s.statusReply)
	}
	if name, ok := strings.CutPrefix(cmd, "signal "); ok && onSignal != nil {
		onSignal(name)
	}

	// Hold the connection open until the client hangs up.
	io.Copy(io.Discard, reader)
}

// testClient returns a client pointed at the fake server with waits
// shortened so tests stay fast.
func testClient(s *fakeManagementServer) *ManagementClient {
	c := NewManagementClient("127.0.0.1", s.port())
	c.signalWait = 10 * time.Millisecond
	c.statusWait = 10 * time.Millisecond
	return c
}

const sampleStatusReply = "OpenVPN STATISTICS\r\n" +
	"Updated,2024-01-15 10:30:00\r\n" +
	"TUN/TAP read bytes,100\r\n" +
	"TUN/TAP write bytes,200\r\n" +
	"TCP/UDP read bytes,3604\r\n" +
	"TCP/UDP write bytes,4415\r\n" +
	"Auth read bytes,0\r\n" +
	"END\r\n"

func TestManagementClient_QueryStatus(t *testing.T) {
	server := newFakeManagementServer(t, sampleStatusReply)
	client := testClient(server)

	counters, err := client.QueryStatus(Counters{})
	if err != nil {
		t.Fatalf("QueryStatus() error = %v", err)
	}

	want := Counters{BytesIn: 3604, BytesOut: 4415}
	if counters != want {
		t.Errorf("QueryStatus() = %+v, want %+v", counters, want)
	}

	cmds := server.receivedCommands()
	if len(cmds) != 1 || cmds[0] != "status" {
		t.Errorf("server received commands %v, want [status]", cmds)
	}
}

func TestManagementClient_SendSignal(t *testing.T) {
	server := newFakeManagementServer(t, "")
	client := testClient(server)

	if err := client.SendSignal("SIGTERM"); err != nil {
		t.Fatalf("SendSignal() error = %v", err)
	}

	cmds := server.receivedCommands()
	if len(cmds) != 1 || cmds[0] != "signal SIGTERM" {
		t.Errorf("server received commands %v, want [signal SIGTERM]", cmds)
	}
}

func TestManagementClient_Unreachable(t *testing.T) {
	// Grab a free port and close it again so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	client := NewManagementClient("127.0.0.1", port)
	client.dialTimeout = 200 * time.Millisecond

	if err := client.SendSignal("SIGTERM"); err == nil {
		t.Error("SendSignal() should fail when nothing listens")
	}
	if _, err := client.QueryStatus(Counters{}); err == nil {
		t.Error("QueryStatus() should fail when nothing listens")
	}
}

func TestParseStatusReply(t *testing.T) {
	prev := Counters{BytesIn: 10, BytesOut: 20}

	tests := []struct {
		name     string
		reply    string
		expected Counters
	}{
		{
			name:     "both counters present",
			reply:    sampleStatusReply,
			expected: Counters{BytesIn: 3604, BytesOut: 4415},
		},
		{
			name:     "read counter only",
			reply:    "TCP/UDP read bytes,500\r\nEND\r\n",
			expected: Counters{BytesIn: 500, BytesOut: 20},
		},
		{
			name:     "malformed counter keeps previous",
			reply:    "TCP/UDP read bytes,oops\r\nTCP/UDP write bytes,600\r\nEND\r\n",
			expected: Counters{BytesIn: 10, BytesOut: 600},
		},
		{
			name:     "missing value field keeps previous",
			reply:    "TCP/UDP read bytes\r\nEND\r\n",
			expected: prev,
		},
		{
			name:     "empty reply keeps previous",
			reply:    "",
			expected: prev,
		},
		{
			name:     "whitespace around value",
			reply:    "TCP/UDP read bytes, 42 \r\n",
			expected: Counters{BytesIn: 42, BytesOut: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseStatusReply(tt.reply, prev); got != tt.expected {
				t.Errorf("parseStatusReply() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}
