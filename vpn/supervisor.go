// Package vpn supervises OpenVPN client connections.
// This file contains the Supervisor, which owns the OpenVPN process
// lifecycle and arbitrates all state transitions.
package vpn

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yllada/ovpnctl/common"
)

// SupervisorConfig holds the settings for running OpenVPN.
type SupervisorConfig struct {
	// OpenVPNPath is the openvpn executable name or absolute path.
	OpenVPNPath string
	// ManagementHost and ManagementPort locate the loopback management
	// channel the daemon is started with.
	ManagementHost string
	ManagementPort int
	// AuthFilePath is where the transient credentials file is written.
	AuthFilePath string
	// PollGrace is the settle period before the first status query.
	PollGrace time.Duration
	// PollInterval is how often byte counters are refreshed.
	PollInterval time.Duration
}

// DefaultSupervisorConfig returns a config with standard paths and
// intervals.
func DefaultSupervisorConfig() SupervisorConfig {
	authPath := filepath.Join(os.TempDir(), common.AuthFileName)
	if configDir, err := common.GetConfigDir(); err == nil {
		authPath = filepath.Join(configDir, common.AuthFileName)
	}
	return SupervisorConfig{
		OpenVPNPath:    "openvpn",
		ManagementHost: common.DefaultManagementHost,
		ManagementPort: common.DefaultManagementPort,
		AuthFilePath:   authPath,
		PollGrace:      common.StatusPollGrace,
		PollInterval:   common.StatusPollInterval,
	}
}

func (c *SupervisorConfig) applyDefaults() {
	def := DefaultSupervisorConfig()
	if c.OpenVPNPath == "" {
		c.OpenVPNPath = def.OpenVPNPath
	}
	if c.ManagementHost == "" {
		c.ManagementHost = def.ManagementHost
	}
	if c.ManagementPort == 0 {
		c.ManagementPort = def.ManagementPort
	}
	if c.AuthFilePath == "" {
		c.AuthFilePath = def.AuthFilePath
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
}

// Supervisor runs and monitors a single OpenVPN client process.
// It owns the connection state machine; every transition happens under
// its lock and is announced to subscribers as a StateChange event.
type Supervisor struct {
	cfg      SupervisorConfig
	elevator Elevator
	mgmt     *ManagementClient

	mu          sync.RWMutex
	state       State
	cmd         *exec.Cmd
	profile     Profile
	sessionID   string
	startedAt   time.Time
	connectedAt time.Time
	assignedIP  string
	bytesIn     uint64
	bytesOut    uint64
	// done is closed exactly once when the session ends.
	done chan struct{}
	// disconnectRequested distinguishes a requested teardown from an
	// unexpected process exit.
	disconnectRequested bool
	// endReason remembers why the session started tearing down.
	endReason string

	recorder common.SessionRecorder

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
	dropped     uint64
}

// NewSupervisor creates a supervisor. A nil elevator defaults to
// pkexec.
func NewSupervisor(cfg SupervisorConfig, elevator Elevator) *Supervisor {
	cfg.applyDefaults()
	if elevator == nil {
		elevator = PkexecElevator{}
	}
	return &Supervisor{
		cfg:         cfg,
		elevator:    elevator,
		mgmt:        NewManagementClient(cfg.ManagementHost, cfg.ManagementPort),
		state:       StateDisconnected,
		subscribers: make(map[chan Event]struct{}),
	}
}

// SetRecorder attaches a session recorder. Must be called before
// Connect.
func (s *Supervisor) SetRecorder(r common.SessionRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// Subscribe registers an event channel. Events are delivered with a
// non-blocking send: a subscriber that stops draining loses events
// instead of stalling the supervisor.
func (s *Supervisor) Subscribe() chan Event {
	ch := make(chan Event, common.EventBufferSize)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Supervisor) Unsubscribe(ch chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Supervisor) publish(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- e:
		default:
			s.dropped++
		}
	}
}

// DroppedEvents reports how many events were lost to slow subscribers.
func (s *Supervisor) DroppedEvents() uint64 {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.dropped
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentProfile returns the profile of the active session, if any.
func (s *Supervisor) CurrentProfile() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateDisconnected {
		return Profile{}, false
	}
	return s.profile, true
}

// Info returns a snapshot of the active session details. It is
// populated while the tunnel is up (and transiently during teardown,
// with last-known values); otherwise the zero Info is returned.
func (s *Supervisor) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoLocked()
}

func (s *Supervisor) infoLocked() Info {
	switch s.state {
	case StateConnected, StateDisconnecting:
		return Info{
			AssignedIP:     s.assignedIP,
			ConnectedSince: s.connectedAt,
			BytesIn:        s.bytesIn,
			BytesOut:       s.bytesOut,
		}
	default:
		return Info{}
	}
}

// setStateLocked transitions to a new state and announces it. The
// caller must hold the write lock.
func (s *Supervisor) setStateLocked(newState State, reason string) {
	old := s.state
	s.state = newState
	now := time.Now()
	common.LogInfo("connection state changed", "from", old.String(), "to", newState.String(), "reason", reason)
	s.publish(StateChange{Old: old, New: newState, Reason: reason, At: now})
	s.publish(InfoUpdate{At: now, Info: s.infoLocked()})
}

// Connect starts OpenVPN for the given profile. It returns once the
// process is spawned; progress is reported through events. Both
// username and password must be non-empty and no session may be
// active.
func (s *Supervisor) Connect(profile Profile, username, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return common.ErrEmptyCredentials
	}

	s.mu.Lock()
	switch s.state {
	case StateDisconnecting:
		s.mu.Unlock()
		return common.ErrDisconnecting
	case StateConnecting, StateConnected:
		s.mu.Unlock()
		return common.ErrAlreadyConnected
	}
	s.profile = profile
	s.sessionID = uuid.NewString()
	s.startedAt = time.Now()
	s.disconnectRequested = false
	s.done = make(chan struct{})
	s.setStateLocked(StateConnecting, "connect requested")
	sessionID := s.sessionID
	recorder := s.recorder
	s.mu.Unlock()

	if recorder != nil {
		if err := recorder.SessionStarted(sessionID, profile.Name, time.Now()); err != nil {
			common.LogWarn("failed to record session start", "error", err)
		}
	}

	if _, err := exec.LookPath(s.cfg.OpenVPNPath); err != nil {
		launchErr := common.WrapError(common.ErrOpenVPNNotFound, s.cfg.OpenVPNPath)
		s.failLaunch(launchErr)
		return launchErr
	}

	if err := s.writeAuthFile(username, password); err != nil {
		launchErr := common.WrapError(err, "write auth file")
		s.failLaunch(launchErr)
		return launchErr
	}

	args := []string{
		"--config", profile.Path,
		"--auth-user-pass", s.cfg.AuthFilePath,
		"--management", s.cfg.ManagementHost, strconv.Itoa(s.cfg.ManagementPort),
		"--management-query-passwords",
	}
	cmd := s.elevator.Command(context.Background(), s.cfg.OpenVPNPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		launchErr := common.WrapError(err, "create stdout pipe")
		s.failLaunch(launchErr)
		return launchErr
	}
	// Merge stderr into the same pipe; OpenVPN logs on both.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		launchErr := common.WrapError(err, "start openvpn process")
		s.failLaunch(launchErr)
		return launchErr
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	common.LogInfo("openvpn started", "profile", profile.Name, "pid", cmd.Process.Pid)
	go s.readOutput(stdout, cmd)
	return nil
}

// failLaunch tears down a session that never produced a process.
func (s *Supervisor) failLaunch(launchErr error) {
	s.removeAuthFile()
	s.publish(Failure{At: time.Now(), Err: launchErr})
	common.LogError("failed to launch openvpn", "error", launchErr)

	s.mu.Lock()
	sessionID := s.sessionID
	recorder := s.recorder
	close(s.done)
	s.clearSessionLocked()
	s.setStateLocked(StateDisconnected, "launch failed")
	s.mu.Unlock()

	if recorder != nil {
		if err := recorder.SessionEnded(sessionID, time.Now(), "", 0, 0, "launch failed"); err != nil {
			common.LogWarn("failed to record session end", "error", err)
		}
	}
}

// readOutput consumes merged stdout/stderr, feeding each line through
// the log interpreter. When the pipe closes it reaps the process and
// finalizes the session.
func (s *Supervisor) readOutput(r io.Reader, cmd *exec.Cmd) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.handleLogLine(scanner.Text())
	}

	waitErr := cmd.Wait()
	s.handleProcessExit(waitErr)
}

func (s *Supervisor) handleLogLine(line string) {
	now := time.Now()
	s.publish(LogLine{At: now, Text: line})

	switch ClassifyLine(line) {
	case LineConnected:
		s.markConnected()
	case LineExiting:
		s.markExiting()
	case LineAuthFailed:
		s.markAuthFailed()
	case LineObfsUnsupported:
		common.LogWarn("unsupported obfuscation option in profile", "line", line)
		s.publish(Failure{At: now, Err: common.ErrObfuscationUnsupported})
	}

	if ip, ok := ExtractTunnelIP(line); ok {
		s.setAssignedIP(ip)
	}
}

// markConnected promotes the session to Connected and starts the
// status poller.
func (s *Supervisor) markConnected() {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.connectedAt = time.Now()
	s.setStateLocked(StateConnected, "initialization sequence completed")
	done := s.done
	sessionID := s.sessionID
	recorder := s.recorder
	s.mu.Unlock()

	if recorder != nil {
		if err := recorder.SessionConnected(sessionID, time.Now()); err != nil {
			common.LogWarn("failed to record session connect", "error", err)
		}
	}

	poller := newStatusPoller(s.mgmt, s.cfg.PollGrace, s.cfg.PollInterval, s.State, s.applyCounters)
	go poller.run(done)
}

// markExiting reflects that the daemon announced its own shutdown.
func (s *Supervisor) markExiting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting || s.state == StateConnected {
		if s.endReason == "" {
			s.endReason = "openvpn shutting down"
		}
		s.setStateLocked(StateDisconnecting, "openvpn shutting down")
	}
}

// markAuthFailed surfaces the rejection before the daemon exits on its
// own.
func (s *Supervisor) markAuthFailed() {
	s.publish(Failure{At: time.Now(), Err: common.ErrAuthFailed})
	common.LogError("openvpn authentication failed")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.endReason = "authentication failed"
		s.setStateLocked(StateDisconnecting, "authentication failed")
	}
}

func (s *Supervisor) setAssignedIP(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.assignedIP = ip
	common.LogInfo("tunnel address assigned", "ip", ip)
	s.publish(InfoUpdate{At: time.Now(), Info: s.infoLocked()})
}

func (s *Supervisor) applyCounters(c Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return
	}
	s.bytesIn = c.BytesIn
	s.bytesOut = c.BytesOut
	s.publish(InfoUpdate{At: time.Now(), Info: s.infoLocked()})
}

// Disconnect asks the daemon to shut down cleanly. It returns
// immediately; the session finishes when the process exits.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	switch s.state {
	case StateDisconnected:
		s.mu.Unlock()
		return common.ErrNotConnected
	case StateDisconnecting:
		s.mu.Unlock()
		return common.ErrDisconnecting
	}
	s.disconnectRequested = true
	s.endReason = "disconnect requested"
	pid := 0
	if s.cmd != nil && s.cmd.Process != nil {
		pid = s.cmd.Process.Pid
	}
	s.setStateLocked(StateDisconnecting, "disconnect requested")
	s.mu.Unlock()

	go s.shutdown(pid)
	return nil
}

// shutdown asks the daemon to terminate over the management interface
// and falls back to an elevated kill when the interface cannot be
// reached.
func (s *Supervisor) shutdown(pid int) {
	if err := s.mgmt.SendSignal("SIGTERM"); err == nil {
		common.LogDebug("sent SIGTERM via management interface")
		return
	}

	common.LogWarn("management interface unavailable, killing process", "pid", pid)
	if pid <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), common.KillFallbackTimeout)
	defer cancel()
	kill := s.elevator.Command(ctx, "kill", strconv.Itoa(pid))
	if out, err := kill.CombinedOutput(); err != nil {
		common.LogError("kill fallback failed", "pid", pid, "error", err, "output", strings.TrimSpace(string(out)))
	}
}

// handleProcessExit finalizes the session once the process is gone.
// Calling it for an already finished session is a no-op.
func (s *Supervisor) handleProcessExit(waitErr error) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	requested := s.disconnectRequested || s.state == StateDisconnecting
	reason := s.endReason
	if !requested {
		reason = "process exited unexpectedly"
	} else if reason == "" {
		reason = "process exited"
	}
	sessionID := s.sessionID
	assignedIP := s.assignedIP
	bytesIn := s.bytesIn
	bytesOut := s.bytesOut
	recorder := s.recorder
	close(s.done)
	s.cmd = nil
	s.clearSessionLocked()
	// Publish the failure before the final transition so subscribers
	// that stop at Disconnected still see it.
	if !requested {
		s.publish(Failure{At: time.Now(), Err: common.ErrUnexpectedExit})
	}
	s.setStateLocked(StateDisconnected, reason)
	s.mu.Unlock()

	if waitErr != nil {
		common.LogDebug("openvpn exit status", "error", waitErr)
	}
	if !requested {
		common.LogWarn("openvpn exited without a disconnect request")
	}

	s.removeAuthFile()

	if recorder != nil {
		if err := recorder.SessionEnded(sessionID, time.Now(), assignedIP, bytesIn, bytesOut, reason); err != nil {
			common.LogWarn("failed to record session end", "error", err)
		}
	}
}

// clearSessionLocked destroys all per-session data. The caller must
// hold the write lock.
func (s *Supervisor) clearSessionLocked() {
	s.profile = Profile{}
	s.sessionID = ""
	s.startedAt = time.Time{}
	s.connectedAt = time.Time{}
	s.assignedIP = ""
	s.bytesIn = 0
	s.bytesOut = 0
	s.disconnectRequested = false
	s.endReason = ""
}

// writeAuthFile writes the two-line credentials file OpenVPN reads
// with --auth-user-pass.
func (s *Supervisor) writeAuthFile(username, password string) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.AuthFilePath), 0700); err != nil {
		return err
	}
	content := username + "\n" + password + "\n"
	return os.WriteFile(s.cfg.AuthFilePath, []byte(content), 0600)
}

func (s *Supervisor) removeAuthFile() {
	if err := os.Remove(s.cfg.AuthFilePath); err != nil && !os.IsNotExist(err) {
		common.LogWarn("failed to remove auth file", "error", err)
	}
}
