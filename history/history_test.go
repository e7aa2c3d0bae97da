package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_SessionLifecycle(t *testing.T) {
	s, _ := openTestStore(t)

	started := time.Unix(1700000000, 0)
	connected := started.Add(3 * time.Second)
	ended := connected.Add(5 * time.Minute)

	if err := s.SessionStarted("sess-1", "office", started); err != nil {
		t.Fatalf("SessionStarted() error = %v", err)
	}
	if err := s.SessionConnected("sess-1", connected); err != nil {
		t.Fatalf("SessionConnected() error = %v", err)
	}
	if err := s.SessionEnded("sess-1", ended, "10.8.0.2", 3604, 4415, "disconnect requested"); err != nil {
		t.Fatalf("SessionEnded() error = %v", err)
	}

	sessions, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Recent() returned %d sessions, want 1", len(sessions))
	}

	got := sessions[0]
	if got.ID != "sess-1" || got.Profile != "office" {
		t.Errorf("session identity = %q/%q, want sess-1/office", got.ID, got.Profile)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if !got.ConnectedAt.Equal(connected) {
		t.Errorf("ConnectedAt = %v, want %v", got.ConnectedAt, connected)
	}
	if !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}
	if got.AssignedIP != "10.8.0.2" {
		t.Errorf("AssignedIP = %q, want 10.8.0.2", got.AssignedIP)
	}
	if got.BytesIn != 3604 || got.BytesOut != 4415 {
		t.Errorf("counters = %d/%d, want 3604/4415", got.BytesIn, got.BytesOut)
	}
	if got.EndReason != "disconnect requested" {
		t.Errorf("EndReason = %q, want %q", got.EndReason, "disconnect requested")
	}
	if got.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %v, want 5m", got.Duration())
	}
}

func TestStore_NeverConnectedSession(t *testing.T) {
	s, _ := openTestStore(t)

	started := time.Unix(1700000000, 0)
	if err := s.SessionStarted("sess-1", "office", started); err != nil {
		t.Fatalf("SessionStarted() error = %v", err)
	}
	if err := s.SessionEnded("sess-1", started.Add(2*time.Second), "", 0, 0, "launch failed"); err != nil {
		t.Fatalf("SessionEnded() error = %v", err)
	}

	sessions, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Recent() returned %d sessions, want 1", len(sessions))
	}
	got := sessions[0]
	if !got.ConnectedAt.IsZero() {
		t.Errorf("ConnectedAt = %v, want zero", got.ConnectedAt)
	}
	if got.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", got.Duration())
	}
	if got.EndReason != "launch failed" {
		t.Errorf("EndReason = %q, want %q", got.EndReason, "launch failed")
	}
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	s, _ := openTestStore(t)

	base := time.Unix(1700000000, 0)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SessionStarted(id, "p", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("SessionStarted(%s) error = %v", id, err)
		}
	}

	sessions, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Recent(2) returned %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "c" || sessions[1].ID != "b" {
		t.Errorf("Recent(2) order = %s,%s, want c,b", sessions[0].ID, sessions[1].ID)
	}

	all, err := s.Recent(0)
	if err != nil {
		t.Fatalf("Recent(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Recent(0) returned %d sessions, want all 3", len(all))
	}
}

func TestStore_EndUnknownSessionIsNoop(t *testing.T) {
	s, _ := openTestStore(t)

	if err := s.SessionEnded("missing", time.Now(), "", 0, 0, "whatever"); err != nil {
		t.Errorf("SessionEnded(unknown) error = %v, want nil", err)
	}
	sessions, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("Recent() returned %d sessions, want 0", len(sessions))
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.SessionStarted("sess-1", "office", time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("SessionStarted() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	sessions, err := reopened.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "sess-1" {
		t.Errorf("reopened store sessions = %+v, want the recorded session", sessions)
	}
}
