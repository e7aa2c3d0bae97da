package vpn

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestProfileWatcher_FiresOnProfileChange(t *testing.T) {
	dir := t.TempDir()

	changes := make(chan struct{}, 16)
	watcher, err := NewProfileWatcher(dir, func() { changes <- struct{}{} })
	if err != nil {
		t.Fatalf("NewProfileWatcher() error = %v", err)
	}
	watcher.Start()
	defer watcher.Stop()

	if err := os.WriteFile(filepath.Join(dir, "work.ovpn"), []byte(sampleOVPN), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never reported the new profile")
	}
}

func TestProfileWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	watcher, err := NewProfileWatcher(dir, func() { fired.Add(1) })
	if err != nil {
		t.Fatalf("NewProfileWatcher() error = %v", err)
	}
	watcher.Start()
	defer watcher.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("watcher fired %d times for an unrelated file", n)
	}
}

func TestProfileWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	watcher, err := NewProfileWatcher(dir, func() { fired.Add(1) })
	if err != nil {
		t.Fatalf("NewProfileWatcher() error = %v", err)
	}
	watcher.debounce = time.Second
	watcher.Start()
	defer watcher.Stop()

	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, "burst.ovpn")
		if err := os.WriteFile(name, []byte(sampleOVPN), 0600); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Let any further events drain through the debounce window check.
	time.Sleep(200 * time.Millisecond)

	if n := fired.Load(); n != 1 {
		t.Errorf("watcher fired %d times for a burst, want 1", n)
	}
}

func TestProfileWatcher_StopIsIdempotent(t *testing.T) {
	watcher, err := NewProfileWatcher(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewProfileWatcher() error = %v", err)
	}
	watcher.Start()
	watcher.Stop()
	watcher.Stop()
}

func TestNewProfileWatcher_MissingDir(t *testing.T) {
	if _, err := NewProfileWatcher(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("NewProfileWatcher() should fail for a missing directory")
	}
}
