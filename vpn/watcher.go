// Package vpn supervises OpenVPN client connections.
// This file contains the profile directory watcher.
package vpn

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yllada/ovpnctl/common"
)

// ProfileWatcher watches the profile directory and invokes a callback
// when OpenVPN configuration files change. Bursts of events are
// debounced so a single save triggers one reload.
type ProfileWatcher struct {
	dir      string
	debounce time.Duration
	onChange func()

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	lastFire time.Time
	running  bool
	stopChan chan struct{}
}

// NewProfileWatcher creates a watcher for dir. The directory must
// exist. onChange runs on the watcher goroutine and must not block.
func NewProfileWatcher(dir string, onChange func()) (*ProfileWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, common.WrapError(err, "create file watcher")
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, common.WrapError(err, "watch profile directory")
	}

	return &ProfileWatcher{
		dir:      dir,
		debounce: common.WatcherDebounce,
		onChange: onChange,
		watcher:  fw,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *ProfileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	go w.runLoop()
}

// Stop stops watching and releases the underlying watcher.
func (w *ProfileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopChan)
	w.watcher.Close()
}

func (w *ProfileWatcher) runLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isProfileFile(event.Name) {
				continue
			}
			w.handleChange(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			common.LogWarn("profile watcher error", "error", err)
		case <-w.stopChan:
			return
		}
	}
}

func isProfileFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".ovpn" || ext == ".conf"
}

func (w *ProfileWatcher) handleChange(name string) {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastFire) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastFire = now
	w.mu.Unlock()

	common.LogDebug("profile directory changed", "file", filepath.Base(name))
	if w.onChange != nil {
		w.onChange()
	}
}
