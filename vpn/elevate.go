// Package vpn supervises OpenVPN client connections.
// This file contains privilege elevation for spawning OpenVPN.
package vpn

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/yllada/ovpnctl/common"
)

// Elevator abstracts how commands requiring root privileges are built.
// The supervisor uses it both to start OpenVPN and for the kill
// fallback during disconnect.
type Elevator interface {
	// Command builds a command that runs name with the given arguments
	// under elevated privileges.
	Command(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// PkexecElevator elevates through polkit's pkexec helper.
type PkexecElevator struct {
	// Path overrides the pkexec binary location. Empty means "pkexec"
	// resolved through PATH.
	Path string
}

func (e PkexecElevator) Command(ctx context.Context, name string, arg ...string) *exec.Cmd {
	path := e.Path
	if path == "" {
		path = "pkexec"
	}
	return exec.CommandContext(ctx, path, append([]string{name}, arg...)...)
}

// DirectElevator runs commands without privilege elevation. Used when
// the process already runs as root, and in tests.
type DirectElevator struct{}

func (DirectElevator) Command(ctx context.Context, name string, arg ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, arg...)
}

// DetectElevator picks an elevator for the current environment: direct
// execution as root, otherwise pkexec when installed.
func DetectElevator() (Elevator, error) {
	if os.Geteuid() == 0 {
		return DirectElevator{}, nil
	}
	if path, err := exec.LookPath("pkexec"); err == nil {
		return PkexecElevator{Path: path}, nil
	}
	return nil, common.ErrElevationNotFound
}

// ElevatorByName maps a configured elevation mode to an elevator.
// Empty or "auto" detects one for the environment.
func ElevatorByName(name string) (Elevator, error) {
	switch name {
	case "", "auto":
		return DetectElevator()
	case "pkexec":
		path, err := exec.LookPath("pkexec")
		if err != nil {
			return nil, common.ErrElevationNotFound
		}
		return PkexecElevator{Path: path}, nil
	case "none":
		return DirectElevator{}, nil
	default:
		return nil, fmt.Errorf("unknown elevation mode %q", name)
	}
}
