package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yllada/ovpnctl/common"
	"github.com/yllada/ovpnctl/config"
	"github.com/yllada/ovpnctl/keyring"
	"github.com/yllada/ovpnctl/notify"
	"github.com/yllada/ovpnctl/vpn"
)

func newConnectCmd(opts *rootOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "connect <profile>",
		Short: "Connect to a profile and supervise the session",
		Long: `Connect starts OpenVPN for the named profile and stays in the
foreground until the session ends. The profile name is matched
case-insensitively, exact matches before prefix matches.

Stored credentials are used when available; otherwise you are
prompted. Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(opts, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "prompt for credentials and store them for next time")
	return cmd
}

func runConnect(opts *rootOptions, name string, save bool) error {
	cfg := opts.cfg

	profiles, err := vpn.DiscoverProfiles(cfg.ProfileDir)
	if err != nil {
		return err
	}
	profile, err := vpn.FindProfile(profiles, name)
	if err != nil {
		return fmt.Errorf("%w: %q (see: ovpnctl list)", common.ErrProfileNotFound, name)
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	creds, err := resolveCredentials(save)
	if err != nil {
		return err
	}

	elevator, err := vpn.ElevatorByName(cfg.Elevation)
	if err != nil {
		return err
	}

	sup := vpn.NewSupervisor(supervisorConfigFrom(cfg), elevator)
	if store := openRecorder(cfg); store != nil {
		defer store.Close()
		sup.SetRecorder(store)
	}

	var notifier *notify.Notifier
	if cfg.ShowNotifications {
		notifier = notify.New()
		defer notifier.Close()
	}

	events := sup.Subscribe()
	defer sup.Unsubscribe(events)

	fmt.Printf("Connecting to %s...\n", profile.Name)
	if err := sup.Connect(profile, creds.Username, creds.Password); err != nil {
		return err
	}

	return superviseSession(sup, events, notifier, profile.Name, opts.verbose)
}

// superviseSession pumps supervisor events until the session ends,
// relaying state changes to the terminal and the desktop. It returns
// the last failure so a crashed or rejected session exits non-zero.
func superviseSession(sup *vpn.Supervisor, events chan vpn.Event, notifier *notify.Notifier, profileName string, verbose bool) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	timeout := time.After(common.ConnectionTimeout)
	var lastFailure error

	for {
		select {
		case sig := <-sigCh:
			fmt.Printf("\nReceived %v, disconnecting...\n", sig)
			if err := sup.Disconnect(); err != nil {
				// Already tearing down or gone; the loop ends when the
				// final state change arrives.
				common.LogDebug("disconnect on signal", "error", err)
			}
		case <-timeout:
			if sup.State() != vpn.StateConnecting {
				continue
			}
			_ = sup.Disconnect()
			return fmt.Errorf("connection attempt timed out after %s", common.ConnectionTimeout)
		case ev := <-events:
			switch ev := ev.(type) {
			case vpn.StateChange:
				switch ev.New {
				case vpn.StateConnected:
					fmt.Printf("✓ Connected to %s\n", profileName)
					if info := sup.Info(); info.AssignedIP != "" {
						fmt.Printf("  Tunnel IP: %s\n", info.AssignedIP)
					}
					notifyDesktop(notifier, "Connected", profileName)
				case vpn.StateDisconnecting:
					if ev.Reason != "disconnect requested" {
						fmt.Println("Disconnecting...")
					}
				case vpn.StateDisconnected:
					fmt.Printf("Disconnected (%s)\n", ev.Reason)
					notifyDesktop(notifier, "Disconnected", profileName)
					return lastFailure
				}
			case vpn.LogLine:
				if verbose {
					fmt.Println("  " + ev.Text)
				}
			case vpn.Failure:
				// Returned once the final state change lands, so the
				// shell sees a non-zero exit.
				lastFailure = ev.Err
				if errors.Is(ev.Err, common.ErrAuthFailed) {
					notifyDesktop(notifier, "Authentication failed", profileName)
				}
			}
		}
	}
}

func notifyDesktop(n *notify.Notifier, title, body string) {
	if n == nil {
		return
	}
	if err := n.Notify(title, body); err != nil {
		common.LogDebug("desktop notification failed", "error", err)
	}
}

// supervisorConfigFrom maps application settings onto the supervisor,
// keeping defaults for anything unset.
func supervisorConfigFrom(cfg *config.Config) vpn.SupervisorConfig {
	sc := vpn.DefaultSupervisorConfig()
	if cfg.OpenVPNPath != "" {
		sc.OpenVPNPath = cfg.OpenVPNPath
	}
	if cfg.ManagementHost != "" {
		sc.ManagementHost = cfg.ManagementHost
	}
	if cfg.ManagementPort != 0 {
		sc.ManagementPort = cfg.ManagementPort
	}
	if cfg.PollGraceSeconds > 0 {
		sc.PollGrace = time.Duration(cfg.PollGraceSeconds) * time.Second
	}
	if cfg.PollIntervalSeconds > 0 {
		sc.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	return sc
}

// resolveCredentials loads stored credentials, prompting when none are
// stored. With save set the prompt always runs and the result is kept
// for next time.
func resolveCredentials(save bool) (common.Credentials, error) {
	if !save {
		creds, err := keyring.Load()
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, common.ErrCredentialsNotFound) {
			common.LogWarn("stored credentials unavailable", "error", err)
		}
	}

	creds, err := promptCredentials()
	if err != nil {
		return common.Credentials{}, err
	}
	if save {
		if err := keyring.Save(creds); err != nil {
			common.LogWarn("could not store credentials", "error", err)
		} else {
			fmt.Println("Credentials stored.")
		}
	}
	return creds, nil
}

// promptCredentials reads a username and a hidden password from the
// terminal.
func promptCredentials() (common.Credentials, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return common.Credentials{}, err
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return common.Credentials{}, err
	}

	return common.Credentials{
		Username: strings.TrimSpace(username),
		Password: string(password),
	}, nil
}
