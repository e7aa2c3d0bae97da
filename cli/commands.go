package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yllada/ovpnctl/common"
	"github.com/yllada/ovpnctl/config"
	"github.com/yllada/ovpnctl/history"
	"github.com/yllada/ovpnctl/keyring"
	"github.com/yllada/ovpnctl/tui"
	"github.com/yllada/ovpnctl/vpn"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available connection profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := vpn.DiscoverProfiles(opts.cfg.ProfileDir)
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Printf("No profiles found in %s\n", opts.cfg.ProfileDir)
				fmt.Println("Import one with: ovpnctl import <file.ovpn>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED\tVALID")
			fmt.Fprintln(w, "----\t----\t--------\t-----")
			for _, p := range profiles {
				valid := "Yes"
				if err := p.Validate(); err != nil {
					valid = "No"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					p.Name,
					common.FormatBytes(uint64(p.Size)),
					p.ModTime.Format("2006-01-02 15:04"),
					valid)
			}
			return w.Flush()
		},
	}
}

func newDisconnectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Ask the running OpenVPN session to shut down",
		Long: `Disconnect sends SIGTERM over the OpenVPN management interface.
It reaches any session started on the configured management address,
including ones supervised by another ovpnctl process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := vpn.NewManagementClient(opts.cfg.ManagementHost, opts.cfg.ManagementPort)
			if err := client.SendSignal("SIGTERM"); err != nil {
				return fmt.Errorf("no session reachable at %s: %w", client.Addr(), err)
			}
			fmt.Println("✓ Disconnect requested")
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a tunnel is up and its traffic counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := vpn.NewManagementClient(opts.cfg.ManagementHost, opts.cfg.ManagementPort)
			counters, err := client.QueryStatus(vpn.Counters{})
			if err != nil {
				fmt.Println("No active tunnel.")
				return nil
			}
			fmt.Printf("Tunnel active (management %s)\n", client.Addr())
			fmt.Printf("  In:  %s\n", common.FormatBytes(counters.BytesIn))
			fmt.Printf("  Out: %s\n", common.FormatBytes(counters.BytesOut))
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := history.DefaultPath()
			if err != nil {
				return err
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No recorded sessions.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROFILE\tSTARTED\tDURATION\tRECEIVED\tSENT\tEND REASON")
			fmt.Fprintln(w, "-------\t-------\t--------\t--------\t----\t----------")
			for _, s := range sessions {
				duration := "-"
				if d := s.Duration(); d > 0 {
					duration = common.FormatDuration(d)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					s.Profile,
					s.StartedAt.Format("2006-01-02 15:04"),
					duration,
					common.FormatBytes(s.BytesIn),
					common.FormatBytes(s.BytesOut),
					s.EndReason)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of sessions to show")
	return cmd
}

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored OpenVPN credentials",
	}
	cmd.AddCommand(newCredentialsSetCmd(), newCredentialsClearCmd())
	return cmd
}

func newCredentialsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Prompt for credentials and store them",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := promptCredentials()
			if err != nil {
				return err
			}
			if creds.Username == "" || creds.Password == "" {
				return common.ErrEmptyCredentials
			}
			if err := keyring.Save(creds); err != nil {
				return err
			}
			fmt.Println("✓ Credentials stored")
			return nil
		},
	}
}

func newCredentialsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring.Delete(); err != nil && !errors.Is(err, common.ErrCredentialsNotFound) {
				return err
			}
			fmt.Println("✓ Credentials removed")
			return nil
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Copy an .ovpn file into the profile directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := vpn.ImportProfile(opts.cfg.ProfileDir, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("✓ Imported %s (%s)\n", profile.Name, common.FormatBytes(uint64(profile.Size)))
			return nil
		},
	}
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive full-screen interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			elevator, err := vpn.ElevatorByName(opts.cfg.Elevation)
			if err != nil {
				return err
			}
			sup := vpn.NewSupervisor(supervisorConfigFrom(opts.cfg), elevator)
			if store := openRecorder(opts.cfg); store != nil {
				defer store.Close()
				sup.SetRecorder(store)
			}
			return tui.Run(sup, opts.cfg.ProfileDir)
		},
	}
}

// openRecorder opens the session history store when enabled. History
// problems never block a connection; they are logged and skipped.
func openRecorder(cfg *config.Config) *history.Store {
	if !cfg.HistoryEnabled {
		return nil
	}
	path, err := history.DefaultPath()
	if err != nil {
		common.LogWarn("session history unavailable", "error", err)
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		common.LogWarn("session history unavailable", "error", err)
		return nil
	}
	return store
}
