// Package cli implements the ovpnctl command tree. It wires profile
// discovery, credential storage, the connection supervisor, session
// history, and the interactive interface into terminal commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yllada/ovpnctl/common"
	"github.com/yllada/ovpnctl/config"
)

// rootOptions carries state shared by all subcommands. The config is
// populated by the root PersistentPreRunE before any RunE executes.
type rootOptions struct {
	verbose bool
	cfg     *config.Config
}

// Execute runs the command tree and returns the process exit code.
func Execute(version, buildTime, commit string) int {
	defer common.CloseLogger()

	root := newRootCmd(version, buildTime, commit)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(version, buildTime, commit string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ovpnctl",
		Short: "OpenVPN client connection manager",
		Long: `ovpnctl manages OpenVPN client connections from the terminal:
profile discovery and import, credential storage, supervised
connections with live status, session history, and an interactive
full-screen mode.

Examples:
  ovpnctl list
  ovpnctl connect office
  ovpnctl status
  ovpnctl tui`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if opts.verbose {
				level = "debug"
			}
			if err := common.InitLogger(common.LogConfig{
				Level:      level,
				EnableFile: cfg.Logging.EnableFile,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
				Compress:   cfg.Logging.Compress,
			}); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newListCmd(opts),
		newConnectCmd(opts),
		newDisconnectCmd(opts),
		newStatusCmd(opts),
		newHistoryCmd(),
		newCredentialsCmd(),
		newImportCmd(opts),
		newTUICmd(opts),
		newVersionCmd(version, buildTime, commit),
	)
	return root
}

func newVersionCmd(version, buildTime, commit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// Version needs neither config nor logging; override the root
		// hook so printing a string cannot fail on a config problem.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", common.AppName, version)
			if buildTime != "unknown" {
				fmt.Printf("  Build:  %s\n", buildTime)
				fmt.Printf("  Commit: %s\n", commit)
			}
		},
	}
}
