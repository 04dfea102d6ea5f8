package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for PersonaShield.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personashield",
		Short: "Privacy risk dashboard for resume PDFs",
		Long: `PersonaShield sends a resume PDF to the PersonaShield analysis service and
turns the result into a privacy risk dashboard: risk score breakdown, attack
vectors, a phishing simulation and a staged attack walkthrough.

Documents are inspected locally before upload. Uploads can go through an
embedded Tor daemon (--tor) or an existing SOCKS5 proxy (--proxy).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .personashield in current or home directory)")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory holding the local database (default: XDG data directory)")

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewSignupCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewWhoamiCmd())
	cmd.AddCommand(NewUploadCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewDashboardCmd())
	cmd.AddCommand(NewSimulateCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
