package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/tui"
)

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the privacy risk dashboard",
		Long: `Dashboard opens the terminal dashboard over the latest analysis (or the
history entry given with --index). Signing in is required.

Keys:
  j/k, tab      switch page
  [ / ]         previous / next history entry
  a             start the attack simulation
  q             close the simulation, or quit`,
		Args: cobra.NoArgs,
		RunE: runDashboardCmd,
	}
	cmd.Flags().IntP("index", "i", -1,
		"History entry to open; negative values count from the newest")
	return cmd
}

// NewSimulateCmd creates the simulate command.
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the attack simulation for an analysis",
		Long: `Simulate plays the staged attack walkthrough for the latest analysis (or
the history entry given with --index): reconnaissance, the attacker's
persona, the phishing email and the impact counter.

Keys:
  enter, →      next stage
  ←             previous stage
  s             skip the current animation
  esc, q        close`,
		Args: cobra.NoArgs,
		RunE: runSimulateCmd,
	}
	cmd.Flags().IntP("index", "i", -1,
		"History entry to simulate; negative values count from the newest")
	return cmd
}

// runDashboardCmd executes the dashboard command.
func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.requireUser()
	if err != nil {
		return err
	}
	index, err := cmd.Flags().GetInt("index")
	if err != nil {
		return err
	}
	if _, err := a.selectAnalysis(index); err != nil {
		return err
	}

	model := tui.NewDashboard(a.store,
		tui.WithViewOptions(a.viewOptions()),
		tui.WithRevealConfig(a.revealConfig()),
		tui.WithUser(user),
	)
	return runProgram(cmd, model)
}

// runSimulateCmd executes the simulate command.
func runSimulateCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	index, err := cmd.Flags().GetInt("index")
	if err != nil {
		return err
	}
	r, err := a.selectAnalysis(index)
	if err != nil {
		return err
	}

	sim := tui.NewSimulation(r, a.revealConfig(), tui.DefaultTheme()).Standalone()
	return runProgram(cmd, sim)
}

// runProgram runs a full-screen bubbletea program until it quits.
func runProgram(cmd *cobra.Command, model tea.Model) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
