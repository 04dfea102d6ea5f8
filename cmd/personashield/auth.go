package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/personashield/internal/auth"
)

// NewSignupCmd creates the signup command.
func NewSignupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup <username>",
		Short: "Register a local account and sign in",
		Long: `Signup registers a local account and signs it in.

Accounts are stored in the local database only. They gate the dashboard the
same way the web application does; they are not sent to the analysis service.

Examples:
  # Prompt for the password twice
  personashield signup alice

  # Non-interactive
  personashield signup alice --password secret --confirm secret`,
		Args: cobra.ExactArgs(1),
		RunE: runSignupCmd,
	}
	cmd.Flags().StringP("password", "p", "", "Password (prompted when empty)")
	cmd.Flags().String("confirm", "", "Password confirmation (defaults to --password)")
	return cmd
}

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in to a local account",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoginCmd,
	}
	cmd.Flags().StringP("password", "p", "", "Password (prompted when empty)")
	return cmd
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			a.auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			name, err := a.requireUser()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

// runSignupCmd executes the signup command.
func runSignupCmd(cmd *cobra.Command, args []string) error {
	prompt := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return err
	}
	confirmation, err := cmd.Flags().GetString("confirm")
	if err != nil {
		return err
	}

	switch {
	case password == "":
		if password, err = prompt.ask("Password: "); err != nil {
			return err
		}
		if confirmation == "" {
			if confirmation, err = prompt.ask("Confirm password: "); err != nil {
				return err
			}
		}
	case confirmation == "":
		confirmation = password
	}

	if err := auth.ConfirmPassword(password, confirmation); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.auth.Signup(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s. You are signed in.\n", user.Username)
	return nil
}

// runLoginCmd executes the login command.
func runLoginCmd(cmd *cobra.Command, args []string) error {
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return err
	}
	if password == "" {
		if password, err = newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).ask("Password: "); err != nil {
			return err
		}
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	user, err := a.auth.Login(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", user.Username)
	return nil
}

// prompter reads answers line by line.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints question and returns the next line without its line ending.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
