package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attendify/kiosk/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the Attendify backend",
	Long: `Log in with a username and password. On success the issued token is
stored in the OS keyring (with a file fallback) and reused by later
commands until logout.

Credentials come from --username/--password flags or the
ATTENDIFY_USERNAME and ATTENDIFY_PASSWORD environment variables.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringP("username", "u", "", "Username (defaults to ATTENDIFY_USERNAME)")
	loginCmd.Flags().StringP("password", "p", "", "Password (defaults to ATTENDIFY_PASSWORD)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	sess, _, cfg, err := newSessionController()
	if err != nil {
		return err
	}

	username := mustGetString(cmd, "username")
	if username == "" {
		username = cfg.Attendify.Username
	}
	password := mustGetString(cmd, "password")
	if password == "" {
		password = cfg.Attendify.Password
	}
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	if sess.Gate() == session.GateConsentPending {
		return errors.New("biometric consent has not been accepted; run 'attendify-kiosk consent accept' first")
	}

	if err := sess.Login(cmd.Context(), username, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Logged in as %s (role: %s)\n", username, sess.Role())
	return nil
}
