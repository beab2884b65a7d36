package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Manage biometric processing consent",
	Long: `Biometric data is only processed once consent has been recorded.
Consent is stored locally and reported to the backend on a best-effort
basis; the local flag is what gates all capture functionality.`,
}

var consentAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Record consent to biometric processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, _, _, err := newSessionController()
		if err != nil {
			return err
		}
		if err := sess.AcceptConsent(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Consent recorded (gate: %s)\n", sess.Gate())
		return nil
	},
}

var consentRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Withdraw consent to biometric processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, _, _, err := newSessionController()
		if err != nil {
			return err
		}
		if err := sess.RevokeConsent(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Consent withdrawn (gate: %s)\n", sess.Gate())
		return nil
	},
}

var consentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current consent state",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, _, _, err := newSessionController()
		if err != nil {
			return err
		}
		fmt.Printf("Gate: %s\n", sess.Gate())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consentCmd)
	consentCmd.AddCommand(consentAcceptCmd)
	consentCmd.AddCommand(consentRevokeCmd)
	consentCmd.AddCommand(consentStatusCmd)
}
