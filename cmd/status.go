package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/attendify/kiosk/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session gate and backend reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, client, cfg, err := newSessionController()
		if err != nil {
			return err
		}

		fmt.Printf("Backend: %s\n", cfg.Attendify.URL)
		fmt.Printf("Gate:    %s\n", sess.Gate())
		if sess.Gate() == session.GateAuthenticated {
			fmt.Printf("Role:    %s\n", sess.Role())
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		defer cancel()
		if health, err := client.Health(ctx); err != nil {
			fmt.Printf("Health:  unreachable (%v)\n", err)
		} else {
			fmt.Printf("Health:  %s\n", health.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
