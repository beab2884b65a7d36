package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attendify-kiosk",
	Short: "A kiosk client for the Attendify attendance service",
	Long: `Attendify Kiosk is a client for an Attendify attendance backend.
It captures facial images from a camera, checks locally for face presence,
and submits recognition attempts so students are logged into the current
class. All functionality is gated behind consent and authentication.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
