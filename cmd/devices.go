package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attendify/kiosk/internal/camera"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available capture devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := camera.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No capture devices found")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-14s %s\n", info.Path, info.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
