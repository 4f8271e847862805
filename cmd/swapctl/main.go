// Command swapctl is the operator CLI for schema migrations and credit inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swapbnb/api/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "swapctl",
	Short:         "SwapBnB operator tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
