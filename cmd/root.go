// Package cmd wires the CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prodbot",
		Short: "Telegram productivity assistant: tasks, thoughts and vocabulary",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default prodbot.yaml)")
	cmd.AddCommand(serveCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
