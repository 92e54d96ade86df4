package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "drivend",
	Short: "drivend - NOVA coaching dialogue server for the DRIVEN program",
	Long: `drivend runs the weekly DRIVEN check-in conversations. It serves the
per-week HTTP API, drives the same dialogue from a Telegram bot and seeds
week content into the database.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}
