// Package main runs the family task tracker: the JSON API, the Telegram bot
// and the reminder scheduler.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "familytasks",
	Short: "Family task tracker with points, sprints and Telegram reminders",
	Long: `familytasks serves the family task tracker.

Configuration is read from an optional YAML file and FAMILY_* environment
variables, e.g. FAMILY_TELEGRAM_TOKEN or FAMILY_DATABASE_DSN.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(migrateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, plus the bot and reminders when a token is set",
	Long: `Run the JSON API on http.addr. When telegram.token is configured the
Telegram bot and the reminder scheduler run in the same process.

Examples:
  familytasks serve
  familytasks serve --config config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot and the reminder scheduler",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}
