// Package cli implements the daybreak command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/daybreak/internal/config"
	"github.com/dukerupert/daybreak/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// Global flags
var (
	serverURL string
	email     string
	password  string
	groupID   int64
	localDB   string
	dateFlag  string
	logLevel  string
	logFormat string
	raw       bool
)

// Set by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "daybreak",
	Short:   "Daybreak: daily devotionals with your group",
	Long:    `Run the daybreak server, or read today's devotional, mark progress and follow your group's stories from a terminal.`,
	Version: Version,

	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "Server address (default $DAYBREAK_URL)")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "Account email (default $DAYBREAK_EMAIL)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Account password (default $DAYBREAK_PASSWORD)")
	rootCmd.PersistentFlags().Int64Var(&groupID, "group", 0, "Group id (default: your first group)")
	rootCmd.PersistentFlags().StringVar(&localDB, "local-db", "", "Local cache database (default $DAYBREAK_LOCAL_DB)")
	rootCmd.PersistentFlags().StringVarP(&dateFlag, "date", "d", "", "Day to show: YYYY-MM-DD, today, yesterday or tomorrow")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json")
	rootCmd.PersistentFlags().BoolVar(&raw, "raw", false, "Emit JSON instead of text")
}

// setup loads configuration and applies flag overrides.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.Load()
	if serverURL != "" {
		cfg.Client.BaseURL = serverURL
	}
	if email != "" {
		cfg.Client.Email = email
	}
	if password != "" {
		cfg.Client.Password = password
	}
	if groupID != 0 {
		cfg.Client.GroupID = groupID
	}
	if localDB != "" {
		cfg.Client.LocalDBPath = localDB
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logger = logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return nil
}
