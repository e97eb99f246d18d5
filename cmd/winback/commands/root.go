// Package commands implements the CLI commands for winback.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/glitch-codes/winback/cmd"
	"github.com/glitch-codes/winback/internal/config"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/internal/logging"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// userFlag overrides the profile username commands operate on.
var userFlag string

// cfg is the loaded configuration; configLoadErr holds any error that
// occurred while loading it.
var (
	cfg           *config.Config
	configLoadErr error
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format (rotated)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "",
		"profile username to operate on (default: current user)")

	// Add version flag
	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("winback version {{.Version}}\n")

	// Silence errors and usage so we can control error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initConfig() {
	config.Init()
	// Capture load errors for later reporting
	cfg, configLoadErr = config.Load("")
}

var rootCmd = &cobra.Command{
	Use:   "winback",
	Short: "Back up and restore Windows user profile folders",
	Long: `winback backs up the folders that matter in a Windows user profile
(Desktop, Documents, Downloads, Pictures, and the rest, plus any custom
folders you add) into a timestamped folder tree or a single zip archive.

Every backup carries a metadata manifest, so restoring on another machine
or under a different username puts each folder back where it belongs.
Backups without a readable manifest are still restorable by folder name.`,
	Example: `  # Back up all discovered profile folders
  winback backup --dest D:\Backups

  # Compressed backup of selected folders
  winback backup --compress --folders Desktop,Documents

  # Restore a backup taken under another username
  winback restore D:\Backups\Backup_2026-03-14_09-26-53.zip

  # See what a backup contains before restoring
  winback inspect D:\Backups\Backup_2026-03-14_09-26-53.zip`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkConfig(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(nil, "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv("WINBACK_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 1
				case "2":
					v = 2
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	if logFile != "" {
		// File output uses JSON format and rotates so long backup
		// sessions cannot fill the disk they are trying to back up to.
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
		}, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// checkConfig surfaces config load failures once logging is up.
func checkConfig(cmd *cobra.Command) error {
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}
	if configLoadErr != nil {
		return errors.NewUserError(configLoadErr, "Check your winback config.yaml for syntax errors")
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
