package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/glitch-codes/winback/internal/config"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/pkg/fileutil"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage winback configuration",
	Long: `Manage winback configuration stored in the per-user config directory
(%AppData%\winback\config.yaml on Windows).

Without a subcommand, lists all configuration values.`,
	Example: `  # List all configuration
  winback config

  # Get a specific value
  winback config get destination

  # Set the default destination
  winback config set destination D:\Backups

  # Make compressed backups the default
  winback config set compress true`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a single configuration value by key.

Array values like folders are printed one per line.`,
	Example: `  winback config get destination
  winback config get folders`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and write it to the config file.

For array values like folders and custom_folders, use comma-separated
values.`,
	Example: `  winback config set destination D:\Backups
  winback config set limit_downloads true
  winback config set folders Desktop,Documents,Pictures`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Long:  `List all configuration values in YAML format.`,
	RunE:  runConfigList,
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	key := args[0]

	if !viper.IsSet(key) {
		fmt.Fprintln(w, "not set")
		return nil
	}

	switch v := viper.Get(key).(type) {
	case []any:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	case []string:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	default:
		fmt.Fprintln(w, viper.GetString(key))
	}

	return nil
}

// configKeys are the keys config set accepts; arrayKeys take
// comma-separated values.
var (
	configKeys = map[string]bool{
		"version":         true,
		"destination":     true,
		"compress":        true,
		"limit_downloads": true,
		"folders":         true,
		"custom_folders":  true,
	}
	arrayKeys = map[string]bool{
		"folders":        true,
		"custom_folders": true,
	}
)

func runConfigSet(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	key, value := args[0], args[1]

	if !configKeys[key] {
		return errors.NewUserError(errors.Newf("unknown config key %q", key),
			"Run 'winback config list' to see valid keys")
	}

	if arrayKeys[key] {
		items := splitList(value)
		viper.Set(key, items)
		if err := writeConfig(); err != nil {
			return err
		}
		fmt.Fprintf(w, "Set %s = %v\n", key, items)
		return nil
	}

	viper.Set(key, value)
	if err := writeConfig(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Set %s = %s\n", key, value)
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(currentConfig())
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// splitList splits a comma-separated value, trimming whitespace and
// dropping empties.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// currentConfig snapshots the effective configuration from viper.
func currentConfig() map[string]any {
	return map[string]any{
		"version":         viper.GetInt("version"),
		"destination":     viper.GetString("destination"),
		"compress":        viper.GetBool("compress"),
		"limit_downloads": viper.GetBool("limit_downloads"),
		"folders":         viper.GetStringSlice("folders"),
		"custom_folders":  viper.GetStringSlice("custom_folders"),
	}
}

// writeConfig writes the current viper configuration to the config file.
func writeConfig() error {
	configPath := config.Path()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}

	if err := fileutil.AtomicWriteYAML(configPath, currentConfig()); err != nil {
		return errors.Wrap(err, "writing config file")
	}

	return nil
}
