package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glitch-codes/winback/cmd"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, and build date of winback.`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("winback version %s\n", cmd.Version)
		fmt.Printf("  commit: %s\n", cmd.Commit)
		fmt.Printf("  built:  %s\n", cmd.Date)
	},
}
