package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/logging"
)

var foldersOrphans bool

func init() {
	rootCmd.AddCommand(foldersCmd)

	foldersCmd.Flags().BoolVar(&foldersOrphans, "orphans", false,
		"also scan the system drive for folders outside any profile")
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the profile folders that can be backed up",
	Long: `List every standard profile folder for the user, marking which ones
exist on this machine. With --orphans, also scan the system drive's root for
non-system folders that live outside any user profile; those are candidates
for --custom.`,
	Example: `  winback folders

  # Check another user's profile
  winback folders --user bob

  # Find data stashed outside the profile
  winback folders --orphans`,
	Args: cobra.NoArgs,
	RunE: runFolders,
}

func runFolders(cmd *cobra.Command, _ []string) error {
	logger := logging.FromContext(cmd.Context())
	username := effectiveUsername()
	w := cmd.OutOrStdout()

	cat := catalog.New()
	entries := cat.Discover(username)

	fmt.Fprintf(w, "%sProfile folders for %s:%s\n", colorBold, username, colorReset)
	for _, e := range entries {
		mark := colorGray + "✗ missing" + colorReset
		if e.Exists {
			mark = colorGreen + "✓" + colorReset
		}
		fmt.Fprintf(w, "  %-12s %s  %s%s%s\n", e.Name, mark, colorGray, e.SourcePath, colorReset)
	}

	if !foldersOrphans {
		return nil
	}

	orphans, err := cat.ScanOrphanFolders("")
	if err != nil {
		logger.Warn("orphan scan failed", "error", err)
		return nil
	}

	fmt.Fprintln(w)
	if len(orphans) == 0 {
		fmt.Fprintln(w, "No folders found outside user profiles.")
		return nil
	}
	fmt.Fprintf(w, "%sFolders outside user profiles (use --custom to include):%s\n",
		colorBold, colorReset)
	for _, p := range orphans {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}
