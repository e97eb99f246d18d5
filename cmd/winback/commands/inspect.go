package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/engine"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/internal/manifest"
	"github.com/glitch-codes/winback/internal/restore"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <backup-path>",
	Short: "Show what a backup contains",
	Long: `Show a backup's metadata without restoring anything: when it was
taken, by which user, in which mode, and which folders it holds. Backups
without readable metadata get a plain content listing instead.`,
	Example: `  winback inspect D:\Backups\Backup_2026-03-14_09-26-53.zip
  winback inspect D:\Backups\Backup_2026-03-14_09-26-53`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()

	src, err := restore.Open(args[0])
	if err != nil {
		return errors.NewUserError(err, "Check that the backup path exists")
	}
	defer src.Close()

	form := "folder tree"
	if src.Compressed() {
		form = "zip archive"
	}
	fmt.Fprintf(w, "%sBackup:%s %s (%s)\n", colorBold, colorReset, src.Path(), form)

	data, _, found, ferr := src.FindManifest()
	if !found || ferr != nil {
		return inspectWithoutMetadata(w, src)
	}
	m, perr := manifest.Parse(data)
	if perr != nil {
		fmt.Fprintf(w, "%sMetadata present but unreadable: %v%s\n", colorYellow, perr, colorReset)
		return inspectWithoutMetadata(w, src)
	}

	fmt.Fprintf(w, "  Created:  %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  User:     %s\n", m.OriginalUsername)
	fmt.Fprintf(w, "  Mode:     %s\n", m.BackupMode)
	if m.DownloadLimitEnabled {
		fmt.Fprintf(w, "  Limit:    Downloads capped at %s\n", engine.FormatBytes(m.DownloadLimitBytes))
	}
	if m.InstalledProgramsIncluded {
		fmt.Fprintln(w, "  Extras:   installed-programs listing included")
	}

	var user, custom []manifest.Entry
	for _, e := range m.Entries {
		if catalog.Kind(e.Kind).Known() {
			user = append(user, e)
		} else {
			custom = append(custom, e)
		}
	}

	if len(user) > 0 {
		fmt.Fprintf(w, "\n%sProfile folders:%s\n", colorBold, colorReset)
		for _, e := range user {
			fmt.Fprintf(w, "  %-12s %s%s%s\n", e.Kind, colorGray, e.OriginalPath, colorReset)
		}
	}
	if len(custom) > 0 {
		fmt.Fprintf(w, "\n%sCustom folders:%s\n", colorBold, colorReset)
		for _, e := range custom {
			fmt.Fprintf(w, "  %-12s %s%s%s\n", e.RelativeBackupPath, colorGray, e.OriginalPath, colorReset)
		}
	}
	return nil
}

// inspectWithoutMetadata lists the top level of a backup that has no
// readable manifest, matching what a heuristic restore would work from.
func inspectWithoutMetadata(w io.Writer, src restore.Source) error {
	fmt.Fprintf(w, "%sNo readable metadata; a restore would map folders by name.%s\n",
		colorYellow, colorReset)

	top, err := src.TopLevel()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%sContents:%s\n", colorBold, colorReset)
	for _, te := range top {
		suffix := ""
		if te.Dir {
			suffix = "/"
		}
		fmt.Fprintf(w, "  %s%s\n", te.Name, suffix)
	}
	return nil
}
