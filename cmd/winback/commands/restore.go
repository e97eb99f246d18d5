package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/engine"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/internal/logging"
	"github.com/glitch-codes/winback/internal/restore"
)

var restoreDryRun bool

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false,
		"show the restore plan without copying anything")
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-path>",
	Short: "Restore a backup onto this machine",
	Long: `Restore a backup, given either a backup folder or a zip archive
(detected automatically).

When the backup's metadata manifest is readable, profile folders are
restored into the current user's profile even if the backup was taken
under a different username, and custom folders return to their original
locations. Without a readable manifest, folders are placed by name under
the current user's profile.`,
	Example: `  # Restore a compressed backup
  winback restore D:\Backups\Backup_2026-03-14_09-26-53.zip

  # Restore a folder backup into another user's profile
  winback restore D:\Backups\Backup_2026-03-14_09-26-53 --user bob

  # Preview what would happen
  winback restore D:\Backups\Backup_2026-03-14_09-26-53 --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	logger := logging.FromContext(cmd.Context())
	username := effectiveUsername()
	w := cmd.OutOrStdout()

	src, err := restore.Open(args[0])
	if err != nil {
		return errors.NewUserError(err, "Check that the backup path exists")
	}
	defer src.Close()

	planner := &restore.Planner{
		Catalog:  catalog.New(),
		Username: username,
		Logger:   logger,
	}
	plan, err := planner.Plan(src)
	if err != nil {
		return err
	}

	printRestorePlan(w, plan)
	if restoreDryRun {
		return nil
	}

	run := engine.NewRun()
	stop := watchInterrupt(logger, run)
	defer stop()

	type outcome struct {
		res *restore.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := restore.Execute(src, plan, engine.LogSink{Logger: logger}, run)
		ch <- outcome{res, err}
	}()
	out := <-ch

	if out.res != nil {
		printRestoreSummary(w, out.res)
	}
	return out.err
}

func printRestorePlan(w io.Writer, plan *restore.Plan) {
	if plan.Mode == restore.ModeHeuristic {
		fmt.Fprintf(w, "%sNo readable metadata; restoring by folder name.%s\n",
			colorYellow, colorReset)
	} else if m := plan.Manifest; m != nil {
		fmt.Fprintf(w, "%sBackup from %s by %s (%s mode)%s\n",
			colorCyan, m.CreatedAt.Format("2006-01-02 15:04:05"), m.OriginalUsername,
			m.BackupMode, colorReset)
	}

	for _, item := range plan.Items {
		fmt.Fprintf(w, "  %s%-12s%s → %s\n", colorBold, item.Name, colorReset, item.DestPath)
		if item.Note != "" {
			fmt.Fprintf(w, "    %s%s%s\n", colorYellow, item.Note, colorReset)
		}
	}
}

func printRestoreSummary(w io.Writer, res *restore.Result) {
	fmt.Fprintln(w)
	if res.Canceled {
		fmt.Fprintf(w, "%sRestore cancelled.%s Folders restored so far stay in place.\n",
			colorYellow, colorReset)
	} else {
		fmt.Fprintf(w, "%s✓ Restore complete:%s %d folders, %d files, %s\n",
			colorGreen, colorReset, res.ItemsRestored, res.FilesRestored,
			engine.FormatBytes(res.BytesRestored))
	}
	for _, name := range res.SkippedItems {
		fmt.Fprintf(w, "%sskipped %s, not found in backup%s\n", colorYellow, name, colorReset)
	}
	printCopyIssues(w, nil, res.Errors)
}
