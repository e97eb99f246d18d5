package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/glitch-codes/winback/internal/backup"
	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/engine"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/internal/logging"
	"github.com/glitch-codes/winback/pkg/fileutil"
)

var (
	backupDest        string
	backupCompress    bool
	backupLimitDL     bool
	backupPrograms    string
	backupPayload     string
	backupFolders     []string
	backupCustom      []string
	backupInteractive bool
)

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVarP(&backupDest, "dest", "d", "",
		"destination directory for the backup (default: configured destination)")
	backupCmd.Flags().BoolVarP(&backupCompress, "compress", "c", false,
		"produce a single zip archive instead of a folder tree")
	backupCmd.Flags().BoolVar(&backupLimitDL, "limit-downloads", false,
		"skip files in Downloads larger than 2 GB")
	backupCmd.Flags().StringVar(&backupPrograms, "include-programs", "",
		"file with an installed-programs listing to include in the backup")
	backupCmd.Flags().StringVar(&backupPayload, "payload", "",
		"restore helper executable to embed (folder backups only)")
	backupCmd.Flags().StringSliceVar(&backupFolders, "folders", nil,
		"folders to back up by name, e.g. Desktop,Documents (default: all discovered)")
	backupCmd.Flags().StringArrayVar(&backupCustom, "custom", nil,
		"custom folder path to include (repeatable)")
	backupCmd.Flags().BoolVarP(&backupInteractive, "interactive", "i", false,
		"pick folders interactively")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up profile folders",
	Long: `Back up the selected profile folders into a timestamped backup.

Folder backups are directory trees named Backup_<date>_<time> with the
metadata manifest and the embedded restore helper at the root. With
--compress the same tree is written into a single zip archive instead;
compressed backups do not embed the restore helper.

With --limit-downloads, files in the Downloads folder larger than 2 GB are
skipped and reported, never truncated.`,
	Example: `  # Everything discovered, as a folder tree
  winback backup --dest D:\Backups

  # Compressed, selected folders only
  winback backup --compress --folders Desktop,Documents,Pictures

  # Include a custom folder and the installed-programs listing
  winback backup --custom D:\Projects --include-programs programs.txt

  # Pick folders interactively
  winback backup --interactive`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, _ []string) error {
	logger := logging.FromContext(cmd.Context())
	username := effectiveUsername()

	cat := catalog.New()
	cat.Discover(username)

	custom := append([]string{}, cfg.CustomFolders...)
	custom = append(custom, backupCustom...)
	for _, dir := range custom {
		if _, err := cat.AddCustom(dir); err != nil {
			return errors.NewUserError(err, "Check the --custom folder paths")
		}
	}

	folders := backupFolders
	if len(folders) == 0 {
		folders = cfg.Folders
	}
	if len(folders) > 0 {
		if err := cat.Select(folders); err != nil {
			return errors.NewUserError(err, "Run 'winback folders' to see available folders")
		}
	}

	if backupInteractive {
		if err := selectInteractive(cat); err != nil {
			return err
		}
	}

	entries := cat.Selected()
	if len(entries) == 0 {
		return errors.NewUserError(backup.ErrNothingSelected,
			"Run 'winback folders' to see what can be backed up")
	}

	dest := backupDest
	if dest == "" {
		dest = cfg.Destination
	}
	compress := backupCompress || (!cmd.Flags().Changed("compress") && cfg.Compress)
	limitDL := backupLimitDL || (!cmd.Flags().Changed("limit-downloads") && cfg.LimitDownloads)

	var programs []byte
	if backupPrograms != "" {
		data, err := fileutil.ReadFileWithLimit(backupPrograms)
		if err != nil {
			return errors.NewUserError(err, "Check the --include-programs file")
		}
		programs = data
	}

	runner := backup.NewRunner(backup.WithSink(engine.LogSink{Logger: logger}))
	run := engine.NewRun()
	stop := watchInterrupt(logger, run)
	defer stop()

	logger.Info("starting backup",
		"user", username, "folders", len(entries), "dest", dest, "compress", compress)

	type outcome struct {
		res *backup.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := runner.Run(backup.Options{
			Username:        username,
			Entries:         entries,
			DestRoot:        dest,
			Compress:        compress,
			LimitDownloads:  limitDL,
			ProgramsListing: programs,
			PayloadPath:     backupPayload,
		}, run)
		ch <- outcome{res, err}
	}()
	out := <-ch

	if out.res != nil {
		printBackupSummary(cmd.OutOrStdout(), out.res)
	}
	if out.err != nil {
		if errors.Is(out.err, backup.ErrInsufficientSpace) {
			return errors.NewUserError(out.err, "Free up space or choose another destination with --dest")
		}
		return out.err
	}
	return nil
}

// selectInteractive narrows the selection with a fuzzy multi-picker over
// the existing catalog entries.
func selectInteractive(cat *catalog.Catalog) error {
	var candidates []catalog.Entry
	for _, e := range cat.Entries() {
		if e.Exists {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return errors.NewUserError(backup.ErrNothingSelected, "No profile folders found on this machine")
	}

	idxs, err := fuzzyfinder.FindMulti(
		candidates,
		func(i int) string {
			return fmt.Sprintf("%s  %s(%s)%s", candidates[i].Name, colorGray, candidates[i].SourcePath, colorReset)
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			e := candidates[i]
			return fmt.Sprintf("Folder: %s\nKind: %s\nPath: %s\nBackup location: %s",
				e.Name, e.Kind, e.SourcePath, e.RelBackupPath)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return errors.NewUserError(nil, "Selection aborted")
		}
		return errors.Wrap(err, "interactive selection failed")
	}

	names := make([]string, 0, len(idxs))
	for _, i := range idxs {
		names = append(names, candidates[i].Name)
	}
	return cat.Select(names)
}

func printBackupSummary(w io.Writer, res *backup.Result) {
	fmt.Fprintln(w)
	if res.Canceled {
		fmt.Fprintf(w, "%sBackup cancelled.%s Partial backup kept at %s\n",
			colorYellow, colorReset, res.Path)
	} else {
		fmt.Fprintf(w, "%s✓ Backup complete:%s %s\n", colorGreen, colorReset, res.Path)
	}
	fmt.Fprintf(w, "  %d files, %s", res.FilesCopied, engine.FormatBytes(res.BytesCopied))
	var extras []string
	if n := len(res.Skipped); n > 0 {
		extras = append(extras, fmt.Sprintf("%d skipped", n))
	}
	if n := len(res.Errors); n > 0 {
		extras = append(extras, fmt.Sprintf("%d failed", n))
	}
	if len(extras) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(extras, ", "))
	}
	fmt.Fprintln(w)
	printCopyIssues(w, res.Skipped, res.Errors)
}
