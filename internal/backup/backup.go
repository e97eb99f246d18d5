package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/glitch-codes/winback/internal/archive"
	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/engine"
	"github.com/glitch-codes/winback/internal/errors"
	"github.com/glitch-codes/winback/internal/manifest"
	"github.com/glitch-codes/winback/pkg/fileutil"
)

// DownloadLimitBytes is the fixed cap applied to files in the Downloads
// folder when the download limit is enabled. Downloads tend to accumulate
// installers and disk images nobody needs back; 2 GiB keeps the bulk out
// while everything a user actually made stays in.
const DownloadLimitBytes int64 = 2 << 30

// ProgramsFileName is the name of the installed-programs listing written at
// the backup root.
const ProgramsFileName = "Installed_Programs.txt"

// ErrInsufficientSpace indicates the destination volume cannot hold the
// estimated backup. Nothing has been written when this is returned.
var ErrInsufficientSpace = errors.New("not enough free space at destination")

// ErrNothingSelected indicates an empty folder selection.
var ErrNothingSelected = errors.New("no folders selected for backup")

// Options describes one backup run.
type Options struct {
	// Username whose profile the entries belong to; recorded in the
	// manifest as the original user.
	Username string

	// Entries is the selected folder set from the catalog.
	Entries []catalog.Entry

	// DestRoot is the directory the backup is created in.
	DestRoot string

	// Compress produces a single zip archive instead of a folder tree.
	Compress bool

	// LimitDownloads applies DownloadLimitBytes to the Downloads folder.
	LimitDownloads bool

	// ProgramsListing, when non-nil, is written verbatim as
	// Installed_Programs.txt at the backup root. The content comes from a
	// collaborator; the runner treats it as an opaque text blob.
	ProgramsListing []byte

	// PayloadPath names the restore helper executable to embed at the
	// backup root. Only folder backups embed it; compressed backups never
	// do, which keeps archives small at the cost of having to fetch the
	// helper separately.
	PayloadPath string

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Result summarizes a finished (or canceled) backup run.
type Result struct {
	// Path is the final backup location: the folder tree, or the zip.
	Path string

	// Mode is manifest.ModeFolder or manifest.ModeCompressed.
	Mode string

	CreatedAt   time.Time
	FilesCopied int64
	BytesCopied int64
	Skipped     []engine.SkippedFile
	Errors      []engine.FileError

	// Canceled is set when the run was canceled mid-copy. Whatever was
	// copied stays on disk; canceled runs are never archived.
	Canceled bool
}

// Runner executes backups. The zero value is not usable; construct with
// NewRunner.
type Runner struct {
	sink engine.ProgressSink

	// diskFree reports free bytes on the volume holding a path.
	// Swappable for tests.
	diskFree func(path string) (uint64, error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSink sets the progress sink for all runs.
func WithSink(sink engine.ProgressSink) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithDiskFree overrides free-space probing.
func WithDiskFree(fn func(path string) (uint64, error)) RunnerOption {
	return func(r *Runner) {
		r.diskFree = fn
	}
}

// NewRunner creates a backup runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		sink: engine.NopSink{},
		diskFree: func(path string) (uint64, error) {
			u, err := disk.Usage(path)
			if err != nil {
				return 0, err
			}
			return u.Free, nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one backup. The stages are: validate the selection, check
// free space, copy each folder into the staging tree, write the programs
// listing, manifest, and helper payload, then archive if requested.
//
// A canceled run stops copying, still writes the manifest for what was
// copied, and skips archiving. Per-file copy failures accumulate in the
// result and never abort the run. An archive failure is returned as an
// error wrapping archive.ErrArchiveWrite with the uncompressed tree left
// intact.
func (r *Runner) Run(opts Options, run *engine.Run) (*Result, error) {
	if run == nil {
		run = engine.NewRun()
	}
	if len(opts.Entries) == 0 {
		return nil, ErrNothingSelected
	}
	if err := checkUniqueRelPaths(opts.Entries); err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	createdAt := now()

	mode := manifest.ModeFolder
	if opts.Compress {
		mode = manifest.ModeCompressed
	}

	total := r.estimate(opts)
	if err := r.checkSpace(opts, total); err != nil {
		return nil, err
	}

	stageDir := filepath.Join(opts.DestRoot, "Backup_"+createdAt.Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating backup directory %s", stageDir)
	}

	res := &Result{Path: stageDir, Mode: mode, CreatedAt: createdAt}

	var done int64
	for _, e := range opts.Entries {
		if run.Canceled() {
			break
		}
		r.sink.Log(fmt.Sprintf("backing up %s from %s", e.Name, e.SourcePath))

		cr, err := engine.CopyTree(e.SourcePath, filepath.Join(stageDir, filepath.FromSlash(e.RelBackupPath)), engine.Policy{
			MaxFileBytes: r.limitFor(opts, e),
			TotalBytes:   total,
			DoneBytes:    done,
		}, r.sink, run)
		if err != nil {
			return res, err
		}

		res.FilesCopied += cr.FilesCopied
		res.BytesCopied += cr.BytesCopied
		res.Skipped = append(res.Skipped, cr.Skipped...)
		res.Errors = append(res.Errors, cr.Errors...)
		done += cr.BytesCopied
	}
	res.Canceled = run.Canceled()

	if opts.ProgramsListing != nil {
		if err := fileutil.AtomicWriteFile(filepath.Join(stageDir, ProgramsFileName), opts.ProgramsListing, 0o644); err != nil {
			return res, errors.Wrap(err, "writing programs listing")
		}
	}

	limitBytes := int64(0)
	if opts.LimitDownloads {
		limitBytes = DownloadLimitBytes
	}
	m := manifest.Build(createdAt, opts.Username, mode, limitBytes, opts.ProgramsListing != nil, opts.Entries)
	if err := m.Write(filepath.Join(stageDir, manifest.FileName(mode, createdAt))); err != nil {
		return res, err
	}

	if !opts.Compress && opts.PayloadPath != "" {
		if err := r.embedPayload(stageDir, opts.PayloadPath); err != nil {
			return res, err
		}
	}

	if res.Canceled || !opts.Compress {
		return res, nil
	}

	zipPath := stageDir + ".zip"
	r.sink.Log("compressing backup to " + zipPath)
	if err := archive.Create(stageDir, zipPath); err != nil {
		r.sink.Log("archive failed, uncompressed backup kept at " + stageDir)
		return res, err
	}
	if err := os.RemoveAll(stageDir); err != nil {
		return res, errors.Wrapf(err, "removing staging tree %s", stageDir)
	}
	res.Path = zipPath
	return res, nil
}

// estimate totals the bytes a run will copy, honoring per-entry limits.
func (r *Runner) estimate(opts Options) int64 {
	var total int64
	for _, e := range opts.Entries {
		total += engine.TreeSize(e.SourcePath, engine.Policy{MaxFileBytes: r.limitFor(opts, e)})
	}
	return total
}

func (r *Runner) limitFor(opts Options, e catalog.Entry) int64 {
	if opts.LimitDownloads && e.Kind == catalog.KindDownloads {
		return DownloadLimitBytes
	}
	return 0
}

// checkSpace aborts before anything is written when the destination volume
// cannot hold the backup. A compressed run briefly needs the staging tree
// and the archive side by side, so it requires room for both.
func (r *Runner) checkSpace(opts Options, total int64) error {
	free, err := r.diskFree(opts.DestRoot)
	if err != nil {
		// No probe, no veto. The copy will surface real failures.
		return nil
	}
	need := uint64(total)
	if opts.Compress {
		need *= 2
	}
	if need > free {
		return errors.Wrapf(ErrInsufficientSpace,
			"need %s, %s available", engine.FormatBytes(int64(need)), engine.FormatBytes(int64(free)))
	}
	return nil
}

// embedPayload copies the restore helper to the backup root under its own
// base name.
func (r *Runner) embedPayload(stageDir, payloadPath string) error {
	data, err := os.ReadFile(payloadPath)
	if err != nil {
		return errors.Wrap(err, "reading restore helper")
	}
	target := filepath.Join(stageDir, filepath.Base(payloadPath))
	if err := fileutil.AtomicWriteFile(target, data, 0o755); err != nil {
		return errors.Wrap(err, "embedding restore helper")
	}
	return nil
}

func checkUniqueRelPaths(entries []catalog.Entry) error {
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		key := strings.ToLower(e.RelBackupPath)
		if prev, ok := seen[key]; ok {
			return errors.Wrapf(catalog.ErrDuplicateEntry,
				"%s and %s both map to %q", prev, e.SourcePath, e.RelBackupPath)
		}
		seen[key] = e.SourcePath
	}
	return nil
}
