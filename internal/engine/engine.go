package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/glitch-codes/winback/internal/errors"
)

// Policy controls what the copy engine does with individual files.
type Policy struct {
	// MaxFileBytes, when positive, causes files larger than this to be
	// skipped entirely. Oversized files are never truncated or partially
	// copied; they are recorded in the result's skip list instead.
	MaxFileBytes int64

	// TotalBytes optionally carries a precomputed total (from TreeSize)
	// so CopyTree does not rescan the source. Zero means compute it.
	TotalBytes int64

	// DoneBytes offsets the progress reported to the sink, so that a
	// caller copying several trees in sequence can report one cumulative
	// position across all of them.
	DoneBytes int64
}

// SkippedFile records a file excluded by policy.
type SkippedFile struct {
	Path string
	Size int64
}

// FileError records a single file or directory that failed during a copy.
// Per-file failures never abort the walk; they accumulate here.
type FileError struct {
	Path string
	Err  error
}

// CopyResult summarizes one CopyTree call.
type CopyResult struct {
	FilesCopied int64
	BytesCopied int64
	Skipped     []SkippedFile
	Errors      []FileError

	// Canceled is set when the walk stopped early because the run's
	// cancel flag was raised. Cancellation is a normal outcome, not an
	// error: whatever was copied before the flag stays in place.
	Canceled bool
}

// TreeSize walks src and returns the total size in bytes of the regular
// files a copy under the given policy would actually transfer. Files over
// the policy limit are excluded, matching what CopyTree will do. Unreadable
// directories contribute nothing; the copy itself reports them.
func TreeSize(src string, policy Policy) int64 {
	var total int64
	filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if policy.MaxFileBytes > 0 && info.Size() > policy.MaxFileBytes {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// CopyTree mirrors the directory tree at src into dst.
//
// The walk is depth-first over sorted directory entries, so the copy order
// is deterministic for a given tree. Individual file failures are recorded
// in the result and the walk continues; the only fatal error is failing to
// create the destination root. Before each file the run's cancel flag is
// checked: once raised, no new file starts, the file in flight finishes
// normally, and nothing already written is rolled back.
func CopyTree(src, dst string, policy Policy, sink ProgressSink, run *Run) (CopyResult, error) {
	if sink == nil {
		sink = NopSink{}
	}
	if run == nil {
		run = NewRun()
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return CopyResult{}, errors.Wrapf(err, "creating destination %s", dst)
	}

	total := policy.TotalBytes
	if total == 0 {
		total = policy.DoneBytes + TreeSize(src, policy)
	}

	w := &walker{
		policy: policy,
		sink:   sink,
		run:    run,
		total:  total,
		done:   policy.DoneBytes,
	}
	w.dir(src, dst)

	w.result.Canceled = run.Canceled()
	return w.result, nil
}

type walker struct {
	policy Policy
	sink   ProgressSink
	run    *Run
	total  int64
	done   int64
	result CopyResult
}

// fail records a non-fatal failure and keeps walking.
func (w *walker) fail(path string, err error) {
	w.result.Errors = append(w.result.Errors, FileError{Path: path, Err: err})
	w.run.AddError()
	w.sink.Log(fmt.Sprintf("warning: %s: %v", path, err))
}

func (w *walker) dir(src, dst string) {
	dirEntries, err := os.ReadDir(src)
	if err != nil {
		w.fail(src, err)
		return
	}

	for _, de := range dirEntries {
		if w.run.Canceled() {
			return
		}

		s := filepath.Join(src, de.Name())
		d := filepath.Join(dst, de.Name())

		if de.IsDir() {
			if err := os.MkdirAll(d, 0o755); err != nil {
				w.fail(s, err)
				continue
			}
			w.dir(s, d)
			continue
		}
		if !de.Type().IsRegular() {
			// Symlinks, devices and the like are not profile data.
			continue
		}

		info, err := de.Info()
		if err != nil {
			w.fail(s, err)
			continue
		}

		if w.policy.MaxFileBytes > 0 && info.Size() > w.policy.MaxFileBytes {
			w.result.Skipped = append(w.result.Skipped, SkippedFile{Path: s, Size: info.Size()})
			w.run.AddSkipped()
			w.sink.Log(fmt.Sprintf("skipping %s (%s exceeds limit)", s, FormatBytes(info.Size())))
			continue
		}

		n, err := copyFile(s, d)
		if err != nil {
			w.fail(s, err)
			continue
		}

		w.result.FilesCopied++
		w.result.BytesCopied += n
		w.done += n
		w.run.AddFile(n)
		w.sink.Progress(w.done, w.total, s)
	}
}

// copyFile copies one regular file. A failure mid-copy leaves the partial
// destination file in place; callers treat the whole copy as best-effort.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	return n, nil
}
