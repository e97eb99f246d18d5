package restore

import (
	"fmt"

	"github.com/glitch-codes/winback/internal/engine"
)

// Result summarizes one restore execution.
type Result struct {
	ItemsRestored int
	FilesRestored int64
	BytesRestored int64

	// SkippedItems are plan items whose folders were missing from the
	// backup.
	SkippedItems []string

	// Errors collects per-file failures across all items. They never
	// abort the restore.
	Errors []engine.FileError

	// Canceled is set when the run's cancel flag stopped the restore
	// early. What was already restored stays in place.
	Canceled bool
}

// Execute carries out a plan item by item. Per-file failures accumulate in
// the result; a missing backup folder skips that item with a log line; the
// cancel flag is honored between and within items. The only fatal errors
// are destination roots that cannot be created.
func Execute(src Source, plan *Plan, sink engine.ProgressSink, run *engine.Run) (*Result, error) {
	if sink == nil {
		sink = engine.NopSink{}
	}
	if run == nil {
		run = engine.NewRun()
	}

	var total int64
	for _, item := range plan.Items {
		if src.HasDir(item.BackupPath) {
			total += src.TreeSize(item.BackupPath)
		}
	}

	res := &Result{}
	var done int64
	for _, item := range plan.Items {
		if run.Canceled() {
			break
		}

		if !src.HasDir(item.BackupPath) {
			res.SkippedItems = append(res.SkippedItems, item.Name)
			sink.Log(fmt.Sprintf("skipping %s, not found in backup", item.Name))
			continue
		}

		sink.Log(fmt.Sprintf("restoring %s to %s", item.Name, item.DestPath))

		cr, err := src.CopyTree(item.BackupPath, item.DestPath, engine.Policy{
			TotalBytes: total,
			DoneBytes:  done,
		}, sink, run)
		if err != nil {
			return res, err
		}

		res.ItemsRestored++
		res.FilesRestored += cr.FilesCopied
		res.BytesRestored += cr.BytesCopied
		res.Errors = append(res.Errors, cr.Errors...)
		done += cr.BytesCopied
	}

	res.Canceled = run.Canceled()
	return res, nil
}
