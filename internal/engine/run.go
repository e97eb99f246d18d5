package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Run is the process-scoped state shared between a worker performing a
// backup or restore and the controller that watches it. The worker is the
// only writer of the counters; the controller only reads them and may set
// the cancellation flag. That single-writer-per-field split is the whole
// locking story: every field is an atomic, nothing else is shared.
type Run struct {
	canceled atomic.Bool

	files   atomic.Int64
	bytes   atomic.Int64
	skipped atomic.Int64
	errs    atomic.Int64
}

// NewRun creates a fresh run state.
func NewRun() *Run {
	return &Run{}
}

// Cancel requests cancellation. Safe to call from any goroutine; the worker
// observes the flag before starting each file, so the file in flight is
// allowed to finish and nothing new starts.
func (r *Run) Cancel() {
	r.canceled.Store(true)
}

// Canceled reports whether cancellation has been requested.
func (r *Run) Canceled() bool {
	return r.canceled.Load()
}

// AddFile records one successfully copied file of the given size.
func (r *Run) AddFile(bytes int64) {
	r.files.Add(1)
	r.bytes.Add(bytes)
}

// AddSkipped records one file skipped by policy.
func (r *Run) AddSkipped() {
	r.skipped.Add(1)
}

// AddError records one per-file failure.
func (r *Run) AddError() {
	r.errs.Add(1)
}

// Progress is a point-in-time snapshot of a run's counters.
type Progress struct {
	Files   int64
	Bytes   int64
	Skipped int64
	Errors  int64
}

// Progress returns a snapshot of the current counters. Counters are read
// individually, so a snapshot taken mid-file may be momentarily inconsistent
// between fields; that is fine for progress display.
func (r *Run) Progress() Progress {
	return Progress{
		Files:   r.files.Load(),
		Bytes:   r.bytes.Load(),
		Skipped: r.skipped.Load(),
		Errors:  r.errs.Load(),
	}
}

// ProgressSink receives progress and log events from a worker. Implementations
// must be safe to call from the worker goroutine while the controller runs
// concurrently; the provided implementations all are.
type ProgressSink interface {
	// Progress is called after each copied file with cumulative bytes
	// copied, the total expected bytes, and the file just finished.
	Progress(done, total int64, path string)

	// Log receives human-readable progress messages (skips, per-file
	// failures, phase changes).
	Log(msg string)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) Progress(done, total int64, path string) {}
func (NopSink) Log(msg string)                          {}

// LogSink forwards progress events to a slog.Logger: messages at Info,
// per-file progress at Debug.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Progress(done, total int64, path string) {
	s.Logger.Debug("copied", "done", done, "total", total, "path", path)
}

func (s LogSink) Log(msg string) {
	s.Logger.Info(msg)
}

// FormatBytes renders a byte count in human-readable form for log messages.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	value := float64(n)
	idx := -1
	for value >= unit && idx < len(units)-1 {
		value /= unit
		idx++
	}
	return fmt.Sprintf("%.1f %s", value, units[idx])
}
