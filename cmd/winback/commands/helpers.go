package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/glitch-codes/winback/internal/catalog"
	"github.com/glitch-codes/winback/internal/engine"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// effectiveUsername resolves the profile user a command operates on.
func effectiveUsername() string {
	if userFlag != "" {
		return userFlag
	}
	return catalog.CurrentUsername()
}

// watchInterrupt flips the run's cancel flag on Ctrl-C. The worker finishes
// the file in flight and stops; nothing already written is rolled back.
// The returned stop function releases the signal handler.
func watchInterrupt(logger *slog.Logger, run *engine.Run) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	done := make(chan struct{})

	go func() {
		select {
		case <-ch:
			logger.Warn("cancellation requested, finishing current file")
			run.Cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// printCopyIssues reports skipped files and per-file failures after a run.
func printCopyIssues(w io.Writer, skipped []engine.SkippedFile, errs []engine.FileError) {
	for _, s := range skipped {
		fmt.Fprintf(w, "%sskipped %s (%s)%s\n",
			colorYellow, s.Path, engine.FormatBytes(s.Size), colorReset)
	}
	for _, e := range errs {
		fmt.Fprintf(w, "%swarning: %s: %v%s\n", colorYellow, e.Path, e.Err, colorReset)
	}
}
