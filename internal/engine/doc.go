// Package engine implements the file copy machinery shared by backup and
// restore: a deterministic recursive tree copy with a size-limit policy,
// per-file error tolerance, and cooperative cancellation.
//
// A [Run] carries the live state of one operation. The worker goroutine is
// the sole writer of its counters; a controller goroutine may read them via
// [Run.Progress] and raise the cancel flag via [Run.Cancel] at any time.
// Cancellation is cooperative: the walk checks the flag before starting each
// file, lets the file in flight complete, and reports the early stop through
// [CopyResult.Canceled] rather than an error.
//
// Per-file failures (unreadable files, permission errors) never abort a
// copy. They are collected in [CopyResult.Errors] so the caller can surface
// them after the run, the same way oversized files land in
// [CopyResult.Skipped].
package engine
