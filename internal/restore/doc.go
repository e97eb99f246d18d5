// Package restore plans and executes the return trip: putting a backup's
// folders back onto a machine, possibly a different machine under a
// different username than the one the backup was taken from.
//
// Planning and execution are separate steps. [Planner.Plan] only reads the
// backup and decides destinations, so a caller can show the plan before
// anything is written. [Execute] then materializes it with the copy
// engine's semantics.
//
// The [Source] abstraction hides whether the backup is an uncompressed
// directory or a zip archive; [Open] auto-detects. Destinations come from
// the backup's metadata manifest when it parses. When it is missing or
// unreadable the planner logs a warning and downgrades to folder-name
// heuristics rather than failing, because the backed-up files themselves
// are intact either way.
package restore
