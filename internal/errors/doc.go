// Package errors provides error handling conventions for the winback CLI.
//
// This package re-exports the wrapping helpers from cockroachdb/errors so
// the rest of the codebase imports a single errors package, defines an
// ExitError type for CLI exit code handling, and declares the exit code
// constants following standard Unix conventions.
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, bad flags, etc.)
//   - ExitSystem (2): System-related error (I/O, permissions, disk full, etc.)
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional
// suggestion. It supports error unwrapping via [errors.Unwrap] and
// [errors.As]:
//
//	err := werrors.NewUserError(err, "run 'winback folders' to see valid names")
//	var exitErr *werrors.ExitError
//	if errors.As(err, &exitErr) {
//	    os.Exit(exitErr.Code)
//	}
//
// Domain-specific sentinel errors live next to the code that produces them
// (for example catalog.ErrInvalidPath or manifest.ErrManifestParse).
package errors
