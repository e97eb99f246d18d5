// Package main is the entry point for the winback CLI.
package main

import (
	"fmt"
	"os"

	"github.com/glitch-codes/winback/cmd/winback/commands"
	"github.com/glitch-codes/winback/internal/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code := errors.ExitSystem
		var exitErr *errors.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.Code
			if exitErr.Suggestion != "" {
				fmt.Fprintln(os.Stderr, exitErr.Suggestion)
			}
		}
		os.Exit(code)
	}
}
