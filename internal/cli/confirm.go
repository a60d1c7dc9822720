// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation handling for destructive commands.
//
// One pattern for every command:
//  1. If --yes was passed, proceed without prompting
//  2. If stdin is not a TTY, require --yes (can't prompt)
//  3. Otherwise, show an interactive prompt

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions configures RequireConfirmation.
type ConfirmationOptions struct {
	// Yes indicates --yes was passed (skip the interactive prompt)
	Yes bool

	// Interactive overrides TTY detection on the input (tests, REPL)
	Interactive bool
}

// RequireConfirmation asks question on out, reading the answer from in.
//
// Returns:
//
//	bool  - true if confirmed, false if declined
//	error - non-nil if confirmation is required but cannot be asked for
func RequireConfirmation(in io.Reader, out io.Writer, question string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}

	if !opts.Interactive && !isTerminal(in) {
		return false, &UsageError{Reason: "confirmation required but stdin is not a terminal; use --yes"}
	}

	return askYesNo(bufio.NewReader(in), out, question)
}

// askYesNo prints question with a [y/N] suffix and reads one line.
func askYesNo(r *bufio.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	input, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	return isYes(input), nil
}

// isYes reports whether input is an affirmative answer.
func isYes(input string) bool {
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}
