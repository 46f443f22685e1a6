// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
//  1. --yes proceeds without prompting
//  2. a non-TTY stdin requires --yes
//  3. otherwise the user is asked [y/N]

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RequireConfirmation asks before a destructive action. question is shown
// verbatim followed by [y/N].
func RequireConfirmation(in io.Reader, out io.Writer, yes, interactive bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	if !interactive {
		return false, &TTYRequiredError{Operation: "confirm; pass --yes"}
	}

	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes", nil
}
