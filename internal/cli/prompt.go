// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

// errPromptAborted is returned when the user presses ctrl+c at a prompt.
var errPromptAborted = errors.New("cancelled")

// credentials collects a username and password for login and register.
//
// The username comes from --username or an interactive prompt. The
// password is read from the first line of stdin with --password-stdin,
// otherwise from a hidden prompt. Without a terminal both must be given
// on the command line or stdin.
func credentials(cmd *cobra.Command, username string, passwordStdin bool) (string, string, error) {
	interactive := stdinIsTTY(cmd)

	var password string
	if passwordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
		// stdin is used up; only --username can supply the name now.
		interactive = false
	}

	if username == "" || password == "" {
		if !interactive {
			return "", "", &ValidationError{
				Field:   "credentials",
				Reason:  "username and password are required",
				Example: cmd.CommandPath() + " --username alice --password-stdin < password.txt",
			}
		}
		line := liner.NewLiner()
		line.SetCtrlCAborts(true)
		defer line.Close()

		if username == "" {
			u, err := line.Prompt("Username: ")
			if err != nil {
				return "", "", promptErr(err)
			}
			username = u
		}
		if password == "" {
			p, err := line.PasswordPrompt("Password: ")
			if err != nil {
				return "", "", promptErr(err)
			}
			password = p
		}
	}
	return username, password, nil
}

func promptErr(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return errPromptAborted
	}
	return err
}
