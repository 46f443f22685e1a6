// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragworks-tui/internal/auth"
	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/config"
	"github.com/jeranaias/ragworks-tui/internal/dispatch"
	"github.com/jeranaias/ragworks-tui/internal/model"
	"github.com/jeranaias/ragworks-tui/internal/session"
)

// =============================================================================
// HARNESS
// =============================================================================

// fakeBackend serves the endpoints the commands call.
type fakeBackend struct {
	srv          *httptest.Server
	expired      atomic.Bool
	clearFails   atomic.Bool
	uploads      atomic.Int32
	lastUploaded atomic.Value
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-" + creds.Username})
	})
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "created"})
	})
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		if fb.expired.Load() || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token has expired"})
			return
		}
		var req struct{ Query string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, map[string]string{"response": "echo: " + req.Query})
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file part"})
			return
		}
		f.Close()
		fb.uploads.Add(1)
		fb.lastUploaded.Store(hdr.Filename)
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("DELETE /delete_uploads", func(w http.ResponseWriter, r *http.Request) {
		if fb.clearFails.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "disk full"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// setupCLI points the config directory at a temp dir holding a config
// file aimed at a fresh fake backend.
func setupCLI(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	for _, k := range []string{"RAGWORKS_BACKEND_URL", "RAGWORKS_AUTHFLOW_URL", "RAGWORKS_STORAGE_PATH", "RAGWORKS_TRACING"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	config.SetConfigDir(dir)
	t.Cleanup(func() { config.SetConfigDir("") })

	fb := newFakeBackend(t)
	cfg := fmt.Sprintf(`
[backend]
url = %q

[authflow]
url = %q

[session]
clear_on_unauthorized = true
watch = false
`, fb.srv.URL, fb.srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(cfg), 0600))

	prev := stdoutIsTTY
	stdoutIsTTY = func(*cobra.Command) bool { return false }
	t.Cleanup(func() { stdoutIsTTY = prev })
	return fb, dir
}

// run executes one command line the way Execute does.
func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func loginAs(t *testing.T, user string) {
	t.Helper()
	out, _, err := run(t, "secret\n", "login", "-u", user, "--password-stdin")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as "+user)
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"validation", &ValidationError{Field: "x", Reason: "bad"}, ExitUsageError},
		{"tty required", &TTYRequiredError{Operation: "confirm"}, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("bad file")}, ExitConfigError},
		{"config validation", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"signed out", dispatch.ErrNotAuthenticated, ExitAuthError},
		{"expired", fmt.Errorf("%w: x", dispatch.ErrSessionExpired), ExitAuthError},
		{"unauthorized", &backend.APIError{Op: "login", Status: 401, Message: "no"}, ExitAuthError},
		{"forbidden", &backend.APIError{Op: "chat", Status: 403, Message: "no"}, ExitAuthError},
		{"callback rejected", auth.ErrCallbackRejected, ExitAuthError},
		{"incomplete form", auth.ErrIncomplete, ExitAuthError},
		{"server error", &backend.APIError{Op: "chat", Status: 500, Message: "oops"}, ExitGeneralError},
		{"transport", fmt.Errorf("%w: refused", backend.ErrTransport), ExitNetworkError},
		{"bad response", fmt.Errorf("%w: decode", backend.ErrBadResponse), ExitNetworkError},
		{"deadline", context.DeadlineExceeded, ExitNetworkError},
		{"message wrapper", &messageError{msg: "shown", err: dispatch.ErrNotAuthenticated}, ExitAuthError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError_UsesUserMessages(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, fmt.Errorf("%w: 401", dispatch.ErrSessionExpired))
	assert.Contains(t, buf.String(), session.NoticeSessionExpired)

	buf.Reset()
	DisplayError(&buf, &messageError{msg: model.MessageClearFailed, err: errors.New("raw")})
	assert.Contains(t, buf.String(), model.MessageClearFailed)
	assert.NotContains(t, buf.String(), "raw")

	buf.Reset()
	DisplayError(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestRequireConfirmation(t *testing.T) {
	ok, err := RequireConfirmation(strings.NewReader(""), io.Discard, true, false, "sure?")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = RequireConfirmation(strings.NewReader("y\n"), io.Discard, false, false, "sure?")
	var tty *TTYRequiredError
	assert.ErrorAs(t, err, &tty)

	var out bytes.Buffer
	ok, err = RequireConfirmation(strings.NewReader("yes\n"), &out, false, true, "sure?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "sure? [y/N]")

	ok, err = RequireConfirmation(strings.NewReader("\n"), io.Discard, false, true, "sure?")
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// ARGUMENTS
// =============================================================================

func TestUsageErrors(t *testing.T) {
	setupCLI(t)

	_, _, err := run(t, "", "status", "extra")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = run(t, "", "upload")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = run(t, "", "login", "--no-such-flag")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ragworks version "+Version)
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func TestLogin_PasswordStdinThenStatus(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")

	out, _, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	out, _, err = run(t, "", "whoami", "--json")
	require.NoError(t, err)
	var resp struct {
		Success bool       `json:"success"`
		Data    StatusInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.SignedIn)
	assert.Equal(t, "alice", resp.Data.Identity)
	assert.NotEmpty(t, resp.Data.DeviceID)
	assert.NotEqual(t, "memory", resp.Data.Storage)
}

func TestLogin_BadPasswordShowsBackendMessage(t *testing.T) {
	setupCLI(t)

	_, _, err := run(t, "wrong\n", "login", "-u", "alice", "--password-stdin")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", errorText(err))
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	out, _, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestLogin_NoTerminalNeedsCredentials(t *testing.T) {
	setupCLI(t)

	_, _, err := run(t, "", "login")
	var v *ValidationError
	assert.ErrorAs(t, err, &v)
}

func TestRegister_DoesNotSignIn(t *testing.T) {
	setupCLI(t)

	out, _, err := run(t, "secret\n", "register", "-u", "bob", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, auth.NoticeAccountCreated)

	out, _, err = run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestLogout(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")

	out, _, err := run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	out, _, err = run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestEphemeralSessionIsNotPersisted(t *testing.T) {
	setupCLI(t)

	_, _, err := run(t, "secret\n", "--ephemeral", "login", "-u", "alice", "--password-stdin")
	require.NoError(t, err)

	out, _, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

// =============================================================================
// ASK AND CHAT
// =============================================================================

func TestAsk(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")

	out, _, err := run(t, "", "ask", "what", "is", "this?")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: what is this?")
}

func TestAsk_SignedOut(t *testing.T) {
	setupCLI(t)

	_, _, err := run(t, "", "ask", "hello")
	assert.ErrorIs(t, err, dispatch.ErrNotAuthenticated)
	assert.Equal(t, session.NoticeSignInRequired, errorText(err))
}

func TestAsk_ExpiredSessionIsCleared(t *testing.T) {
	fb, _ := setupCLI(t)
	loginAs(t, "alice")
	fb.expired.Store(true)

	_, _, err := run(t, "", "ask", "hello")
	assert.ErrorIs(t, err, dispatch.ErrSessionExpired)
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	out, _, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

// scriptedReader feeds fixed lines to the chat loop.
type scriptedReader struct {
	lines  []string
	closed bool
}

func (s *scriptedReader) ReadInput(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) Close() { s.closed = true }

func withLines(t *testing.T, lines ...string) *scriptedReader {
	t.Helper()
	r := &scriptedReader{lines: lines}
	prev := newLineReader
	newLineReader = func(*cobra.Command) lineReader { return r }
	t.Cleanup(func() { newLineReader = prev })
	return r
}

func TestChat_Loop(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")
	r := withLines(t, "hello", "", "/help", "/bogus", "/clear", "/quit", "never sent")

	out, _, err := run(t, "", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as")
	assert.Contains(t, out, "echo: hello")
	assert.Contains(t, out, "/logout")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "Conversation cleared.")
	assert.NotContains(t, out, "never sent")
	assert.True(t, r.closed)
}

func TestChat_Save(t *testing.T) {
	_, dir := setupCLI(t)
	loginAs(t, "alice")
	path := filepath.Join(dir, "out", "log.json")
	withLines(t, "/save "+path, "hello", "/save "+path, "/quit")

	out, _, err := run(t, "", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "transcript has no messages")
	assert.Contains(t, out, "Saved to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"identity": "alice"`)
	assert.Contains(t, string(data), "echo: hello")
}

func TestChat_EOFEnds(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")
	withLines(t, "hi")

	out, _, err := run(t, "", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: hi")
}

func TestChat_LogoutEnds(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")
	withLines(t, "/logout", "hi")

	out, _, err := run(t, "", "chat")
	require.NoError(t, err)
	assert.NotContains(t, out, "echo: hi")

	out, _, err = run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestChat_ExpiryEndsLoop(t *testing.T) {
	fb, _ := setupCLI(t)
	loginAs(t, "alice")
	fb.expired.Store(true)
	withLines(t, "hi", "again")

	_, _, err := run(t, "", "chat")
	assert.ErrorIs(t, err, dispatch.ErrSessionExpired)
}

func TestChat_RequiresSession(t *testing.T) {
	setupCLI(t)
	withLines(t, "hi")

	_, _, err := run(t, "", "chat")
	assert.ErrorIs(t, err, dispatch.ErrNotAuthenticated)
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0600))
	return path
}

func TestUpload(t *testing.T) {
	fb, dir := setupCLI(t)
	loginAs(t, "alice")
	path := writePDF(t, dir, "notes.pdf")

	out, _, err := run(t, "", "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, model.MessageUploaded)
	assert.Equal(t, int32(1), fb.uploads.Load())
	assert.Equal(t, "notes.pdf", fb.lastUploaded.Load())
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	fb, dir := setupCLI(t)
	loginAs(t, "alice")
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	_, _, err := run(t, "", "upload", path)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Zero(t, fb.uploads.Load())
}

func TestUpload_SignedOut(t *testing.T) {
	fb, dir := setupCLI(t)
	path := writePDF(t, dir, "notes.pdf")

	_, _, err := run(t, "", "upload", path)
	assert.ErrorIs(t, err, dispatch.ErrNotAuthenticated)
	assert.Zero(t, fb.uploads.Load())
}

func TestClearKnowledge(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")

	_, _, err := run(t, "", "clear-knowledge")
	var tty *TTYRequiredError
	require.ErrorAs(t, err, &tty)

	out, _, err := run(t, "", "clear-knowledge", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, model.MessageCleared)
}

func TestClearKnowledge_Failure(t *testing.T) {
	fb, _ := setupCLI(t)
	loginAs(t, "alice")
	fb.clearFails.Store(true)

	_, _, err := run(t, "", "clear-knowledge", "-y")
	require.Error(t, err)
	assert.Equal(t, model.MessageClearFailed, errorText(err))
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
}

// =============================================================================
// CONFIG AND DOCTOR
// =============================================================================

func TestConfig_SetGet(t *testing.T) {
	setupCLI(t)

	out, _, err := run(t, "", "config", "set", "ui.theme", "light")
	require.NoError(t, err)
	assert.Contains(t, out, "ui.theme = light")

	out, _, err = run(t, "", "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	// The existing file's other settings survive the edit.
	out, _, err = run(t, "", "config", "get", "session.watch")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestConfig_SetRejectsBadInput(t *testing.T) {
	setupCLI(t)

	_, _, err := run(t, "", "config", "set", "no.such.key", "1")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = run(t, "", "config", "set", "ui.theme", "purple")
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	out, _, err := run(t, "", "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.NotEqual(t, "purple\n", out)
}

func TestConfig_ShowAndPath(t *testing.T) {
	fb, dir := setupCLI(t)

	out, _, err := run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[backend]")
	assert.Contains(t, out, fb.srv.URL)

	out, _, err = run(t, "", "config", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)

	out, _, err = run(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml")+"\n", out)
}

func TestConfig_BackendFlagOverrides(t *testing.T) {
	setupCLI(t)

	out, _, err := run(t, "", "--backend", "https://rag.example.com", "config", "get", "backend.url")
	require.NoError(t, err)
	assert.Equal(t, "https://rag.example.com\n", out)
}

func TestDoctor(t *testing.T) {
	setupCLI(t)
	loginAs(t, "alice")

	out, _, err := run(t, "", "doctor", "--json")
	require.NoError(t, err)
	var resp struct {
		Success bool       `json:"success"`
		Data    DoctorData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Summary.Healthy)
	assert.Zero(t, resp.Data.Summary.Warned)
}

func TestDoctor_UnreachableBackendFails(t *testing.T) {
	fb, _ := setupCLI(t)
	fb.srv.Close()

	out, _, err := run(t, "", "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "Backend not reachable")
	assert.Contains(t, out, "Not signed in")
}
