// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ragworks-tui/internal/backend"
	"github.com/jeranaias/ragworks-tui/internal/export"
	"github.com/jeranaias/ragworks-tui/internal/model"
	"github.com/jeranaias/ragworks-tui/internal/session"
	"github.com/jeranaias/ragworks-tui/internal/storage"
	"github.com/jeranaias/ragworks-tui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeChatter struct {
	reply string
	err   error

	mu      sync.Mutex
	queries []string
}

func (f *fakeChatter) Chat(_ context.Context, query string) (string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.reply, f.err
}

type fakeUploader struct {
	uploadErr error
	deleteErr error

	mu       sync.Mutex
	uploaded []string
	deletes  int
}

func (f *fakeUploader) Upload(_ context.Context, filename string, r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	f.mu.Lock()
	f.uploaded = append(f.uploaded, filename)
	f.mu.Unlock()
	return f.uploadErr
}

func (f *fakeUploader) DeleteUploads(context.Context) error {
	f.mu.Lock()
	f.deletes++
	f.mu.Unlock()
	return f.deleteErr
}

type recordingNav struct {
	mu     sync.Mutex
	view   session.View
	notice string
	calls  int
}

func (r *recordingNav) Navigate(v session.View, notice string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view, r.notice = v, notice
	r.calls++
}

type harness struct {
	mgr      *session.Manager
	nav      *recordingNav
	chatter  *fakeChatter
	uploader *fakeUploader
	conv     *model.Conversation
	copied   []string
	dir      string
}

func newHarness(t *testing.T, signedIn bool) (*harness, Model) {
	t.Helper()
	h := &harness{
		nav:      &recordingNav{},
		chatter:  &fakeChatter{reply: "Here is the answer."},
		uploader: &fakeUploader{},
		dir:      t.TempDir(),
	}
	h.mgr = session.NewManager(storage.NewMemoryStore(), h.nav)
	if signedIn {
		require.NoError(t, h.mgr.Establish("tok", "alice"))
	}
	h.conv = model.NewConversation(h.mgr, h.chatter)

	m := New(Config{
		Theme:        styles.NewTheme(styles.ModeDark),
		Sessions:     h.mgr,
		Conversation: h.conv,
		Knowledge:    model.NewKnowledgeBase(h.uploader),
		Copy: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
		ExportDir: h.dir,
		Backend:   "http://rag.test",
	})
	m.SetSize(100, 40)
	return h, m
}

func plain(m Model) string {
	return ansi.Strip(m.View())
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: k})
}

// run executes cmd and feeds every non-tick result back into m.
func run(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(m, c)
		}
	case spinner.TickMsg, nil:
	default:
		var next tea.Cmd
		m, next = m.Update(msg)
		m = run(m, next)
	}
	return m
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600))
	return path
}

// =============================================================================
// EMPTY STATES
// =============================================================================

func TestView_SignedOutShowsLoginPrompt(t *testing.T) {
	_, m := newHarness(t, false)

	out := plain(m)
	assert.Contains(t, out, MessagePleaseLogin)
	assert.NotContains(t, out, MessageReadyTitle)
	assert.Contains(t, out, "ctrl+l login")
}

func TestView_SignedInShowsReadyPrompt(t *testing.T) {
	_, m := newHarness(t, true)

	out := plain(m)
	assert.Contains(t, out, MessageReadyTitle)
	assert.Contains(t, out, MessageReadyBody)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "ctrl+l logout")
	assert.Contains(t, out, model.UploadHint)
}

// =============================================================================
// CHAT
// =============================================================================

func TestSend_AppendsQueryThenReply(t *testing.T) {
	h, m := newHarness(t, true)
	m = typeText(m, "what is RAG?")

	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.Busy())
	assert.Equal(t, 1, h.conv.Transcript().Len())
	assert.Contains(t, plain(m), "what is RAG?")
	assert.Contains(t, plain(m), MessageThinking)
	assert.Empty(t, m.input.Value())

	m = run(m, cmd)

	assert.False(t, m.Busy())
	assert.Equal(t, 2, h.conv.Transcript().Len())
	assert.Contains(t, plain(m), "Here is the answer.")
	assert.Equal(t, []string{"what is RAG?"}, h.chatter.queries)
}

func TestSend_ErrorIsShownInTranscript(t *testing.T) {
	h, m := newHarness(t, true)
	h.chatter.err = &backend.APIError{Op: "chat", Status: 500, Message: "index unavailable"}

	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyEnter)
	m = run(m, cmd)

	last, ok := h.conv.Transcript().Last()
	require.True(t, ok)
	assert.True(t, last.IsError)
	assert.Contains(t, plain(m), model.ErrorPrefix+"index unavailable")
}

func TestSend_BlankQueryDoesNothing(t *testing.T) {
	h, m := newHarness(t, true)
	m = typeText(m, "   ")

	m, cmd := press(m, tea.KeyEnter)

	assert.Nil(t, cmd)
	assert.False(t, m.Busy())
	assert.Zero(t, h.conv.Transcript().Len())
}

func TestSend_SignedOutRedirects(t *testing.T) {
	h, m := newHarness(t, false)
	m = typeText(m, "hello")

	m, cmd := press(m, tea.KeyEnter)

	assert.Nil(t, cmd)
	assert.Zero(t, h.conv.Transcript().Len())
	assert.Equal(t, session.ViewAuth, h.nav.view)
	assert.Equal(t, session.NoticeSignInRequired, h.nav.notice)
	assert.Empty(t, h.chatter.queries)
	assert.Equal(t, "hello", m.input.Value())
}

func TestSend_IgnoredWhileBusy(t *testing.T) {
	h, m := newHarness(t, true)
	m = typeText(m, "one")
	m, _ = press(m, tea.KeyEnter)
	require.True(t, m.Busy())

	m = typeText(m, "two")
	_, cmd := press(m, tea.KeyEnter)

	assert.Nil(t, cmd)
	assert.Equal(t, 1, h.conv.Transcript().Len())
}

func TestCopy_LastReply(t *testing.T) {
	h, m := newHarness(t, true)
	m = typeText(m, "q")
	m, cmd := press(m, tea.KeyEnter)
	m = run(m, cmd)

	m, cmd = press(m, tea.KeyCtrlY)
	m = run(m, cmd)

	assert.Equal(t, []string{"Here is the answer."}, h.copied)
	assert.Contains(t, plain(m), MessageCopied)
}

func TestCopy_NothingToCopy(t *testing.T) {
	_, m := newHarness(t, true)

	m, cmd := press(m, tea.KeyCtrlY)

	assert.Nil(t, cmd)
	assert.Contains(t, plain(m), MessageNothingCopy)
}

func TestSave_WritesMarkdown(t *testing.T) {
	h, m := newHarness(t, true)
	m = typeText(m, "q")
	m, cmd := press(m, tea.KeyEnter)
	m = run(m, cmd)

	m, cmd = press(m, tea.KeyCtrlS)
	require.NotNil(t, cmd)
	m = run(m, cmd)

	files, err := filepath.Glob(filepath.Join(h.dir, "*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "identity: alice")
	assert.Contains(t, string(data), "Here is the answer.")
	assert.Contains(t, plain(m), MessageSavedPrefix)
}

func TestSave_EmptyTranscript(t *testing.T) {
	h, m := newHarness(t, true)

	m, cmd := press(m, tea.KeyCtrlS)
	m = run(m, cmd)

	assert.Contains(t, plain(m), export.ErrEmpty.Error())
	files, _ := filepath.Glob(filepath.Join(h.dir, "*"))
	assert.Empty(t, files)
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

func TestUpload_Success(t *testing.T) {
	h, m := newHarness(t, true)
	path := writePDF(t, "guide.pdf")

	m, _ = press(m, tea.KeyTab)
	m = typeText(m, path)
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Contains(t, plain(m), MessageUploading)

	m = run(m, cmd)

	assert.Equal(t, []string{"guide.pdf"}, h.uploader.uploaded)
	assert.Contains(t, plain(m), model.MessageUploaded)
	assert.Empty(t, m.fileInput.Value())
}

func TestUpload_BackendMessageVerbatim(t *testing.T) {
	h, m := newHarness(t, true)
	h.uploader.uploadErr = &backend.APIError{Op: "upload", Status: 413, Message: "File too large"}
	path := writePDF(t, "big.pdf")

	m, _ = press(m, tea.KeyTab)
	m = typeText(m, path)
	m, cmd := press(m, tea.KeyEnter)
	m = run(m, cmd)

	assert.Contains(t, plain(m), "File too large")
	assert.Equal(t, path, m.fileInput.Value())
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	h, m := newHarness(t, true)

	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "notes.txt")
	m, cmd := press(m, tea.KeyEnter)

	assert.Nil(t, cmd)
	assert.Contains(t, plain(m), MessageSelectFailed)
	assert.Empty(t, h.uploader.uploaded)
}

func TestUpload_SignedOutRedirects(t *testing.T) {
	h, m := newHarness(t, false)

	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "a.pdf")
	_, cmd := press(m, tea.KeyEnter)

	assert.Nil(t, cmd)
	assert.Equal(t, session.ViewAuth, h.nav.view)
}

func TestClear_RequiresConfirmation(t *testing.T) {
	h, m := newHarness(t, true)

	m, _ = press(m, tea.KeyCtrlX)
	require.True(t, m.Confirming())
	assert.Contains(t, plain(m), "(y/n)")

	m = typeText(m, "n")
	assert.False(t, m.Confirming())
	assert.Zero(t, h.uploader.deletes)
}

func TestClear_ConfirmedClears(t *testing.T) {
	h, m := newHarness(t, true)

	m, _ = press(m, tea.KeyCtrlX)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	require.NotNil(t, cmd)
	m = run(m, cmd)

	assert.Equal(t, 1, h.uploader.deletes)
	assert.Contains(t, plain(m), model.MessageCleared)
}

func TestClear_FailureMessage(t *testing.T) {
	h, m := newHarness(t, true)
	h.uploader.deleteErr = errors.New("boom")

	m, _ = press(m, tea.KeyCtrlX)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = run(m, cmd)

	assert.Contains(t, plain(m), model.MessageClearFailed)
}

// =============================================================================
// SESSION
// =============================================================================

func TestLogout_ClearsSession(t *testing.T) {
	h, m := newHarness(t, true)

	m, _ = press(m, tea.KeyCtrlL)
	m.Refresh()

	_, ok := h.mgr.CurrentCredential()
	assert.False(t, ok)
	assert.Equal(t, session.ViewAuth, h.nav.view)
	assert.Contains(t, plain(m), MessagePleaseLogin)
}

func TestLogin_KeyWhenSignedOut(t *testing.T) {
	h, m := newHarness(t, false)

	press(m, tea.KeyCtrlL)

	assert.Equal(t, session.ViewAuth, h.nav.view)
	assert.Empty(t, h.nav.notice)
}

func TestRefresh_NewIdentityResetsTranscript(t *testing.T) {
	h, m := newHarness(t, true)
	m = typeText(m, "q")
	m, cmd := press(m, tea.KeyEnter)
	m = run(m, cmd)
	require.Equal(t, 2, h.conv.Transcript().Len())

	require.NoError(t, h.mgr.Establish("tok2", "bob"))
	m.Refresh()

	assert.Zero(t, h.conv.Transcript().Len())
	assert.Contains(t, plain(m), "bob")
	assert.Contains(t, plain(m), MessageReadyTitle)
}

func TestRefresh_SameIdentityKeepsTranscript(t *testing.T) {
	h, m := newHarness(t, true)
	m = typeText(m, "q")
	m, cmd := press(m, tea.KeyEnter)
	m = run(m, cmd)

	require.NoError(t, h.mgr.Establish("tok-rotated", "alice"))
	m.Refresh()

	assert.Equal(t, 2, h.conv.Transcript().Len())
}

// =============================================================================
// LAYOUT AND HELPERS
// =============================================================================

func TestSetSize_ViewportHeight(t *testing.T) {
	_, m := newHarness(t, true)

	m.SetSize(80, 30)
	assert.Equal(t, 30-reservedLines, m.viewport.Height)

	m.SetSize(80, 5)
	assert.Equal(t, minViewportHeight, m.viewport.Height)
}

func TestViewportOptimizer(t *testing.T) {
	vo := NewViewportOptimizer()

	assert.True(t, vo.ShouldUpdate("a"))
	assert.False(t, vo.ShouldUpdate("a"))
	assert.True(t, vo.ShouldUpdate("b"))

	calls := 0
	render := func() string { calls++; return "x" }
	vo.Entry("m1", 40, render)
	vo.Entry("m1", 40, render)
	assert.Equal(t, 1, calls)
	vo.Entry("m1", 60, render)
	assert.Equal(t, 2, calls)

	hits, misses := vo.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)

	vo.Reset()
	assert.True(t, vo.ShouldUpdate("b"))
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "09:30", formatTimestamp(now.Add(-150*time.Minute), now))
	assert.Equal(t, "Tue 12:00", formatTimestamp(now.AddDate(0, 0, -3), now))
	assert.Equal(t, "Feb 1 12:00", formatTimestamp(time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC), now))
}

func TestWrapText_LinesFit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-z ]{0,200}`).Draw(t, "text")
		width := rapid.IntRange(2, 40).Draw(t, "width")

		for _, line := range strings.Split(wrapText(text, width), "\n") {
			if runewidth.StringWidth(line) > width {
				t.Fatalf("line %q wider than %d", line, width)
			}
		}
	})
}

func TestWrapText_WideRunes(t *testing.T) {
	out := wrapText("日本語のテキスト", 4)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, runewidth.StringWidth(line), 4)
	}
	assert.Equal(t, "日本語のテキスト", strings.ReplaceAll(out, "\n", ""))
}
