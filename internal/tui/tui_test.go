package tui

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/aleksclark/editorbind/internal/binding"
	"github.com/aleksclark/editorbind/internal/richtext"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

type fakeClipboard struct {
	written string
	primary string
	err     error
}

func (c *fakeClipboard) WriteBoth(text string) error {
	if c.err != nil {
		return c.err
	}
	c.written = text
	return nil
}

func (c *fakeClipboard) ReadPrimary() (string, error) {
	return c.primary, c.err
}

var (
	keyQuit     = tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}
	keyHelp     = tea.KeyPressMsg{Code: 'g', Mod: tea.ModCtrl}
	keyEsc      = tea.KeyPressMsg{Code: tea.KeyEscape}
	keyReadOnly = tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl}
	keyPreview  = tea.KeyPressMsg{Code: 'p', Mod: tea.ModCtrl}
	keyCopy     = tea.KeyPressMsg{Code: 'y', Mod: tea.ModCtrl}
	keyPaste    = tea.KeyPressMsg{Code: 'v', Mod: tea.ModAlt}
	keyEditor   = tea.KeyPressMsg{Code: 'o', Mod: tea.ModCtrl}
)

// newTestModel returns a mounted, focused model. Commands that would block
// on the binding's event listener are never run.
func newTestModel(t *testing.T, value string, opts ...Option) (*Model, *binding.Model) {
	t.Helper()

	b := binding.New(richtext.NewTextarea(), binding.WithValue(value))
	t.Cleanup(func() { b.Destroy() })

	m := New(b, opts...)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(m.Init()())
	require.True(t, b.Ready())

	m.Update(binding.ReadyEvent{BindingID: b.ID(), Editor: b.Editor()})
	require.True(t, b.Focused())
	return m, b
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func screen(m *Model) string {
	return ansi.Strip(m.content())
}

func TestStatusBar(t *testing.T) {
	t.Parallel()

	m, b := newTestModel(t, "")
	m.Update(binding.InputEvent{BindingID: b.ID(), Data: "hello", Change: richtext.ChangeEvent{Version: 4}})
	m.Update(binding.FocusEvent{BindingID: b.ID()})
	m.Update(binding.BlurEvent{BindingID: b.ID()})
	m.Update(binding.BlurEvent{BindingID: b.ID()})

	view := screen(m)
	require.Contains(t, view, "● focused")
	require.Contains(t, view, "v4")
	require.Contains(t, view, "5 B")
	require.Contains(t, view, "input 1 · focus 1 · blur 2")
}

func TestKeysReachEditor(t *testing.T) {
	t.Parallel()

	m, b := newTestModel(t, "")
	typeText(m, "hi")
	require.Equal(t, "hi", b.Editor().Data())

	m.Update(keyEsc)
	require.False(t, b.Focused())
	require.Contains(t, screen(m), "○ blurred")

	typeText(m, "ignored")
	require.Equal(t, "hi", b.Editor().Data())

	m.Update(keyEsc)
	require.True(t, b.Focused())
}

func TestToggleReadOnly(t *testing.T) {
	t.Parallel()

	m, b := newTestModel(t, "fixed")
	m.Update(keyReadOnly)
	require.True(t, b.Disabled())
	require.Contains(t, screen(m), "read-only")

	typeText(m, "x")
	require.Equal(t, "fixed", b.Editor().Data())

	m.Update(keyReadOnly)
	require.False(t, b.Disabled())
	require.NotContains(t, screen(m), "read-only")
}

func TestCopy(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{}
	m, _ := newTestModel(t, "", WithClipboard(clip))
	typeText(m, "hi")

	_, cmd := m.Update(keyCopy)
	require.NotNil(t, cmd)
	m.Update(cmd())

	require.Equal(t, "hi", clip.written)
	require.Contains(t, screen(m), "Copied 2 B")
}

func TestCopyError(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{err: errors.New("no display")}
	m, _ := newTestModel(t, "data", WithClipboard(clip))

	_, cmd := m.Update(keyCopy)
	m.Update(cmd())
	require.Contains(t, screen(m), "copy failed: no display")
}

func TestPastePrimary(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{primary: "pasted"}
	m, b := newTestModel(t, "", WithClipboard(clip))

	_, cmd := m.Update(keyPaste)
	require.NotNil(t, cmd)
	msg := cmd()
	require.Equal(t, tea.PasteMsg{Content: "pasted"}, msg)

	m.Update(msg)
	require.Equal(t, "pasted", b.Editor().Data())

	m.Update(keyReadOnly)
	_, cmd = m.Update(keyPaste)
	require.Nil(t, cmd)
}

func TestPastePrimaryEmpty(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, "", WithClipboard(&fakeClipboard{}))
	_, cmd := m.Update(keyPaste)
	require.Nil(t, cmd())
}

func TestOpenEditor(t *testing.T) {
	t.Parallel()

	var opened string
	m, _ := newTestModel(t, "draft", WithEditorCommand(func(path string) (*exec.Cmd, error) {
		opened = path
		return exec.Command("true"), nil
	}))
	t.Cleanup(func() { os.Remove(opened) })

	_, cmd := m.Update(keyEditor)
	require.NotNil(t, cmd)
	data, err := os.ReadFile(opened)
	require.NoError(t, err)
	require.Equal(t, "draft", string(data))
}

func TestOpenEditorFailure(t *testing.T) {
	t.Parallel()

	var opened string
	m, _ := newTestModel(t, "draft", WithEditorCommand(func(path string) (*exec.Cmd, error) {
		opened = path
		return nil, errors.New("no editor")
	}))

	_, cmd := m.Update(keyEditor)
	m.Update(cmd())
	require.Contains(t, screen(m), "open editor: no editor")
	require.NoFileExists(t, opened)
}

func TestEditorFinished(t *testing.T) {
	t.Parallel()

	m, b := newTestModel(t, "before")
	path := filepath.Join(t.TempDir(), "edit.md")
	require.NoError(t, os.WriteFile(path, []byte("after\n"), 0o644))

	m.Update(editorFinishedMsg{path: path})
	require.Equal(t, "after", b.Editor().Data())
	require.Equal(t, "after", b.Value())
	require.Contains(t, screen(m), "Updated from external editor")
	require.NoFileExists(t, path)
}

func TestEditorFinishedWithError(t *testing.T) {
	t.Parallel()

	m, b := newTestModel(t, "before")
	path := filepath.Join(t.TempDir(), "edit.md")
	require.NoError(t, os.WriteFile(path, []byte("after"), 0o644))

	_, cmd := m.Update(editorFinishedMsg{path: path, err: errors.New("exit status 1")})
	m.Update(cmd())
	require.Equal(t, "before", b.Editor().Data())
	require.Contains(t, screen(m), "editor exited: exit status 1")
}

func TestPreview(t *testing.T) {
	t.Parallel()

	m, b := newTestModel(t, "# Title\n\nSome *text*.")
	require.NotContains(t, screen(m), "Some text.")

	m.Update(keyPreview)
	require.Contains(t, screen(m), "Title")
	require.Contains(t, screen(m), "Some text.")

	b.SetValue("# Changed")
	m.Update(binding.InputEvent{BindingID: b.ID(), Data: "# Changed"})
	require.Contains(t, screen(m), "Changed")

	m.Update(keyPreview)
	require.Empty(t, m.previewView)
}

func TestHelp(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, "")
	require.NotContains(t, screen(m), "open $EDITOR")

	m.Update(keyHelp)
	require.Contains(t, screen(m), "open $EDITOR")
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, "")
	_, cmd := m.Update(keyQuit)
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestLoadingView(t *testing.T) {
	t.Parallel()

	b := binding.New(richtext.NewTextarea())
	t.Cleanup(func() { b.Destroy() })
	m := New(b)
	require.Contains(t, screen(m), "Loading editor...")
	require.True(t, m.View().AltScreen)
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	require.Empty(t, renderMarkdown("  \n", 40))
	require.Contains(t, ansi.Strip(renderMarkdown("**bold** words", 40)), "bold words")
}
