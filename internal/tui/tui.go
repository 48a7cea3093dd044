// Package tui is the terminal front end: it hosts the editor binding and
// shows its state and events.
package tui

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/aleksclark/editorbind/internal/binding"
	"github.com/aleksclark/editorbind/internal/clipboard"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/editor"
	"github.com/dustin/go-humanize"
)

const (
	statusHeight = 1
	helpHeight   = 1
	fullHelpRows = 4
)

// Clipboard is the clipboard the copy and paste keys use.
type Clipboard interface {
	WriteBoth(text string) error
	ReadPrimary() (string, error)
}

// EditorCommand builds the command that opens path in an external editor.
type EditorCommand func(path string) (*exec.Cmd, error)

type (
	noticeMsg struct {
		text string
		err  error
	}

	editorFinishedMsg struct {
		path string
		err  error
	}
)

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(m *Model) { m.clipboard = c }
}

// WithEditorCommand replaces the $EDITOR launcher.
func WithEditorCommand(fn EditorCommand) Option {
	return func(m *Model) { m.editorCmd = fn }
}

// Model is the root model of the program.
type Model struct {
	binding   *binding.Model
	keys      KeyMap
	help      help.Model
	styles    styles
	clipboard Clipboard
	editorCmd EditorCommand

	width, height int
	preview       bool
	previewView   string

	counts  map[string]int
	version uint64
	size    int
	notice  string
	err     error
}

// New creates the root model around b.
func New(b *binding.Model, opts ...Option) *Model {
	m := &Model{
		binding:   b,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		styles:    defaultStyles(),
		clipboard: clipboard.New(),
		editorCmd: func(path string) (*exec.Cmd, error) {
			return editor.Command("editorbind", path)
		},
		counts: make(map[string]int),
		size:   len(b.Value()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.binding.Init()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case binding.ReadyEvent:
		m.counts["ready"]++
		m.size = len(m.data())
		m.renderPreview()
		return m, m.binding.Focus()

	case binding.InputEvent:
		m.counts["input"]++
		m.version = msg.Change.Version
		m.size = len(msg.Data)
		m.renderPreview()
		return m, nil

	case binding.FocusEvent:
		m.counts["focus"]++
		return m, nil

	case binding.BlurEvent:
		m.counts["blur"]++
		return m, nil

	case binding.DestroyEvent:
		return m, nil

	case noticeMsg:
		m.notice, m.err = msg.text, msg.err
		return m, nil

	case editorFinishedMsg:
		return m, m.handleEditorFinished(msg)

	case tea.KeyPressMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	_, cmd := m.binding.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return nil, true

	case key.Matches(msg, m.keys.ToggleFocus):
		if m.binding.Focused() {
			m.binding.Blur()
			return nil, true
		}
		return m.binding.Focus(), true

	case key.Matches(msg, m.keys.ToggleReadOnly):
		m.binding.SetDisabled(!m.binding.Disabled())
		return nil, true

	case key.Matches(msg, m.keys.Preview):
		m.preview = !m.preview
		m.layout()
		m.renderPreview()
		return nil, true

	case key.Matches(msg, m.keys.Copy):
		return m.copy(), true

	case key.Matches(msg, m.keys.PastePrimary):
		if m.binding.Disabled() {
			return nil, true
		}
		return m.pastePrimary(), true

	case key.Matches(msg, m.keys.OpenEditor):
		if m.binding.Disabled() || !m.binding.Ready() {
			return nil, true
		}
		return m.openEditor(), true
	}
	return nil, false
}

func (m *Model) data() string {
	if ed := m.binding.Editor(); ed != nil {
		return ed.Data()
	}
	return m.binding.Value()
}

func (m *Model) copy() tea.Cmd {
	data, clip := m.data(), m.clipboard
	return func() tea.Msg {
		if err := clip.WriteBoth(data); err != nil {
			return noticeMsg{err: fmt.Errorf("copy failed: %w", err)}
		}
		return noticeMsg{text: "Copied " + humanize.Bytes(uint64(len(data)))}
	}
}

func (m *Model) pastePrimary() tea.Cmd {
	clip := m.clipboard
	return func() tea.Msg {
		text, err := clip.ReadPrimary()
		if err != nil {
			return noticeMsg{err: fmt.Errorf("paste failed: %w", err)}
		}
		if text == "" {
			return nil
		}
		return tea.PasteMsg{Content: text}
	}
}

func (m *Model) openEditor() tea.Cmd {
	f, err := os.CreateTemp("", "editorbind-*.md")
	if err != nil {
		return noticeCmd(fmt.Errorf("open editor: %w", err))
	}
	path := f.Name()
	_, err = f.WriteString(m.data())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return noticeCmd(fmt.Errorf("open editor: %w", err))
	}

	cmd, err := m.editorCmd(path)
	if err != nil {
		os.Remove(path)
		return noticeCmd(fmt.Errorf("open editor: %w", err))
	}
	slog.Debug("Opening external editor", "cmd", cmd.String())
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{path: path, err: err}
	})
}

func (m *Model) handleEditorFinished(msg editorFinishedMsg) tea.Cmd {
	defer os.Remove(msg.path)
	if msg.err != nil {
		return noticeCmd(fmt.Errorf("editor exited: %w", msg.err))
	}
	data, err := os.ReadFile(msg.path)
	if err != nil {
		return noticeCmd(fmt.Errorf("reading edited file: %w", err))
	}
	m.binding.SetValue(strings.TrimSuffix(string(data), "\n"))
	m.notice, m.err = "Updated from external editor", nil
	return nil
}

func noticeCmd(err error) tea.Cmd {
	return func() tea.Msg { return noticeMsg{err: err} }
}

func (m *Model) helpHeight() int {
	if m.help.ShowAll {
		return fullHelpRows
	}
	return helpHeight
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	height := max(m.height-statusHeight-m.helpHeight(), 3)
	width := m.width
	if m.preview {
		width = m.width / 2
	}
	m.binding.SetSize(width, height)
}

func (m *Model) renderPreview() {
	if !m.preview {
		m.previewView = ""
		return
	}
	frame := m.styles.Preview.GetHorizontalFrameSize()
	m.previewView = renderMarkdown(m.data(), m.width-m.width/2-frame)
}

func (m *Model) statusView() string {
	state := m.styles.Blurred.Render("○ blurred")
	if m.binding.Focused() {
		state = m.styles.Focused.Render("● focused")
	}
	parts := []string{state}
	if m.binding.Disabled() {
		parts = append(parts, m.styles.ReadOnly.Render("read-only"))
	}
	parts = append(parts,
		m.styles.Muted.Render(fmt.Sprintf("v%d", m.version)),
		m.styles.Muted.Render(humanize.Bytes(uint64(m.size))),
		m.styles.Muted.Render(fmt.Sprintf("input %d · focus %d · blur %d",
			m.counts["input"], m.counts["focus"], m.counts["blur"])),
	)
	switch {
	case m.err != nil:
		parts = append(parts, m.styles.Error.Render(m.err.Error()))
	case m.notice != "":
		parts = append(parts, m.styles.Notice.Render(m.notice))
	}

	line := strings.Join(parts, " │ ")
	if m.width > 0 {
		line = ansi.Truncate(line, max(m.width-m.styles.Status.GetHorizontalFrameSize(), 0), "…")
	}
	return m.styles.Status.Render(line)
}

func (m *Model) content() string {
	body := m.binding.View()
	if m.preview {
		width := m.width - m.width/2
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			body,
			m.styles.Preview.Width(width).Render(m.previewView),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.statusView(),
		m.styles.Help.MaxWidth(max(m.width, 1)).Render(m.help.View(m.keys)),
	)
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.content())
	v.AltScreen = true
	return v
}
