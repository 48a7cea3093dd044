package richtext

import (
	"cmp"
	"context"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
)

// navigation keys still reach a read-only editor.
var navigation = key.NewBinding(
	key.WithKeys(
		"up", "down", "left", "right",
		"home", "end", "pgup", "pgdown",
		"ctrl+a", "ctrl+e", "alt+left", "alt+right",
	),
)

// Textarea is a Creator for editors backed by a bubbles textarea.
type Textarea struct{}

// NewTextarea returns a Creator for textarea editors.
func NewTextarea() Textarea {
	return Textarea{}
}

// Create implements Creator.
func (Textarea) Create(ctx context.Context, cfg Config) (Editor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ta := textarea.New()
	ta.Placeholder = cfg.Placeholder
	ta.ShowLineNumbers = cfg.ShowLineNumbers
	ta.CharLimit = cfg.CharLimit
	ta.MaxHeight = cmp.Or(cfg.MaxLines, DefaultMaxLines)
	if cfg.Width > 0 {
		ta.SetWidth(cfg.Width)
	}
	if cfg.Height > 0 {
		ta.SetHeight(cfg.Height)
	}
	ta.SetValue(cfg.InitialData)

	return &textareaEditor{input: ta}, nil
}

type textareaEditor struct {
	input     textarea.Model
	readOnly  bool
	version   uint64
	destroyed bool

	change listeners[ChangeEvent]
	focus  listeners[FocusEvent]
	blur   listeners[FocusEvent]
}

func (e *textareaEditor) Data() string {
	return e.input.Value()
}

func (e *textareaEditor) SetData(data string) {
	if e.destroyed || data == e.input.Value() {
		return
	}
	e.input.SetValue(data)
	e.changed(SourceAPI)
}

func (e *textareaEditor) ReadOnly() bool {
	return e.readOnly
}

func (e *textareaEditor) SetReadOnly(readOnly bool) {
	if e.destroyed {
		return
	}
	e.readOnly = readOnly
}

func (e *textareaEditor) OnChange(fn func(ChangeEvent)) func() {
	if e.destroyed {
		return func() {}
	}
	return e.change.add(fn)
}

func (e *textareaEditor) OnFocus(fn func(FocusEvent)) func() {
	if e.destroyed {
		return func() {}
	}
	return e.focus.add(fn)
}

func (e *textareaEditor) OnBlur(fn func(FocusEvent)) func() {
	if e.destroyed {
		return func() {}
	}
	return e.blur.add(fn)
}

func (e *textareaEditor) Focus() tea.Cmd {
	if e.destroyed || e.input.Focused() {
		return nil
	}
	cmd := e.input.Focus()
	e.focus.emit(FocusEvent{Focused: true})
	return cmd
}

func (e *textareaEditor) Blur() {
	if e.destroyed || !e.input.Focused() {
		return
	}
	e.input.Blur()
	e.blur.emit(FocusEvent{Focused: false})
}

func (e *textareaEditor) Focused() bool {
	return e.input.Focused()
}

func (e *textareaEditor) SetSize(width, height int) {
	if e.destroyed {
		return
	}
	e.input.SetWidth(max(width, 1))
	e.input.SetHeight(max(height, 1))
}

func (e *textareaEditor) Update(msg tea.Msg) tea.Cmd {
	if e.destroyed {
		return nil
	}

	if e.readOnly {
		switch msg := msg.(type) {
		case tea.PasteMsg:
			return nil
		case tea.KeyPressMsg:
			if !key.Matches(msg, navigation) {
				return nil
			}
		}
	}

	before := e.input.Value()
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	if e.input.Value() != before {
		e.changed(SourceUser)
	}
	return cmd
}

func (e *textareaEditor) View() string {
	if e.destroyed {
		return ""
	}
	return e.input.View()
}

func (e *textareaEditor) Destroy(ctx context.Context) error {
	if e.destroyed {
		return ErrDestroyed
	}
	e.destroyed = true
	e.input.Blur()
	e.change.clear()
	e.focus.clear()
	e.blur.clear()
	return ctx.Err()
}

func (e *textareaEditor) changed(src Source) {
	e.version++
	e.change.emit(ChangeEvent{Version: e.version, Source: src})
}
