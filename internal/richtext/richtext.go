// Package richtext defines the editor a binding embeds and ships a
// textarea-backed implementation of it.
//
// The binding treats the editor as an opaque collaborator: it creates one
// from a Config, reads and writes its data, listens for change, focus and
// blur notifications, and destroys it on teardown.
package richtext

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
)

var (
	ErrDestroyed = errors.New("editor is destroyed")
	ErrNoCreator = errors.New("no editor creator configured")
)

// Source tells where a data change came from.
type Source string

const (
	SourceUser Source = "user" // Typing, pasting and other input.
	SourceAPI  Source = "api"  // SetData.
)

// ChangeEvent is delivered to change listeners after the editor data
// changed. It carries no data; listeners read it with Editor.Data.
type ChangeEvent struct {
	Version uint64
	Source  Source
}

// FocusEvent is delivered to focus and blur listeners.
type FocusEvent struct {
	Focused bool
}

// DefaultMaxLines is the line cap of an editor whose Config leaves MaxLines
// unset.
const DefaultMaxLines = 10000

// Config holds the options an editor is created with.
type Config struct {
	InitialData     string `yaml:"-"`
	Placeholder     string `yaml:"placeholder"`
	ShowLineNumbers bool   `yaml:"show_line_numbers"`
	CharLimit       int    `yaml:"char_limit"`
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`

	// MaxLines caps the document's line count; zero means DefaultMaxLines.
	MaxLines int `yaml:"max_lines"`
}

// Editor is a rich-text editor instance.
type Editor interface {
	Data() string
	SetData(data string)

	ReadOnly() bool
	SetReadOnly(readOnly bool)

	// OnChange registers fn for data changes and returns a function that
	// removes it. OnFocus and OnBlur work the same way.
	OnChange(fn func(ChangeEvent)) (unsubscribe func())
	OnFocus(fn func(FocusEvent)) (unsubscribe func())
	OnBlur(fn func(FocusEvent)) (unsubscribe func())

	Focus() tea.Cmd
	Blur()
	Focused() bool

	SetSize(width, height int)
	Update(msg tea.Msg) tea.Cmd
	View() string

	// Destroy releases the editor. Every later call is inert.
	Destroy(ctx context.Context) error
}

// Creator creates editors.
type Creator interface {
	Create(ctx context.Context, cfg Config) (Editor, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(ctx context.Context, cfg Config) (Editor, error)

// Create implements Creator.
func (f CreatorFunc) Create(ctx context.Context, cfg Config) (Editor, error) {
	return f(ctx, cfg)
}
