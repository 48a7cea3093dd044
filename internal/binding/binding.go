// Package binding embeds a rich-text editor in a Bubble Tea program.
//
// A Model creates its editor when the host calls Init, keeps the bound value
// in sync in both directions and relays ready, input, focus, blur and
// destroy events. Input events are debounced: a burst of editor changes
// produces one event carrying the data at the end of the burst.
//
// Every event is published on the Model's typed brokers and returned from
// Update as a tea.Msg, so hosts can react inside or outside the event loop.
package binding

import (
	"context"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/aleksclark/editorbind/internal/debounce"
	"github.com/aleksclark/editorbind/internal/richtext"
	"github.com/aleksclark/editorbind/internal/tracing"
	"github.com/google/uuid"
)

// DefaultInputWait is the quiet period after which pending changes are
// emitted as an input event. Reading the data of a large document on every
// key press is too slow.
const DefaultInputWait = 300 * time.Millisecond

type state int

const (
	stateNew state = iota
	stateCreating
	stateReady
	stateFailed
	stateDestroyed
)

// Option configures a Model.
type Option func(*Model)

// WithValue sets the initial bound value.
func WithValue(value string) Option {
	return func(m *Model) { m.value = value }
}

// WithConfig sets the editor configuration.
func WithConfig(cfg richtext.Config) Option {
	return func(m *Model) { m.config = cfg }
}

// WithDisabled starts the editor in read-only mode.
func WithDisabled(disabled bool) Option {
	return func(m *Model) { m.disabled = disabled }
}

// WithInputWait sets the input quiet period. Zero emits an input event for
// every change.
func WithInputWait(wait time.Duration) Option {
	return func(m *Model) { m.wait = max(wait, 0) }
}

// WithInputLeading emits the input event on the first change of a burst and
// suppresses the rest of it.
func WithInputLeading(leading bool) Option {
	return func(m *Model) { m.leading = leading }
}

// WithID overrides the generated binding ID.
func WithID(id string) Option {
	return func(m *Model) {
		if id != "" {
			m.id = id
		}
	}
}

// Model is the editor binding component.
type Model struct {
	id      string
	creator richtext.Creator
	config  richtext.Config

	value          string
	lastEditorData string
	disabled       bool
	wait           time.Duration
	leading        bool

	state       state
	err         error
	instance    richtext.Editor
	input       *debounce.Emitter[richtext.ChangeEvent, struct{}]
	unsubscribe []func()

	width, height int
	styles        styles

	events *Events
	mail   *mailbox
	done   chan struct{}

	// Test hooks.
	debounceOpts   []debounce.Option
	nonBlockListen bool
}

// New creates a binding for editors made by creator.
func New(creator richtext.Creator, opts ...Option) *Model {
	m := &Model{
		id:      uuid.NewString(),
		creator: creator,
		wait:    DefaultInputWait,
		styles:  defaultStyles(),
		events:  newEvents(),
		mail:    newMailbox(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type (
	createdMsg struct {
		id     string
		editor richtext.Editor
		err    error
	}

	// wakeMsg tells the loop that editor callbacks posted to the mailbox.
	wakeMsg struct{ id string }

	inputDueMsg struct {
		change richtext.ChangeEvent
	}

	focusChangedMsg struct {
		focus richtext.FocusEvent
	}
)

// ID returns the binding ID carried by every event.
func (m *Model) ID() string { return m.id }

// Value returns the bound value: the initial value, the last value set by
// the host or the editor data of the last input event, whichever is newest.
func (m *Model) Value() string { return m.value }

// Disabled reports whether the editor is read-only.
func (m *Model) Disabled() bool { return m.disabled }

// Editor returns the editor instance, or nil before ready and after
// destroy.
func (m *Model) Editor() richtext.Editor { return m.instance }

// Ready reports whether the editor has been created and not destroyed.
func (m *Model) Ready() bool { return m.state == stateReady }

// Err returns the editor creation error, if any.
func (m *Model) Err() error { return m.err }

// Events returns the typed event brokers.
func (m *Model) Events() *Events { return m.events }

// Init starts creating the editor. The bound value, when set, becomes the
// editor's initial data.
func (m *Model) Init() tea.Cmd {
	if m.state != stateNew {
		return nil
	}
	m.state = stateCreating

	cfg := m.config
	if m.value != "" {
		cfg.InitialData = m.value
	} else {
		m.value = cfg.InitialData
	}
	if m.width > 0 && m.height > 0 {
		cfg.Width, cfg.Height = m.innerSize()
	}

	id, creator := m.id, m.creator
	return func() tea.Msg {
		span := tracing.StartCreate(context.Background(), id, len(cfg.InitialData))
		defer span.End()

		if creator == nil {
			span.SetError(richtext.ErrNoCreator)
			return createdMsg{id: id, err: richtext.ErrNoCreator}
		}
		editor, err := creator.Create(span.Context(), cfg)
		span.SetError(err)
		return createdMsg{id: id, editor: editor, err: err}
	}
}

// Update handles binding messages and forwards everything else to the
// editor.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case createdMsg:
		if msg.id != m.id {
			return m, nil
		}
		return m, m.handleCreated(msg)
	case wakeMsg:
		if msg.id != m.id {
			return m, nil
		}
		return m, m.handleMail()
	case SetValueMsg:
		if msg.BindingID == "" || msg.BindingID == m.id {
			m.SetValue(msg.Value)
		}
		return m, nil
	case SetDisabledMsg:
		if msg.BindingID == "" || msg.BindingID == m.id {
			m.SetDisabled(msg.Disabled)
		}
		return m, nil
	case tea.WindowSizeMsg:
		// The host decides the binding size with SetSize.
		return m, nil
	}

	if m.instance == nil {
		return m, nil
	}
	return m, m.instance.Update(msg)
}

func (m *Model) handleCreated(msg createdMsg) tea.Cmd {
	if m.state == stateDestroyed {
		// Torn down while the editor was being created.
		if msg.editor != nil {
			if err := msg.editor.Destroy(context.Background()); err != nil {
				slog.Warn("Failed to destroy late editor", "id", m.id, "error", err)
			}
		}
		return nil
	}

	if msg.err != nil {
		slog.Error("Failed to create editor", "id", m.id, "error", msg.err)
		m.err = msg.err
		m.state = stateFailed
		return nil
	}

	m.instance = msg.editor
	m.state = stateReady
	m.lastEditorData = m.instance.Data()

	m.instance.SetReadOnly(m.disabled)
	if m.width > 0 && m.height > 0 {
		m.instance.SetSize(m.innerSize())
	}

	ready := ReadyEvent{BindingID: m.id, Data: m.lastEditorData, Editor: m.instance}
	m.events.Ready.Publish(EventReady, ready)
	slog.Info("Editor ready", "id", m.id, "bytes", len(m.lastEditorData))

	m.setUpEditorEvents()

	// A value set while the editor was being created is applied now.
	if m.value != m.lastEditorData {
		m.instance.SetData(m.value)
	}

	return tea.Batch(emit(ready), m.listen())
}

func (m *Model) setUpEditorEvents() {
	opts := append([]debounce.Option{}, m.debounceOpts...)
	if m.leading {
		opts = append(opts, debounce.CallFirst())
	}

	mail := m.mail
	m.input = debounce.NewFunc(func(change richtext.ChangeEvent) {
		mail.post(inputDueMsg{change: change})
	}, m.wait, opts...)

	m.unsubscribe = append(m.unsubscribe,
		m.instance.OnChange(m.input.Func()),
		m.instance.OnFocus(func(ev richtext.FocusEvent) {
			mail.post(focusChangedMsg{focus: ev})
		}),
		m.instance.OnBlur(func(ev richtext.FocusEvent) {
			mail.post(focusChangedMsg{focus: ev})
		}),
	)
}

// listen waits for editor callbacks to post to the mailbox.
func (m *Model) listen() tea.Cmd {
	id, mail, done := m.id, m.mail, m.done
	nonBlocking := m.nonBlockListen
	return func() tea.Msg {
		if nonBlocking {
			if mail.len() == 0 {
				return nil
			}
			return wakeMsg{id: id}
		}
		select {
		case <-mail.signal:
			return wakeMsg{id: id}
		case <-done:
			return nil
		}
	}
}

func (m *Model) handleMail() tea.Cmd {
	if m.state != stateReady {
		m.mail.drain()
		return nil
	}
	return tea.Batch(m.processMail(), m.listen())
}

func (m *Model) processMail() tea.Cmd {
	var cmds []tea.Cmd
	for _, item := range m.mail.drain() {
		switch item := item.(type) {
		case inputDueMsg:
			cmds = append(cmds, m.emitInput(item.change))
		case focusChangedMsg:
			cmds = append(cmds, m.emitFocus(item.focus))
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) emitInput(change richtext.ChangeEvent) tea.Cmd {
	data := m.instance.Data()
	m.value = data
	m.lastEditorData = data

	tracing.RecordInput(context.Background(), m.id, change.Version, data)
	slog.Debug("Input emitted", "id", m.id, "version", change.Version, "bytes", len(data))

	ev := InputEvent{
		BindingID: m.id,
		Data:      data,
		Change:    change,
		Editor:    m.instance,
	}
	m.events.Input.Publish(EventInput, ev)
	return emit(ev)
}

func (m *Model) emitFocus(focus richtext.FocusEvent) tea.Cmd {
	if focus.Focused {
		ev := FocusEvent{BindingID: m.id, Focus: focus, Editor: m.instance}
		m.events.Focus.Publish(EventFocus, ev)
		return emit(ev)
	}
	ev := BlurEvent{BindingID: m.id, Focus: focus, Editor: m.instance}
	m.events.Blur.Publish(EventBlur, ev)
	return emit(ev)
}

// SetValue updates the bound value. The editor data is replaced only when
// the value differs from what the editor last reported, so values that
// came from the editor itself do not loop back into it.
func (m *Model) SetValue(value string) {
	if m.state == stateDestroyed {
		return
	}
	m.value = value
	if m.instance != nil && value != m.lastEditorData {
		m.instance.SetData(value)
	}
}

// SetDisabled toggles read-only mode.
func (m *Model) SetDisabled(disabled bool) {
	if m.state == stateDestroyed {
		return
	}
	m.disabled = disabled
	if m.instance != nil {
		m.instance.SetReadOnly(disabled)
	}
}

// Focus focuses the editor.
func (m *Model) Focus() tea.Cmd {
	if m.instance == nil {
		return nil
	}
	return m.instance.Focus()
}

// Blur removes focus from the editor.
func (m *Model) Blur() {
	if m.instance != nil {
		m.instance.Blur()
	}
}

// Focused reports whether the editor has focus.
func (m *Model) Focused() bool {
	return m.instance != nil && m.instance.Focused()
}

// SetSize sets the outer size of the binding, frame included.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	if m.instance != nil {
		m.instance.SetSize(m.innerSize())
	}
}

func (m *Model) innerSize() (int, int) {
	return max(m.width-frameWidth, 1), max(m.height-frameHeight, 1)
}

// Flush emits a pending input event now instead of waiting for the quiet
// period to end.
func (m *Model) Flush() tea.Cmd {
	if m.state != stateReady || !m.input.Flush() {
		return nil
	}
	return m.processMail()
}

// Destroy tears the binding down: pending input is dropped, listeners are
// removed, the destroy event is emitted and the editor is destroyed.
// Calling Destroy more than once is a no-op.
func (m *Model) Destroy() tea.Cmd {
	if m.state == stateDestroyed {
		return nil
	}
	m.state = stateDestroyed

	span := tracing.StartDestroy(context.Background(), m.id)
	defer span.End()

	if m.input != nil {
		m.input.Close()
	}
	for _, unsubscribe := range m.unsubscribe {
		unsubscribe()
	}
	m.unsubscribe = nil
	m.mail.drain()

	// Emitted before the editor goes away so listeners can still read it.
	ev := DestroyEvent{BindingID: m.id, Editor: m.instance}
	m.events.Destroy.Publish(EventDestroy, ev)

	if m.instance != nil {
		if err := m.instance.Destroy(span.Context()); err != nil {
			slog.Warn("Failed to destroy editor", "id", m.id, "error", err)
			span.SetError(err)
		}
		m.instance = nil
	}

	close(m.done)
	m.events.shutdown()
	slog.Info("Editor destroyed", "id", m.id)

	return emit(ev)
}

// View renders the editor inside a frame.
func (m *Model) View() string {
	switch m.state {
	case stateNew, stateCreating:
		return m.styles.Loading.Render("Loading editor...")
	case stateFailed:
		return m.styles.Error.Render("Editor failed to load: " + m.err.Error())
	case stateDestroyed:
		return ""
	}

	style := m.styles.Blurred
	switch {
	case m.disabled:
		style = m.styles.Disabled
	case m.instance.Focused():
		style = m.styles.Focused
	}
	return style.Render(m.instance.View())
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
