package binding

import (
	"github.com/aleksclark/editorbind/internal/pubsub"
	"github.com/aleksclark/editorbind/internal/richtext"
)

const (
	EventReady   pubsub.EventType = "ready"
	EventInput   pubsub.EventType = "input"
	EventFocus   pubsub.EventType = "focus"
	EventBlur    pubsub.EventType = "blur"
	EventDestroy pubsub.EventType = "destroy"
)

// Every event is also returned to the host as a tea.Msg. BindingID tells
// bindings living in the same program apart.
type (
	// ReadyEvent is emitted once the editor has been created. Data is the
	// initial editor data.
	ReadyEvent struct {
		BindingID string
		Data      string
		Editor    richtext.Editor
	}

	// InputEvent is emitted at the end of a burst of changes (or at its
	// start in leading mode) with the editor data at that moment.
	InputEvent struct {
		BindingID string
		Data      string
		Change    richtext.ChangeEvent
		Editor    richtext.Editor
	}

	// FocusEvent is emitted when the editor gains focus.
	FocusEvent struct {
		BindingID string
		Focus     richtext.FocusEvent
		Editor    richtext.Editor
	}

	// BlurEvent is emitted when the editor loses focus.
	BlurEvent struct {
		BindingID string
		Focus     richtext.FocusEvent
		Editor    richtext.Editor
	}

	// DestroyEvent is emitted on teardown, before the editor is destroyed.
	// Editor is nil when the editor was never created.
	DestroyEvent struct {
		BindingID string
		Editor    richtext.Editor
	}
)

// Events holds one broker per event kind.
type Events struct {
	Ready   *pubsub.Broker[ReadyEvent]
	Input   *pubsub.Broker[InputEvent]
	Focus   *pubsub.Broker[FocusEvent]
	Blur    *pubsub.Broker[BlurEvent]
	Destroy *pubsub.Broker[DestroyEvent]
}

func newEvents() *Events {
	return &Events{
		Ready:   pubsub.NewBroker[ReadyEvent](),
		Input:   pubsub.NewBroker[InputEvent](),
		Focus:   pubsub.NewBroker[FocusEvent](),
		Blur:    pubsub.NewBroker[BlurEvent](),
		Destroy: pubsub.NewBroker[DestroyEvent](),
	}
}

func (e *Events) shutdown() {
	e.Ready.Shutdown()
	e.Input.Shutdown()
	e.Focus.Shutdown()
	e.Blur.Shutdown()
	e.Destroy.Shutdown()
}

// SetValueMsg replaces the bound value from outside the event loop, for
// example from a file watcher. An empty BindingID targets every binding.
type SetValueMsg struct {
	BindingID string
	Value     string
}

// SetDisabledMsg toggles read-only mode. An empty BindingID targets every
// binding.
type SetDisabledMsg struct {
	BindingID string
	Disabled  bool
}
