package binding

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/aleksclark/editorbind/internal/richtext"
	"github.com/stretchr/testify/require"
)

type (
	typeBurstMsg string
	teardownMsg  struct{}
)

// liveHost runs a binding inside a real program, with real timers and the
// blocking mailbox listener. It counts the binding commands currently
// running so tests can tell when none is left blocked.
type liveHost struct {
	b       *Model
	pending atomic.Int64

	readyOnce sync.Once
	ready     chan struct{}
	inputs    chan InputEvent
}

func newLiveHost(b *Model) *liveHost {
	return &liveHost{
		b:      b,
		ready:  make(chan struct{}),
		inputs: make(chan InputEvent, 16),
	}
}

func (h *liveHost) track(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		h.pending.Add(1)
		defer h.pending.Add(-1)
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for i := range batch {
				batch[i] = h.track(batch[i])
			}
		}
		return msg
	}
}

func (h *liveHost) Init() tea.Cmd {
	return h.track(h.b.Init())
}

func (h *liveHost) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReadyEvent:
		h.readyOnce.Do(func() { close(h.ready) })
		return h, h.track(h.b.Focus())
	case InputEvent:
		h.inputs <- msg
		return h, nil
	case typeBurstMsg:
		var cmds []tea.Cmd
		for _, r := range msg {
			_, cmd := h.b.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
			cmds = append(cmds, cmd)
		}
		return h, h.track(tea.Batch(cmds...))
	case teardownMsg:
		return h, tea.Batch(h.track(h.b.Destroy()), tea.Quit)
	}
	_, cmd := h.b.Update(msg)
	return h, h.track(cmd)
}

func (h *liveHost) View() tea.View {
	return tea.NewView(h.b.View())
}

func TestLiveProgramDebouncesInput(t *testing.T) {
	t.Parallel()

	const wait = 20 * time.Millisecond
	b := New(richtext.NewTextarea(), WithInputWait(wait))
	h := newLiveHost(b)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := tea.NewProgram(h,
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignals(),
	)

	errc := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errc <- err
	}()

	select {
	case <-h.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("editor never became ready")
	}

	p.Send(typeBurstMsg("hello"))

	select {
	case ev := <-h.inputs:
		require.Equal(t, b.ID(), ev.BindingID)
		require.Equal(t, "hello", ev.Data)
		require.Equal(t, uint64(5), ev.Change.Version)
		require.Equal(t, richtext.SourceUser, ev.Change.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("no input event")
	}

	// The burst produces exactly one event.
	select {
	case ev := <-h.inputs:
		t.Fatalf("unexpected second input event: %+v", ev)
	case <-time.After(5 * wait):
	}

	p.Send(teardownMsg{})
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("program did not quit")
	}

	require.False(t, b.Ready())
	require.Equal(t, "hello", b.Value())

	// The blocked mailbox listener returns once the binding is destroyed.
	require.Eventually(t, func() bool {
		return h.pending.Load() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
