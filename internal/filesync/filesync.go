// Package filesync feeds the contents of a file into a binding. Changes to
// the file are debounced and published as updates; the file itself is never
// written.
package filesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aleksclark/editorbind/internal/debounce"
	"github.com/aleksclark/editorbind/internal/pubsub"
	"github.com/fsnotify/fsnotify"
)

// DefaultWait is the quiet period after the last file event before the file
// is read. Editors often write a file in several steps.
const DefaultWait = 300 * time.Millisecond

// EventUpdated is published with every new file content.
const EventUpdated pubsub.EventType = "updated"

// ErrStarted is returned when Start is called twice.
var ErrStarted = errors.New("filesync: already started")

// Update carries the file content after a change.
type Update struct {
	Path string
	Data string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithWait sets the debounce quiet period.
func WithWait(wait time.Duration) Option {
	return func(w *Watcher) { w.wait = wait }
}

// WithDebounceOptions passes options to the underlying debouncer.
func WithDebounceOptions(opts ...debounce.Option) Option {
	return func(w *Watcher) { w.debounceOpts = append(w.debounceOpts, opts...) }
}

// Watcher publishes the content of a single file whenever it changes.
type Watcher struct {
	path         string
	wait         time.Duration
	debounceOpts []debounce.Option

	broker  *pubsub.Broker[Update]
	watcher *fsnotify.Watcher
	reload  *debounce.Emitter[struct{}, struct{}]

	mu   sync.Mutex
	last string
	read bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) *Watcher {
	w := &Watcher{
		path:   filepath.Clean(path),
		wait:   DefaultWait,
		broker: pubsub.NewBroker[Update](),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Subscribe returns a channel of updates that closes when ctx is done or the
// watcher stops.
func (w *Watcher) Subscribe(ctx context.Context) <-chan pubsub.Event[Update] {
	return w.broker.Subscribe(ctx)
}

// Read returns the current file content and remembers it, so an unchanged
// file does not produce an update later.
func (w *Watcher) Read() (string, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", w.path, err)
	}
	w.mu.Lock()
	w.last, w.read = string(data), true
	w.mu.Unlock()
	return string(data), nil
}

// Start begins watching. The parent directory is watched rather than the
// file, so files replaced by rename keep being followed.
func (w *Watcher) Start(ctx context.Context) error {
	if w.watcher != nil {
		return ErrStarted
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.watcher = watcher
	w.reload = debounce.NewFunc(func(struct{}) { w.publish() }, w.wait, w.debounceOpts...)

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.watchLoop(ctx)

	slog.Debug("Watching value file", "path", w.path)
	return nil
}

// Stop stops watching, drops a pending reload and closes all subscriptions.
func (w *Watcher) Stop() error {
	if w.watcher == nil {
		w.broker.Shutdown()
		return nil
	}
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	w.reload.Close()
	w.broker.Shutdown()
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload.Call(struct{}{})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) publish() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Warn("Failed to read value file", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	if w.read && w.last == string(data) {
		w.mu.Unlock()
		return
	}
	w.last, w.read = string(data), true
	w.mu.Unlock()

	slog.Debug("Value file changed", "path", w.path, "bytes", len(data))
	w.broker.Publish(EventUpdated, Update{Path: w.path, Data: string(data)})
}
