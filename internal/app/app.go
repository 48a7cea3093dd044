// Package app wires the editor binding to its value sources and manages the
// application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/aleksclark/editorbind/internal/binding"
	"github.com/aleksclark/editorbind/internal/config"
	"github.com/aleksclark/editorbind/internal/editorstatus"
	"github.com/aleksclark/editorbind/internal/filesync"
	"github.com/aleksclark/editorbind/internal/log"
	"github.com/aleksclark/editorbind/internal/pubsub"
	"github.com/aleksclark/editorbind/internal/richtext"
	"github.com/aleksclark/editorbind/internal/tracing"
	"github.com/aleksclark/editorbind/internal/version"
	"golang.org/x/sync/errgroup"
)

// Sender receives messages from outside the event loop. *tea.Program
// implements it.
type Sender interface {
	Send(msg tea.Msg)
	Quit()
}

type App struct {
	Binding *binding.Model
	Files   *filesync.Watcher
	Status  *editorstatus.Reporter

	config *config.Config

	serviceEvents *errgroup.Group
	events        chan tea.Msg
	tuiWG         *sync.WaitGroup

	// global context and cleanup functions
	globalCtx    context.Context
	cleanupMu    sync.Mutex
	cleanupFuncs []func() error
	closed       bool
}

// New initializes a new application instance.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		config:    cfg,
		globalCtx: ctx,
		events:    make(chan tea.Msg, 100),
		tuiWG:     &sync.WaitGroup{},
	}

	if cfg.Tracing.Endpoint != "" {
		tcfg := cfg.Tracing
		tcfg.ServiceVersion = version.Version
		if err := tracing.Init(tcfg); err != nil {
			// Non-fatal: continue without tracing.
			slog.Warn("Failed to initialize tracing", "error", err)
		} else {
			app.cleanupFuncs = append(app.cleanupFuncs, func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return tracing.Shutdown(shutdownCtx)
			})
		}
	}

	value := cfg.Value
	if cfg.ValueFile != "" {
		app.Files = filesync.New(cfg.ValueFile)
		data, err := app.Files.Read()
		switch {
		case err == nil:
			if value == "" {
				value = data
			}
		case errors.Is(err, os.ErrNotExist):
			slog.Info("Value file does not exist yet", "path", cfg.ValueFile)
		default:
			return nil, err
		}
		if err := app.Files.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to watch value file: %w", err)
		}
		app.cleanupFuncs = append(app.cleanupFuncs, app.Files.Stop)
	}

	app.Binding = binding.New(richtext.NewTextarea(),
		binding.WithValue(value),
		binding.WithConfig(cfg.Editor),
		binding.WithDisabled(cfg.Disabled),
		binding.WithInputWait(cfg.Input.Wait),
		binding.WithInputLeading(cfg.Input.Leading),
	)

	status, err := editorstatus.NewReporter(cfg.Status.Dir, app.Binding.ID())
	if err != nil {
		slog.Warn("Failed to create status file", "dir", cfg.Status.Dir, "error", err)
		status, _ = editorstatus.NewReporter("", app.Binding.ID())
	}
	status.SetValueFile(cfg.ValueFile)
	app.Status = status

	app.setupEvents()
	return app, nil
}

// Config returns the application configuration.
func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) setupEvents() {
	ctx, cancel := context.WithCancel(app.globalCtx)
	app.serviceEvents = &errgroup.Group{}

	if app.Files != nil {
		id := app.Binding.ID()
		setupSubscriber(ctx, app.serviceEvents, "filesync", app.Files.Subscribe, app.events,
			func(u filesync.Update) tea.Msg {
				return binding.SetValueMsg{BindingID: id, Value: u.Data}
			})
	}

	// Trackers end when the binding shuts its brokers down, so the status
	// file sees the destroy event before it is removed.
	var trackers errgroup.Group
	events := app.Binding.Events()
	track(ctx, &trackers, events.Ready, func(ev binding.ReadyEvent) {
		app.Status.Ready(len(ev.Data))
	})
	track(ctx, &trackers, events.Input, func(ev binding.InputEvent) {
		app.Status.Input(ev.Change.Version, len(ev.Data))
	})
	track(ctx, &trackers, events.Focus, func(binding.FocusEvent) {
		app.Status.Focus(true)
	})
	track(ctx, &trackers, events.Blur, func(binding.BlurEvent) {
		app.Status.Focus(false)
	})
	track(ctx, &trackers, events.Destroy, func(binding.DestroyEvent) {
		app.Status.Destroyed()
	})

	app.cleanupFuncs = append(app.cleanupFuncs, func() error {
		cancel()
		return app.serviceEvents.Wait()
	}, func() error {
		_ = trackers.Wait()
		return app.Status.Close()
	})
}

// track calls fn for every event of broker until the broker shuts down or
// ctx is done.
func track[T any](ctx context.Context, g *errgroup.Group, broker *pubsub.Broker[T], fn func(T)) {
	sub := broker.Subscribe(ctx)
	g.Go(func() error {
		for event := range sub {
			fn(event.Payload)
		}
		return nil
	})
}

func setupSubscriber[T any](
	ctx context.Context,
	g *errgroup.Group,
	name string,
	subscriber func(context.Context) <-chan pubsub.Event[T],
	outputCh chan<- tea.Msg,
	toMsg func(T) tea.Msg,
) {
	g.Go(func() error {
		subCh := subscriber(ctx)
		for {
			select {
			case event, ok := <-subCh:
				if !ok {
					slog.Debug("subscription channel closed", "name", name)
					return nil
				}
				select {
				case outputCh <- toMsg(event.Payload):
				case <-time.After(2 * time.Second):
					slog.Warn("message dropped due to slow consumer", "name", name)
				case <-ctx.Done():
					slog.Debug("subscription cancelled", "name", name)
					return nil
				}
			case <-ctx.Done():
				slog.Debug("subscription cancelled", "name", name)
				return nil
			}
		}
	})
}

// Subscribe sends out-of-loop events to the TUI as tea.Msgs. It blocks until
// the app shuts down.
func (app *App) Subscribe(program Sender) {
	defer log.RecoverPanic("app.Subscribe", func() {
		slog.Info("TUI subscription panic: attempting graceful shutdown")
		program.Quit()
	})

	tuiCtx, tuiCancel := context.WithCancel(app.globalCtx)
	defer tuiCancel()

	// Registration and the closed check share the lock with Shutdown, so a
	// handler either gets cancelled by Shutdown or never starts.
	app.cleanupMu.Lock()
	if app.closed {
		app.cleanupMu.Unlock()
		slog.Debug("App already shut down, not subscribing")
		return
	}
	app.tuiWG.Add(1)
	app.cleanupFuncs = append(app.cleanupFuncs, func() error {
		slog.Debug("Cancelling TUI message handler")
		tuiCancel()
		app.tuiWG.Wait()
		return nil
	})
	app.cleanupMu.Unlock()
	defer app.tuiWG.Done()

	for {
		select {
		case <-tuiCtx.Done():
			slog.Debug("TUI message handler shutting down")
			return
		case msg, ok := <-app.events:
			if !ok {
				slog.Debug("TUI message channel closed")
				return
			}
			program.Send(msg)
		}
	}
}

// Shutdown destroys the binding and runs all cleanup functions. Only the
// first call has any effect.
func (app *App) Shutdown() {
	app.cleanupMu.Lock()
	if app.closed {
		app.cleanupMu.Unlock()
		return
	}
	app.closed = true
	cleanups := app.cleanupFuncs
	app.cleanupFuncs = nil
	app.cleanupMu.Unlock()

	start := time.Now()
	defer func() { slog.Info("Shutdown took " + time.Since(start).String()) }()

	// The binding goes first so a pending input is dropped before its
	// sources disappear.
	app.Binding.Destroy()

	var g errgroup.Group
	for _, cleanup := range cleanups {
		if cleanup == nil {
			continue
		}
		g.Go(func() error {
			if err := cleanup(); err != nil {
				slog.Error("Failed to cleanup app properly on shutdown", "error", err)
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}
