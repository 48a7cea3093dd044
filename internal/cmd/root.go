// Package cmd is the editorbind command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/aleksclark/editorbind/internal/app"
	"github.com/aleksclark/editorbind/internal/config"
	"github.com/aleksclark/editorbind/internal/log"
	"github.com/aleksclark/editorbind/internal/tui"
	"github.com/aleksclark/editorbind/internal/version"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

// ErrNoTTY is returned when the terminal UI cannot start.
var ErrNoTTY = errors.New("editorbind needs an interactive terminal")

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editorbind",
		Short: "Terminal rich-text editor bound to a value",
		Long: `editorbind hosts a text editor in the terminal and keeps a value bound to it.

Changes are reported as input events once typing pauses. The value can come
from a flag, the config file or a watched file that is followed as it changes.`,
		Example: `
# Edit an empty document
editorbind

# Follow a file and report input on every change
editorbind --value-file notes.md --wait 0

# Start read-only with debug logging
editorbind --disabled --debug
  `,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Config file (default "+config.DefaultFile+" when present)")
	flags.String("value", "", "Initial editor data")
	flags.StringP("value-file", "f", "", "File whose content is bound to the editor")
	flags.Duration("wait", config.DefaultInputWait, "Quiet period before an input event, 0 emits on every change")
	flags.Bool("leading", false, "Emit the input event on the first change of a burst")
	flags.Bool("disabled", false, "Start read-only")
	flags.BoolP("debug", "d", false, "Debug logging")
	flags.String("log-file", "", "Log file, empty logs to stderr")
	flags.String("status-dir", "", "Directory for the JSON status file read by monitors")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	defer log.Close()

	if !term.IsTerminal(os.Stdin.Fd()) || !term.IsTerminal(os.Stdout.Fd()) {
		return ErrNoTTY
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	restore := quietConsole(cfg)
	program := tea.NewProgram(tui.New(a.Binding), tea.WithContext(ctx))
	go a.Subscribe(program)

	_, err = program.Run()
	restore()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		slog.Error("TUI run error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// loadConfig loads the config file and environment, then applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("value") {
		cfg.Value, _ = flags.GetString("value")
	}
	if flags.Changed("value-file") {
		cfg.ValueFile, _ = flags.GetString("value-file")
	}
	if flags.Changed("wait") {
		cfg.Input.Wait, _ = flags.GetDuration("wait")
	}
	if flags.Changed("leading") {
		cfg.Input.Leading, _ = flags.GetBool("leading")
	}
	if flags.Changed("disabled") {
		cfg.Disabled, _ = flags.GetBool("disabled")
	}
	if flags.Changed("debug") {
		cfg.Log.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("log-file") {
		cfg.Log.File, _ = flags.GetString("log-file")
	}
	if flags.Changed("status-dir") {
		cfg.Status.Dir, _ = flags.GetString("status-dir")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	if cfg.Log.File == "" {
		slog.SetDefault(log.Console(os.Stderr, cfg.Log.Debug))
		return
	}
	log.Setup(cfg.Log.File, cfg.Log.Debug)
	slog.Info("Starting editorbind", "version", version.Version, "pid", os.Getpid(), "started", time.Now().Format(time.RFC3339))
}

// quietConsole drops log records while the TUI owns the terminal, unless
// they go to a file. The returned func restores the console logger.
func quietConsole(cfg *config.Config) (restore func()) {
	if cfg.Log.File != "" {
		return func() {}
	}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.DiscardHandler))
	return func() { slog.SetDefault(prev) }
}

// Execute runs the root command.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
