// Package clipboard copies editor data to the system clipboard and reads
// the X11 PRIMARY selection for middle-click style paste.
package clipboard

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

const commandTimeout = 2 * time.Second

// selectionTool is an external program able to read and write PRIMARY.
type selectionTool struct {
	name  string
	read  []string
	write []string
}

var primaryTools = []selectionTool{
	{name: "xsel", read: []string{"-p", "-o"}, write: []string{"-p", "-i"}},
	{name: "xclip", read: []string{"-selection", "primary", "-o"}, write: []string{"-selection", "primary", "-i"}},
}

// errNoPrimary means no PRIMARY selection tool is usable.
var errNoPrimary = errors.New("clipboard: primary selection unavailable")

// Clipboard talks to the system clipboard and, on X11, the PRIMARY
// selection.
type Clipboard struct {
	getenv   func(string) string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, stdin string, name string, args ...string) (string, error)

	readAll  func() (string, error)
	writeAll func(string) error
}

// New returns a Clipboard backed by the real system.
func New() *Clipboard {
	return &Clipboard{
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		run:      runCommand,
		readAll:  clipboard.ReadAll,
		writeAll: clipboard.WriteAll,
	}
}

func runCommand(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.Output()
	return string(out), err
}

func (c *Clipboard) x11() bool {
	return c.getenv("DISPLAY") != "" && c.getenv("WAYLAND_DISPLAY") == ""
}

func (c *Clipboard) withPrimary(fn func(ctx context.Context, tool selectionTool) error) error {
	if !c.x11() {
		return errNoPrimary
	}
	for _, tool := range primaryTools {
		if _, err := c.lookPath(tool.name); err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		err := fn(ctx, tool)
		cancel()
		if err == nil {
			return nil
		}
	}
	return errNoPrimary
}

// ReadPrimary reads the PRIMARY selection, falling back to the clipboard
// when there is no X11 session or no selection tool.
func (c *Clipboard) ReadPrimary() (string, error) {
	var text string
	err := c.withPrimary(func(ctx context.Context, tool selectionTool) error {
		out, err := c.run(ctx, "", tool.name, tool.read...)
		text = strings.TrimRight(out, "\n")
		return err
	})
	if err == nil {
		return text, nil
	}
	return c.readAll()
}

// WritePrimary writes the PRIMARY selection, falling back to the clipboard.
func (c *Clipboard) WritePrimary(text string) error {
	err := c.withPrimary(func(ctx context.Context, tool selectionTool) error {
		_, err := c.run(ctx, text, tool.name, tool.write...)
		return err
	})
	if err == nil {
		return nil
	}
	return c.writeAll(text)
}

// WriteBoth writes the clipboard and, best effort, the PRIMARY selection.
func (c *Clipboard) WriteBoth(text string) error {
	if err := c.writeAll(text); err != nil {
		return err
	}
	_ = c.WritePrimary(text)
	return nil
}

var system = New()

// ReadPrimary reads the PRIMARY selection of the system clipboard.
func ReadPrimary() (string, error) { return system.ReadPrimary() }

// WriteBoth writes text to the system clipboard and PRIMARY selection.
func WriteBoth(text string) error { return system.WriteBoth(text) }
