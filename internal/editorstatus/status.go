// Package editorstatus writes the state of an editor binding to a JSON file
// so that tools outside the terminal can follow it.
package editorstatus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaVersion is the version of the status file layout.
const SchemaVersion = 1

// State is the lifecycle state of the binding.
type State string

const (
	StateLoading   State = "loading"   // Editor is being created.
	StateReady     State = "ready"     // Editor exists and is blurred.
	StateFocused   State = "focused"   // Editor has focus.
	StateDestroyed State = "destroyed" // Binding was torn down.
)

// Events counts the events the binding emitted.
type Events struct {
	Ready   int64 `json:"ready"`
	Input   int64 `json:"input"`
	Focus   int64 `json:"focus"`
	Blur    int64 `json:"blur"`
	Destroy int64 `json:"destroy"`
}

// Status is the JSON document written to the status file.
type Status struct {
	Version   int    `json:"v"`
	App       string `json:"app"`
	Binding   string `json:"binding"`
	PID       int    `json:"pid,omitempty"`
	CWD       string `json:"cwd,omitempty"`
	ValueFile string `json:"value_file,omitempty"`
	State     State  `json:"state"`
	Change    uint64 `json:"change"` // Change version of the last input event.
	Bytes     int    `json:"bytes"`  // Size of the bound value.
	Events    Events `json:"events"`
	Started   int64  `json:"started,omitempty"`
	Updated   int64  `json:"updated"`
}

// Reporter keeps the status file of one binding up to date.
type Reporter struct {
	mu       sync.Mutex
	dir      string
	name     string
	filePath string
	status   Status
	closed   bool
}

// NewReporter creates the status file for bindingID in dir. An empty dir
// returns a disabled reporter whose methods do nothing.
func NewReporter(dir, bindingID string) (*Reporter, error) {
	if dir == "" {
		return &Reporter{closed: true}, nil
	}

	if dir[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, dir[1:])
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	short := bindingID
	if len(short) > 8 {
		short = short[:8]
	}
	cwd, _ := os.Getwd()
	now := time.Now().Unix()

	r := &Reporter{
		dir:      dir,
		name:     "editorbind-" + short + ".json",
		filePath: filepath.Join(dir, "editorbind-"+short+".json"),
		status: Status{
			Version: SchemaVersion,
			App:     "editorbind",
			Binding: bindingID,
			PID:     os.Getpid(),
			CWD:     cwd,
			State:   StateLoading,
			Started: now,
			Updated: now,
		},
	}
	if err := r.write(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reporter) update(fn func(s *Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	fn(&r.status)
	r.write()
}

// SetValueFile records the file the value is synced from.
func (r *Reporter) SetValueFile(path string) {
	r.update(func(s *Status) { s.ValueFile = path })
}

// Ready marks the editor as created with bytes of data.
func (r *Reporter) Ready(bytes int) {
	r.update(func(s *Status) {
		s.State = StateReady
		s.Bytes = bytes
		s.Events.Ready++
	})
}

// Input records an input event.
func (r *Reporter) Input(change uint64, bytes int) {
	r.update(func(s *Status) {
		s.Change = change
		s.Bytes = bytes
		s.Events.Input++
	})
}

// Focus records a focus or blur event.
func (r *Reporter) Focus(focused bool) {
	r.update(func(s *Status) {
		if focused {
			s.State = StateFocused
			s.Events.Focus++
			return
		}
		s.State = StateReady
		s.Events.Blur++
	})
}

// Destroyed records the destroy event.
func (r *Reporter) Destroyed() {
	r.update(func(s *Status) {
		s.State = StateDestroyed
		s.Events.Destroy++
	})
}

// Snapshot returns a copy of the current status.
func (r *Reporter) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Close removes the status file. Later calls are no-ops.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return os.Remove(r.filePath)
}

// Enabled reports whether the reporter writes a file.
func (r *Reporter) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

// Path returns the status file path, empty when disabled.
func (r *Reporter) Path() string {
	return r.filePath
}

// write replaces the status file through a rename so readers never see a
// partial document.
func (r *Reporter) write() error {
	r.status.Updated = time.Now().Unix()

	data, err := json.Marshal(r.status)
	if err != nil {
		return err
	}
	tmp := filepath.Join(r.dir, ".tmp."+r.name)
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.filePath)
}
