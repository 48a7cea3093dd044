package clipboard_test

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aleksclark/editorbind/internal/clipboard"
	"github.com/stretchr/testify/require"
)

// TestPrimaryRoundTrip needs an X11 session with xsel or xclip.
func TestPrimaryRoundTrip(t *testing.T) {
	if os.Getenv("DISPLAY") == "" || os.Getenv("WAYLAND_DISPLAY") != "" {
		t.Skip("No X11 DISPLAY set")
	}
	_, xselErr := exec.LookPath("xsel")
	_, xclipErr := exec.LookPath("xclip")
	if xselErr != nil && xclipErr != nil {
		t.Skip("Neither xsel nor xclip installed")
	}

	const content = "editor data\nsecond line"
	require.NoError(t, clipboard.WriteBoth(content))

	time.Sleep(100 * time.Millisecond)

	got, err := clipboard.ReadPrimary()
	require.NoError(t, err)
	require.Equal(t, content, got)
}
