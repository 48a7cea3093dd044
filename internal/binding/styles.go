package binding

import (
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

const (
	frameWidth  = 2
	frameHeight = 2
)

type styles struct {
	Focused  lipgloss.Style
	Blurred  lipgloss.Style
	Disabled lipgloss.Style
	Loading  lipgloss.Style
	Error    lipgloss.Style
}

func defaultStyles() styles {
	frame := lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	return styles{
		Focused:  frame.BorderForeground(charmtone.Charple),
		Blurred:  frame.BorderForeground(charmtone.Squid),
		Disabled: frame.BorderForeground(charmtone.Smoke).Faint(true),
		Loading:  lipgloss.NewStyle().Foreground(charmtone.Squid).Italic(true),
		Error:    lipgloss.NewStyle().Foreground(charmtone.Coral),
	}
}
