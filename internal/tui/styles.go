package tui

import (
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

type styles struct {
	Status   lipgloss.Style
	Focused  lipgloss.Style
	Blurred  lipgloss.Style
	ReadOnly lipgloss.Style
	Muted    lipgloss.Style
	Notice   lipgloss.Style
	Error    lipgloss.Style
	Preview  lipgloss.Style
	Help     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Status:   lipgloss.NewStyle().Padding(0, 1),
		Focused:  lipgloss.NewStyle().Foreground(charmtone.Guac).Bold(true),
		Blurred:  lipgloss.NewStyle().Foreground(charmtone.Squid),
		ReadOnly: lipgloss.NewStyle().Foreground(charmtone.Zest),
		Muted:    lipgloss.NewStyle().Foreground(charmtone.Squid),
		Notice:   lipgloss.NewStyle().Foreground(charmtone.Malibu),
		Error:    lipgloss.NewStyle().Foreground(charmtone.Coral),
		Preview: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(charmtone.Squid).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Padding(0, 1),
	}
}
