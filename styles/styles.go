// ABOUTME: Shared lipgloss styles for console status lines
// ABOUTME: Maps playing status and notice severity to colors

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/steam-hour-farmer/models"
)

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted)

	// Status indicators
	StatusOK = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusCritical = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)
)

// ForStatus returns the style used for a playing status line.
func ForStatus(p models.PlayingStatus) lipgloss.Style {
	switch p {
	case models.Farming:
		return StatusOK
	case models.PausedByOtherSession:
		return StatusWarning
	default:
		return Subtitle
	}
}
