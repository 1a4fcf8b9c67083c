// ABOUTME: Operator-facing status lines for the farming session
// ABOUTME: Suppresses repeated playing-status lines; notices are always written

package services

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/steam-hour-farmer/models"
	"github.com/markalston/steam-hour-farmer/styles"
)

// Notifier writes human-readable lines to the operator console.
type Notifier struct {
	out  io.Writer
	last string
}

// NewNotifier creates a notifier writing to out.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

// Status writes the status line for p unless it is the same line that
// was written last. Returns whether a line was written.
func (n *Notifier) Status(p models.PlayingStatus) bool {
	line := p.Notice()
	if line == "" || line == n.last {
		return false
	}
	n.last = line
	slog.Debug("Playing status changed", "status", p.String())
	n.write(styles.ForStatus(p), line)
	return true
}

// Info writes an informational notice.
func (n *Notifier) Info(format string, args ...any) {
	n.write(styles.Subtitle, fmt.Sprintf(format, args...))
}

// Warn writes a notice about a recoverable interruption.
func (n *Notifier) Warn(format string, args ...any) {
	n.write(styles.StatusWarning, fmt.Sprintf(format, args...))
}

// Error writes a notice about an unrecoverable failure.
func (n *Notifier) Error(format string, args ...any) {
	n.write(styles.StatusCritical, fmt.Sprintf(format, args...))
}

func (n *Notifier) write(style lipgloss.Style, line string) {
	fmt.Fprintln(n.out, style.Render(line))
}
