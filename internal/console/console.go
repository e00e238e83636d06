// Package console renders received records as single styled lines for the
// reference listener's terminal output.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clawdgotchi/hookbridge/internal/event"
)

// Status colors.
var (
	ColorStarted          = lipgloss.Color("#7c3aed")
	ColorEnded            = lipgloss.Color("#374151")
	ColorRunningTool      = lipgloss.Color("#d97706")
	ColorToolComplete     = lipgloss.Color("#16a34a")
	ColorProcessing       = lipgloss.Color("#2563eb")
	ColorIdle             = lipgloss.Color("#4b5563")
	ColorSubagentComplete = lipgloss.Color("#06b6d4")
	ColorDefault          = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorDimmed = lipgloss.Color("#6b7280")
	ColorBright = lipgloss.Color("#f9fafb")
)

var (
	DimStyle   = lipgloss.NewStyle().Foreground(ColorDimmed)
	EventStyle = lipgloss.NewStyle().Foreground(ColorBright).Bold(true)
	ToolStyle  = lipgloss.NewStyle().Foreground(ColorRunningTool)
)

// statusWidth fits the longest status name.
const statusWidth = len("subagent_complete")

// sessionWidth is how much of a session id is shown.
const sessionWidth = 8

func StatusColor(s event.Status) lipgloss.Color {
	switch s {
	case event.StatusStarted:
		return ColorStarted
	case event.StatusEnded:
		return ColorEnded
	case event.StatusRunningTool:
		return ColorRunningTool
	case event.StatusToolComplete:
		return ColorToolComplete
	case event.StatusProcessing:
		return ColorProcessing
	case event.StatusIdle:
		return ColorIdle
	case event.StatusSubagentComplete:
		return ColorSubagentComplete
	default:
		return ColorDefault
	}
}

// StatusBadge returns the padded, colored status name.
func StatusBadge(s event.Status) string {
	return statusBadge(s, s.String())
}

func statusBadge(s event.Status, name string) string {
	return lipgloss.NewStyle().
		Foreground(StatusColor(s)).
		Bold(true).
		Width(statusWidth).
		Render(name)
}

// Format renders rec as one line:
//
//	<status> <event> [<tool>] <session> pid=<pid> tty=<tty> <cwd>
func Format(rec event.Record) string {
	parts := []string{statusBadge(rec.Status, rec.StatusName()), EventStyle.Render(rec.Event)}
	if rec.HasTool() && rec.Tool != "" {
		parts = append(parts, ToolStyle.Render(rec.Tool))
	}
	parts = append(parts,
		DimStyle.Render(shortSession(rec.SessionID)),
		DimStyle.Render(fmt.Sprintf("pid=%d", rec.PID)),
		DimStyle.Render("tty="+ttyLabel(rec.TTY)),
	)
	if rec.Cwd != "" {
		parts = append(parts, rec.Cwd)
	}
	return strings.Join(parts, " ")
}

func shortSession(id string) string {
	if len(id) <= sessionWidth {
		return id
	}
	return id[:sessionWidth]
}

func ttyLabel(tty string) string {
	if tty == "" {
		return "-"
	}
	return strings.TrimPrefix(tty, "/dev/")
}
