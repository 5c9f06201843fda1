// Package report renders a day's focus and break totals for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"clockko/focus/internal/model"
)

const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

var (
	colorFocus = lipgloss.Color("#E06C75")
	colorBreak = lipgloss.Color("#98C379")
	colorMuted = lipgloss.Color("#828997")

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C678DD")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3F4451")).
			Padding(0, 1)

	focusStyle = lipgloss.NewStyle().Foreground(colorFocus)
	breakStyle = lipgloss.NewStyle().Foreground(colorBreak)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

type yamlSession struct {
	ID             string `yaml:"id"`
	Kind           string `yaml:"kind"`
	Status         string `yaml:"status"`
	Started        string `yaml:"started"`
	Ended          string `yaml:"ended,omitempty"`
	PlannedMinutes int    `yaml:"planned_minutes"`
	ActualSeconds  int    `yaml:"actual_seconds"`
}

type yamlSummary struct {
	Date               string        `yaml:"date"`
	TotalFocusSessions int           `yaml:"total_focus_sessions"`
	TotalFocusSeconds  int           `yaml:"total_focus_seconds"`
	TotalBreakSeconds  int           `yaml:"total_break_seconds"`
	Sessions           []yamlSession `yaml:"sessions"`
}

// Render writes summary to w in the given format.
func Render(w io.Writer, summary *model.DailyAggregate, format string) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(toYAML(summary)); err != nil {
			return fmt.Errorf("encode yaml summary: %w", err)
		}
		return encoder.Close()
	case FormatText, "":
		_, err := io.WriteString(w, renderText(summary)+"\n")
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func toYAML(summary *model.DailyAggregate) yamlSummary {
	out := yamlSummary{
		Date:               summary.Date,
		TotalFocusSessions: summary.TotalFocusSessions,
		TotalFocusSeconds:  summary.TotalFocusSeconds,
		TotalBreakSeconds:  summary.TotalBreakSeconds,
		Sessions:           make([]yamlSession, 0, len(summary.Sessions)),
	}
	for _, session := range summary.Sessions {
		entry := yamlSession{
			ID:             session.ID,
			Kind:           string(session.Kind),
			Status:         string(session.Status),
			Started:        session.StartTime.Format(time.RFC3339),
			PlannedMinutes: session.PlannedDuration,
			ActualSeconds:  session.ActualSeconds,
		}
		if session.EndTime != nil {
			entry.Ended = session.EndTime.Format(time.RFC3339)
		}
		out.Sessions = append(out.Sessions, entry)
	}
	return out
}

func renderText(summary *model.DailyAggregate) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ClockKo · " + summary.Date))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d sessions, %s\n",
		focusStyle.Render("focus"),
		summary.TotalFocusSessions,
		FormatSeconds(summary.TotalFocusSeconds),
	)
	fmt.Fprintf(&b, "%s %s",
		breakStyle.Render("break"),
		FormatSeconds(summary.TotalBreakSeconds),
	)

	if len(summary.Sessions) == 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("no sessions"))
		return boxStyle.Render(b.String())
	}

	for _, session := range summary.Sessions {
		style := focusStyle
		if session.Kind == model.KindBreak {
			style = breakStyle
		}
		fmt.Fprintf(&b, "\n%s %s %s %s",
			mutedStyle.Render(session.StartTime.Local().Format("15:04")),
			style.Render(fmt.Sprintf("%-5s", session.Kind)),
			FormatSeconds(session.ActualSeconds),
			mutedStyle.Render(string(session.Status)),
		)
	}
	return boxStyle.Render(b.String())
}

// FormatSeconds renders a duration as 1h05m, 25m or 40s.
func FormatSeconds(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
