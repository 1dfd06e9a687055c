package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/usecase/triage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(18)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

var urgencyColors = map[fault.UrgencyLevel]lipgloss.Color{
	fault.UrgencyCritical: lipgloss.Color("196"),
	fault.UrgencyHigh:     lipgloss.Color("208"),
	fault.UrgencyMedium:   lipgloss.Color("220"),
	fault.UrgencyLow:      lipgloss.Color("63"),
	fault.UrgencyInfo:     lipgloss.Color("241"),
	fault.UrgencyResolved: lipgloss.Color("42"),
}

func urgencyBadge(u fault.UrgencyLevel) string {
	if u == fault.UrgencyUnset {
		return "-"
	}
	style := lipgloss.NewStyle().Bold(true)
	if c, ok := urgencyColors[u]; ok {
		style = style.Foreground(c)
	}
	return style.Render(strings.ToUpper(string(u)))
}

// renderResult formats one processing result for a terminal.
func renderResult(title string, r triage.Result) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if !r.Success {
		b.WriteString(errorStyle.Render(r.ErrorKind))
		b.WriteString(": ")
		b.WriteString(r.Error)
		b.WriteString("\n")
		return b.String()
	}

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("urgency", urgencyBadge(r.Urgency))
	if r.Priority != "" {
		row("priority", string(r.Priority))
	}
	if r.ResponseTimeHours != nil {
		row("response time", fmt.Sprintf("%dh", *r.ResponseTimeHours))
	} else {
		row("response time", "-")
	}
	row("station wide", fmt.Sprintf("%t", r.StationWide))
	if r.TicketAction != "" {
		row("ticket", string(r.TicketAction))
	}
	if r.Ticket != nil && r.Ticket.ID != 0 {
		row("fault event id", fmt.Sprintf("%d", r.Ticket.ID))
	}

	actions := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, string(a))
	}
	if len(actions) == 0 {
		actions = append(actions, "-")
	}
	row("actions", strings.Join(actions, ", "))
	return b.String()
}

func printResult(w io.Writer, asJSON bool, title string, r triage.Result) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := io.WriteString(w, renderResult(title, r))
	return err
}
