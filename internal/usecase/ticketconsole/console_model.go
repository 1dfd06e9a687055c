package ticketconsole

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/ports"
)

const (
	defaultRefresh = 5 * time.Second
	defaultLimit   = 50
)

// urgencyCycle is the order the "u" key walks through; the empty level means
// no filter.
var urgencyCycle = []fault.UrgencyLevel{
	fault.UrgencyUnset,
	fault.UrgencyCritical,
	fault.UrgencyHigh,
	fault.UrgencyMedium,
	fault.UrgencyLow,
	fault.UrgencyInfo,
	fault.UrgencyResolved,
}

type TicketReader interface {
	ListTickets(ctx context.Context, filter ports.TicketFilter) ([]fault.Ticket, error)
}

type Options struct {
	Source          string
	CustomerID      uint64
	OpenOnly        bool
	Limit           int
	RefreshInterval time.Duration
}

type consoleModel struct {
	ctx             context.Context
	reader          TicketReader
	filter          ports.TicketFilter
	refreshInterval time.Duration

	tickets       []fault.Ticket
	selectedIndex int
	status        string
	refreshedAt   time.Time
}

type ticketsLoadedMsg struct {
	items []fault.Ticket
	err   error
	at    time.Time
}

type tickMsg struct{}

func NewModel(ctx context.Context, reader TicketReader, options Options) tea.Model {
	limit := options.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = defaultRefresh
	}
	return &consoleModel{
		ctx:    ctx,
		reader: reader,
		filter: ports.TicketFilter{
			Source:     strings.ToLower(strings.TrimSpace(options.Source)),
			CustomerID: options.CustomerID,
			OpenOnly:   options.OpenOnly,
			Limit:      limit,
		},
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(m.loadTicketsCmd(), m.tickCmd())
}

func (m *consoleModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadTicketsCmd(), m.tickCmd())
	case ticketsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.tickets = msg.items
		m.refreshedAt = msg.at
		m.clampSelection()
		if len(m.tickets) == 0 {
			m.status = "no tickets"
		} else {
			m.status = fmt.Sprintf("%d tickets", len(m.tickets))
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadTicketsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.tickets)-1 {
				m.selectedIndex++
			}
			return m, nil
		case "o":
			m.filter.OpenOnly = !m.filter.OpenOnly
			m.status = "refreshing"
			return m, m.loadTicketsCmd()
		case "u":
			m.filter.Urgency = nextUrgency(m.filter.Urgency)
			m.status = "refreshing"
			return m, m.loadTicketsCmd()
		}
	}
	return m, nil
}

func (m *consoleModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Fault Tickets"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"source=%s customer=%s urgency=%s open=%t refresh=%s",
		firstNonEmpty(m.filter.Source, "all"),
		customerLabel(m.filter.CustomerID),
		firstNonEmpty(string(m.filter.Urgency), "all"),
		m.filter.OpenOnly,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Tickets"))
	builder.WriteString("\n")
	if len(m.tickets) == 0 {
		builder.WriteString(dimStyle.Render("- no tickets"))
		builder.WriteString("\n\n")
	} else {
		for index, t := range m.tickets {
			line := ticketLine(t)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if t, ok := m.selectedTicket(); ok {
		builder.WriteString(ticketDetail(t))
	} else {
		builder.WriteString(dimStyle.Render("- no selection"))
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	if !m.refreshedAt.IsZero() {
		builder.WriteString(dimStyle.Render(" (" + m.refreshedAt.Format(time.TimeOnly) + ")"))
	}
	builder.WriteString("\n\n")

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  o open only  u urgency  q quit"))
	return builder.String()
}

func (m *consoleModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *consoleModel) loadTicketsCmd() tea.Cmd {
	filter := m.filter
	return func() tea.Msg {
		items, err := m.reader.ListTickets(m.ctx, filter)
		return ticketsLoadedMsg{items: items, err: err, at: time.Now()}
	}
}

func (m *consoleModel) clampSelection() {
	if m.selectedIndex >= len(m.tickets) {
		m.selectedIndex = len(m.tickets) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

func (m *consoleModel) selectedTicket() (fault.Ticket, bool) {
	if len(m.tickets) == 0 || m.selectedIndex >= len(m.tickets) {
		return fault.Ticket{}, false
	}
	return m.tickets[m.selectedIndex], true
}

func nextUrgency(current fault.UrgencyLevel) fault.UrgencyLevel {
	for i, u := range urgencyCycle {
		if u == current {
			return urgencyCycle[(i+1)%len(urgencyCycle)]
		}
	}
	return fault.UrgencyUnset
}

func ticketLine(t fault.Ticket) string {
	state := "open"
	if t.Resolved() {
		state = "resolved"
	}
	sourceID := "-"
	if t.IDFromSource != nil {
		sourceID = fmt.Sprintf("%d", *t.IDFromSource)
	}
	return fmt.Sprintf(
		"#%d %s/%s [%s] %s asset=%d %s",
		t.ID,
		t.Source,
		sourceID,
		firstNonEmpty(string(t.UrgencyLevel), "-"),
		state,
		t.LocationAssetID,
		t.FaultType,
	)
}

func ticketDetail(t fault.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %d  Asset: %d\n", t.CustomerID, t.LocationAssetID)
	fmt.Fprintf(&b, "Status: %s  Fault: %s\n", t.Status, t.FaultType)
	fmt.Fprintf(&b, "Fault time: %s\n", t.FaultTime.Format(time.RFC3339))
	if t.ResolvedAt != nil {
		fmt.Fprintf(&b, "Resolved at: %s\n", t.ResolvedAt.Format(time.RFC3339))
	}
	if t.ResponseTimeHours != nil {
		fmt.Fprintf(&b, "Response time: %dh\n", *t.ResponseTimeHours)
	}
	fmt.Fprintf(&b, "Station wide: %t\n", t.StationWide)
	actions := make([]string, 0, len(t.ActionsTaken))
	for _, a := range t.ActionsTaken {
		actions = append(actions, string(a))
	}
	fmt.Fprintf(&b, "Actions: %s\n", firstNonEmpty(strings.Join(actions, ", "), "-"))
	return b.String()
}

func customerLabel(id uint64) string {
	if id == 0 {
		return "all"
	}
	return fmt.Sprintf("%d", id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
