// Package monitor is a read-only bubbletea dashboard over one engine: live
// budget utilization, routing history, and an event feed from the engine's
// bus. It observes; it never drives the engine.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/normanking/cogito/internal/bus"
	"github.com/normanking/cogito/internal/engine"
	"github.com/normanking/cogito/internal/tier"
)

// maxFeedLines bounds the retained event feed.
const maxFeedLines = 200

// statusInterval is how often the status tables refresh.
const statusInterval = time.Second

// historyRows is how many routing decisions the history table shows.
const historyRows = 8

type eventMsg bus.Event

type statusTickMsg time.Time

// Model is the dashboard's bubbletea model.
type Model struct {
	eng    *engine.Engine
	events <-chan bus.Event

	keys    KeyMap
	styles  Styles
	help    help.Model
	spinner spinner.Model
	feed    viewport.Model

	budgetTable  table.Model
	historyTable table.Model

	lines    []string
	paused   bool
	inflight int
	width    int
	height   int
	ready    bool
	quitting bool
}

// NewModel builds a dashboard over the given engine, fed by events.
func NewModel(eng *engine.Engine, events <-chan bus.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		eng:     eng,
		events:  events,
		keys:    DefaultKeyMap(),
		styles:  DefaultStyles(),
		help:    help.New(),
		spinner: sp,
		budgetTable: table.New([]table.Column{
			table.NewColumn(colTier, "Tier", 8),
			table.NewColumn(colTokens, "Tokens", 10),
			table.NewColumn(colCost, "Cost", 10),
			table.NewColumn(colUtil, "Util", 8),
			table.NewColumn(colThrottled, "Throttled", 10),
		}),
		historyTable: table.New([]table.Column{
			table.NewColumn(colTime, "Time", 10),
			table.NewColumn(colCognitive, "Cognitive", 14),
			table.NewColumn(colTarget, "Target", 8),
			table.NewColumn(colActual, "Actual", 8),
			table.NewColumn(colReason, "Reason", 20),
		}),
	}
	m.refreshTables()
	return m
}

// Table column keys.
const (
	colTier      = "tier"
	colTokens    = "tokens"
	colCost      = "cost"
	colUtil      = "util"
	colThrottled = "throttled"
	colTime      = "time"
	colCognitive = "cognitive"
	colTarget    = "target"
	colActual    = "actual"
	colReason    = "reason"
)

// Init starts the spinner, the event listener, and the status ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listenForEvent(m.events), statusTick())
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.lines = nil
			m.feed.SetContent("")
			return m, nil
		}
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		feedHeight := msg.Height - 22
		if feedHeight < 4 {
			feedHeight = 4
		}
		if !m.ready {
			m.feed = viewport.New(msg.Width-4, feedHeight)
			m.ready = true
		} else {
			m.feed.Width = msg.Width - 4
			m.feed.Height = feedHeight
		}
		m.help.Width = msg.Width
		m.feed.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case eventMsg:
		m.track(bus.Event(msg))
		if !m.paused {
			m.lines = append(m.lines, m.formatEvent(bus.Event(msg)))
			if len(m.lines) > maxFeedLines {
				m.lines = m.lines[len(m.lines)-maxFeedLines:]
			}
			m.feed.SetContent(strings.Join(m.lines, "\n"))
			m.feed.GotoBottom()
		}
		return m, listenForEvent(m.events)

	case statusTickMsg:
		m.refreshTables()
		return m, statusTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	st := m.eng.Status()

	title := fmt.Sprintf("cogito monitor — %s (%s)", st.AgentName, st.AgentID)
	if m.inflight > 0 {
		title += "  " + m.spinner.View() + " thinking"
	}
	b.WriteString(m.styles.Title.Render(title) + "\n\n")

	b.WriteString(m.styles.Section.Render("Budget") + "\n")
	b.WriteString(m.budgetTable.View() + "\n")
	b.WriteString(m.styles.StatusLine.Render(fmt.Sprintf(
		"hourly budget $%.2f  spent $%.4f  window start %s",
		st.Budget.HourlyBudget, st.Budget.TotalCostUSD,
		st.Budget.HourStart.Format("15:04:05"))) + "\n\n")

	b.WriteString(m.styles.Section.Render("Routing") + "\n")
	b.WriteString(m.historyTable.View() + "\n")
	b.WriteString(m.styles.StatusLine.Render(fmt.Sprintf(
		"requests %d  downgrades %d  fallbacks %d  timeouts %d  errors %d",
		st.Router.TotalRequests, st.Router.Downgrades, st.Router.Fallbacks,
		st.Router.Timeouts, st.Router.Errors)) + "\n\n")

	b.WriteString(m.styles.Section.Render("Mind") + " " + m.styles.StatusLine.Render(fmt.Sprintf(
		"thoughts %d  streams %d  held %d  ready %d",
		st.Mind.ActiveThoughts, st.Mind.Streams,
		st.Mind.HeldInsights, st.Mind.ReadyToShare)) + "\n\n")

	feedTitle := "Events"
	if m.paused {
		feedTitle += " " + m.styles.Paused.Render("[paused]")
	}
	b.WriteString(m.styles.Section.Render(feedTitle) + "\n")
	if m.ready {
		b.WriteString(m.styles.Panel.Render(m.feed.View()) + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// track maintains the in-flight processing count for the spinner.
func (m *Model) track(ev bus.Event) {
	switch ev.Type {
	case bus.EventProcessStarted:
		m.inflight++
	case bus.EventProcessCompleted:
		if m.inflight > 0 {
			m.inflight--
		}
	}
}

// refreshTables rebuilds the budget and history tables from engine state.
func (m *Model) refreshTables() {
	st := m.eng.Status()

	budgetRows := make([]table.Row, 0, 3)
	for _, mt := range tier.ModelTiers() {
		ts := st.Budget.Tiers[mt]
		throttled := ""
		if ts.Throttled {
			throttled = "yes"
		}
		budgetRows = append(budgetRows, table.NewRow(table.RowData{
			colTier:      mt.String(),
			colTokens:    fmt.Sprintf("%d", ts.Tokens),
			colCost:      fmt.Sprintf("$%.4f", ts.CostUSD),
			colUtil:      fmt.Sprintf("%.0f%%", ts.Utilization*100),
			colThrottled: throttled,
		}))
	}
	m.budgetTable = m.budgetTable.WithRows(budgetRows)

	history := m.eng.Router().RoutingHistory(historyRows)
	historyTableRows := make([]table.Row, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		d := history[i]
		historyTableRows = append(historyTableRows, table.NewRow(table.RowData{
			colTime:      d.Timestamp.Format("15:04:05"),
			colCognitive: d.Cognitive.String(),
			colTarget:    d.Target.String(),
			colActual:    d.Actual.String(),
			colReason:    d.Reason,
		}))
	}
	m.historyTable = m.historyTable.WithRows(historyTableRows)
}

// formatEvent renders one bus event as a feed line.
func (m Model) formatEvent(ev bus.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-20s", ev.Timestamp.Format("15:04:05"), ev.Type)
	if ev.Tier != "" {
		fmt.Fprintf(&b, "  tier=%s", ev.Tier)
	}
	if ev.Topic != "" {
		fmt.Fprintf(&b, "  topic=%q", ev.Topic)
	}
	if ev.Reason != "" {
		fmt.Fprintf(&b, "  %s", ev.Reason)
	}
	if ev.Confidence > 0 {
		fmt.Fprintf(&b, "  conf=%.2f", ev.Confidence)
	}
	line := b.String()
	switch ev.Type {
	case bus.EventBackgroundError, bus.EventTierUnhealthy:
		return m.styles.FeedError.Render(line)
	case bus.EventBudgetAlert, bus.EventRoutingFallback:
		return m.styles.FeedWarn.Render(line)
	default:
		return m.styles.FeedLine.Render(line)
	}
}

// listenForEvent waits for the next bus event.
func listenForEvent(ch <-chan bus.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// Run subscribes to the engine's bus and blocks in the dashboard until the
// user quits.
func Run(eng *engine.Engine) error {
	events := make(chan bus.Event, bus.DefaultChannelBuffer)
	subID := eng.Bus().Subscribe(bus.Wildcard, func(ev bus.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	defer eng.Bus().Unsubscribe(subID)

	p := tea.NewProgram(NewModel(eng, events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
