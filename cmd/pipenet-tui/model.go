package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
	"github.com/dd0wney/cluso-pipenet/pkg/query"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00AFFF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0087D7")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	overviewView view = iota
	objectsView
	groupsView
	connectionsView
	viewCount
)

var tabNames = []string{"Overview", "Objects", "Groups", "Connections"}

// pageSize is requested from the service; the governor clamps it.
const pageSize = 50

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run / open"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.ShiftTab, k.Enter}, {k.Quit}}
}

type model struct {
	svc    *pipenet.Service
	origin string
	stats  pipenet.Statistics

	currentView view
	filterInput textinput.Model
	objectTable table.Model
	groupTable  table.Model
	idInput     textinput.Model
	connTable   table.Model
	connSummary string

	help       help.Model
	keys       keyMap
	width      int
	message    string
	messageErr bool
}

func styledTable(columns []table.Column, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#0087D7")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func objectColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Shape", Width: 10},
		{Title: "DN", Width: 16},
		{Title: "Type", Width: 8},
		{Title: "Arm", Width: 8},
	}
}

func initialModel(svc *pipenet.Service, origin string) model {
	fi := textinput.New()
	fi.Placeholder = "shape=Sprinkler pipe=18 dn=25 type=end"
	fi.CharLimit = 120
	fi.Width = 60

	ii := textinput.New()
	ii.Placeholder = "object id"
	ii.CharLimit = 20
	ii.Width = 20

	m := model{
		svc:         svc,
		origin:      origin,
		stats:       svc.GetStatistics(),
		currentView: overviewView,
		filterInput: fi,
		objectTable: styledTable(objectColumns(), 12),
		groupTable: styledTable([]table.Column{
			{Title: "Pipe group", Width: 12},
			{Title: "Objects", Width: 10},
		}, 12),
		idInput: ii,
		connTable: styledTable([]table.Column{
			{Title: "Slot", Width: 6},
			{Title: "ID", Width: 10},
			{Title: "Shape", Width: 10},
			{Title: "Pipe group", Width: 12},
			{Title: "DN", Width: 16},
		}, 6),
		help: help.New(),
		keys: keys,
	}
	m.groupTable.SetRows(groupRows(m.stats.TopPipeGroups))
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) switchView(v view) {
	m.currentView = (v + viewCount) % viewCount
	m.filterInput.Blur()
	m.idInput.Blur()
	switch m.currentView {
	case objectsView:
		m.filterInput.Focus()
	case connectionsView:
		m.idInput.Focus()
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.switchView(m.currentView + 1)
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.switchView(m.currentView - 1)
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			switch m.currentView {
			case objectsView:
				m.runFilter()
			case groupsView:
				m.openGroup()
			case connectionsView:
				m.runConnections()
			}
			return m, nil
		}
	}

	switch m.currentView {
	case objectsView:
		m.filterInput, cmd = m.filterInput.Update(msg)
		var tcmd tea.Cmd
		m.objectTable, tcmd = m.objectTable.Update(msg)
		return m, tea.Batch(cmd, tcmd)
	case groupsView:
		m.groupTable, cmd = m.groupTable.Update(msg)
	case connectionsView:
		m.idInput, cmd = m.idInput.Update(msg)
	}
	return m, cmd
}

func (m *model) fail(format string, args ...any) {
	m.message = fmt.Sprintf(format, args...)
	m.messageErr = true
}

func (m *model) ok(format string, args ...any) {
	m.message = fmt.Sprintf(format, args...)
	m.messageErr = false
}

func (m *model) runFilter() {
	p, err := parseFilter(m.filterInput.Value())
	if err != nil {
		m.fail("%v", err)
		return
	}
	limit := pipenet.PageArg(pageSize)
	p.Limit = &limit
	res := m.svc.FindObjects(p)
	m.objectTable.SetRows(compactRows(res.Items))
	m.objectTable.GotoTop()
	m.ok("%d matches, showing %d", res.TotalMatches, res.Returned)
}

// openGroup loads the selected pipe group into the objects view.
func (m *model) openGroup() {
	row := m.groupTable.SelectedRow()
	if row == nil {
		return
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		m.fail("bad pipe group %q", row[0])
		return
	}
	limit := pipenet.PageArg(pageSize)
	rep, err := m.svc.AnalyzePipeGroup(pipenet.GroupParams{PipeID: &id, Limit: &limit})
	if err != nil {
		m.fail("%v", err)
		return
	}
	m.objectTable.SetRows(compactRows(rep.Items))
	m.objectTable.GotoTop()
	m.filterInput.SetValue(fmt.Sprintf("pipe=%d", id))
	m.switchView(objectsView)
	m.ok("pipe group %d: %d objects, DN %s, %d sprinklers",
		id, rep.TotalObjects, formatDiameters(rep.DNValues), rep.Sprinklers.Total)
}

func (m *model) runConnections() {
	id, err := strconv.ParseInt(strings.TrimSpace(m.idInput.Value()), 10, 64)
	if err != nil {
		m.fail("object id must be an integer")
		return
	}
	rep, err := m.svc.AnalyzeConnections(pipenet.ConnectionParams{ObjectID: &id})
	if err != nil {
		m.fail("%v", err)
		return
	}

	rows := make([]table.Row, 0, len(rep.Resolved))
	for _, n := range rep.Resolved {
		rows = append(rows, table.Row{
			strconv.Itoa(n.Slot),
			strconv.FormatInt(int64(n.ID), 10),
			n.ShapeName,
			strconv.FormatInt(int64(n.PipeID), 10),
			formatDN(n.DN),
		})
	}
	m.connTable.SetRows(rows)

	var s strings.Builder
	fmt.Fprintf(&s, "%s %d: %d/%d connectors resolved (%s arity, expected %d)",
		rep.Object.ShapeName, id, rep.ResolvedCount, rep.DeclaredConnectors,
		rep.ExpectedArity, rep.ExpectedConnectors)
	if rep.MissingCount > 0 {
		fmt.Fprintf(&s, "\nmissing: %v", rep.MissingIDs)
	}
	for _, w := range rep.Warnings {
		fmt.Fprintf(&s, "\nwarning: %s", w.Message)
	}
	m.connSummary = s.String()
	m.ok("analyzed object %d", id)
}

func compactRows(items []query.Compact) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, c := range items {
		arm := ""
		if c.Arm != nil {
			arm = strconv.FormatFloat(*c.Arm, 'f', -1, 64)
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(int64(c.ID), 10),
			c.ShapeName,
			formatDN(c.DN),
			c.Type,
			arm,
		})
	}
	return rows
}

func groupRows(groups []query.GroupSize) []table.Row {
	rows := make([]table.Row, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, table.Row{
			strconv.FormatInt(int64(g.PipeID), 10),
			strconv.Itoa(g.Count),
		})
	}
	return rows
}

func formatDN(dn query.DN) string {
	if dn.Sequence {
		return "[" + formatDiameters(dn.Values) + "]"
	}
	return formatDiameters(dn.Values)
}

func formatDiameters[T ~float64](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("pipenet - " + m.origin))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case overviewView:
		s.WriteString(m.renderOverview())
	case objectsView:
		s.WriteString(m.renderObjects())
	case groupsView:
		s.WriteString(m.renderGroups())
	case connectionsView:
		s.WriteString(m.renderConnections())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	rendered := make([]string, 0, len(tabNames))
	for i, tab := range tabNames {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderOverview() string {
	st := m.stats

	kinds := make([]string, 0, len(st.ShapeDistribution))
	for k := range st.ShapeDistribution {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	var left strings.Builder
	fmt.Fprintf(&left, "Objects:      %d\n", st.TotalObjects)
	fmt.Fprintf(&left, "Pipe groups:  %d\n", st.PipeGroups)
	fmt.Fprintf(&left, "Skipped:      %d\n\n", st.SkippedRecords)
	for _, k := range kinds {
		fmt.Fprintf(&left, "%-12s  %d\n", k+":", st.ShapeDistribution[k])
	}

	var right strings.Builder
	fmt.Fprintf(&right, "Sprinklers:   %d (end %d, center %d)\n",
		st.Sprinklers.Total, st.Sprinklers.End, st.Sprinklers.Center)
	if st.ArmStatistics != nil {
		a := st.ArmStatistics
		fmt.Fprintf(&right, "Arm:          min %g  max %g  avg %.3f\n", a.Min, a.Max, a.Mean)
	}
	right.WriteString("\nDN distribution\n")
	for _, d := range st.DNDistribution {
		fmt.Fprintf(&right, "  DN %-8g %d\n", float64(d.DN), d.Count)
	}

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(left.String()),
		boxStyle.Render(right.String()),
	))
}

func (m model) renderObjects() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Find objects"))
	s.WriteString("\n\n")
	s.WriteString(m.filterInput.View())
	s.WriteString("\n\n")
	s.WriteString(m.objectTable.View())
	return contentStyle.Render(s.String())
}

func (m model) renderGroups() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Largest pipe groups"))
	s.WriteString("\n\n")
	s.WriteString(m.groupTable.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter opens the selected group"))
	return contentStyle.Render(s.String())
}

func (m model) renderConnections() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Connections"))
	s.WriteString("\n\n")
	s.WriteString(m.idInput.View())
	s.WriteString("\n\n")
	if m.connSummary != "" {
		s.WriteString(m.connSummary)
		s.WriteString("\n\n")
	}
	s.WriteString(m.connTable.View())
	return contentStyle.Render(s.String())
}
