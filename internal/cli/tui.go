package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgcheck/pkg/problem"
)

// =============================================================================
// List Styles
// =============================================================================

var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listTabStyle    = lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
	listActiveStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Padding(0, 1)
	detailStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// =============================================================================
// ProblemListModel - Interactive problem browser
// =============================================================================

// ProblemListModel is the bubbletea model of `pkgcheck browse`. Tab cycles
// through the problem kinds present, enter toggles a detail pane.
type ProblemListModel struct {
	Problems []problem.Problem
	// Tabs are the kinds present in Problems; tab 0 shows every kind.
	Tabs []problem.Kind
	Tab  int

	Cursor int
	Offset int
	Height int
	Detail bool

	visible []int
}

// NewProblemListModel creates a browser over ps.
func NewProblemListModel(ps []problem.Problem) ProblemListModel {
	counts := problem.CountKinds(ps)
	m := ProblemListModel{Problems: ps, Height: 15}
	for _, k := range problem.Kinds() {
		if counts[k] > 0 {
			m.Tabs = append(m.Tabs, k)
		}
	}
	m.filter()
	return m
}

// filter recomputes the visible rows for the current tab.
func (m *ProblemListModel) filter() {
	m.visible = nil
	for i, p := range m.Problems {
		if m.Tab == 0 || p.Kind == m.Tabs[m.Tab-1] {
			m.visible = append(m.visible, i)
		}
	}
	m.Cursor, m.Offset = 0, 0
}

// Selected returns the problem under the cursor.
func (m ProblemListModel) Selected() (problem.Problem, bool) {
	if len(m.visible) == 0 {
		return problem.Problem{}, false
	}
	return m.Problems[m.visible[m.Cursor]], true
}

func (m ProblemListModel) Init() tea.Cmd {
	return nil
}

func (m ProblemListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup":
			m.move(-m.Height)
		case "pgdown":
			m.move(m.Height)
		case "tab", "right", "l":
			m.Tab = (m.Tab + 1) % (len(m.Tabs) + 1)
			m.filter()
		case "shift+tab", "left", "h":
			m.Tab = (m.Tab + len(m.Tabs)) % (len(m.Tabs) + 1)
			m.filter()
		case "enter":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m *ProblemListModel) move(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.Cursor = max(0, min(len(m.visible)-1, m.Cursor+delta))
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m ProblemListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Problems"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab kind  ⏎ details  q quit"))
	b.WriteString("\n\n")
	b.WriteString(m.tabs())
	b.WriteString("\n")

	if len(m.visible) == 0 {
		b.WriteString(StyleSuccess.Render("  No problems"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.visible))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Problems[m.visible[i]]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, p.Kind.String(), truncate(subject(p), 48)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Kind", "Subject").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.visible) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 1 {
				base = base.Foreground(levelColor(m.Problems[m.visible[idx]].Kind.Level()))
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.visible))))
	b.WriteString("\n")

	if m.Detail {
		if p, ok := m.Selected(); ok {
			b.WriteString(detailStyle.Render(problemDetail(p)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m ProblemListModel) tabs() string {
	counts := problem.CountKinds(m.Problems)
	parts := []string{m.tab(0, fmt.Sprintf("all %d", len(m.Problems)))}
	for i, k := range m.Tabs {
		parts = append(parts, m.tab(i+1, fmt.Sprintf("%s %d", k, counts[k])))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m ProblemListModel) tab(i int, label string) string {
	if i == m.Tab {
		return listActiveStyle.Render(label)
	}
	return listTabStyle.Render(label)
}

// =============================================================================
// Helpers
// =============================================================================

// subject is the short identification of p shown in the list.
func subject(p problem.Problem) string {
	switch {
	case len(p.Route) > 0:
		return problem.FormatRoute(p.Route)
	case p.Package != "" && p.Component != "":
		return p.Package + " (" + p.Component + ")"
	case p.Package != "" && p.Requester != "":
		return p.Package + " (" + p.Requester + ")"
	case p.Package != "":
		return p.Package
	case p.Component != "":
		return p.Component
	}
	return p.Path
}

func problemDetail(p problem.Problem) string {
	var b strings.Builder
	b.WriteString(p.Message())
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "\n%s %s", listDimStyle.Width(11).Render(k), v)
		}
	}
	field("package", p.Package)
	field("requester", p.Requester)
	field("component", p.Component)
	field("components", strings.Join(p.Components, ", "))
	field("reason", p.Reason)
	field("command", p.Command)
	field("path", p.Path)
	return b.String()
}

func levelColor(l log.Level) lipgloss.Color {
	switch {
	case l >= log.ErrorLevel:
		return colorRed
	case l == log.WarnLevel:
		return colorYellow
	}
	return colorGray
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var snap snapshotFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the problems of a saved audit interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.loadSnapshot(cmd.Context(), snap)
			if err != nil {
				return err
			}
			p := tea.NewProgram(NewProblemListModel(s.Problems), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	addSnapshotFlags(cmd, &snap)
	return cmd
}
