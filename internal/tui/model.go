// Package tui renders an interactive review table over scored claims.
package tui

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/Veraticus/mileage-audit/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Config holds review UI settings.
type Config struct {
	Input  io.Reader
	Output io.Writer
	Title  string
	Theme  themes.Theme
	Width  int
	Height int
}

// DefaultConfig returns a config sized for a standard terminal.
func DefaultConfig() Config {
	return Config{
		Theme:  themes.Default,
		Width:  100,
		Height: 30,
	}
}

// chrome is the number of lines used by everything except table rows.
const chrome = 8

// Model is the bubbletea model for the review table.
type Model struct {
	theme         themes.Theme
	title         string
	keymap        KeyMap
	rows          []model.ScoredAggregate
	help          help.Model
	table         table.Model
	anomalies     int
	width         int
	height        int
	anomaliesOnly bool
	quitting      bool
}

// NewModel builds a review model. Rows are shown most anomalous first; the
// view starts on anomalies only unless there are none.
func NewModel(rows []model.ScoredAggregate, cfg Config) Model {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b model.ScoredAggregate) int {
		return cmp.Compare(a.Score, b.Score)
	})
	anomalies, _ := model.CountLabels(sorted)

	keymap := DefaultKeyMap()
	t := table.New(
		table.WithColumns(columns(cfg.Width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(cfg.Height)),
		table.WithKeyMap(table.KeyMap{
			LineUp:       keymap.Up,
			LineDown:     keymap.Down,
			PageUp:       keymap.PageUp,
			PageDown:     keymap.PageDown,
			HalfPageUp:   key.NewBinding(key.WithDisabled()),
			HalfPageDown: key.NewBinding(key.WithDisabled()),
			GotoTop:      keymap.Home,
			GotoBottom:   keymap.End,
		}),
	)
	s := table.DefaultStyles()
	s.Header = cfg.Theme.Header
	s.Selected = cfg.Theme.Selected
	t.SetStyles(s)

	h := help.New()
	h.Width = cfg.Width

	m := Model{
		theme:         cfg.Theme,
		title:         cfg.Title,
		keymap:        keymap,
		rows:          sorted,
		help:          h,
		table:         t,
		anomalies:     anomalies,
		width:         cfg.Width,
		height:        cfg.Height,
		anomaliesOnly: anomalies > 0,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(tableHeight(msg.Height))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.ToggleFilter):
			m.anomaliesOnly = !m.anomaliesOnly
			m.refresh()
			m.table.GotoTop()
			return m, nil
		case key.Matches(msg, m.keymap.ToggleHelp):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(m.theme.Title.Render(m.title))
		b.WriteString("\n")
	}
	b.WriteString(m.status())
	b.WriteString("\n\n")
	b.WriteString(m.theme.RoundedBox.Render(m.table.View()))
	b.WriteString("\n")
	if row, ok := m.Selected(); ok {
		b.WriteString(m.detail(row))
		b.WriteString("\n")
	}
	b.WriteString(m.theme.Help.Render(m.help.View(m.keymap)))
	return b.String()
}

// Selected returns the claim under the cursor.
func (m Model) Selected() (model.ScoredAggregate, bool) {
	visible := m.Visible()
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(visible) {
		return model.ScoredAggregate{}, false
	}
	return visible[cursor], true
}

// Visible returns the rows shown under the current filter, most anomalous first.
func (m Model) Visible() []model.ScoredAggregate {
	if !m.anomaliesOnly {
		return m.rows
	}
	return model.Anomalies(m.rows)
}

// AnomaliesOnly reports whether normal rows are hidden.
func (m Model) AnomaliesOnly() bool {
	return m.anomaliesOnly
}

func (m *Model) refresh() {
	visible := m.Visible()
	rows := make([]table.Row, 0, len(visible))
	for _, r := range visible {
		rows = append(rows, table.Row{
			r.ClaimID,
			r.EmployeeID,
			strconv.Itoa(r.ElementCount),
			formatMiles(r.PaidMiles),
			formatMiles(r.TotalMiles),
			formatMiles(r.CommuteMiles),
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			r.Label.String(),
		})
	}
	m.table.SetRows(rows)
}

func (m Model) status() string {
	mode := "all claims"
	if m.anomaliesOnly {
		mode = "anomalies only"
	}
	counts := fmt.Sprintf("%d anomalous of %d claims", m.anomalies, len(m.rows))
	return m.theme.Anomalous.Render(counts) + m.theme.Subtitle.Render("  showing "+mode)
}

func (m Model) detail(r model.ScoredAggregate) string {
	style := m.theme.Normal
	if r.IsAnomalous() {
		style = m.theme.Anomalous
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.StatusInfo.Render(fmt.Sprintf("claim %s / employee %s  ", r.ClaimID, r.EmployeeID)),
		style.Render(fmt.Sprintf("%s (score %.4f)", r.Label, r.Score)),
	)
}

func formatMiles(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func columns(width int) []table.Column {
	id := 14
	if width > 110 {
		id = 20
	}
	return []table.Column{
		{Title: "Claim", Width: id},
		{Title: "Employee", Width: id},
		{Title: "Elements", Width: 8},
		{Title: "Paid", Width: 9},
		{Title: "Total", Width: 9},
		{Title: "Commute", Width: 9},
		{Title: "Score", Width: 8},
		{Title: "Label", Width: 9},
	}
}

func tableHeight(height int) int {
	return max(height-chrome, 3)
}
