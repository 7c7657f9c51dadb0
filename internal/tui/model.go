// Package tui renders the artworks grid in the terminal with Bubble Tea.
// All data operations go through a grid.Component; the model only turns
// key presses into component calls and component snapshots into a table.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/artic-grid/pkg/artwork"
	"github.com/Sternrassler/artic-grid/pkg/grid"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// chromeHeight is the number of lines around the table: title, status,
// error, help and borders.
const chromeHeight = 8

// Columns returns the grid columns in display order.
func Columns() []table.Column {
	return []table.Column{
		{Title: "✓", Width: 3},
		{Title: "Title", Width: 32},
		{Title: "Place of Origin", Width: 18},
		{Title: "Artist", Width: 30},
		{Title: "Inscriptions", Width: 20},
		{Title: "Start Date", Width: 10},
		{Title: "End Date", Width: 10},
	}
}

// Model is the Bubble Tea model of the grid screen.
type Model struct {
	ctx    context.Context
	grid   *grid.Component
	keys   KeyMap
	styles Styles
	logger zerolog.Logger

	table   table.Model
	input   textinput.Model
	spinner spinner.Model
	help    help.Model

	view    grid.View
	pending int
	status  string
	width   int
	height  int
}

// New creates the model. ctx bounds every fetch started from the screen.
func New(ctx context.Context, component *grid.Component) Model {
	styles := DefaultStyles()
	view := component.Snapshot()

	t := table.New(
		table.WithColumns(Columns()),
		table.WithFocused(true),
		table.WithHeight(view.PageSize+1),
	)
	t.SetStyles(styles.Table)

	in := textinput.New()
	in.Prompt = "N: "
	in.CharLimit = 7
	in.Width = 12

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Title

	m := Model{
		ctx:     ctx,
		grid:    component,
		keys:    DefaultKeyMap(),
		styles:  styles,
		logger:  log.With().Str("component", "tui").Logger(),
		table:   t,
		input:   in,
		spinner: sp,
		help:    help.New(),
		view:    view,
	}
	m.syncRows()
	return m
}

// Init implements tea.Model. It mounts the grid.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.mountCmd())
}

func (m Model) mountCmd() tea.Cmd {
	component, ctx := m.grid, m.ctx
	return func() tea.Msg {
		return MountedMsg{Err: component.Mount(ctx)}
	}
}

func (m Model) pageCmd(first int) tea.Cmd {
	component, ctx, rows := m.grid, m.ctx, m.view.PageSize
	return func() tea.Msg {
		component.OnPageChange(ctx, first, rows)
		return PageLoadedMsg{First: first}
	}
}

func (m Model) bulkCmd(target int) tea.Cmd {
	component, ctx := m.grid, m.ctx
	return func() tea.Msg {
		return BulkDoneMsg{Target: target, Err: component.SubmitBulk(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MountedMsg:
		m.finish()
		if msg.Err != nil {
			m.status = "Could not load artworks"
			m.logger.Error().Err(msg.Err).Msg("Initial page load failed")
		}
		return m, nil

	case PageLoadedMsg:
		m.finish()
		if m.view.Err == nil {
			m.status = ""
		}
		return m, nil

	case BulkDoneMsg:
		m.finish()
		m.input.Blur()
		switch {
		case msg.Err != nil:
			m.status = "Bulk selection failed"
		case msg.Target > 0:
			m.status = fmt.Sprintf("Selected %d artworks", len(m.view.Selected))
		default:
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.view.OverlayOpen {
			return m.handleOverlayKeys(msg)
		}
		return m.handleGridKeys(msg)
	}

	return m, nil
}

func (m Model) handleGridKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.grid.Unmount()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		first := m.view.First + m.view.PageSize
		if m.view.Total > 0 && first >= m.view.Total {
			return m, nil
		}
		m.pending++
		return m, m.pageCmd(first)

	case key.Matches(msg, m.keys.PrevPage):
		if m.view.First == 0 {
			return m, nil
		}
		m.pending++
		return m, m.pageCmd(max(m.view.First-m.view.PageSize, 0))

	case key.Matches(msg, m.keys.Toggle):
		if row := m.table.Cursor(); row >= 0 && row < len(m.view.Records) {
			m.grid.ToggleSelection(m.view.Records[row].ID)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Bulk):
		m.grid.OpenOverlay()
		m.refresh()
		m.input.Reset()
		m.input.Placeholder = fmt.Sprintf("1-%d", m.view.BulkMax)
		cmd := m.input.Focus()
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleOverlayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.grid.Unmount()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.grid.CloseOverlay()
		m.input.Blur()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if !m.input.Focused() {
			return m, nil
		}
		m.grid.SetBulkInput(m.input.Value())
		m.input.Blur()
		m.refresh()
		m.pending++
		m.status = "Selecting…"
		return m, m.bulkCmd(m.view.BulkTarget)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// finish records the end of one dispatched operation and redraws.
func (m *Model) finish() {
	if m.pending > 0 {
		m.pending--
	}
	m.refresh()
}

// refresh pulls a fresh snapshot from the component.
func (m *Model) refresh() {
	m.view = m.grid.Snapshot()
	m.syncRows()
}

func (m *Model) syncRows() {
	m.table.SetRows(Rows(m.view.Records, m.view.Selected))
	if cursor := m.table.Cursor(); cursor >= len(m.view.Records) && len(m.view.Records) > 0 {
		m.table.SetCursor(len(m.view.Records) - 1)
	}
}

// Rows renders records as table rows, marking the selected ones.
func Rows(records, selected []artwork.Record) []table.Row {
	marked := make(map[int]bool, len(selected))
	for _, r := range selected {
		marked[r.ID] = true
	}

	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		mark := " "
		if marked[r.ID] {
			mark = "✓"
		}
		rows = append(rows, table.Row{
			mark,
			r.Title,
			r.PlaceOfOrigin,
			r.ArtistDisplay,
			r.Inscriptions,
			r.DateStart,
			r.DateEnd,
		})
	}
	return rows
}

// Loading reports whether any dispatched operation has not reported back.
func (m Model) Loading() bool {
	return m.pending > 0
}

// PageLabel returns "Page X of Y" for the current window.
func PageLabel(view grid.View) string {
	if view.PageSize <= 0 {
		return ""
	}
	page := view.First/view.PageSize + 1
	if view.Total <= 0 {
		return fmt.Sprintf("Page %d", page)
	}
	pages := (view.Total + view.PageSize - 1) / view.PageSize
	return fmt.Sprintf("Page %d of %d", page, pages)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Art Institute of Chicago · Artworks"))
	b.WriteString("\n")
	b.WriteString(m.styles.Box.Render(m.table.View()))
	b.WriteString("\n")

	status := fmt.Sprintf("%s · %d artworks · %d selected",
		PageLabel(m.view), m.view.Total, len(m.view.Selected))
	if m.Loading() {
		status = m.spinner.View() + " " + status
	}
	if m.status != "" {
		status += " · " + m.status
	}
	b.WriteString(m.styles.Status.Render(status))
	b.WriteString("\n")

	if m.view.Err != nil {
		b.WriteString(m.styles.Error.Render("Error: " + m.view.Err.Error()))
		b.WriteString("\n")
	}

	if m.view.OverlayOpen {
		body := fmt.Sprintf("Select the first N rows (max %d)\n\n%s", m.view.BulkMax, m.input.View())
		b.WriteString(m.styles.Overlay.Render(body))
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.OverlayHelp()))
		return b.String()
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Run starts the full-screen program and blocks until it exits.
func Run(ctx context.Context, component *grid.Component, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, component), opts...)
	_, err := p.Run()
	return err
}
