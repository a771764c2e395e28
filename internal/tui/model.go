// Package tui is the terminal front end of the explorer.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
	"github.com/robert-malhotra/stac-grid-explorer/internal/grid"
	"github.com/robert-malhotra/stac-grid-explorer/internal/search"
	"github.com/robert-malhotra/stac-grid-explorer/internal/session"
	"github.com/robert-malhotra/stac-grid-explorer/pkg/geojson"
)

// panStep is the fraction of the visible span moved per key press.
const panStep = 0.25

// sortOrders is the cycle walked by the sort key.
var sortOrders = []catalog.Sortby{
	{},
	{Field: catalog.PropertyDatetime, Direction: catalog.SortDesc},
	{Field: catalog.PropertyCloudCover, Direction: catalog.SortAsc},
}

type clearStatusMsg struct{}

// Model is the bubbletea model. It renders session snapshots and turns key
// presses into session calls.
type Model struct {
	ctrl   *session.Controller
	tiling *grid.Tiling

	snap    session.Snapshot
	cursor  int
	results *catalog.ResultSet

	naming bool
	input  textinput.Model

	status    string
	statusErr bool

	spinner spinner.Model
	help    help.Model
	keys    keyMap
	styles  *Styles

	width  int
	height int
}

// New creates a model over ctrl. tiling is only used to draw the cells
// around the crosshair.
func New(ctrl *session.Controller, tiling *grid.Tiling) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	in := textinput.New()
	in.Placeholder = "output"
	in.Prompt = "output name: "
	in.CharLimit = 64

	if tiling == nil {
		tiling = &grid.Tiling{SizeDeg: 1}
	}

	m := &Model{
		ctrl:    ctrl,
		tiling:  tiling,
		input:   in,
		spinner: sp,
		help:    help.New(),
		keys:    defaultKeys(),
		styles:  NewStyles(),
	}
	m.apply(ctrl.Snapshot())
	return m
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ctrl.Resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case SnapshotMsg:
		m.apply(session.Snapshot(msg))
		return m, nil

	case NoticeMsg:
		return m, m.setStatus(msg.Message, false)

	case clearStatusMsg:
		m.status = ""
		m.statusErr = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.naming {
			return m, m.updateNaming(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd

	// Map keys move focus off the result list.
	if key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.Left, m.keys.Right, m.keys.ZoomIn, m.keys.ZoomOut, m.keys.Clear) {
		m.ctrl.Leave()
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.ctrl.Pan(0, panStep)
	case key.Matches(msg, m.keys.Down):
		m.ctrl.Pan(0, -panStep)
	case key.Matches(msg, m.keys.Left):
		m.ctrl.Pan(-panStep, 0)
	case key.Matches(msg, m.keys.Right):
		m.ctrl.Pan(panStep, 0)
	case key.Matches(msg, m.keys.ZoomIn):
		m.ctrl.Zoom(1)
	case key.Matches(msg, m.keys.ZoomOut):
		m.ctrl.Zoom(-1)
	case key.Matches(msg, m.keys.Pick):
		if _, err := m.ctrl.PickCenter(); err != nil {
			cmd = m.setStatus(errorText(err), true)
		}
	case key.Matches(msg, m.keys.Clear):
		m.ctrl.Clear()
	case key.Matches(msg, m.keys.Next):
		if err := m.ctrl.NextPage(); err != nil {
			cmd = m.setStatus(errorText(err), true)
		}
	case key.Matches(msg, m.keys.Prev):
		if err := m.ctrl.PrevPage(); err != nil {
			cmd = m.setStatus(errorText(err), true)
		}
	case key.Matches(msg, m.keys.Cursor):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.CursorU):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Save):
		if id, ok := m.cursorID(); ok {
			saved, err := m.ctrl.ToggleSaved(id)
			switch {
			case err != nil:
				cmd = m.setStatus(errorText(err), true)
			case saved:
				cmd = m.setStatus("saved "+id, false)
			default:
				cmd = m.setStatus("removed "+id, false)
			}
		}
	case key.Matches(msg, m.keys.Copy):
		if _, ok := m.cursorID(); ok {
			m.naming = true
			m.input.SetValue("")
			cmd = m.input.Focus()
		}
	case key.Matches(msg, m.keys.Retry):
		m.ctrl.Retry()
	case key.Matches(msg, m.keys.Sort):
		next := nextSort(m.snap.Sort)
		m.ctrl.SetSort(next)
		label := next.String()
		if label == "" {
			label = "catalog order"
		}
		cmd = m.setStatus("sort: "+label, false)
	}

	m.refresh()
	return cmd
}

func (m *Model) updateNaming(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.naming = false
		m.input.Blur()
		return nil
	case tea.KeyEnter:
		m.naming = false
		m.input.Blur()
		id, ok := m.cursorID()
		if !ok {
			return nil
		}
		if _, err := m.ctrl.CopyCommand(m.input.Value(), id); err != nil {
			return m.setStatus(errorText(err), true)
		}
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.status = text
	m.statusErr = isErr
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// refresh pulls the latest snapshot after a synchronous session call.
func (m *Model) refresh() {
	m.apply(m.ctrl.Snapshot())
}

// apply installs s unless it is older than what is shown.
func (m *Model) apply(s session.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	m.snap = s
	if s.Search.Results != m.results {
		m.results = s.Search.Results
		m.cursor = 0
	}
	if n := m.resultCount(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m *Model) resultCount() int {
	if m.snap.Search.Status != search.Loaded || m.snap.Search.Results == nil {
		return 0
	}
	return len(m.snap.Search.Results.Features)
}

func (m *Model) cursorID() (string, bool) {
	if m.cursor >= m.resultCount() {
		return "", false
	}
	return m.snap.Search.Results.Features[m.cursor].ID, true
}

func (m *Model) moveCursor(delta int) {
	n := m.resultCount()
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	if id, ok := m.cursorID(); ok {
		m.ctrl.Hover(id)
	}
}

func nextSort(current catalog.Sortby) catalog.Sortby {
	for i, s := range sortOrders {
		if s == current {
			return sortOrders[(i+1)%len(sortOrders)]
		}
	}
	return sortOrders[0]
}

func errorText(err error) string {
	switch {
	case errors.Is(err, session.ErrZoomTooLow):
		return session.ZoomHint
	case errors.Is(err, grid.ErrOutOfRange):
		return "no grid cell here"
	default:
		return err.Error()
	}
}

// View renders the screen.
func (m *Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render("STAC grid explorer"))
	b.WriteString("  ")
	b.WriteString(s.Hash.Render("#" + m.snap.Hash))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		s.Box.Render(m.viewMap()),
		" ",
		s.Box.Render(m.viewSaved()),
	))
	b.WriteString("\n")
	b.WriteString(s.Box.Render(m.viewResults()))
	b.WriteString("\n")

	switch {
	case m.naming:
		b.WriteString(m.input.View())
	case m.status != "" && m.statusErr:
		b.WriteString(s.StatusError.Render(m.status))
	case m.status != "":
		b.WriteString(s.StatusOK.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) viewMap() string {
	s := m.styles
	v := m.snap.Viewport
	var b strings.Builder

	fmt.Fprintf(&b, "%s %.2f  %s %.4f  %s %.4f\n",
		s.Label.Render("zoom"), v.Zoom,
		s.Label.Render("lat"), v.Latitude,
		s.Label.Render("lon"), v.Longitude,
	)

	hovered, footprint := m.hoveredFootprint()
	var under []string

	size := m.tiling.SizeDeg
	for dy := 1; dy >= -1; dy-- {
		row := make([]string, 0, 5)
		for dx := -2; dx <= 2; dx++ {
			cell, _ := m.tiling.CellAt(v.Longitude+float64(dx)*size, v.Latitude+float64(dy)*size)
			lit := cell != nil && overlaps(cellBounds(cell), footprint)
			if lit {
				under = append(under, cell.ID)
			}
			row = append(row, m.viewCell(cell, dx == 0 && dy == 0, lit))
		}
		b.WriteString(strings.Join(row, " "))
		b.WriteString("\n")
	}

	if hovered != "" && len(under) > 0 {
		b.WriteString(s.Hovered.Render(fmt.Sprintf("◆ %s over %s", hovered, strings.Join(under, " "))))
		b.WriteString("\n")
	}

	if m.snap.Hint != "" {
		b.WriteString(s.Hint.Render(m.snap.Hint))
	} else if m.snap.Cell != nil {
		b.WriteString("selected " + s.Label.Render(m.snap.Cell.ID))
	} else {
		b.WriteString(s.Dim.Render("enter picks the cell under [ ]"))
	}
	return b.String()
}

func (m *Model) viewCell(cell *grid.Cell, centre, hovered bool) string {
	label := "   ·   "
	if cell != nil {
		label = cell.ID
	}

	switch {
	case centre:
		label = "[" + label + "]"
	case hovered:
		label = "◆" + label + "◆"
	default:
		label = " " + label + " "
	}

	switch {
	case hovered:
		return m.styles.Hovered.Render(label)
	case cell.SameAs(m.snap.Cell):
		return m.styles.Selected.Render(label)
	default:
		return m.styles.Cell.Render(label)
	}
}

// hoveredFootprint returns the hovered scene and its extent, or "" when
// nothing is hovered or the scene has no usable geometry.
func (m *Model) hoveredFootprint() (string, []float64) {
	if m.snap.Hovered == "" {
		return "", nil
	}
	item, ok := m.snap.Search.Results.Find(m.snap.Hovered)
	if !ok {
		return "", nil
	}
	bounds, err := item.FootprintBounds()
	if err != nil {
		return "", nil
	}
	return item.ID, bounds
}

func cellBounds(cell *grid.Cell) []float64 {
	g, err := geojson.FromWKT(cell.Properties.LLWKT)
	if err != nil {
		return nil
	}
	bounds, err := geojson.ComputeBBox(g)
	if err != nil {
		return nil
	}
	return bounds
}

// overlaps reports whether two [west, south, east, north] boxes share area.
// Boxes that only touch along an edge do not overlap.
func overlaps(a, b []float64) bool {
	if len(a) != 4 || len(b) != 4 {
		return false
	}
	return a[0] < b[2] && b[0] < a[2] && a[1] < b[3] && b[1] < a[3]
}

func (m *Model) viewSaved() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Label.Render(fmt.Sprintf("saved (%d)", len(m.snap.Saved))))
	for _, item := range m.snap.Saved {
		b.WriteString("\n")
		b.WriteString(s.Saved.Render("★ " + item.ID))
	}
	return b.String()
}

func (m *Model) viewResults() string {
	s := m.styles
	st := m.snap.Search

	switch st.Status {
	case search.Idle:
		return s.Dim.Render("no cell selected")
	case search.Loading:
		return s.Loading.Render(fmt.Sprintf("%s searching %s page %d", m.spinner.View(), cellID(st.Cell), st.Page))
	case search.Failed:
		return s.StatusError.Render("search failed: "+st.Err.Error()) + "\n" + s.Dim.Render("press r to retry")
	}

	var b strings.Builder
	header := fmt.Sprintf("%s page %d", cellID(st.Cell), st.Page)
	if m.snap.HasTotal {
		header = fmt.Sprintf("%s of %d  (%d scenes)", header, m.snap.TotalPages, st.Results.Context.Matched)
	}
	if !m.snap.Sort.IsZero() {
		header += "  sorted " + m.snap.Sort.String()
	}
	b.WriteString(s.Label.Render(header))

	if len(st.Results.Features) == 0 {
		b.WriteString("\n")
		b.WriteString(s.Dim.Render("no scenes"))
		return b.String()
	}

	saved := make(map[string]bool, len(m.snap.Saved))
	for _, item := range m.snap.Saved {
		saved[item.ID] = true
	}

	for i, item := range st.Results.Features {
		b.WriteString("\n")
		line := fmt.Sprintf("%-40s %s", item.ID, item.Datetime().Format("2006-01-02"))
		if cc, ok := item.CloudCover(); ok {
			line += fmt.Sprintf("  cloud %5.1f%%", cc)
		}
		if saved[item.ID] {
			line += "  ★"
		}
		if i == m.cursor {
			b.WriteString(s.Cursor.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
	}

	if item := st.Results.Features[min(m.cursor, len(st.Results.Features)-1)]; item.Thumbnail() != "" {
		b.WriteString("\n")
		b.WriteString(s.Dim.Render("thumbnail " + item.Thumbnail()))
	}
	return b.String()
}

func cellID(c *grid.Cell) string {
	if c == nil {
		return ""
	}
	return c.ID
}
