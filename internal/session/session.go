// Package session owns the explorer state: viewport, hash token, cell
// selection, results page, search results, hovered and saved scenes.
// Front ends drive it through method calls and render the snapshots it
// publishes to a Listener.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
	"github.com/robert-malhotra/stac-grid-explorer/internal/command"
	"github.com/robert-malhotra/stac-grid-explorer/internal/grid"
	"github.com/robert-malhotra/stac-grid-explorer/internal/pagination"
	"github.com/robert-malhotra/stac-grid-explorer/internal/search"
	"github.com/robert-malhotra/stac-grid-explorer/internal/viewport"
)

// ZoomHint is shown while the grid is not pickable.
const ZoomHint = "zoom in further to select grid cells"

var (
	// ErrNoSelection is returned by page operations without a selected cell.
	ErrNoSelection = errors.New("no grid cell selected")
	// ErrZoomTooLow is returned when picking below the minimum grid zoom.
	ErrZoomTooLow = errors.New("zoom in further")
	// ErrUnknownItem is returned for item ids that are neither in the
	// current results nor saved.
	ErrUnknownItem = errors.New("unknown item")
	// ErrNoClipboard is returned by CopyCommand when no clipboard is set.
	ErrNoClipboard = errors.New("no clipboard available")
)

// Clipboard receives generated commands.
type Clipboard interface {
	WriteAll(text string) error
}

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(title, message string)
}

// Listener receives a snapshot after every state change. It is called
// without the session lock held, from whichever goroutine made the change,
// and must not block.
type Listener func(Snapshot)

// Options configures a Controller. Coordinator is required.
type Options struct {
	Coordinator *search.Coordinator
	Tiling      *grid.Tiling
	MinZoom     float64
	Generator   command.Generator
	HashStore   viewport.HashStore
	Default     viewport.Viewport
	Sort        catalog.Sortby
	Clipboard   Clipboard
	Notifier    Notifier
	Listener    Listener
	Logger      *slog.Logger
}

// Snapshot is a read-only view of the session. Result sets and items are
// shared with the Controller and must not be modified.
type Snapshot struct {
	Version    uint64
	Viewport   viewport.Viewport
	Hash       string
	Cell       *grid.Cell
	Page       int
	TotalPages int
	HasTotal   bool
	Search     search.State
	Sort       catalog.Sortby
	Hovered    string
	Saved      []*catalog.Item
	Hint       string
}

// Controller serializes all state changes under one lock. Searches run on
// their own goroutines and report back through the coordinator, which drops
// superseded completions.
type Controller struct {
	coord     *search.Coordinator
	tiling    *grid.Tiling
	minZoom   float64
	generator command.Generator
	hashes    viewport.HashStore
	clipboard Clipboard
	notifier  Notifier
	listener  Listener
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	version   uint64
	view      viewport.Viewport
	selection grid.Selection
	pager     pagination.Pager
	state     search.State
	raw       *catalog.ResultSet
	sort      catalog.Sortby
	hovered   string
	saved     []*catalog.Item

	emitMu      sync.Mutex
	lastEmitted uint64
}

// New creates a controller and seeds the viewport from the hash store.
func New(opts Options) (*Controller, error) {
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("session: coordinator is required")
	}

	c := &Controller{
		coord:     opts.Coordinator,
		tiling:    opts.Tiling,
		minZoom:   opts.MinZoom,
		generator: opts.Generator,
		hashes:    opts.HashStore,
		clipboard: opts.Clipboard,
		notifier:  opts.Notifier,
		listener:  opts.Listener,
		logger:    opts.Logger,
		sort:      opts.Sort,
	}
	if c.tiling == nil {
		c.tiling = &grid.Tiling{SizeDeg: 1}
	}
	if c.generator.Profile == "" {
		c.generator.Profile = command.DefaultProfile
	}
	if c.hashes == nil {
		c.hashes = viewport.NewMemoryHashStore("")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	def := opts.Default
	if !def.Valid() || def == (viewport.Viewport{}) {
		def = viewport.Default()
	}
	c.view = viewport.HashSync(c.hashes, def)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.logger.Debug("session started", slog.String("hash", viewport.Encode(c.view)))
	return c, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops in-flight searches and waits for their goroutines.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// SetViewport moves the map and writes the new hash token. Viewports with
// non-finite values are ignored.
func (c *Controller) SetViewport(v viewport.Viewport) {
	if !v.Valid() {
		c.logger.Debug("ignoring invalid viewport")
		return
	}
	c.mu.Lock()
	c.setViewportLocked(v)
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Resize records the layout size without touching the hash.
func (c *Controller) Resize(width, height int) {
	c.mu.Lock()
	c.view.Width = width
	c.view.Height = height
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Pan moves the centre by a fraction of the visible span.
func (c *Controller) Pan(dx, dy float64) {
	c.mu.Lock()
	c.setViewportLocked(c.view.Pan(dx, dy))
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Zoom changes the zoom level by delta.
func (c *Controller) Zoom(delta float64) {
	c.mu.Lock()
	c.setViewportLocked(c.view.ZoomBy(delta))
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) setViewportLocked(v viewport.Viewport) {
	c.view = v
	c.hashes.SetHash(viewport.Encode(v))
}

// Pick applies a grid pick: select, replace or toggle off.
func (c *Controller) Pick(cell *grid.Cell) grid.Transition {
	c.mu.Lock()
	t := c.pickLocked(cell)
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
	return t
}

// PickAt picks the cell containing (lon, lat).
func (c *Controller) PickAt(lon, lat float64) (grid.Transition, error) {
	c.mu.Lock()
	if c.view.Zoom < c.minZoom {
		c.mu.Unlock()
		return grid.NoOp, ErrZoomTooLow
	}
	cell, err := c.tiling.CellAt(lon, lat)
	if err != nil {
		c.mu.Unlock()
		return grid.NoOp, err
	}
	t := c.pickLocked(cell)
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
	return t, nil
}

// PickCenter picks the cell under the viewport centre.
func (c *Controller) PickCenter() (grid.Transition, error) {
	c.mu.Lock()
	lon, lat := c.view.Longitude, c.view.Latitude
	c.mu.Unlock()
	return c.PickAt(lon, lat)
}

func (c *Controller) pickLocked(cell *grid.Cell) grid.Transition {
	t := c.selection.Pick(cell)
	c.logger.Debug("grid pick", slog.String("transition", t.String()))

	switch t {
	case grid.Selected, grid.Replaced:
		c.pager.Reset()
		c.startLocked()
	case grid.Deselected:
		c.pager.Clear()
		c.state = c.coord.Invalidate()
		c.hovered = ""
	}
	return t
}

// Clear deselects the cell and drops any in-flight search.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.selection.Clear()
	c.pager.Clear()
	c.state = c.coord.Invalidate()
	c.hovered = ""
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// SetPage searches page n of the selected cell.
func (c *Controller) SetPage(n int) error {
	c.mu.Lock()
	if _, ok := c.selection.Current(); !ok {
		c.mu.Unlock()
		return ErrNoSelection
	}
	if err := c.pager.Set(n); err != nil {
		c.mu.Unlock()
		return err
	}
	c.startLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
	return nil
}

// NextPage moves forward one page unless the last known page is showing.
func (c *Controller) NextPage() error {
	c.mu.Lock()
	if !c.pager.IsSet() {
		c.mu.Unlock()
		return ErrNoSelection
	}
	if total, known := pagination.TotalPages(c.state.Results); known && c.pager.Page() >= total {
		c.mu.Unlock()
		return nil
	}
	c.pager.Next()
	c.startLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
	return nil
}

// PrevPage moves back one page, stopping at the first.
func (c *Controller) PrevPage() error {
	c.mu.Lock()
	if !c.pager.IsSet() {
		c.mu.Unlock()
		return ErrNoSelection
	}
	if c.pager.Page() <= 1 {
		c.mu.Unlock()
		return nil
	}
	c.pager.Prev()
	c.startLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
	return nil
}

// Retry repeats the search for the current cell and page after a failure.
// It reports whether a search was started.
func (c *Controller) Retry() bool {
	c.mu.Lock()
	_, selected := c.selection.Current()
	if !selected || c.state.Status != search.Failed {
		c.mu.Unlock()
		return false
	}
	c.startLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
	return true
}

func (c *Controller) startLocked() {
	cell, _ := c.selection.Current()
	req, state, ok := c.coord.Begin(cell, c.pager.Page())
	c.state = state
	c.hovered = ""
	if !ok {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.complete(c.coord.Run(c.ctx, req))
	}()
}

func (c *Controller) complete(o search.Outcome) {
	c.mu.Lock()
	state, ok := c.coord.Complete(o)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.raw = state.Results
	state.Results = state.Results.Sorted(c.sort)
	c.state = state
	c.hovered = ""
	if state.Err != nil {
		c.logger.Error("search failed",
			slog.String("cell", o.Cell.ID),
			slog.Int("page", o.Page),
			slog.String("error", state.Err.Error()),
		)
	}
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// SetSort orders the current and future result pages.
func (c *Controller) SetSort(by catalog.Sortby) {
	c.mu.Lock()
	c.sort = by
	if c.state.Status == search.Loaded {
		c.state.Results = c.raw.Sorted(by)
	}
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Hover marks a result as hovered. Ids not in the current results are
// ignored.
func (c *Controller) Hover(id string) {
	c.mu.Lock()
	if _, ok := c.state.Results.Find(id); !ok || c.hovered == id {
		c.mu.Unlock()
		return
	}
	c.hovered = id
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Leave clears the hovered result.
func (c *Controller) Leave() {
	c.mu.Lock()
	if c.hovered == "" {
		c.mu.Unlock()
		return
	}
	c.hovered = ""
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// ToggleSaved adds or removes an item from the saved list and reports
// whether it is saved afterwards.
func (c *Controller) ToggleSaved(id string) (bool, error) {
	c.mu.Lock()
	for i, item := range c.saved {
		if item.ID == id {
			c.saved = append(c.saved[:i:i], c.saved[i+1:]...)
			snap := c.changedLocked()
			c.mu.Unlock()
			c.emit(snap)
			return false, nil
		}
	}
	item, ok := c.state.Results.Find(id)
	if !ok {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	c.saved = append(c.saved, item)
	snap := c.changedLocked()
	c.mu.Unlock()
	c.emit(snap)
	return true, nil
}

// Saved returns the saved items in the order they were saved.
func (c *Controller) Saved() []*catalog.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*catalog.Item(nil), c.saved...)
}

// Command builds the merge command for a result or saved item.
func (c *Controller) Command(name, itemID string) (string, error) {
	c.mu.Lock()
	item, ok := c.lookupLocked(itemID)
	gen := c.generator
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	return gen.Generate(name, item)
}

// CopyCommand builds the merge command, writes it to the clipboard and
// notifies the user.
func (c *Controller) CopyCommand(name, itemID string) (string, error) {
	cmd, err := c.Command(name, itemID)
	if err != nil {
		return "", err
	}
	if c.clipboard == nil {
		return "", ErrNoClipboard
	}
	if err := c.clipboard.WriteAll(cmd); err != nil {
		return "", fmt.Errorf("failed to write clipboard: %w", err)
	}

	file := command.NormalizeName(name) + ".tif"
	c.logger.Info("command copied", slog.String("item", itemID), slog.String("output", file))
	if c.notifier != nil {
		c.notifier.Notify("GDAL command copied", fmt.Sprintf("Command for %s copied to clipboard", file))
	}
	return cmd, nil
}

func (c *Controller) lookupLocked(id string) (*catalog.Item, bool) {
	if item, ok := c.state.Results.Find(id); ok {
		return item, true
	}
	for _, item := range c.saved {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

// changedLocked bumps the version and captures a snapshot to emit.
func (c *Controller) changedLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	cell, _ := c.selection.Current()
	total, known := pagination.TotalPages(c.state.Results)
	snap := Snapshot{
		Version:    c.version,
		Viewport:   c.view,
		Hash:       viewport.Encode(c.view),
		Cell:       cell,
		Page:       c.pager.Page(),
		TotalPages: total,
		HasTotal:   known,
		Search:     c.state,
		Sort:       c.sort,
		Hovered:    c.hovered,
		Saved:      append([]*catalog.Item(nil), c.saved...),
	}
	if c.view.Zoom < c.minZoom {
		snap.Hint = ZoomHint
	}
	return snap
}

// emit delivers snap unless a newer snapshot has already been delivered.
func (c *Controller) emit(snap Snapshot) {
	if c.listener == nil {
		return
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if snap.Version <= c.lastEmitted {
		return
	}
	c.lastEmitted = snap.Version
	c.listener(snap)
}
