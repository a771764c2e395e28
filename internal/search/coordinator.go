// Package search runs catalog searches for the selected grid cell and decides
// which completions are still current.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
	"github.com/robert-malhotra/stac-grid-explorer/internal/grid"
)

// Searcher performs one catalog item search.
type Searcher interface {
	Search(ctx context.Context, q catalog.Query) (*catalog.ResultSet, error)
}

// Status is the phase of the current search.
type Status int

const (
	// Idle means no cell is selected.
	Idle Status = iota
	// Loading means a search is in flight.
	Loading
	// Loaded means results arrived. They may hold zero features.
	Loaded
	// Failed means the search or its geometry failed.
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// State is the published search state.
type State struct {
	Status     Status
	Results    *catalog.ResultSet
	Err        error
	Cell       *grid.Cell
	Page       int
	Generation uint64
}

// Request is a search that has been started but not run.
type Request struct {
	Generation uint64
	Cell       *grid.Cell
	Page       int
	Query      catalog.Query
}

// Outcome is the result of running a Request.
type Outcome struct {
	Request
	Results *catalog.ResultSet
	Err     error
}

// Coordinator hands out generation-numbered requests. Only the completion of
// the most recent request is published.
type Coordinator struct {
	searcher Searcher
	strategy GeometryStrategy
	pageSize int
	timeout  time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
}

// NewCoordinator creates a coordinator using the footprint strategy.
func NewCoordinator(searcher Searcher) *Coordinator {
	return &Coordinator{
		searcher: searcher,
		strategy: Footprint{},
		pageSize: catalog.DefaultPageSize,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
	}
}

// WithStrategy sets how cell footprints become search geometries.
func (c *Coordinator) WithStrategy(s GeometryStrategy) *Coordinator {
	if s != nil {
		c.strategy = s
	}
	return c
}

// WithPageSize sets the number of items requested per page.
func (c *Coordinator) WithPageSize(n int) *Coordinator {
	if n > 0 {
		c.pageSize = n
	}
	return c
}

// WithTimeout bounds each Run. Zero disables the bound.
func (c *Coordinator) WithTimeout(d time.Duration) *Coordinator {
	c.timeout = d
	return c
}

// WithLogger sets a custom logger.
func (c *Coordinator) WithLogger(logger *slog.Logger) *Coordinator {
	c.logger = logger
	return c
}

// Begin starts a search for page of cell, invalidating every earlier
// request. The returned bool is false when there is nothing to run: the cell
// is nil (Idle) or its geometry is invalid (Failed).
func (c *Coordinator) Begin(cell *grid.Cell, page int) (Request, State, bool) {
	gen := c.bump()
	state := State{Cell: cell, Page: page, Generation: gen}

	if cell == nil {
		state.Status = Idle
		return Request{}, state, false
	}

	geom, err := c.strategy.Geometry(cell)
	if err != nil {
		c.logger.Warn("cannot search cell",
			slog.String("cell", cell.ID),
			slog.String("error", err.Error()),
		)
		state.Status = Failed
		state.Err = err
		return Request{}, state, false
	}

	state.Status = Loading
	req := Request{
		Generation: gen,
		Cell:       cell,
		Page:       page,
		Query: catalog.Query{
			Intersects: geom,
			Limit:      c.pageSize,
			Page:       page,
		},
	}
	return req, state, true
}

// Run performs the search for req. It blocks; callers run it in a goroutine.
func (c *Coordinator) Run(ctx context.Context, req Request) Outcome {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := c.searcher.Search(ctx, req.Query)
	c.logger.DebugContext(ctx, "search finished",
		slog.Uint64("generation", req.Generation),
		slog.String("cell", req.Cell.ID),
		slog.Int("page", req.Page),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil),
	)
	return Outcome{Request: req, Results: results, Err: err}
}

// Complete turns an outcome into a state. The bool is false when a later
// Begin or Invalidate has superseded the outcome, in which case it must be
// dropped.
func (c *Coordinator) Complete(o Outcome) (State, bool) {
	current := c.Generation()
	if o.Generation != current {
		c.logger.Debug("discarding stale search result",
			slog.Uint64("generation", o.Generation),
			slog.Uint64("current", current),
		)
		return State{}, false
	}

	state := State{
		Cell:       o.Cell,
		Page:       o.Page,
		Generation: o.Generation,
	}
	if o.Err != nil {
		state.Status = Failed
		state.Err = o.Err
		return state, true
	}
	state.Status = Loaded
	state.Results = o.Results
	if state.Results == nil {
		state.Results = &catalog.ResultSet{Type: "FeatureCollection"}
	}
	return state, true
}

// Invalidate discards any in-flight request without starting a new one.
func (c *Coordinator) Invalidate() State {
	return State{Status: Idle, Generation: c.bump()}
}

// Generation returns the current generation.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Coordinator) bump() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}
