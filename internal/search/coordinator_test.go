package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog/catalogtest"
	"github.com/robert-malhotra/stac-grid-explorer/internal/grid"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []catalog.Query
	result  *catalog.ResultSet
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, q catalog.Query) (*catalog.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.result, f.err
}

func testCell(t *testing.T, lon, lat float64) *grid.Cell {
	t.Helper()
	tiling, err := grid.NewTiling(1)
	if err != nil {
		t.Fatalf("NewTiling failed: %v", err)
	}
	cell, err := tiling.CellAt(lon, lat)
	if err != nil {
		t.Fatalf("CellAt failed: %v", err)
	}
	return cell
}

func TestCoordinator_BeginNilCell(t *testing.T) {
	c := NewCoordinator(&fakeSearcher{})

	_, state, ok := c.Begin(nil, 1)
	if ok {
		t.Error("Expected no request for a nil cell")
	}
	if state.Status != Idle {
		t.Errorf("Expected Idle, got %s", state.Status)
	}
}

func TestCoordinator_BeginInvalidGeometry(t *testing.T) {
	c := NewCoordinator(&fakeSearcher{})

	tests := []struct {
		name string
		wkt  string
	}{
		{"missing", ""},
		{"garbage", "not wkt"},
		{"bad coordinates", "POINT(a b)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := &grid.Cell{ID: "bad", Properties: grid.CellProperties{ID: "bad", LLWKT: tt.wkt}}
			_, state, ok := c.Begin(cell, 1)
			if ok {
				t.Fatal("Expected no request for invalid geometry")
			}
			if state.Status != Failed {
				t.Errorf("Expected Failed, got %s", state.Status)
			}
			if !errors.Is(state.Err, ErrInvalidGeometry) {
				t.Errorf("Expected ErrInvalidGeometry, got %v", state.Err)
			}
		})
	}
}

func TestCoordinator_RunAndComplete(t *testing.T) {
	searcher := &fakeSearcher{result: &catalog.ResultSet{Features: catalogtest.NewItems(2)}}
	c := NewCoordinator(searcher).WithPageSize(25)
	cell := testCell(t, 12.5, 45.5)

	req, state, ok := c.Begin(cell, 2)
	if !ok {
		t.Fatalf("Begin failed: %v", state.Err)
	}
	if state.Status != Loading {
		t.Errorf("Expected Loading, got %s", state.Status)
	}
	if req.Query.Limit != 25 || req.Query.Page != 2 {
		t.Errorf("Expected limit 25 page 2, got %+v", req.Query)
	}
	if req.Query.Intersects == nil || req.Query.Intersects.Type != "Polygon" {
		t.Errorf("Expected polygon intersects, got %v", req.Query.Intersects)
	}

	state, ok = c.Complete(c.Run(context.Background(), req))
	if !ok {
		t.Fatal("Expected current outcome to be published")
	}
	if state.Status != Loaded {
		t.Errorf("Expected Loaded, got %s", state.Status)
	}
	if len(state.Results.Features) != 2 {
		t.Errorf("Expected 2 features, got %d", len(state.Results.Features))
	}
	if state.Cell.ID != cell.ID || state.Page != 2 {
		t.Errorf("Expected cell %s page 2, got %s page %d", cell.ID, state.Cell.ID, state.Page)
	}
}

func TestCoordinator_ZeroResultsIsLoaded(t *testing.T) {
	c := NewCoordinator(&fakeSearcher{result: &catalog.ResultSet{}})

	req, _, _ := c.Begin(testCell(t, 0.5, 0.5), 1)
	state, ok := c.Complete(c.Run(context.Background(), req))
	if !ok || state.Status != Loaded {
		t.Fatalf("Expected Loaded, got %s (published=%v)", state.Status, ok)
	}
	if len(state.Results.Features) != 0 {
		t.Errorf("Expected no features, got %d", len(state.Results.Features))
	}
}

func TestCoordinator_FailureIsFailed(t *testing.T) {
	upstream := errors.New("boom")
	c := NewCoordinator(&fakeSearcher{err: upstream})

	req, _, _ := c.Begin(testCell(t, 0.5, 0.5), 1)
	state, ok := c.Complete(c.Run(context.Background(), req))
	if !ok {
		t.Fatal("Expected failure to be published")
	}
	if state.Status != Failed {
		t.Errorf("Expected Failed, got %s", state.Status)
	}
	if !errors.Is(state.Err, upstream) {
		t.Errorf("Expected upstream error, got %v", state.Err)
	}
	if state.Results != nil {
		t.Error("Failed state should carry no results")
	}
}

func TestCoordinator_LastRequestWins(t *testing.T) {
	c := NewCoordinator(&fakeSearcher{result: &catalog.ResultSet{Features: catalogtest.NewItems(1)}})

	first, _, _ := c.Begin(testCell(t, 0.5, 0.5), 1)
	second, _, _ := c.Begin(testCell(t, 10.5, 10.5), 1)

	// second completes first, then the older request straggles in
	secondOutcome := c.Run(context.Background(), second)
	firstOutcome := c.Run(context.Background(), first)

	state, ok := c.Complete(secondOutcome)
	if !ok || state.Cell.ID != second.Cell.ID {
		t.Fatalf("Expected second request to publish, got %v", state.Cell)
	}
	if _, ok := c.Complete(firstOutcome); ok {
		t.Error("Stale outcome must not be published")
	}
}

func TestCoordinator_InvalidateDropsInFlight(t *testing.T) {
	c := NewCoordinator(&fakeSearcher{result: &catalog.ResultSet{}})

	req, _, _ := c.Begin(testCell(t, 0.5, 0.5), 1)
	state := c.Invalidate()
	if state.Status != Idle {
		t.Errorf("Expected Idle after Invalidate, got %s", state.Status)
	}

	if _, ok := c.Complete(c.Run(context.Background(), req)); ok {
		t.Error("Outcome of an invalidated request must not be published")
	}
}

type blockingSearcher struct{}

func (blockingSearcher) Search(ctx context.Context, q catalog.Query) (*catalog.ResultSet, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCoordinator_RunTimeout(t *testing.T) {
	c := NewCoordinator(blockingSearcher{}).WithTimeout(20 * time.Millisecond)

	req, _, _ := c.Begin(testCell(t, 0.5, 0.5), 1)
	state, ok := c.Complete(c.Run(context.Background(), req))
	if !ok || state.Status != Failed {
		t.Fatalf("Expected Failed after timeout, got %s", state.Status)
	}
	if !errors.Is(state.Err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", state.Err)
	}
}

func TestCoordinator_CentroidStrategy(t *testing.T) {
	searcher := &fakeSearcher{result: &catalog.ResultSet{}}
	c := NewCoordinator(searcher).WithStrategy(CentroidBuffer{RadiusMeters: 5000})

	req, state, ok := c.Begin(testCell(t, 12.5, 45.5), 1)
	if !ok {
		t.Fatalf("Begin failed: %v", state.Err)
	}

	bbox, err := req.Query.Intersects.BBox()
	if err != nil {
		t.Fatalf("BBox failed: %v", err)
	}
	// a 5 km square around (12.5, 45.5) is well inside the cell
	if bbox[0] <= 12 || bbox[2] >= 13 || bbox[1] <= 45 || bbox[3] >= 46 {
		t.Errorf("Expected buffer inside the cell, got %v", bbox)
	}
	if bbox[0] >= 12.5 || bbox[2] <= 12.5 {
		t.Errorf("Expected buffer around the centroid, got %v", bbox)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		radius  float64
		want    GeometryStrategy
		wantErr bool
	}{
		{"", 0, Footprint{}, false},
		{"footprint", 0, Footprint{}, false},
		{"Centroid", 5000, CentroidBuffer{RadiusMeters: 5000}, false},
		{"centroid", 0, nil, true},
		{"hexagon", 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.name, tt.radius)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{Idle: "idle", Loading: "loading", Loaded: "loaded", Failed: "failed"}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}
