package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog/catalogtest"
	"github.com/robert-malhotra/stac-grid-explorer/pkg/geojson"
)

func cellGeometry(t *testing.T) *geojson.Geometry {
	t.Helper()
	g, err := geojson.FromWKT("POLYGON((12 45,13 45,13 46,12 46,12 45))")
	if err != nil {
		t.Fatalf("FromWKT failed: %v", err)
	}
	return g
}

func TestClient_Search_Success(t *testing.T) {
	server := catalogtest.NewServer(catalogtest.NewItems(3))
	defer server.Close()

	client := catalog.NewClient(server.SearchURL(), 30*time.Second)

	result, err := client.Search(context.Background(), catalog.Query{
		Intersects: cellGeometry(t),
		Limit:      50,
		Page:       1,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(result.Features) != 3 {
		t.Fatalf("Expected 3 features, got %d", len(result.Features))
	}
	if result.Context.Matched != 3 || result.Context.Limit != 50 {
		t.Errorf("Expected context matched=3 limit=50, got %+v", result.Context)
	}

	item := result.Features[0]
	if item.ID != "scene-001" {
		t.Errorf("Expected id scene-001, got %s", item.ID)
	}
	if item.Collection != catalogtest.Collection {
		t.Errorf("Expected collection %s, got %s", catalogtest.Collection, item.Collection)
	}
	if got := item.AssetHref("B04"); got != "s3://sentinel-cogs/sentinel-s2-l2a-cogs/scene-001/B04.tif" {
		t.Errorf("Unexpected B04 href %s", got)
	}
	if cc, ok := item.CloudCover(); !ok || cc != 12.5 {
		t.Errorf("Expected cloud cover 12.5, got %v (present=%v)", cc, ok)
	}
	if want := time.Date(2020, 8, 1, 10, 20, 30, 0, time.UTC); !item.Datetime().Equal(want) {
		t.Errorf("Expected datetime %s, got %s", want, item.Datetime())
	}
}

func TestClient_Search_WithParams(t *testing.T) {
	server := catalogtest.NewServer(catalogtest.NewItems(120))
	defer server.Close()

	client := catalog.NewClient(server.SearchURL(), 30*time.Second)

	result, err := client.Search(context.Background(), catalog.Query{
		Intersects: cellGeometry(t),
		Limit:      50,
		Page:       3,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(result.Features) != 20 {
		t.Errorf("Expected 20 features on the last page, got %d", len(result.Features))
	}
	if result.Features[0].ID != "scene-101" {
		t.Errorf("Expected first id scene-101, got %s", result.Features[0].ID)
	}

	requests := server.Requests()
	if len(requests) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(requests))
	}
	params := requests[0]
	if params.Get("limit") != "50" {
		t.Errorf("Expected limit=50, got %s", params.Get("limit"))
	}
	if params.Get("page") != "3" {
		t.Errorf("Expected page=3, got %s", params.Get("page"))
	}

	var geom geojson.Geometry
	if err := json.Unmarshal([]byte(params.Get("intersects")), &geom); err != nil {
		t.Fatalf("intersects is not JSON: %v", err)
	}
	if geom.Type != "Polygon" {
		t.Errorf("Expected Polygon intersects, got %s", geom.Type)
	}
}

func TestClient_Search_KeepsExistingQueryParams(t *testing.T) {
	var captured string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.RawQuery
		json.NewEncoder(w).Encode(catalog.ResultSet{Type: "FeatureCollection"})
	}))
	defer server.Close()

	client := catalog.NewClient(server.URL+"/search?collections=sentinel-2-l2a", 30*time.Second)
	_, err := client.Search(context.Background(), catalog.Query{Intersects: cellGeometry(t), Limit: 10, Page: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if !strings.Contains(captured, "collections=sentinel-2-l2a") {
		t.Errorf("Expected existing query parameter to be kept, got %s", captured)
	}
	if !strings.Contains(captured, "limit=10") {
		t.Errorf("Expected limit=10, got %s", captured)
	}
}

func TestClient_Search_Non200Status(t *testing.T) {
	server := catalogtest.NewServer(catalogtest.NewItems(1))
	defer server.Close()
	server.FailNext(1, http.StatusBadRequest)

	client := catalog.NewClient(server.SearchURL(), 30*time.Second).WithRetries(1)
	_, err := client.Search(context.Background(), catalog.Query{Intersects: cellGeometry(t), Limit: 10, Page: 1})
	if err == nil {
		t.Fatal("Expected error for 400 status")
	}
	if !errors.Is(err, catalog.ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("Expected error to mention status 400, got %v", err)
	}

	// 4xx is not retried
	if got := len(server.Requests()); got != 1 {
		t.Errorf("Expected 1 request, got %d", got)
	}
}

func TestClient_Search_RetriesServerError(t *testing.T) {
	server := catalogtest.NewServer(catalogtest.NewItems(2))
	defer server.Close()
	server.FailNext(1, http.StatusServiceUnavailable)

	client := catalog.NewClient(server.SearchURL(), 30*time.Second).WithRetries(1)
	result, err := client.Search(context.Background(), catalog.Query{Intersects: cellGeometry(t), Limit: 10, Page: 1})
	if err != nil {
		t.Fatalf("Search should succeed after one retry: %v", err)
	}
	if len(result.Features) != 2 {
		t.Errorf("Expected 2 features, got %d", len(result.Features))
	}
	if got := len(server.Requests()); got != 2 {
		t.Errorf("Expected 2 requests, got %d", got)
	}
}

func TestClient_Search_GivesUpAfterRetries(t *testing.T) {
	server := catalogtest.NewServer(catalogtest.NewItems(2))
	defer server.Close()
	server.FailNext(5, http.StatusBadGateway)

	client := catalog.NewClient(server.SearchURL(), 30*time.Second).WithRetries(1)
	_, err := client.Search(context.Background(), catalog.Query{Intersects: cellGeometry(t), Limit: 10, Page: 1})
	if !errors.Is(err, catalog.ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
	if got := len(server.Requests()); got != 2 {
		t.Errorf("Expected 2 requests, got %d", got)
	}
}

func TestClient_Search_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("not valid json"))
	}))
	defer server.Close()

	client := catalog.NewClient(server.URL, 30*time.Second)
	_, err := client.Search(context.Background(), catalog.Query{Intersects: cellGeometry(t), Limit: 10, Page: 1})
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("Expected decode error, got %v", err)
	}
}

func TestClient_Search_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := catalog.NewClient(server.URL, 50*time.Millisecond)
	_, err := client.Search(context.Background(), catalog.Query{Intersects: cellGeometry(t), Limit: 10, Page: 1})
	if err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestClient_Search_ContextCanceled(t *testing.T) {
	server := catalogtest.NewServer(catalogtest.NewItems(1))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := catalog.NewClient(server.SearchURL(), 30*time.Second).WithRetries(3)
	_, err := client.Search(ctx, catalog.Query{Intersects: cellGeometry(t), Limit: 10, Page: 1})
	if err == nil {
		t.Fatal("Expected error for canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestClient_Search_InvalidQuery(t *testing.T) {
	client := catalog.NewClient("http://localhost:1", time.Second)

	tests := []struct {
		name  string
		query catalog.Query
	}{
		{"missing geometry", catalog.Query{Limit: 10, Page: 1}},
		{"zero limit", catalog.Query{Intersects: cellGeometry(t), Page: 1}},
		{"zero page", catalog.Query{Intersects: cellGeometry(t), Limit: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.Search(context.Background(), tt.query); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestResultSet_Find(t *testing.T) {
	rs := &catalog.ResultSet{Features: catalogtest.NewItems(3)}

	item, ok := rs.Find("scene-002")
	if !ok || item.ID != "scene-002" {
		t.Errorf("Expected to find scene-002, got %v", item)
	}
	if _, ok := rs.Find("missing"); ok {
		t.Error("Expected missing id not to be found")
	}

	var empty *catalog.ResultSet
	if _, ok := empty.Find("scene-001"); ok {
		t.Error("Find on a nil result set should report false")
	}
}

func TestItem_FootprintBounds(t *testing.T) {
	tests := []struct {
		name    string
		item    *catalog.Item
		want    []float64
		wantErr bool
	}{
		{
			name: "from geometry",
			item: catalogtest.NewItem("scene-001"),
			want: []float64{12, 45, 13, 46},
		},
		{
			name: "bbox fallback",
			item: &catalog.Item{ID: "bbox-only", BBox: []float64{-1, -2, 3, 4}},
			want: []float64{-1, -2, 3, 4},
		},
		{
			name: "null geometry uses bbox",
			item: &catalog.Item{ID: "null-geom", Geometry: json.RawMessage("null"), BBox: []float64{5, 6, 7, 8}},
			want: []float64{5, 6, 7, 8},
		},
		{
			name:    "nothing to go on",
			item:    &catalog.Item{ID: "empty"},
			wantErr: true,
		},
		{
			name:    "broken geometry",
			item:    &catalog.Item{ID: "broken", Geometry: json.RawMessage(`{"type":`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.item.FootprintBounds()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FootprintBounds failed: %v", err)
			}
			if len(got) != 4 {
				t.Fatalf("Expected 4 values, got %v", got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestItem_Thumbnail(t *testing.T) {
	item := catalogtest.NewItem("scene-007")
	if got := item.Thumbnail(); got != "https://roda.sentinel-hub.com/sentinel-s2-l1c/tiles/scene-007/preview.jpg" {
		t.Errorf("Unexpected thumbnail %s", got)
	}
	if got := (&catalog.Item{ID: "bare"}).Thumbnail(); got != "" {
		t.Errorf("Expected empty thumbnail, got %s", got)
	}
}
