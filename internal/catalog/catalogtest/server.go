// Package catalogtest provides an in-process fake of the catalog search
// endpoint for tests.
package catalogtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/robert-malhotra/stac-grid-explorer/internal/catalog"
	"github.com/robert-malhotra/stac-grid-explorer/pkg/geojson"
)

// Collection is the collection served by the fake.
const Collection = "sentinel-s2-l2a-cogs"

// Server is a fake STAC item search endpoint.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	items      []*catalog.Item
	requests   []url.Values
	failNext   int
	failStatus int
}

// NewServer starts a fake serving items. Call Close when done.
func NewServer(items []*catalog.Item) *Server {
	s := &Server{items: items}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/v0/collections/{collectionId}/items", s.search)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})

	s.Server = httptest.NewServer(r)
	return s
}

// SearchURL returns the items endpoint of the fake.
func (s *Server) SearchURL() string {
	return s.URL + "/v0/collections/" + Collection + "/items"
}

// FailNext makes the next n requests fail with status.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failStatus = status
}

// Requests returns the query parameters of every request received so far.
func (s *Server) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	s.mu.Lock()
	s.requests = append(s.requests, query)
	if s.failNext > 0 {
		s.failNext--
		status := s.failStatus
		s.mu.Unlock()
		writeError(w, status, "injected failure")
		return
	}
	items := s.items
	s.mu.Unlock()

	if chi.URLParam(r, "collectionId") != Collection {
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}

	var geom geojson.Geometry
	if err := json.Unmarshal([]byte(query.Get("intersects")), &geom); err != nil || geom.Type == "" {
		writeError(w, http.StatusBadRequest, "invalid intersects parameter")
		return
	}

	limit, err := intParam(query, "limit", 10)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	page, err := intParam(query, "page", 1)
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "invalid page parameter")
		return
	}

	start := min((page-1)*limit, len(items))
	end := min(start+limit, len(items))
	features := items[start:end]

	w.Header().Set("Content-Type", "application/geo+json")
	json.NewEncoder(w).Encode(catalog.ResultSet{
		Type:     "FeatureCollection",
		Features: features,
		Context: catalog.Context{
			Page:     page,
			Limit:    limit,
			Matched:  len(items),
			Returned: len(features),
		},
	})
}

func intParam(values url.Values, key string, def int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":        http.StatusText(status),
		"description": message,
	})
}

// NewItem builds a Sentinel-2 style item whose band assets live in the
// sentinel-cogs bucket.
func NewItem(id string) *catalog.Item {
	prefix := fmt.Sprintf("s3://sentinel-cogs/sentinel-s2-l2a-cogs/%s", id)
	return &catalog.Item{
		Type:       "Feature",
		ID:         id,
		Collection: Collection,
		Geometry:   json.RawMessage(`{"type":"Polygon","coordinates":[[[12,45],[13,45],[13,46],[12,46],[12,45]]]}`),
		BBox:       []float64{12, 45, 13, 46},
		Properties: map[string]any{
			catalog.PropertyDatetime:   "2020-08-01T10:20:30Z",
			catalog.PropertyCloudCover: 12.5,
		},
		Assets: map[string]*catalog.Asset{
			catalog.AssetThumbnail: {Href: "https://roda.sentinel-hub.com/sentinel-s2-l1c/tiles/" + id + "/preview.jpg", Type: "image/jpeg"},
			"B02":                  {Href: prefix + "/B02.tif", Type: "image/tiff; application=geotiff; profile=cloud-optimized"},
			"B03":                  {Href: prefix + "/B03.tif", Type: "image/tiff; application=geotiff; profile=cloud-optimized"},
			"B04":                  {Href: prefix + "/B04.tif", Type: "image/tiff; application=geotiff; profile=cloud-optimized"},
		},
	}
}

// NewItems builds n items with ids scene-001 onwards.
func NewItems(n int) []*catalog.Item {
	items := make([]*catalog.Item, n)
	for i := range items {
		items[i] = NewItem(fmt.Sprintf("scene-%03d", i+1))
	}
	return items
}
