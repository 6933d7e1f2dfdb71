package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/i474232898/quake-proxy/internal/upstream"
)

const sampleFeed = `{
  "type": "FeatureCollection",
  "metadata": {"generated": 1700000000000, "url": "https://example.test/feed", "title": "USGS All Earthquakes, Past Day", "count": 4},
  "features": [
    {"type": "Feature", "id": "ci40000001",
     "properties": {"mag": 4.5, "place": "10 km N of Somewhere, CA", "time": 1699999000000, "code": "40000001"},
     "geometry": {"type": "Point", "coordinates": [-118.0, 34.0, 7.5]}},
    {"type": "Feature", "id": "nc70000002",
     "properties": {"mag": 1.2, "place": "Two element", "time": 1699998000000},
     "geometry": {"type": "Point", "coordinates": [-122.1, 37.2]}},
    {"type": "Feature", "id": "hv70000003",
     "properties": {"mag": null, "place": null, "time": null, "code": "70000003"},
     "geometry": {"type": "Point", "coordinates": ["abc", "def", "ghi"]}},
    {"type": "Feature",
     "properties": {"mag": "3.1"},
     "geometry": null}
  ]
}`

func TestParseFeedMapsFeatures(t *testing.T) {
	reading, err := ParseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reading.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(reading.Events))
	}

	first := reading.Events[0]
	if first.ID == nil || *first.ID != "40000001" {
		t.Fatalf("expected id from properties.code, got %v", first.ID)
	}
	if *first.Lat != 34.0 || *first.Lon != -118.0 || *first.DepthKm != 7.5 {
		t.Fatalf("coordinates mapped incorrectly: %+v", first)
	}
	if *first.Magnitude != 4.5 || *first.OccurredAtMs != 1699999000000 {
		t.Fatalf("properties mapped incorrectly: %+v", first)
	}

	second := reading.Events[1]
	if second.DepthKm != nil {
		t.Fatalf("two-element coordinates must leave depth nil")
	}
	if second.Lat == nil || *second.Lat != 37.2 || second.Lon == nil || *second.Lon != -122.1 {
		t.Fatalf("two-element coordinates must keep lat/lon")
	}
	if second.ID == nil || *second.ID != "nc70000002" {
		t.Fatalf("expected fallback to feature id, got %v", second.ID)
	}

	third := reading.Events[2]
	if third.Lat != nil || third.Lon != nil || third.DepthKm != nil {
		t.Fatalf("non-numeric coordinates must be nil: %+v", third)
	}
	if third.Magnitude != nil || third.Place != nil || third.OccurredAtMs != nil {
		t.Fatalf("null properties must be nil: %+v", third)
	}

	fourth := reading.Events[3]
	if fourth.ID != nil || fourth.Lat != nil || fourth.Magnitude != nil {
		t.Fatalf("missing geometry and string magnitude must be nil: %+v", fourth)
	}

	if reading.Metadata.Count != 4 || reading.Metadata.GeneratedMs != 1700000000000 {
		t.Fatalf("metadata mapped incorrectly: %+v", reading.Metadata)
	}
}

func TestParseFeedRejectsBadSchema(t *testing.T) {
	cases := map[string]string{
		"not json":         `<html>`,
		"array":            `[1,2,3]`,
		"missing features": `{"type":"FeatureCollection"}`,
		"features string":  `{"features":"nope"}`,
		"null":             `null`,
	}
	for name, body := range cases {
		if _, err := ParseFeed([]byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestUSGSFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	p := NewUSGSProvider(srv.Client(), srv.URL)
	reading, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reading.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(reading.Events))
	}
}

func TestUSGSFetchNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewUSGSProvider(srv.Client(), srv.URL)
	_, err := p.Fetch(context.Background())
	if !errors.Is(err, upstream.ErrServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestUSGSFetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection"}`))
	}))
	defer srv.Close()

	p := NewUSGSProvider(srv.Client(), srv.URL)
	if _, err := p.Fetch(context.Background()); !errors.Is(err, errMissingFeatures) {
		t.Fatalf("expected missing features error, got %v", err)
	}
}
