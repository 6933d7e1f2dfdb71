package quake

import (
	"math"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func eventAt(id string, lat, lon float64) Event {
	return Event{ID: &id, Lat: f64(lat), Lon: f64(lon)}
}

func TestDistanceIdentity(t *testing.T) {
	points := [][2]float64{{0, 0}, {34.0, -118.0}, {-33.87, 151.21}, {89.9, 179.9}, {-90, -180}}
	for _, p := range points {
		if d := DistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("distance from %v to itself = %v, want 0", p, d)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{34.0, -118.0, 34.01, -118.01},
		{51.5, -0.12, 40.71, -74.0},
		{-33.87, 151.21, 35.68, 139.69},
		{10, 179.5, 10, -179.5},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("asymmetric distance for %v: %v vs %v", p, ab, ba)
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// One degree of latitude on a 6371 km sphere.
	want := 2 * math.Pi * EarthRadiusKm / 360
	if got := DistanceKm(0, 0, 1, 0); math.Abs(got-want) > 1e-6 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestWithinKeepsSnapshotOrder(t *testing.T) {
	events := []Event{
		eventAt("far", 40.0, -100.0),
		eventAt("b", 34.2, -118.2),
		eventAt("a", 34.0, -118.0),
		eventAt("c", 34.5, -118.5),
	}
	snap := NewSnapshot(events, FeedMetadata{}, time.Now())

	got := snap.Within(Coordinate{Lat: 34.0, Lon: -118.0}, 100)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	wantOrder := []string{"b", "a", "c"}
	for i, ev := range got {
		if *ev.ID != wantOrder[i] {
			t.Fatalf("result %d = %s, want %s", i, *ev.ID, wantOrder[i])
		}
		if ev.DistanceKm == nil {
			t.Fatalf("result %d has no distance", i)
		}
	}
	if snap.Features[1].DistanceKm != nil {
		t.Fatalf("canonical events must not be modified")
	}
}

func TestWithinSkipsEventsWithoutPosition(t *testing.T) {
	lat := 34.0
	events := []Event{
		{Lat: nil, Lon: nil},
		{Lat: &lat, Lon: nil},
		eventAt("ok", 34.0, -118.0),
	}
	snap := NewSnapshot(events, FeedMetadata{}, time.Now())

	for _, r := range []float64{0, 1, 1000, 20040} {
		for _, ev := range snap.Within(Coordinate{Lat: 34.0, Lon: -118.0}, r) {
			if !ev.HasPosition() {
				t.Fatalf("radius %v returned an event without position", r)
			}
		}
	}
}

func TestWithinZeroRadius(t *testing.T) {
	events := []Event{eventAt("near", 34.0001, -118.0)}
	snap := NewSnapshot(events, FeedMetadata{}, time.Now())
	if got := snap.Within(Coordinate{Lat: 34.0, Lon: -118.0}, 0); len(got) != 0 {
		t.Fatalf("expected no results at radius 0, got %d", len(got))
	}

	exact := NewSnapshot([]Event{eventAt("here", 34.0, -118.0)}, FeedMetadata{}, time.Now())
	got := exact.Within(Coordinate{Lat: 34.0, Lon: -118.0}, 0)
	if len(got) != 1 || *got[0].DistanceKm != 0 {
		t.Fatalf("expected the event at the exact center, got %+v", got)
	}
}

func TestWithinAcrossAntimeridian(t *testing.T) {
	events := []Event{eventAt("east", -17.0, 179.9), eventAt("west", -17.0, -179.9)}
	snap := NewSnapshot(events, FeedMetadata{}, time.Now())

	got := snap.Within(Coordinate{Lat: -17.0, Lon: 179.95}, 50)
	if len(got) != 2 {
		t.Fatalf("expected both events across the antimeridian, got %d", len(got))
	}
}

func TestWithinNearPole(t *testing.T) {
	events := []Event{eventAt("pole", 89.99, 10), eventAt("other side", 89.99, -170)}
	snap := NewSnapshot(events, FeedMetadata{}, time.Now())

	got := snap.Within(Coordinate{Lat: 89.99, Lon: 10}, 50)
	if len(got) != 2 {
		t.Fatalf("expected both polar events, got %d", len(got))
	}
}

func TestWithinMatchesLinearScan(t *testing.T) {
	var events []Event
	for lat := -60.0; lat <= 60; lat += 7.5 {
		for lon := -170.0; lon <= 170; lon += 11.25 {
			events = append(events, eventAt("e", lat, lon))
		}
	}
	snap := NewSnapshot(events, FeedMetadata{}, time.Now())
	center := Coordinate{Lat: 12.3, Lon: 45.6}

	for _, r := range []float64{100, 800, 2500, 6000} {
		want := 0
		for _, ev := range events {
			if DistanceKm(center.Lat, center.Lon, *ev.Lat, *ev.Lon) <= r {
				want++
			}
		}
		if got := len(snap.Within(center, r)); got != want {
			t.Errorf("radius %v: indexed search found %d, linear scan %d", r, got, want)
		}
	}
}
