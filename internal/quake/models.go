package quake

import (
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"
)

// Coordinate is a resolved point on the globe.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is the simplified view of one feed feature.
// Pointer fields are nil when the upstream feed omitted the value.
type Event struct {
	ID           *string  `json:"id"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	DepthKm      *float64 `json:"depthKm"`
	OccurredAtMs *int64   `json:"occurredAtMs"`
	Magnitude    *float64 `json:"magnitude"`
	Place        *string  `json:"place"`

	// Only set on copies returned from a proximity query.
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// HasPosition reports whether both latitude and longitude are known.
func (e Event) HasPosition() bool {
	return e.Lat != nil && e.Lon != nil
}

// FeedMetadata mirrors the optional metadata block of a GeoJSON summary feed.
type FeedMetadata struct {
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	GeneratedMs int64  `json:"generated,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// Snapshot is an immutable capture of the feed at one point in time.
// A refresh builds a new Snapshot; existing ones are never modified.
type Snapshot struct {
	FetchedAt time.Time    `json:"fetchedAt"` // always UTC
	Metadata  FeedMetadata `json:"metadata"`
	Summary   Summary      `json:"summary"`
	Features  []Event      `json:"features"`

	indexOnce sync.Once
	index     *rtreego.Rtree
}

// NewSnapshot wraps events fetched at fetchedAt into a Snapshot.
func NewSnapshot(events []Event, meta FeedMetadata, fetchedAt time.Time) *Snapshot {
	if events == nil {
		events = []Event{}
	}
	return &Snapshot{
		FetchedAt: fetchedAt.UTC(),
		Metadata:  meta,
		Summary:   Summarize(events),
		Features:  events,
	}
}

// GeoQuery is a per-request proximity query.
type GeoQuery struct {
	PostalCode string
	RadiusKm   float64
	Center     Coordinate
}

// NearbyResult is the shaped answer to a proximity query.
type NearbyResult struct {
	PostalCode string     `json:"postalCode"`
	Center     Coordinate `json:"center"`
	RadiusKm   float64    `json:"radiusKm"`
	FetchedAt  time.Time  `json:"fetchedAt"`
	Count      int        `json:"count"`
	Results    []Event    `json:"results"`
}
