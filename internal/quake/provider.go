package quake

import (
	"context"
)

// FeedReading is one decoded upstream feed payload.
type FeedReading struct {
	Events   []Event
	Metadata FeedMetadata
}

// FeedProvider abstracts the upstream earthquake feed (e.g. the USGS summary feeds).
type FeedProvider interface {
	Name() string
	Fetch(ctx context.Context) (FeedReading, error)
}

// Geocoder resolves a postal code to a coordinate.
//
// Implementations return ErrGeocodeNotFound when the service has no match and
// a *GeocodeUpstreamError for everything else.
type Geocoder interface {
	Name() string
	Resolve(ctx context.Context, postalCode string) (Coordinate, error)
}

// Store is the contract the in-memory feed cache must satisfy.
type Store interface {
	Replace(snapshot *Snapshot)
	RecordFailure(err *FetchError)
	Current() *Snapshot
	LastFailure() *FetchError
}
