package quake

import (
	"errors"
	"fmt"
	"time"
)

// ErrGeocodeNotFound is returned when the geocoding service has no match for
// the postal code.
var ErrGeocodeNotFound = errors.New("postal code not found")

// FetchError records a failed feed refresh.
type FetchError struct {
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (e *FetchError) Error() string {
	return "feed fetch failed: " + e.Message
}

// NewFetchError stamps err with the current time.
func NewFetchError(err error) *FetchError {
	return &FetchError{
		Message:    err.Error(),
		OccurredAt: time.Now().UTC(),
	}
}

// GeocodeUpstreamError means the geocoding service could not be used at all:
// unreachable, non-success status, bad payload or deadline exceeded.
type GeocodeUpstreamError struct {
	Err error
}

func (e *GeocodeUpstreamError) Error() string {
	return fmt.Sprintf("geocoding service failed: %v", e.Err)
}

func (e *GeocodeUpstreamError) Unwrap() error {
	return e.Err
}

// UnavailableError is returned when no snapshot exists even after a refresh
// attempt. LastError is the most recent fetch failure, if any.
type UnavailableError struct {
	LastError *FetchError
}

func (e *UnavailableError) Error() string {
	if e.LastError != nil {
		return "earthquake data unavailable: " + e.LastError.Message
	}
	return "earthquake data unavailable"
}
