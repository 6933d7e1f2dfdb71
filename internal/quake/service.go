package quake

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/quake-proxy/internal/logging"
	"github.com/i474232898/quake-proxy/internal/metrics"
)

const refreshKey = "feed"

// DefaultTimeout bounds outbound calls when the service is built without one.
const DefaultTimeout = 10 * time.Second

// Service owns the feed refresh path and answers feed and proximity queries.
type Service struct {
	store    Store
	feed     FeedProvider
	geocoder Geocoder
	timeout  time.Duration

	flight singleflight.Group
}

// NewService creates a new Service. timeout bounds each outbound call.
func NewService(store Store, feed FeedProvider, geocoder Geocoder, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		store:    store,
		feed:     feed,
		geocoder: geocoder,
		timeout:  timeout,
	}
}

// Refresh fetches the feed once and swaps the cached snapshot on success. On
// failure the error is recorded as the last failure and the previous
// snapshot stays in place.
//
// Concurrent callers share a single upstream call. The shared call is not
// tied to any caller's context; a caller whose ctx ends stops waiting but
// does not cancel the fetch for the others.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	ch := s.flight.DoChan(refreshKey, func() (interface{}, error) {
		return s.refresh()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (s *Service) refresh() (*Snapshot, error) {
	if s.feed == nil {
		fe := NewFetchError(errors.New("no feed provider configured"))
		s.store.RecordFailure(fe)
		return nil, fe
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	reading, err := s.feed.Fetch(ctx)
	metrics.FeedRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fe := NewFetchError(err)
		s.store.RecordFailure(fe)
		metrics.FeedRefreshes.WithLabelValues("failure").Inc()
		logging.Warn().
			Str("provider", s.feed.Name()).
			Err(err).
			Bool("stale_snapshot_kept", s.store.Current() != nil).
			Msg("feed refresh failed")
		return nil, fe
	}

	snap := NewSnapshot(reading.Events, reading.Metadata, time.Now())
	s.store.Replace(snap)

	metrics.FeedRefreshes.WithLabelValues("success").Inc()
	metrics.FeedEvents.Set(float64(len(snap.Features)))
	metrics.FeedLastSuccess.Set(float64(snap.FetchedAt.Unix()))
	logging.Debug().
		Str("provider", s.feed.Name()).
		Int("events", len(snap.Features)).
		Msg("feed refreshed")
	return snap, nil
}

// Latest returns the cached snapshot, refreshing once if nothing has been
// cached yet. It fails with *UnavailableError when no snapshot exists after
// that attempt.
func (s *Service) Latest(ctx context.Context) (*Snapshot, error) {
	s.ensureLoaded(ctx)
	return s.current()
}

// Nearby resolves q.PostalCode and returns the cached events within
// q.RadiusKm of it.
func (s *Service) Nearby(ctx context.Context, q GeoQuery) (NearbyResult, error) {
	s.ensureLoaded(ctx)

	center, err := s.resolve(ctx, q.PostalCode)
	if err != nil {
		return NearbyResult{}, err
	}
	q.Center = center

	snap, err := s.current()
	if err != nil {
		return NearbyResult{}, err
	}

	results := snap.Within(q.Center, q.RadiusKm)
	return NearbyResult{
		PostalCode: q.PostalCode,
		Center:     q.Center,
		RadiusKm:   q.RadiusKm,
		FetchedAt:  snap.FetchedAt,
		Count:      len(results),
		Results:    results,
	}, nil
}

// Current delegates to the underlying store.
func (s *Service) Current() *Snapshot {
	return s.store.Current()
}

// LastFailure delegates to the underlying store.
func (s *Service) LastFailure() *FetchError {
	return s.store.LastFailure()
}

func (s *Service) ensureLoaded(ctx context.Context) {
	if s.store.Current() != nil {
		return
	}
	if _, err := s.Refresh(ctx); err != nil {
		logging.Debug().Err(err).Msg("on-demand feed refresh failed")
	}
}

func (s *Service) current() (*Snapshot, error) {
	snap := s.store.Current()
	if snap == nil {
		return nil, &UnavailableError{LastError: s.store.LastFailure()}
	}
	return snap, nil
}

func (s *Service) resolve(ctx context.Context, postalCode string) (Coordinate, error) {
	if s.geocoder == nil {
		return Coordinate{}, &GeocodeUpstreamError{Err: errors.New("no geocoder configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	center, err := s.geocoder.Resolve(ctx, postalCode)
	switch {
	case err == nil:
		metrics.GeocodeLookups.WithLabelValues(s.geocoder.Name(), "found").Inc()
		return center, nil
	case errors.Is(err, ErrGeocodeNotFound):
		metrics.GeocodeLookups.WithLabelValues(s.geocoder.Name(), "not_found").Inc()
		return Coordinate{}, ErrGeocodeNotFound
	default:
		metrics.GeocodeLookups.WithLabelValues(s.geocoder.Name(), "error").Inc()
		logging.Warn().Str("geocoder", s.geocoder.Name()).Err(err).Msg("geocode failed")
		var upstream *GeocodeUpstreamError
		if errors.As(err, &upstream) {
			return Coordinate{}, upstream
		}
		return Coordinate{}, &GeocodeUpstreamError{Err: err}
	}
}

// NormalizeRadius returns v when it is a finite number above zero, def otherwise.
func NormalizeRadius(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return def
	}
	return v
}
