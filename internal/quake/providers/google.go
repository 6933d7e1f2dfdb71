package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/quake-proxy/internal/common"
	"github.com/i474232898/quake-proxy/internal/quake"
)

// MaxGoogleInFlight caps concurrent Google lookups. The client library uses
// an http.Client without a timeout, so a hung call holds its slot until the
// remote side gives up.
const MaxGoogleInFlight = 8

var errTooManyLookups = errors.New("too many geocoding lookups in flight")

// GoogleGeocoder implements quake.Geocoder with the Google Geocoding API.
// The underlying client keeps its API key in a package variable, so only
// one key per process is supported.
type GoogleGeocoder struct {
	name     string
	country  string
	lookup   func(geocoder.Address) (geocoder.Location, error)
	inFlight chan struct{}
}

func NewGoogleGeocoder(apiKey, country string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		name:     "google",
		country:  country,
		lookup:   geocoder.Geocoding,
		inFlight: make(chan struct{}, MaxGoogleInFlight),
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

func (g *GoogleGeocoder) Resolve(ctx context.Context, postalCode string) (quake.Coordinate, error) {
	type result struct {
		loc geocoder.Location
		err error
	}

	if g.inFlight != nil {
		select {
		case g.inFlight <- struct{}{}:
		default:
			return quake.Coordinate{}, &quake.GeocodeUpstreamError{Err: errTooManyLookups}
		}
	}

	// The library builds its query string without escaping.
	addr := geocoder.Address{
		PostalCode: url.QueryEscape(postalCode),
		Country:    url.QueryEscape(g.country),
	}

	// The client takes no context, so the deadline is enforced here.
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if g.inFlight != nil {
				<-g.inFlight
			}
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("geocoder panic: %v", r)}
			}
		}()
		loc, err := g.lookup(addr)
		ch <- result{loc: loc, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return quake.Coordinate{}, &quake.GeocodeUpstreamError{Err: ctx.Err()}
	case r = <-ch:
	}

	if r.err != nil {
		if common.HasAny(r.err.Error(), "no results", "zero_results") {
			return quake.Coordinate{}, quake.ErrGeocodeNotFound
		}
		return quake.Coordinate{}, &quake.GeocodeUpstreamError{Err: withoutURL(r.err)}
	}

	return quake.Coordinate{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
}

// withoutURL drops the request URL, which carries the API key, from
// transport errors.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: "google-geocoding", Err: urlErr.Err}
	}
	return err
}
