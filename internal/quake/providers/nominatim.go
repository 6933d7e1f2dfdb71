package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/i474232898/quake-proxy/internal/quake"
	"github.com/i474232898/quake-proxy/internal/upstream"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder implements quake.Geocoder against a Nominatim search API.
type NominatimGeocoder struct {
	name      string
	baseURL   string
	userAgent string
	country   string
	client    *upstream.Client
}

// NewNominatimGeocoder creates a geocoder. country, when set, is passed as
// the countrycodes filter (e.g. "us").
func NewNominatimGeocoder(client *http.Client, baseURL, userAgent, country string) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimGeocoder{
		name:      "nominatim",
		baseURL:   baseURL,
		userAgent: userAgent,
		country:   strings.ToLower(strings.TrimSpace(country)),
		client:    upstream.New("nominatim", client, upstream.NoRetry),
	}
}

func (g *NominatimGeocoder) Name() string {
	return g.name
}

func (g *NominatimGeocoder) Resolve(ctx context.Context, postalCode string) (quake.Coordinate, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("postalcode", postalCode)
		values.Set("format", "json")
		values.Set("limit", "1")
		if g.country != "" {
			values.Set("countrycodes", g.country)
		}

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		// Nominatim's usage policy requires an identifying User-Agent.
		if g.userAgent != "" {
			req.Header.Set("User-Agent", g.userAgent)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := g.client.Do(ctx, buildRequest)
	if err != nil {
		return quake.Coordinate{}, &quake.GeocodeUpstreamError{Err: err}
	}
	defer resp.Body.Close()

	var matches []struct {
		Lat         any    `json:"lat"`
		Lon         any    `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return quake.Coordinate{}, &quake.GeocodeUpstreamError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(matches) == 0 {
		return quake.Coordinate{}, quake.ErrGeocodeNotFound
	}

	lat, err := parseDegrees(matches[0].Lat, 90)
	if err != nil {
		return quake.Coordinate{}, &quake.GeocodeUpstreamError{Err: fmt.Errorf("latitude: %w", err)}
	}
	lon, err := parseDegrees(matches[0].Lon, 180)
	if err != nil {
		return quake.Coordinate{}, &quake.GeocodeUpstreamError{Err: fmt.Errorf("longitude: %w", err)}
	}

	return quake.Coordinate{Lat: lat, Lon: lon}, nil
}

// parseDegrees accepts the string encoding Nominatim uses as well as plain
// numbers, and rejects values outside [-limit, limit].
func parseDegrees(v any, limit float64) (float64, error) {
	var f float64
	switch t := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	case float64:
		f = t
	default:
		return 0, fmt.Errorf("unexpected value %v", v)
	}
	if f != f || f < -limit || f > limit {
		return 0, fmt.Errorf("value %v out of range", f)
	}
	return f, nil
}
