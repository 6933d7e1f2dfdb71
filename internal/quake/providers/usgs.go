package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/i474232898/quake-proxy/internal/quake"
	"github.com/i474232898/quake-proxy/internal/upstream"
)

// DefaultUSGSFeedURL is the USGS "all earthquakes, past day" summary feed.
const DefaultUSGSFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"

// maxFeedBytes caps the feed body; the monthly summary feed is well below it.
const maxFeedBytes = 64 << 20

var errMissingFeatures = errors.New("payload has no features array")

// USGSProvider implements quake.FeedProvider for USGS GeoJSON summary feeds.
type USGSProvider struct {
	name    string
	feedURL string
	client  *upstream.Client
}

// NewUSGSProvider performs a single attempt per Fetch; periodic refresh is
// the retry policy.
func NewUSGSProvider(client *http.Client, feedURL string) *USGSProvider {
	if feedURL == "" {
		feedURL = DefaultUSGSFeedURL
	}
	return &USGSProvider{
		name:    "usgs",
		feedURL: feedURL,
		client:  upstream.New("usgs", client, upstream.NoRetry),
	}
}

func (p *USGSProvider) Name() string {
	return p.name
}

func (p *USGSProvider) Fetch(ctx context.Context) (quake.FeedReading, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/geo+json, application/json")
		return req, nil
	}

	resp, err := p.client.Do(ctx, buildRequest)
	if err != nil {
		return quake.FeedReading{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return quake.FeedReading{}, fmt.Errorf("read feed body: %w", err)
	}

	return ParseFeed(body)
}

// rawFeed is the subset of a GeoJSON FeatureCollection we read. Scalar
// fields are decoded loosely so one odd feature cannot reject the payload.
type rawFeed struct {
	Metadata map[string]any `json:"metadata"`
	Features *[]rawFeature  `json:"features"`
}

type rawFeature struct {
	ID         any            `json:"id"`
	Geometry   *rawGeometry   `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type rawGeometry struct {
	Coordinates any `json:"coordinates"`
}

// ParseFeed decodes a GeoJSON feature collection into events. It fails only
// when the payload is not a JSON object with a features array.
func ParseFeed(body []byte) (quake.FeedReading, error) {
	var feed rawFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return quake.FeedReading{}, fmt.Errorf("decode feed: %w", err)
	}
	if feed.Features == nil {
		return quake.FeedReading{}, errMissingFeatures
	}

	events := make([]quake.Event, 0, len(*feed.Features))
	for _, f := range *feed.Features {
		events = append(events, toEvent(f))
	}

	return quake.FeedReading{
		Events:   events,
		Metadata: toMetadata(feed.Metadata),
	}, nil
}

// toEvent maps one raw feature. Coordinates are [lon, lat, depth].
func toEvent(f rawFeature) quake.Event {
	var ev quake.Event

	if f.Geometry != nil {
		if coords, ok := f.Geometry.Coordinates.([]any); ok {
			ev.Lon = numberAt(coords, 0)
			ev.Lat = numberAt(coords, 1)
			ev.DepthKm = numberAt(coords, 2)
		}
	}

	ev.ID = stringOf(f.Properties["code"])
	if ev.ID == nil {
		ev.ID = stringOf(f.ID)
	}
	ev.Magnitude = numberOf(f.Properties["mag"])
	ev.Place = stringOf(f.Properties["place"])
	if t := numberOf(f.Properties["time"]); t != nil {
		ms := int64(*t)
		ev.OccurredAtMs = &ms
	}

	return ev
}

func toMetadata(m map[string]any) quake.FeedMetadata {
	var meta quake.FeedMetadata
	if s := stringOf(m["title"]); s != nil {
		meta.Title = *s
	}
	if s := stringOf(m["url"]); s != nil {
		meta.URL = *s
	}
	if n := numberOf(m["generated"]); n != nil {
		meta.GeneratedMs = int64(*n)
	}
	if n := numberOf(m["count"]); n != nil {
		meta.Count = int(*n)
	}
	return meta
}

func numberAt(values []any, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return numberOf(values[i])
}

func numberOf(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func stringOf(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
