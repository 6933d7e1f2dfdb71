package quake

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/umahmood/haversine"
)

// EarthRadiusKm is the mean radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// pointTolerance gives indexed points a non-empty box; rtreego treats
// touching boxes as disjoint.
const pointTolerance = 1e-9

// boxPaddingDeg widens search boxes so a zero radius still hits an event at
// the exact center.
const boxPaddingDeg = 1e-6

// DistanceKm returns the great-circle distance between two points using the
// haversine formula on a sphere of radius EarthRadiusKm.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: lat1, Lon: lon1},
		haversine.Coord{Lat: lat2, Lon: lon2},
	)
	return km
}

// indexedEvent is a leaf of the snapshot's R-tree; pos points into Features.
type indexedEvent struct {
	pos  int
	rect rtreego.Rect
}

func (e *indexedEvent) Bounds() rtreego.Rect {
	return e.rect
}

func (s *Snapshot) spatialIndex() *rtreego.Rtree {
	s.indexOnce.Do(func() {
		items := make([]rtreego.Spatial, 0, len(s.Features))
		for i, ev := range s.Features {
			if !ev.HasPosition() {
				continue
			}
			// x = longitude, y = latitude
			p := rtreego.Point{*ev.Lon, *ev.Lat}
			items = append(items, &indexedEvent{pos: i, rect: p.ToRect(pointTolerance)})
		}
		s.index = rtreego.NewTree(2, 25, 50, items...)
	})
	return s.index
}

// Within returns copies of the events whose distance from center is at most
// radiusKm, each with DistanceKm set. Events lacking lat or lon are skipped.
// The result keeps the snapshot's order.
func (s *Snapshot) Within(center Coordinate, radiusKm float64) []Event {
	results := []Event{}
	if s == nil || radiusKm < 0 || math.IsNaN(radiusKm) {
		return results
	}

	for _, pos := range s.candidates(center, radiusKm) {
		ev := s.Features[pos]
		if !ev.HasPosition() {
			continue
		}
		d := DistanceKm(center.Lat, center.Lon, *ev.Lat, *ev.Lon)
		if d > radiusKm {
			continue
		}
		ev.DistanceKm = &d
		results = append(results, ev)
	}
	return results
}

// candidates narrows the search to events inside the bounding box of the
// search circle. It returns every position when the box would wrap around
// the antimeridian or a pole.
func (s *Snapshot) candidates(center Coordinate, radiusKm float64) []int {
	box, ok := searchBox(center, radiusKm)
	if !ok {
		all := make([]int, len(s.Features))
		for i := range s.Features {
			all[i] = i
		}
		return all
	}

	hits := s.spatialIndex().SearchIntersect(box)
	positions := make([]int, 0, len(hits))
	for _, h := range hits {
		positions = append(positions, h.(*indexedEvent).pos)
	}
	sort.Ints(positions)
	return positions
}

// searchBox computes the lon/lat bounding box of a spherical cap.
func searchBox(center Coordinate, radiusKm float64) (rtreego.Rect, bool) {
	if math.IsInf(radiusKm, 0) || math.IsNaN(center.Lat) || math.IsNaN(center.Lon) {
		return rtreego.Rect{}, false
	}

	angular := radiusKm / EarthRadiusKm
	dLat := angular*180/math.Pi + boxPaddingDeg

	minLat, maxLat := center.Lat-dLat, center.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return rtreego.Rect{}, false
	}

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	ratio := math.Sin(angular) / cosLat
	if angular >= math.Pi/2 || ratio >= 1 {
		return rtreego.Rect{}, false
	}
	dLon := math.Asin(ratio)*180/math.Pi + boxPaddingDeg

	minLon, maxLon := center.Lon-dLon, center.Lon+dLon
	if minLon < -180 || maxLon > 180 {
		return rtreego.Rect{}, false
	}

	box, err := rtreego.NewRectFromPoints(rtreego.Point{minLon, minLat}, rtreego.Point{maxLon, maxLat})
	if err != nil {
		return rtreego.Rect{}, false
	}
	return box, true
}
