package quake

// Summary holds a few derived figures about a snapshot's events.
type Summary struct {
	Count           int      `json:"count"`
	WithPosition    int      `json:"withPosition"`
	MaxMagnitude    *float64 `json:"maxMagnitude"`
	LatestOccurred  *int64   `json:"latestOccurredAtMs"`
	StrongestPlace  *string  `json:"strongestPlace"`
	MagnitudeBucket Buckets  `json:"magnitudeBuckets"`
}

// Buckets counts events per magnitude band. Events without a magnitude are
// counted as unknown.
type Buckets struct {
	Unknown  int `json:"unknown"`
	Minor    int `json:"minor"`    // < 2.5
	Light    int `json:"light"`    // 2.5 - 4.5
	Moderate int `json:"moderate"` // 4.5 - 6
	Strong   int `json:"strong"`   // >= 6
}

// Summarize computes the Summary of events in one pass.
func Summarize(events []Event) Summary {
	s := Summary{Count: len(events)}

	for _, ev := range events {
		if ev.HasPosition() {
			s.WithPosition++
		}

		if ev.OccurredAtMs != nil && (s.LatestOccurred == nil || *ev.OccurredAtMs > *s.LatestOccurred) {
			t := *ev.OccurredAtMs
			s.LatestOccurred = &t
		}

		if ev.Magnitude == nil {
			s.MagnitudeBucket.Unknown++
			continue
		}

		mag := *ev.Magnitude
		switch {
		case mag >= 6.0:
			s.MagnitudeBucket.Strong++
		case mag >= 4.5:
			s.MagnitudeBucket.Moderate++
		case mag >= 2.5:
			s.MagnitudeBucket.Light++
		default:
			s.MagnitudeBucket.Minor++
		}

		if s.MaxMagnitude == nil || mag > *s.MaxMagnitude {
			m := mag
			s.MaxMagnitude = &m
			s.StrongestPlace = ev.Place
		}
	}

	return s
}
