package zones

// Match is the nearest zone for a coordinate.
type Match struct {
	Zone          Zone    `json:"zone"`
	DistanceMiles float64 `json:"distanceMiles"`
	InService     bool    `json:"inService"`
}

// Matcher finds the nearest zone. InService is advisory and never sets a
// property's service status on its own.
type Matcher struct {
	serviceRadiusMiles float64
}

// NewMatcher creates a matcher. A non-positive radius falls back to
// DefaultServiceRadiusMiles.
func NewMatcher(serviceRadiusMiles float64) *Matcher {
	if serviceRadiusMiles <= 0 {
		serviceRadiusMiles = DefaultServiceRadiusMiles
	}
	return &Matcher{serviceRadiusMiles: serviceRadiusMiles}
}

// Nearest returns the zone closest to p. Exact distance ties resolve to the
// lexicographically smaller zone id. ok is false when zones is empty.
func (m *Matcher) Nearest(p Point, zones []Zone) (Match, bool) {
	var (
		best  Match
		found bool
	)

	for _, z := range zones {
		d := DistanceMiles(p, z.Center)
		if !found || d < best.DistanceMiles || (d == best.DistanceMiles && z.ID < best.Zone.ID) {
			best = Match{Zone: z, DistanceMiles: d}
			found = true
		}
	}

	if !found {
		return Match{}, false
	}

	best.InService = best.DistanceMiles <= m.serviceRadiusMiles
	return best, true
}
