package zones

import (
	"math"
	"testing"
)

func TestDistanceMilesKnownPair(t *testing.T) {
	// Washington DC to Baltimore is roughly 35 miles as the crow flies.
	dc := Point{Lat: 38.9072, Lng: -77.0369}
	baltimore := Point{Lat: 39.2904, Lng: -76.6122}

	d := DistanceMiles(dc, baltimore)
	if d < 34 || d > 36 {
		t.Fatalf("expected ~35 miles, got %.2f", d)
	}
	if back := DistanceMiles(baltimore, dc); math.Abs(back-d) > 1e-9 {
		t.Fatalf("distance not symmetric: %.6f vs %.6f", d, back)
	}
}

func TestNearestPicksMinimumDistance(t *testing.T) {
	m := NewMatcher(5)
	p := Point{Lat: 38.85, Lng: -78.2}
	zs := []Zone{
		{ID: "far", Center: Point{Lat: 39.5, Lng: -78.2}},
		{ID: "near", Center: Point{Lat: 38.86, Lng: -78.2}},
		{ID: "mid", Center: Point{Lat: 39.0, Lng: -78.2}},
	}

	match, ok := m.Nearest(p, zs)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Zone.ID != "near" {
		t.Fatalf("expected zone near, got %s", match.Zone.ID)
	}
	if !match.InService {
		t.Fatalf("expected in-service at %.2f miles", match.DistanceMiles)
	}
}

func TestNearestTieBreaksOnSmallerID(t *testing.T) {
	m := NewMatcher(5)
	center := Point{Lat: 40, Lng: -75}
	zs := []Zone{
		{ID: "zb", Center: center},
		{ID: "zc", Center: center},
		{ID: "za", Center: center},
	}

	for i := 0; i < len(zs); i++ {
		rotated := append(append([]Zone{}, zs[i:]...), zs[:i]...)
		match, ok := m.Nearest(Point{Lat: 40.01, Lng: -75}, rotated)
		if !ok || match.Zone.ID != "za" {
			t.Fatalf("rotation %d: expected za, got %+v", i, match.Zone.ID)
		}
	}
}

func TestNearestNoZones(t *testing.T) {
	if _, ok := NewMatcher(5).Nearest(Point{}, nil); ok {
		t.Fatal("expected no match for empty zone set")
	}
}

func TestNearestOutsideServiceRadius(t *testing.T) {
	zs := []Zone{{ID: "z1", Center: Point{Lat: 38.85, Lng: -78.2}}}
	// ~6.9 miles north
	match, ok := NewMatcher(5).Nearest(Point{Lat: 38.95, Lng: -78.2}, zs)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.InService {
		t.Fatalf("expected out of service at %.2f miles", match.DistanceMiles)
	}
}

func TestNewMatcherDefaultsRadius(t *testing.T) {
	if got := NewMatcher(0).serviceRadiusMiles; got != DefaultServiceRadiusMiles {
		t.Fatalf("expected default radius %v, got %v", DefaultServiceRadiusMiles, got)
	}
}

func TestParseYAML(t *testing.T) {
	raw := []byte(`
zones:
  - id: z1
    name: Shenandoah
    center: {lat: 38.85, lng: -78.2}
    radiusMiles: 10
    serviceDays: [Monday, " thursday "]
`)
	zs, err := ParseYAML(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(zs) != 1 || zs[0].ID != "z1" || zs[0].RadiusMiles != 10 {
		t.Fatalf("unexpected zones: %+v", zs)
	}
	if zs[0].ServiceDays[0] != "monday" || zs[0].ServiceDays[1] != "thursday" {
		t.Fatalf("expected normalized days, got %v", zs[0].ServiceDays)
	}
}

func TestParseYAMLRejectsDuplicates(t *testing.T) {
	raw := []byte(`
zones:
  - id: z1
    center: {lat: 1, lng: 1}
  - id: z1
    center: {lat: 2, lng: 2}
`)
	if _, err := ParseYAML(raw); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
