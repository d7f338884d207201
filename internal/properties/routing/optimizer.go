// Package routing scores candidate pickup days by the marginal distance of
// adding a stop to the day's existing route in a zone.
package routing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/internal/zones"

	"github.com/google/uuid"
)

// Stop is an already-approved property on a zone/day route.
type Stop struct {
	PropertyID uuid.UUID
	Location   zones.Point
}

// StopSource lists the approved stops currently served on a zone/day.
type StopSource interface {
	ListApprovedStops(ctx context.Context, zoneID string, day domain.Weekday, excludeID uuid.UUID) ([]Stop, error)
}

// Options configure the optimizer.
type Options struct {
	// AllowedDays restricts candidate days further than the zone does.
	AllowedDays []string
	// MaxStopsPerDay skips days whose route is full. Zero disables the cap.
	MaxStopsPerDay int
}

// Optimizer picks the cheapest pickup day for a property in a zone.
type Optimizer struct {
	stops StopSource
	opts  Options
	now   func() time.Time
}

// NewOptimizer creates an optimizer over the given stop source.
func NewOptimizer(stops StopSource, opts Options) *Optimizer {
	return &Optimizer{stops: stops, opts: opts, now: time.Now}
}

// DayScore is the insertion cost computed for one candidate day.
type DayScore struct {
	Day            domain.Weekday `json:"day"`
	InsertionMiles float64        `json:"insertionMiles"`
	Stops          int            `json:"stops"`
	Full           bool           `json:"full"`
}

// Score computes the insertion cost for every allowed day of the zone in
// canonical order.
func (o *Optimizer) Score(ctx context.Context, propertyID uuid.UUID, location zones.Point, zone zones.Zone) ([]DayScore, error) {
	days := domain.AllowedWeekdays(o.opts.AllowedDays, zone.ServiceDays)
	scores := make([]DayScore, 0, len(days))

	for _, day := range days {
		stops, err := o.stops.ListApprovedStops(ctx, zone.ID, day, propertyID)
		if err != nil {
			return nil, fmt.Errorf("list stops for %s/%s: %w", zone.ID, day, err)
		}

		score := DayScore{Day: day, Stops: len(stops)}
		if o.opts.MaxStopsPerDay > 0 && len(stops) >= o.opts.MaxStopsPerDay {
			score.Full = true
			scores = append(scores, score)
			continue
		}

		route := OrderRoute(zone.Center, stops)
		score.InsertionMiles = InsertionCost(zone.Center, route, location)
		scores = append(scores, score)
	}

	return scores, nil
}

// Assign returns the minimum-cost day, or nil when no day can take the
// stop. Ties go to the earlier weekday.
func (o *Optimizer) Assign(ctx context.Context, propertyID uuid.UUID, location zones.Point, zone zones.Zone) (*domain.Assignment, error) {
	scores, err := o.Score(ctx, propertyID, location, zone)
	if err != nil {
		return nil, err
	}

	var best *DayScore
	for i := range scores {
		candidate := &scores[i]
		if candidate.Full {
			continue
		}
		if best == nil || candidate.InsertionMiles < best.InsertionMiles {
			best = candidate
		}
	}
	if best == nil {
		return nil, nil
	}

	return &domain.Assignment{
		ZoneID:             zone.ID,
		PickupDay:          best.Day,
		InsertionCostMiles: roundMiles(best.InsertionMiles),
		DetectedAt:         o.now().UTC(),
	}, nil
}

// OrderRoute sequences stops as an open route from the depot by repeatedly
// visiting the nearest unvisited stop. Equal distances go to the lower
// property ID so the order is stable.
func OrderRoute(depot zones.Point, stops []Stop) []zones.Point {
	remaining := make([]Stop, len(stops))
	copy(remaining, stops)
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].PropertyID.String() < remaining[j].PropertyID.String()
	})

	route := make([]zones.Point, 0, len(remaining))
	current := depot
	for len(remaining) > 0 {
		nearest := 0
		nearestDist := zones.DistanceMiles(current, remaining[0].Location)
		for i := 1; i < len(remaining); i++ {
			if d := zones.DistanceMiles(current, remaining[i].Location); d < nearestDist {
				nearest, nearestDist = i, d
			}
		}
		current = remaining[nearest].Location
		route = append(route, current)
		remaining = append(remaining[:nearest], remaining[nearest+1:]...)
	}
	return route
}

// InsertionCost is the cheapest marginal distance of placing p into the
// open route depot→route[0]→…→route[n-1], including appending at the end.
func InsertionCost(depot zones.Point, route []zones.Point, p zones.Point) float64 {
	if len(route) == 0 {
		return zones.DistanceMiles(depot, p)
	}

	best := zones.DistanceMiles(route[len(route)-1], p)
	prev := depot
	for _, next := range route {
		delta := zones.DistanceMiles(prev, p) + zones.DistanceMiles(p, next) - zones.DistanceMiles(prev, next)
		if delta < best {
			best = delta
		}
		prev = next
	}
	return math.Max(best, 0)
}

func roundMiles(v float64) float64 {
	return math.Round(v*1000) / 1000
}
