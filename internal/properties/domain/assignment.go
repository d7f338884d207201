package domain

import "time"

// Assignment is the optimizer's zone and day choice for a property.
type Assignment struct {
	ZoneID             string    `json:"zoneId"`
	PickupDay          Weekday   `json:"pickupDay"`
	InsertionCostMiles float64   `json:"insertionCostMiles"`
	DetectedAt         time.Time `json:"detectedAt"`
}

// FeasibilityResult is the dispatch provider's verdict. It is never
// persisted.
type FeasibilityResult struct {
	Feasible     bool     `json:"feasible"`
	SuggestedDay *Weekday `json:"suggestedDay,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}
