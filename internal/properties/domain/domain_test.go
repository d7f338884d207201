package domain

import (
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from   ServiceStatus
		to     ServiceStatus
		source TransitionSource
		want   bool
	}{
		{StatusPendingReview, StatusApproved, SourceAutomatic, true},
		{StatusPendingReview, StatusApproved, SourceFeasibility, true},
		{StatusPendingReview, StatusDenied, SourceAutomatic, false},
		{StatusApproved, StatusApproved, SourceAutomatic, false},
		{StatusDenied, StatusApproved, SourceFeasibility, false},
		{StatusDenied, StatusApproved, SourceAdmin, true},
		{StatusApproved, StatusDenied, SourceAdmin, true},
		{StatusApproved, StatusApproved, SourceAdmin, true},
		{StatusApproved, StatusPendingReview, SourceAdmin, false},
		{ServiceStatus("archived"), StatusApproved, SourceAdmin, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to, tc.source); got != tc.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.source, got, tc.want)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday("  Tuesday ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day != Tuesday {
		t.Fatalf("expected tuesday, got %s", day)
	}

	if _, err := ParseWeekday("sunday"); err == nil {
		t.Fatal("expected sunday to be rejected")
	}
}

func TestAllowedWeekdaysIntersectsInCanonicalOrder(t *testing.T) {
	got := AllowedWeekdays([]string{"friday", "monday", "wednesday"}, []string{"Wednesday", "friday", "saturday"})
	want := []Weekday{Wednesday, Friday}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAllowedWeekdaysDefaultsToAllDays(t *testing.T) {
	got := AllowedWeekdays(nil, nil)
	if len(got) != len(CanonicalWeekdays) {
		t.Fatalf("expected all %d days, got %v", len(CanonicalWeekdays), got)
	}
}

func TestQualifyEnforcesBothThresholds(t *testing.T) {
	policy := ApprovalPolicy{MaxMiles: 2, MaxMinutes: 4, AverageSpeedMPH: 25}

	if q := policy.Qualify(1.5); !q.Qualified {
		t.Fatalf("1.5 mi (3.6 min) should qualify: %+v", q)
	}
	if q := policy.Qualify(1.8); q.Qualified {
		t.Fatalf("1.8 mi (4.32 min) should fail the minutes limit: %+v", q)
	}
	if q := policy.Qualify(2.5); q.Qualified {
		t.Fatalf("2.5 mi should fail the miles limit: %+v", q)
	}
}

func TestQualifyWithoutThresholdsAlwaysQualifies(t *testing.T) {
	policy := ApprovalPolicy{AverageSpeedMPH: 25}
	if q := policy.Qualify(500); !q.Qualified {
		t.Fatalf("expected qualification with no limits: %+v", q)
	}
}

func TestQualifyIsMonotonic(t *testing.T) {
	policy := ApprovalPolicy{MaxMiles: 3, MaxMinutes: 6, AverageSpeedMPH: 30}

	previous := true
	for miles := 0.0; miles <= 6; miles += 0.25 {
		q := policy.Qualify(miles)
		if q.Qualified && !previous {
			t.Fatalf("qualification flipped back to true at %.2f mi", miles)
		}
		previous = q.Qualified
	}
}

func TestEstimatedMinutesUsesDefaultSpeed(t *testing.T) {
	policy := ApprovalPolicy{}
	if got := policy.EstimatedMinutes(25); got != 60 {
		t.Fatalf("expected 60 minutes, got %v", got)
	}
}

func TestDecide(t *testing.T) {
	policy := ApprovalPolicy{MaxMiles: 5, AverageSpeedMPH: 25}
	cheap := &Assignment{ZoneID: "z1", PickupDay: Monday, InsertionCostMiles: 1}
	costly := &Assignment{ZoneID: "z1", PickupDay: Monday, InsertionCostMiles: 9}

	cases := []struct {
		name       string
		flags      PipelineFlags
		assignment *Assignment
		want       Decision
	}{
		{"auto approve off", PipelineFlags{}, cheap, DecisionNone},
		{"no assignment", PipelineFlags{AutoApprove: true}, nil, DecisionManualReview},
		{"over threshold", PipelineFlags{AutoApprove: true}, costly, DecisionManualReview},
		{"approve directly", PipelineFlags{AutoApprove: true}, cheap, DecisionApprove},
		{"feasibility without dispatch", PipelineFlags{AutoApprove: true, FeasibilityEnabled: true}, cheap, DecisionApprove},
		{"feasibility with dispatch", PipelineFlags{AutoApprove: true, FeasibilityEnabled: true, DispatchConfigured: true}, cheap, DecisionCheckFeasibility},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := Decide(tc.flags, policy, tc.assignment)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
