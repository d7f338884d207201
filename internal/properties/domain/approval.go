package domain

// DefaultAverageSpeedMPH converts insertion miles into route minutes.
const DefaultAverageSpeedMPH = 25.0

// ApprovalPolicy holds the automatic approval thresholds. A threshold <= 0
// is not enforced.
type ApprovalPolicy struct {
	MaxMiles        float64
	MaxMinutes      float64
	AverageSpeedMPH float64
}

// EstimatedMinutes converts an insertion cost in miles to minutes.
func (p ApprovalPolicy) EstimatedMinutes(miles float64) float64 {
	speed := p.AverageSpeedMPH
	if speed <= 0 {
		speed = DefaultAverageSpeedMPH
	}
	return miles / speed * 60
}

// Qualification is the outcome of the threshold check.
type Qualification struct {
	Qualified        bool    `json:"qualified"`
	InsertionMiles   float64 `json:"insertionMiles"`
	EstimatedMinutes float64 `json:"estimatedMinutes"`
	Reason           string  `json:"reason,omitempty"`
}

// Qualify checks an insertion cost against every configured threshold.
// With no thresholds configured any assignment qualifies.
func (p ApprovalPolicy) Qualify(insertionMiles float64) Qualification {
	q := Qualification{
		Qualified:        true,
		InsertionMiles:   insertionMiles,
		EstimatedMinutes: p.EstimatedMinutes(insertionMiles),
	}

	if p.MaxMiles > 0 && q.InsertionMiles > p.MaxMiles {
		q.Qualified = false
		q.Reason = "insertion distance exceeds auto-approve limit"
		return q
	}
	if p.MaxMinutes > 0 && q.EstimatedMinutes > p.MaxMinutes {
		q.Qualified = false
		q.Reason = "insertion time exceeds auto-approve limit"
	}
	return q
}

// Decision is what the automatic path does after the assignment step.
type Decision string

const (
	// DecisionNone leaves the property for manual handling without an alert;
	// automatic approval is switched off.
	DecisionNone Decision = "none"
	// DecisionManualReview leaves the property pending and alerts operators.
	DecisionManualReview Decision = "manual_review"
	// DecisionCheckFeasibility hands the candidate day to the dispatch check.
	DecisionCheckFeasibility Decision = "check_feasibility"
	// DecisionApprove approves synchronously.
	DecisionApprove Decision = "approve"
)

// PipelineFlags are the configuration switches of the automatic path.
type PipelineFlags struct {
	AutoApprove        bool
	FeasibilityEnabled bool
	DispatchConfigured bool
}

// Decide applies the automatic approval rules. assignment is nil when the
// optimizer produced no zone/day.
func Decide(flags PipelineFlags, policy ApprovalPolicy, assignment *Assignment) (Decision, Qualification) {
	if !flags.AutoApprove {
		return DecisionNone, Qualification{}
	}
	if assignment == nil {
		return DecisionManualReview, Qualification{Reason: "no zone or pickup day could be assigned"}
	}

	q := policy.Qualify(assignment.InsertionCostMiles)
	if !q.Qualified {
		return DecisionManualReview, q
	}
	if flags.FeasibilityEnabled && flags.DispatchConfigured {
		return DecisionCheckFeasibility, q
	}
	return DecisionApprove, q
}
