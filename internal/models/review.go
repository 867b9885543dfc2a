package models

// Outcome of a review decision, applied to payments and to listings
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

func (o Outcome) Valid() bool {
	return o == OutcomeApprove || o == OutcomeReject
}

// Past is the outcome as it reads in logs and audit entries
func (o Outcome) Past() string {
	switch o {
	case OutcomeApprove:
		return "approved"
	case OutcomeReject:
		return "rejected"
	}
	return string(o)
}

// ReviewDecisionRequest is the body of a payment or listing decision
type ReviewDecisionRequest struct {
	Outcome Outcome `json:"outcome" validate:"required,oneof=approve reject"`
}

// PendingReviewPage is one keyset page of payments awaiting review
type PendingReviewPage struct {
	Items      []*Payment `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
