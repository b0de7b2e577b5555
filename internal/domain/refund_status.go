package domain

import "fmt"

// RefundStatus is one state of the refund lifecycle.
type RefundStatus string

const (
	RefundPending      RefundStatus = "pending"
	RefundManualReview RefundStatus = "manual_review"
	RefundSuccess      RefundStatus = "success"
	RefundFailure      RefundStatus = "failure"
)

// ParseRefundStatus validates a raw string against the closed set.
func ParseRefundStatus(s string) (RefundStatus, error) {
	switch RefundStatus(s) {
	case RefundPending, RefundManualReview, RefundSuccess, RefundFailure:
		return RefundStatus(s), nil
	}
	return "", fmt.Errorf("%w: refund status %q", ErrUnknownStatus, s)
}

func (s RefundStatus) transitions() []RefundStatus {
	switch s {
	case RefundPending:
		return []RefundStatus{RefundManualReview, RefundSuccess, RefundFailure}
	case RefundManualReview:
		return []RefundStatus{RefundSuccess, RefundFailure}
	default:
		return nil
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s RefundStatus) CanTransitionTo(next RefundStatus) bool {
	for _, t := range s.transitions() {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no legal outgoing transitions.
func (s RefundStatus) IsTerminal() bool { return len(s.transitions()) == 0 }

// Category maps the status to its reporting bucket.
func (s RefundStatus) Category() StatusCategory {
	switch s {
	case RefundSuccess:
		return CategorySuccessful
	case RefundFailure:
		return CategoryFailed
	default:
		return CategoryPending
	}
}
