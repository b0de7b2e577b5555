package domain

import "fmt"

// DisputeStatus is one state of the dispute lifecycle.
type DisputeStatus string

const (
	DisputeOpened     DisputeStatus = "dispute_opened"
	DisputeChallenged DisputeStatus = "dispute_challenged"
	DisputeAccepted   DisputeStatus = "dispute_accepted"
	DisputeCancelled  DisputeStatus = "dispute_cancelled"
	DisputeExpired    DisputeStatus = "dispute_expired"
	DisputeWon        DisputeStatus = "dispute_won"
	DisputeLost       DisputeStatus = "dispute_lost"
)

// ParseDisputeStatus validates a raw string against the closed set.
func ParseDisputeStatus(s string) (DisputeStatus, error) {
	switch DisputeStatus(s) {
	case DisputeOpened, DisputeChallenged, DisputeAccepted, DisputeCancelled,
		DisputeExpired, DisputeWon, DisputeLost:
		return DisputeStatus(s), nil
	}
	return "", fmt.Errorf("%w: dispute status %q", ErrUnknownStatus, s)
}

func (s DisputeStatus) transitions() []DisputeStatus {
	switch s {
	case DisputeOpened:
		return []DisputeStatus{DisputeChallenged, DisputeAccepted, DisputeCancelled, DisputeExpired}
	case DisputeChallenged:
		return []DisputeStatus{DisputeWon, DisputeLost, DisputeCancelled}
	default:
		return nil
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	for _, t := range s.transitions() {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no legal outgoing transitions.
func (s DisputeStatus) IsTerminal() bool { return len(s.transitions()) == 0 }

// Category maps the status to its reporting bucket, from the merchant's
// point of view: a won dispute keeps the funds, accepted or lost gives them up.
func (s DisputeStatus) Category() StatusCategory {
	switch s {
	case DisputeWon:
		return CategorySuccessful
	case DisputeAccepted, DisputeLost, DisputeExpired:
		return CategoryFailed
	case DisputeCancelled:
		return CategoryCancelled
	default:
		return CategoryPending
	}
}
