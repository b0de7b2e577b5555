package domain

import "fmt"

// StatusCategory groups lifecycle states for reporting. Every status of every
// lifecycle maps to exactly one category.
type StatusCategory string

const (
	CategoryPending    StatusCategory = "pending"
	CategoryAuthorized StatusCategory = "authorized"
	CategorySuccessful StatusCategory = "successful"
	CategoryFailed     StatusCategory = "failed"
	CategoryCancelled  StatusCategory = "cancelled"
)

// PaymentStatus is one state of the payment lifecycle. The string values are
// the exact wire literals; consumers must not case-transform them.
type PaymentStatus string

const (
	PaymentRequiresPaymentMethod          PaymentStatus = "requires_payment_method"
	PaymentRequiresConfirmation           PaymentStatus = "requires_confirmation"
	PaymentRequiresAction                 PaymentStatus = "requires_action"
	PaymentProcessing                     PaymentStatus = "processing"
	PaymentRequiresCapture                PaymentStatus = "requires_capture"
	PaymentPartiallyCaptured              PaymentStatus = "partially_captured"
	PaymentPartiallyCapturedAndCapturable PaymentStatus = "partially_captured_and_capturable"
	PaymentSucceeded                      PaymentStatus = "succeeded"
	PaymentFailed                         PaymentStatus = "failed"
	PaymentCancelled                      PaymentStatus = "cancelled"
)

// ParsePaymentStatus validates a raw string against the closed set.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentRequiresPaymentMethod, PaymentRequiresConfirmation,
		PaymentRequiresAction, PaymentProcessing, PaymentRequiresCapture,
		PaymentPartiallyCaptured, PaymentPartiallyCapturedAndCapturable,
		PaymentSucceeded, PaymentFailed, PaymentCancelled:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("%w: payment status %q", ErrUnknownStatus, s)
}

// transitions is the single source of truth for payment transition legality.
// Terminal states return nil.
func (s PaymentStatus) transitions() []PaymentStatus {
	switch s {
	case PaymentRequiresPaymentMethod:
		return []PaymentStatus{PaymentRequiresConfirmation, PaymentFailed, PaymentCancelled}
	case PaymentRequiresConfirmation:
		return []PaymentStatus{PaymentRequiresAction, PaymentProcessing, PaymentFailed, PaymentCancelled}
	case PaymentRequiresAction:
		return []PaymentStatus{PaymentProcessing, PaymentFailed, PaymentCancelled}
	case PaymentProcessing:
		return []PaymentStatus{PaymentRequiresCapture, PaymentSucceeded, PaymentFailed, PaymentCancelled}
	case PaymentRequiresCapture:
		return []PaymentStatus{PaymentSucceeded, PaymentPartiallyCaptured,
			PaymentPartiallyCapturedAndCapturable, PaymentCancelled}
	case PaymentPartiallyCapturedAndCapturable:
		return []PaymentStatus{PaymentPartiallyCaptured, PaymentSucceeded}
	default:
		// partially_captured, succeeded, failed, cancelled
		return nil
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, t := range s.transitions() {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no legal outgoing transitions.
func (s PaymentStatus) IsTerminal() bool { return len(s.transitions()) == 0 }

// Category maps the status to its reporting bucket.
func (s PaymentStatus) Category() StatusCategory {
	switch s {
	case PaymentRequiresCapture, PaymentPartiallyCapturedAndCapturable:
		return CategoryAuthorized
	case PaymentSucceeded, PaymentPartiallyCaptured:
		return CategorySuccessful
	case PaymentFailed:
		return CategoryFailed
	case PaymentCancelled:
		return CategoryCancelled
	default:
		return CategoryPending
	}
}
