package domain

import "errors"

// Sentinel errors for the payment, refund and dispute lifecycles. Callers
// match with errors.Is; wrapped messages carry the offending values.
var (
	ErrUnknownStatus      = errors.New("unknown status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrRefundExceedsTotal = errors.New("refund amount exceeds total amount")
	ErrCaptureExceedsAuth = errors.New("capture amount exceeds authorized amount")
	ErrEvidenceNotAllowed = errors.New("evidence can only be submitted while the dispute is open")
)
