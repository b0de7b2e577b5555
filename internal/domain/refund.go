package domain

import (
	"fmt"
	"time"

	"github.com/meridianpay/reconciler/internal/money"
)

// Refund is a full or partial return of a captured payment.
type Refund struct {
	ID        string       `json:"id"`
	PaymentID string       `json:"payment_id"`
	Status    RefundStatus `json:"status"`

	TotalAmount  money.Money `json:"total_amount"`  // captured amount of the payment
	RefundAmount money.Money `json:"refund_amount"` // amount being returned

	FailureReason string `json:"failure_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewRefund creates a pending refund. The refund amount may not exceed the
// total and both amounts must share a currency; a violation produces no
// entity.
func NewRefund(id, paymentID string, total, amount money.Money) (*Refund, error) {
	if id == "" {
		return nil, fmt.Errorf("refund id is required")
	}
	over, err := amount.GreaterThan(total)
	if err != nil {
		return nil, err
	}
	if over {
		return nil, fmt.Errorf("%w: %s > %s", ErrRefundExceedsTotal, amount, total)
	}
	now := time.Now().UTC()
	return &Refund{
		ID:           id,
		PaymentID:    paymentID,
		Status:       RefundPending,
		TotalAmount:  total,
		RefundAmount: amount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *Refund) transition(next RefundStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// IsFullRefund reports whether the refund returns the whole captured amount.
func (r *Refund) IsFullRefund() bool { return r.RefundAmount.Equals(r.TotalAmount) }

// IsPartialRefund reports whether the refund returns only part of it.
func (r *Refund) IsPartialRefund() bool { return !r.IsFullRefund() }

// MarkManualReview parks the refund for an operator decision.
func (r *Refund) MarkManualReview() error {
	return r.transition(RefundManualReview)
}

// Succeed completes the refund.
func (r *Refund) Succeed() error {
	if err := r.transition(RefundSuccess); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.ProcessedAt = &now
	return nil
}

// Fail records a connector-side refund failure.
func (r *Refund) Fail(reason string) error {
	if err := r.transition(RefundFailure); err != nil {
		return err
	}
	r.FailureReason = reason
	now := time.Now().UTC()
	r.ProcessedAt = &now
	return nil
}
