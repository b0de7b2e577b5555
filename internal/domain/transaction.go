package domain

import (
	"fmt"
	"time"

	"github.com/meridianpay/reconciler/internal/money"
)

// Transaction is a single payment attempt. Its status only ever changes
// through the mutation methods below; each one validates the transition
// against the payment table and leaves the entity untouched on failure.
type Transaction struct {
	ID         string        `json:"id"`
	MerchantID string        `json:"merchant_id"`
	Connector  string        `json:"connector"`
	Status     PaymentStatus `json:"status"`

	Amount   money.Money `json:"amount"`   // authorized (or requested) amount
	Captured money.Money `json:"captured"` // running total of captures

	FailureReason string `json:"failure_reason,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`
	CapturedAt   *time.Time `json:"captured_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// NewTransaction creates a payment in its initial state.
func NewTransaction(id, merchantID, connector string, amount money.Money) (*Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	zero, err := money.FromMinorUnit(0, amount.Currency().Code)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Transaction{
		ID:         id,
		MerchantID: merchantID,
		Connector:  connector,
		Status:     PaymentRequiresPaymentMethod,
		Amount:     amount,
		Captured:   zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (t *Transaction) transition(next PaymentStatus) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Confirm records that a payment method has been attached and confirmed.
func (t *Transaction) Confirm() error {
	return t.transition(PaymentRequiresConfirmation)
}

// RequireAction parks the payment waiting on customer action (3DS etc).
func (t *Transaction) RequireAction() error {
	return t.transition(PaymentRequiresAction)
}

// StartProcessing hands the payment to the connector.
func (t *Transaction) StartProcessing() error {
	return t.transition(PaymentProcessing)
}

// Authorize places a hold for the full amount and moves the payment to
// requires_capture.
func (t *Transaction) Authorize() error {
	if err := t.transition(PaymentRequiresCapture); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.AuthorizedAt = &now
	return nil
}

// Succeed completes an auto-capture payment directly from processing.
func (t *Transaction) Succeed() error {
	if err := t.transition(PaymentSucceeded); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.CapturedAt = &now
	return nil
}

// RemainingCapturable returns the authorized amount less captures so far.
func (t *Transaction) RemainingCapturable() (money.Money, error) {
	return t.Amount.Subtract(t.Captured)
}

// Capture captures part or all of the authorized amount. A full capture moves
// the payment to succeeded; a partial one leaves it capturable for the rest.
func (t *Transaction) Capture(amount money.Money) error {
	newCaptured, err := t.Captured.Add(amount)
	if err != nil {
		return err
	}
	over, err := newCaptured.GreaterThan(t.Amount)
	if err != nil {
		return err
	}
	if over {
		return fmt.Errorf("%w: %s + %s > %s", ErrCaptureExceedsAuth,
			t.Captured, amount, t.Amount)
	}

	next := PaymentSucceeded
	if !newCaptured.Equals(t.Amount) {
		next = PaymentPartiallyCapturedAndCapturable
	}
	if err := t.transition(next); err != nil {
		return err
	}

	t.Captured = newCaptured
	now := time.Now().UTC()
	t.CapturedAt = &now
	return nil
}

// CompleteCapture closes a partially captured payment, waiving the remaining
// capturable amount.
func (t *Transaction) CompleteCapture() error {
	return t.transition(PaymentPartiallyCaptured)
}

// Cancel voids the payment.
func (t *Transaction) Cancel() error {
	if err := t.transition(PaymentCancelled); err != nil {
		return err
	}
	now := time.Now().UTC()
	t.CancelledAt = &now
	return nil
}

// MarkFailed records a connector-side failure.
func (t *Transaction) MarkFailed(reason string) error {
	if err := t.transition(PaymentFailed); err != nil {
		return err
	}
	t.FailureReason = reason
	now := time.Now().UTC()
	t.FailedAt = &now
	return nil
}
