package domain

import (
	"fmt"
	"time"

	"github.com/meridianpay/reconciler/internal/money"
)

// Dispute is a chargeback raised against a payment.
type Dispute struct {
	ID        string        `json:"id"`
	PaymentID string        `json:"payment_id"`
	Status    DisputeStatus `json:"status"`

	Amount   money.Money `json:"amount"`
	Evidence string      `json:"evidence,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ChallengedAt *time.Time `json:"challenged_at,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// NewDispute opens a dispute for the given amount.
func NewDispute(id, paymentID string, amount money.Money) (*Dispute, error) {
	if id == "" {
		return nil, fmt.Errorf("dispute id is required")
	}
	now := time.Now().UTC()
	return &Dispute{
		ID:        id,
		PaymentID: paymentID,
		Status:    DisputeOpened,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (d *Dispute) transition(next DisputeStatus) error {
	if !d.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, next)
	}
	d.Status = next
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// SubmitEvidence challenges the dispute. Only legal while the dispute is
// still open.
func (d *Dispute) SubmitEvidence(evidence string) error {
	if d.Status != DisputeOpened {
		return fmt.Errorf("%w: status is %s", ErrEvidenceNotAllowed, d.Status)
	}
	if err := d.transition(DisputeChallenged); err != nil {
		return err
	}
	d.Evidence = evidence
	now := time.Now().UTC()
	d.ChallengedAt = &now
	return nil
}

func (d *Dispute) resolve(next DisputeStatus) error {
	if err := d.transition(next); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.ResolvedAt = &now
	return nil
}

// Accept concedes the dispute without challenging it.
func (d *Dispute) Accept() error { return d.resolve(DisputeAccepted) }

// Cancel records that the disputant withdrew.
func (d *Dispute) Cancel() error { return d.resolve(DisputeCancelled) }

// Expire records that the response window lapsed.
func (d *Dispute) Expire() error { return d.resolve(DisputeExpired) }

// Win records a challenge decided for the merchant.
func (d *Dispute) Win() error { return d.resolve(DisputeWon) }

// Lose records a challenge decided against the merchant.
func (d *Dispute) Lose() error { return d.resolve(DisputeLost) }
