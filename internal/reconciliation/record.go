package reconciliation

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// RecordType classifies the economic event a record reconciles.
type RecordType string

const (
	TypePayment    RecordType = "payment"
	TypeRefund     RecordType = "refund"
	TypeDispute    RecordType = "dispute"
	TypeFee        RecordType = "fee"
	TypeSettlement RecordType = "settlement"
)

// ParseRecordType validates a raw string against the closed set.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(s) {
	case TypePayment, TypeRefund, TypeDispute, TypeFee, TypeSettlement:
		return RecordType(s), nil
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// Status is the reconciliation state of a record.
type Status string

const (
	StatusPending      Status = "pending"
	StatusMatched      Status = "matched"
	StatusUnmatched    Status = "unmatched"
	StatusDiscrepant   Status = "discrepant"
	StatusManualReview Status = "manual_review"
	StatusResolved     Status = "resolved"
)

// ParseStatus validates a raw string against the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusMatched, StatusUnmatched, StatusDiscrepant,
		StatusManualReview, StatusResolved:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown reconciliation status %q", s)
}

// DiscrepancyType classifies one detected mismatch.
type DiscrepancyType string

const (
	DiscrepancyAmountMismatch   DiscrepancyType = "amount_mismatch"
	DiscrepancyMissingPayment   DiscrepancyType = "missing_payment"
	DiscrepancyDuplicatePayment DiscrepancyType = "duplicate_payment"
	DiscrepancyStatusMismatch   DiscrepancyType = "status_mismatch"
	DiscrepancyFeeMismatch      DiscrepancyType = "fee_mismatch"
	DiscrepancyCurrencyMismatch DiscrepancyType = "currency_mismatch"
)

// Severity ranks how urgently a discrepancy needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// HyperswitchData is the orchestrator-side snapshot of an economic event.
// Amounts are integer minor units.
type HyperswitchData struct {
	PaymentID              string            `json:"payment_id"`
	AttemptID              string            `json:"attempt_id"`
	MerchantID             string            `json:"merchant_id"`
	Status                 string            `json:"status"`
	Amount                 int64             `json:"amount"`
	Currency               string            `json:"currency"`
	ConnectorTransactionID string            `json:"connector_transaction_id,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	AuthorizedAt           *time.Time        `json:"authorized_at,omitempty"`
	CapturedAt             *time.Time        `json:"captured_at,omitempty"`
	Metadata               map[string]string `json:"metadata,omitempty"`
}

// ConnectorData is the processor-side snapshot of the same event.
type ConnectorData struct {
	ConnectorPaymentID      string         `json:"connector_payment_id"`
	ConnectorReferenceID    string         `json:"connector_reference_id,omitempty"`
	ConnectorStatus         string         `json:"connector_status"`
	ConnectorAmount         int64          `json:"connector_amount"`
	ConnectorCurrency       string         `json:"connector_currency"`
	ConnectorFee            *int64         `json:"connector_fee,omitempty"`
	ConnectorSettlementDate *time.Time     `json:"connector_settlement_date,omitempty"`
	ConnectorBatchID        string         `json:"connector_batch_id,omitempty"`
	RawData                 map[string]any `json:"raw_data,omitempty"`
}

// Discrepancy is one detected mismatch between the two snapshots, with its
// resolution state.
type Discrepancy struct {
	Type            DiscrepancyType `json:"type"`
	Description     string          `json:"description"`
	ExpectedValue   string          `json:"expected_value,omitempty"`
	ActualValue     string          `json:"actual_value,omitempty"`
	Severity        Severity        `json:"severity"`
	Resolved        bool            `json:"resolved"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
}

var (
	ErrIndexOutOfRange   = errors.New("discrepancy index out of range")
	ErrAlreadyResolved   = errors.New("discrepancy already resolved")
	ErrNotInManualReview = errors.New("record is not in manual review")
	ErrBadReviewOutcome  = errors.New("manual review must end in matched or resolved")
)

// Record reconciles one economic event: the orchestrator-side snapshot
// against the connector-side one.
type Record struct {
	RecordID   string     `json:"record_id"`
	MerchantID string     `json:"merchant_id"`
	Connector  string     `json:"connector"`
	BatchID    string     `json:"reconciliation_batch_id"`
	Type       RecordType `json:"record_type"`
	Status     Status     `json:"status"`

	// MatchScore is 0-100 and present once both snapshots exist.
	MatchScore *int `json:"match_score,omitempty"`

	Hyperswitch   *HyperswitchData `json:"hyperswitch_data,omitempty"`
	ConnectorSide *ConnectorData   `json:"connector_data,omitempty"`

	Discrepancies []Discrepancy `json:"discrepancies"`

	AutoMatched                bool   `json:"auto_matched"`
	ManualInterventionRequired bool   `json:"manual_intervention_required"`
	ReviewedBy                 string `json:"reviewed_by,omitempty"`
	ReviewNotes                string `json:"review_notes,omitempty"`

	ReconciliationDate time.Time  `json:"reconciliation_date"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
}

// NewRecord creates a pending record for one economic event.
func NewRecord(recordID, merchantID, connector, batchID string, rtype RecordType, reconciliationDate time.Time) (*Record, error) {
	if recordID == "" {
		return nil, fmt.Errorf("record id is required")
	}
	if batchID == "" {
		return nil, fmt.Errorf("reconciliation batch id is required")
	}
	now := time.Now().UTC()
	return &Record{
		RecordID:           recordID,
		MerchantID:         merchantID,
		Connector:          connector,
		BatchID:            batchID,
		Type:               rtype,
		Status:             StatusPending,
		ReconciliationDate: reconciliationDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (r *Record) touch() { r.UpdatedAt = time.Now().UTC() }

// UpdateHyperswitchData replaces the orchestrator-side snapshot. When the
// connector snapshot is already present the match score is recomputed, but
// discrepancies and status are left as they are; callers wanting a full
// reclassification re-run ProcessAutoReconciliation.
func (r *Record) UpdateHyperswitchData(data HyperswitchData, p Policy) {
	r.Hyperswitch = &data
	if r.ConnectorSide != nil {
		score := r.computeMatchScore(p)
		r.MatchScore = &score
	}
	r.touch()
}

// UpdateConnectorData replaces the connector-side snapshot, with the same
// rescoring behaviour as UpdateHyperswitchData.
func (r *Record) UpdateConnectorData(data ConnectorData, p Policy) {
	r.ConnectorSide = &data
	if r.Hyperswitch != nil {
		score := r.computeMatchScore(p)
		r.MatchScore = &score
	}
	r.touch()
}

// ProcessAutoReconciliation scores the record and classifies it:
// a missing snapshot leaves it unmatched, a score at or above the auto-match
// threshold (with a clean discrepancy history) matches it, a mid-band score
// runs discrepancy detection, and anything below the review threshold goes to
// manual review.
func (r *Record) ProcessAutoReconciliation(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	if r.Hyperswitch == nil || r.ConnectorSide == nil {
		r.Status = StatusUnmatched
		r.ManualInterventionRequired = true
		r.ProcessedAt = &now
		r.touch()
		return nil
	}

	score := r.computeMatchScore(p)
	r.MatchScore = &score

	switch {
	case score >= p.AutoMatchThreshold && len(r.Discrepancies) == 0:
		r.Status = StatusMatched
		r.AutoMatched = true
	case score >= p.ReviewThreshold:
		r.Status = StatusDiscrepant
		r.detectDiscrepancies()
	default:
		r.Status = StatusManualReview
		r.ManualInterventionRequired = true
	}

	r.ProcessedAt = &now
	r.touch()
	return nil
}

// computeMatchScore is the weighted similarity of the two snapshots, 0-100
// rounded to the nearest integer. Both snapshots must be present.
func (r *Record) computeMatchScore(p Policy) int {
	hs := r.Hyperswitch
	cn := r.ConnectorSide

	earned := 0
	if hs.Amount == cn.ConnectorAmount {
		earned += p.AmountWeight
	}
	if hs.Currency == cn.ConnectorCurrency {
		earned += p.CurrencyWeight
	}
	if hs.PaymentID == r.RecordID || hs.ConnectorTransactionID == cn.ConnectorPaymentID {
		earned += p.ReferenceWeight
	}
	if cn.ConnectorSettlementDate != nil {
		gap := cn.ConnectorSettlementDate.Sub(hs.CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		switch {
		case gap <= p.FullDateCredit:
			earned += p.DateWeight
		case gap <= p.HalfDateCredit:
			earned += p.DateWeight / 2
		}
	}

	return int(math.Round(float64(earned) * 100 / float64(p.TotalWeight())))
}

// mapHyperswitchStatus translates an orchestrator payment status into the
// vocabulary connectors report settlement rows in. Unknown statuses pass
// through unchanged.
func mapHyperswitchStatus(status string) string {
	switch status {
	case "succeeded":
		return "completed"
	case "failed":
		return "failed"
	case "processing":
		return "pending"
	case "requires_capture":
		return "authorized"
	default:
		return status
	}
}

// detectDiscrepancies compares the two snapshots field by field and appends
// one discrepancy per mismatch. A mismatch type already recorded (resolved or
// not) is not reported again, so re-processing never duplicates entries.
func (r *Record) detectDiscrepancies() {
	hs := r.Hyperswitch
	cn := r.ConnectorSide

	if hs.Amount != cn.ConnectorAmount && !r.hasDiscrepancy(DiscrepancyAmountMismatch) {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Type:     DiscrepancyAmountMismatch,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("amount mismatch: hyperswitch reports %d, connector reports %d minor units",
				hs.Amount, cn.ConnectorAmount),
			ExpectedValue: fmt.Sprintf("%d", hs.Amount),
			ActualValue:   fmt.Sprintf("%d", cn.ConnectorAmount),
		})
	}

	if hs.Currency != cn.ConnectorCurrency && !r.hasDiscrepancy(DiscrepancyCurrencyMismatch) {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Type:     DiscrepancyCurrencyMismatch,
			Severity: SeverityCritical,
			Description: fmt.Sprintf("currency mismatch: hyperswitch reports %s, connector reports %s",
				hs.Currency, cn.ConnectorCurrency),
			ExpectedValue: hs.Currency,
			ActualValue:   cn.ConnectorCurrency,
		})
	}

	if mapped := mapHyperswitchStatus(hs.Status); mapped != cn.ConnectorStatus && !r.hasDiscrepancy(DiscrepancyStatusMismatch) {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Type:     DiscrepancyStatusMismatch,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("status mismatch: hyperswitch status %s (mapped %s) vs connector status %s",
				hs.Status, mapped, cn.ConnectorStatus),
			ExpectedValue: mapped,
			ActualValue:   cn.ConnectorStatus,
		})
	}
}

func (r *Record) hasDiscrepancy(t DiscrepancyType) bool {
	for _, d := range r.Discrepancies {
		if d.Type == t {
			return true
		}
	}
	return false
}

// AddDiscrepancy attaches an externally detected discrepancy, e.g. a missing
// or duplicate payment found by a batch sweep.
func (r *Record) AddDiscrepancy(d Discrepancy) {
	r.Discrepancies = append(r.Discrepancies, d)
	r.touch()
}

// UnresolvedCount returns the number of open discrepancies.
func (r *Record) UnresolvedCount() int {
	n := 0
	for _, d := range r.Discrepancies {
		if !d.Resolved {
			n++
		}
	}
	return n
}

// ResolveDiscrepancy closes one discrepancy. Once every discrepancy on a
// discrepant record is resolved, the record itself becomes resolved.
func (r *Record) ResolveDiscrepancy(index int, notes, resolvedBy string) error {
	if index < 0 || index >= len(r.Discrepancies) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(r.Discrepancies))
	}
	d := &r.Discrepancies[index]
	if d.Resolved {
		return fmt.Errorf("%w: index %d", ErrAlreadyResolved, index)
	}

	now := time.Now().UTC()
	d.Resolved = true
	d.ResolutionNotes = notes
	d.ResolvedBy = resolvedBy
	d.ResolvedAt = &now

	if r.Status == StatusDiscrepant && r.UnresolvedCount() == 0 {
		r.Status = StatusResolved
	}
	r.touch()
	return nil
}

// MarkForManualReview flags the record for an operator, recording why.
func (r *Record) MarkForManualReview(reason string) {
	r.Status = StatusManualReview
	r.ManualInterventionRequired = true
	r.ReviewNotes = reason
	r.touch()
}

// CompleteManualReview closes a manual review with a terminal outcome of
// matched or resolved, recording the reviewer.
func (r *Record) CompleteManualReview(outcome Status, reviewer, notes string) error {
	if r.Status != StatusManualReview {
		return fmt.Errorf("%w: status is %s", ErrNotInManualReview, r.Status)
	}
	if outcome != StatusMatched && outcome != StatusResolved {
		return fmt.Errorf("%w: got %s", ErrBadReviewOutcome, outcome)
	}
	now := time.Now().UTC()
	r.Status = outcome
	r.ManualInterventionRequired = false
	r.ReviewedBy = reviewer
	if notes != "" {
		r.ReviewNotes = notes
	}
	r.ProcessedAt = &now
	r.touch()
	return nil
}
