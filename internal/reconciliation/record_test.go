package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestRecord(t *testing.T) *Record {
	t.Helper()
	rec, err := NewRecord("pay_abc123", "mer_001", "stripe", "batch_2025_03_10", TypePayment, createdAt)
	require.NoError(t, err)
	return rec
}

func hyperswitchSnapshot() HyperswitchData {
	return HyperswitchData{
		PaymentID:              "pay_abc123",
		AttemptID:              "att_1",
		MerchantID:             "mer_001",
		Status:                 "succeeded",
		Amount:                 1000,
		Currency:               "USD",
		ConnectorTransactionID: "ch_555",
		CreatedAt:              createdAt,
	}
}

func connectorSnapshot(settledAt time.Time) ConnectorData {
	return ConnectorData{
		ConnectorPaymentID:      "ch_555",
		ConnectorStatus:         "completed",
		ConnectorAmount:         1000,
		ConnectorCurrency:       "USD",
		ConnectorSettlementDate: &settledAt,
	}
}

func TestNewRecordValidation(t *testing.T) {
	_, err := NewRecord("", "mer_001", "stripe", "batch_1", TypePayment, createdAt)
	assert.Error(t, err)

	_, err = NewRecord("rec_1", "mer_001", "stripe", "", TypePayment, createdAt)
	assert.Error(t, err)

	rec := newTestRecord(t)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Nil(t, rec.MatchScore)
	assert.Empty(t, rec.Discrepancies)
}

func TestParseRecordTypeAndStatus(t *testing.T) {
	_, err := ParseRecordType("chargeback")
	assert.Error(t, err)

	rt, err := ParseRecordType("settlement")
	require.NoError(t, err)
	assert.Equal(t, TypeSettlement, rt)

	_, err = ParseStatus("open")
	assert.Error(t, err)

	st, err := ParseStatus("manual_review")
	require.NoError(t, err)
	assert.Equal(t, StatusManualReview, st)
}

func TestPerfectMatch(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	rec.UpdateConnectorData(connectorSnapshot(createdAt.Add(6*time.Hour)), p)

	require.NoError(t, rec.ProcessAutoReconciliation(p))

	require.NotNil(t, rec.MatchScore)
	assert.Equal(t, 100, *rec.MatchScore)
	assert.Equal(t, StatusMatched, rec.Status)
	assert.True(t, rec.AutoMatched)
	assert.Empty(t, rec.Discrepancies)
	assert.False(t, rec.ManualInterventionRequired)
	assert.NotNil(t, rec.ProcessedAt)
}

func TestAmountMismatchGoesToManualReview(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	cn := connectorSnapshot(createdAt.Add(6 * time.Hour))
	cn.ConnectorAmount = 1050
	rec.UpdateConnectorData(cn, p)

	require.NoError(t, rec.ProcessAutoReconciliation(p))

	require.NotNil(t, rec.MatchScore)
	assert.Equal(t, 60, *rec.MatchScore, "loses the full amount weight")
	assert.Equal(t, StatusManualReview, rec.Status)
	assert.True(t, rec.ManualInterventionRequired)
}

func TestStatusMismatchLandsInDiscrepantBand(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	cn := connectorSnapshot(createdAt)
	cn.ConnectorSettlementDate = nil // no date credit keeps the score below auto-match
	cn.ConnectorStatus = "failed"
	rec.UpdateConnectorData(cn, p)

	require.NoError(t, rec.ProcessAutoReconciliation(p))

	require.NotNil(t, rec.MatchScore)
	assert.Equal(t, 90, *rec.MatchScore)
	assert.Equal(t, StatusDiscrepant, rec.Status)

	require.Len(t, rec.Discrepancies, 1)
	d := rec.Discrepancies[0]
	assert.Equal(t, DiscrepancyStatusMismatch, d.Type)
	assert.Equal(t, SeverityMedium, d.Severity)
	assert.Equal(t, "completed", d.ExpectedValue, "succeeded maps to completed")
	assert.Equal(t, "failed", d.ActualValue)
}

func TestDiscrepantDetectsAllMismatches(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	settled := createdAt.Add(6 * time.Hour)
	rec.UpdateConnectorData(ConnectorData{
		ConnectorPaymentID:      "ch_555", // reference still matches
		ConnectorStatus:         "pending",
		ConnectorAmount:         990,
		ConnectorCurrency:       "EUR",
		ConnectorSettlementDate: &settled,
	}, p)

	require.NoError(t, rec.ProcessAutoReconciliation(p))

	// 30 reference + 10 date = 40: below review threshold, manual review,
	// so no detection runs.
	assert.Equal(t, StatusManualReview, rec.Status)
	assert.Empty(t, rec.Discrepancies)

	// With a permissive threshold detection covers all three fields.
	p.ReviewThreshold = 30
	rec2 := newTestRecord(t)
	rec2.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	rec2.UpdateConnectorData(ConnectorData{
		ConnectorPaymentID:      "ch_555",
		ConnectorStatus:         "pending",
		ConnectorAmount:         990,
		ConnectorCurrency:       "EUR",
		ConnectorSettlementDate: &settled,
	}, p)
	require.NoError(t, rec2.ProcessAutoReconciliation(p))

	assert.Equal(t, StatusDiscrepant, rec2.Status)
	require.Len(t, rec2.Discrepancies, 3)

	types := map[DiscrepancyType]Severity{}
	for _, d := range rec2.Discrepancies {
		types[d.Type] = d.Severity
	}
	assert.Equal(t, SeverityHigh, types[DiscrepancyAmountMismatch])
	assert.Equal(t, SeverityCritical, types[DiscrepancyCurrencyMismatch])
	assert.Equal(t, SeverityMedium, types[DiscrepancyStatusMismatch])
}

func TestReprocessingDoesNotDuplicateDiscrepancies(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	cn := connectorSnapshot(createdAt)
	cn.ConnectorSettlementDate = nil
	cn.ConnectorStatus = "failed"
	rec.UpdateConnectorData(cn, p)

	require.NoError(t, rec.ProcessAutoReconciliation(p))
	require.NoError(t, rec.ProcessAutoReconciliation(p))

	assert.Len(t, rec.Discrepancies, 1)
}

func TestMissingSnapshotMeansUnmatched(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)

	require.NoError(t, rec.ProcessAutoReconciliation(p))
	assert.Equal(t, StatusUnmatched, rec.Status)
	assert.True(t, rec.ManualInterventionRequired)
	assert.Nil(t, rec.MatchScore, "no score without both snapshots")
}

func TestSnapshotUpdateRecomputesScoreOnly(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	assert.Nil(t, rec.MatchScore, "single snapshot does not score")

	cn := connectorSnapshot(createdAt)
	cn.ConnectorSettlementDate = nil
	cn.ConnectorStatus = "failed"
	rec.UpdateConnectorData(cn, p)
	require.NotNil(t, rec.MatchScore)
	assert.Equal(t, 90, *rec.MatchScore)
	assert.Equal(t, StatusPending, rec.Status, "classification waits for processing")
	assert.Empty(t, rec.Discrepancies, "detection waits for processing")

	// correcting the connector status lifts the score but keeps the status
	require.NoError(t, rec.ProcessAutoReconciliation(p))
	require.Equal(t, StatusDiscrepant, rec.Status)

	fixed := connectorSnapshot(createdAt.Add(time.Hour))
	rec.UpdateConnectorData(fixed, p)
	assert.Equal(t, 100, *rec.MatchScore)
	assert.Equal(t, StatusDiscrepant, rec.Status, "status untouched until reprocessed")
	assert.Len(t, rec.Discrepancies, 1, "stale discrepancy kept until reprocessed")
}

func TestAutoMatchBlockedByDiscrepancyHistory(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()

	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	cn := connectorSnapshot(createdAt)
	cn.ConnectorSettlementDate = nil
	cn.ConnectorStatus = "failed"
	rec.UpdateConnectorData(cn, p)
	require.NoError(t, rec.ProcessAutoReconciliation(p))
	require.Len(t, rec.Discrepancies, 1)

	// snapshots now agree perfectly, but the discrepancy history blocks an
	// automatic match
	rec.UpdateConnectorData(connectorSnapshot(createdAt.Add(time.Hour)), p)
	require.NoError(t, rec.ProcessAutoReconciliation(p))

	assert.Equal(t, 100, *rec.MatchScore)
	assert.Equal(t, StatusDiscrepant, rec.Status)
	assert.False(t, rec.AutoMatched)
}

func TestResolutionWorkflow(t *testing.T) {
	rec := newTestRecord(t)
	p := DefaultPolicy()
	p.ReviewThreshold = 30

	settled := createdAt.Add(6 * time.Hour)
	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	rec.UpdateConnectorData(ConnectorData{
		ConnectorPaymentID:      "ch_555",
		ConnectorStatus:         "pending",
		ConnectorAmount:         990,
		ConnectorCurrency:       "USD",
		ConnectorSettlementDate: &settled,
	}, p)
	require.NoError(t, rec.ProcessAutoReconciliation(p))
	require.Equal(t, StatusDiscrepant, rec.Status)
	require.Len(t, rec.Discrepancies, 2)

	// resolving only one keeps the record discrepant
	require.NoError(t, rec.ResolveDiscrepancy(0, "fee-adjusted amount confirmed", "ops@merchant"))
	assert.Equal(t, StatusDiscrepant, rec.Status)
	assert.Equal(t, 1, rec.UnresolvedCount())

	// resolving the last one promotes to resolved
	require.NoError(t, rec.ResolveDiscrepancy(1, "connector settles T+1", "ops@merchant"))
	assert.Equal(t, StatusResolved, rec.Status)
	assert.Equal(t, 0, rec.UnresolvedCount())

	d := rec.Discrepancies[0]
	assert.True(t, d.Resolved)
	assert.Equal(t, "ops@merchant", d.ResolvedBy)
	assert.NotNil(t, d.ResolvedAt)
}

func TestResolveDiscrepancyErrors(t *testing.T) {
	rec := newTestRecord(t)
	rec.AddDiscrepancy(Discrepancy{Type: DiscrepancyFeeMismatch, Severity: SeverityLow})

	assert.ErrorIs(t, rec.ResolveDiscrepancy(5, "", "ops"), ErrIndexOutOfRange)
	assert.ErrorIs(t, rec.ResolveDiscrepancy(-1, "", "ops"), ErrIndexOutOfRange)

	require.NoError(t, rec.ResolveDiscrepancy(0, "waived", "ops"))
	assert.ErrorIs(t, rec.ResolveDiscrepancy(0, "again", "ops"), ErrAlreadyResolved)
}

func TestManualReviewWorkflow(t *testing.T) {
	rec := newTestRecord(t)

	err := rec.CompleteManualReview(StatusMatched, "reviewer@merchant", "")
	assert.ErrorIs(t, err, ErrNotInManualReview)

	rec.MarkForManualReview("score heuristic inconclusive")
	assert.Equal(t, StatusManualReview, rec.Status)
	assert.True(t, rec.ManualInterventionRequired)

	err = rec.CompleteManualReview(StatusPending, "reviewer@merchant", "")
	assert.ErrorIs(t, err, ErrBadReviewOutcome)

	require.NoError(t, rec.CompleteManualReview(StatusMatched, "reviewer@merchant", "verified against bank statement"))
	assert.Equal(t, StatusMatched, rec.Status)
	assert.False(t, rec.ManualInterventionRequired)
	assert.Equal(t, "reviewer@merchant", rec.ReviewedBy)
	assert.NotNil(t, rec.ProcessedAt)
}

func TestDateProximityCredit(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name      string
		settledAt time.Time
		want      int
	}{
		{"same day", createdAt.Add(12 * time.Hour), 100},
		{"within three days", createdAt.Add(48 * time.Hour), 95},
		{"beyond three days", createdAt.Add(5 * 24 * time.Hour), 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecord(t)
			rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
			rec.UpdateConnectorData(connectorSnapshot(tt.settledAt), p)
			require.NoError(t, rec.ProcessAutoReconciliation(p))
			assert.Equal(t, tt.want, *rec.MatchScore)
		})
	}
}

func TestReferenceMatchByRecordID(t *testing.T) {
	// hyperswitch payment_id equals the record id even though the connector
	// transaction id does not cross-reference
	rec := newTestRecord(t)
	p := DefaultPolicy()

	hs := hyperswitchSnapshot()
	hs.ConnectorTransactionID = "ch_other"
	rec.UpdateHyperswitchData(hs, p)
	rec.UpdateConnectorData(connectorSnapshot(createdAt.Add(time.Hour)), p)

	require.NoError(t, rec.ProcessAutoReconciliation(p))
	assert.Equal(t, 100, *rec.MatchScore)
}

func TestPolicyValidate(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	bad := p
	bad.AmountWeight = -1
	assert.Error(t, bad.Validate())

	bad = p
	bad.AmountWeight, bad.CurrencyWeight, bad.ReferenceWeight, bad.DateWeight = 0, 0, 0, 0
	assert.Error(t, bad.Validate())

	bad = p
	bad.AutoMatchThreshold = 50 // below review threshold
	assert.Error(t, bad.Validate())
}

func TestCustomWeightsNormalise(t *testing.T) {
	// halved weights produce the same percentage score
	p := Policy{
		AmountWeight: 20, CurrencyWeight: 10, ReferenceWeight: 15, DateWeight: 5,
		AutoMatchThreshold: 95, ReviewThreshold: 80,
		FullDateCredit: 24 * time.Hour, HalfDateCredit: 72 * time.Hour,
	}

	rec := newTestRecord(t)
	rec.UpdateHyperswitchData(hyperswitchSnapshot(), p)
	rec.UpdateConnectorData(connectorSnapshot(createdAt.Add(time.Hour)), p)
	require.NoError(t, rec.ProcessAutoReconciliation(p))
	assert.Equal(t, 100, *rec.MatchScore)
}
