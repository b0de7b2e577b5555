package batch

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meridianpay/reconciler/internal/reconciliation"
	"github.com/meridianpay/reconciler/internal/repository"
)

var (
	recordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_records_processed_total",
		Help: "Reconciliation records processed, by resulting status.",
	}, []string{"status"})

	discrepanciesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recon_discrepancies_detected_total",
		Help: "Discrepancies attached by automatic detection.",
	})

	discrepanciesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recon_discrepancies_resolved_total",
		Help: "Discrepancies closed by operators.",
	})
)

// Service drives the reconciliation engine over persisted records: one
// ProcessAutoReconciliation call per record, never concurrent within a
// record.
type Service struct {
	records *repository.RecordRepo
	policy  reconciliation.Policy
}

func NewService(records *repository.RecordRepo, policy reconciliation.Policy) *Service {
	return &Service{records: records, policy: policy}
}

// Policy returns the scoring policy the service runs with.
func (s *Service) Policy() reconciliation.Policy { return s.policy }

// RunResult summarises one batch run.
type RunResult struct {
	BatchID      string `json:"batch_id"`
	Processed    int    `json:"processed"`
	Matched      int    `json:"matched"`
	Unmatched    int    `json:"unmatched"`
	Discrepant   int    `json:"discrepant"`
	ManualReview int    `json:"manual_review"`
}

// RunBatch processes every pending record of a batch and persists the
// outcomes.
func (s *Service) RunBatch(batchID string) (*RunResult, error) {
	pending, err := s.records.ListPendingForBatch(batchID)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	result := &RunResult{BatchID: batchID}
	for i := range pending {
		rec := &pending[i]
		before := len(rec.Discrepancies)

		if err := rec.ProcessAutoReconciliation(s.policy); err != nil {
			return nil, fmt.Errorf("process %s: %w", rec.RecordID, err)
		}
		if err := s.records.Save(rec); err != nil {
			return nil, fmt.Errorf("save %s: %w", rec.RecordID, err)
		}

		recordsProcessed.WithLabelValues(string(rec.Status)).Inc()
		discrepanciesDetected.Add(float64(len(rec.Discrepancies) - before))

		result.Processed++
		switch rec.Status {
		case reconciliation.StatusMatched:
			result.Matched++
		case reconciliation.StatusUnmatched:
			result.Unmatched++
		case reconciliation.StatusDiscrepant:
			result.Discrepant++
		case reconciliation.StatusManualReview:
			result.ManualReview++
		}
	}

	log.Printf("[batch] %s: processed=%d matched=%d unmatched=%d discrepant=%d manual_review=%d",
		batchID, result.Processed, result.Matched, result.Unmatched,
		result.Discrepant, result.ManualReview)

	return result, nil
}

// CreateRecord registers a new record for reconciliation. A blank record id
// gets a generated one.
func (s *Service) CreateRecord(recordID, merchantID, connector, batchID string, rtype reconciliation.RecordType, reconciliationDate time.Time) (*reconciliation.Record, error) {
	if recordID == "" {
		recordID = uuid.NewString()
	}
	rec, err := reconciliation.NewRecord(recordID, merchantID, connector, batchID, rtype, reconciliationDate)
	if err != nil {
		return nil, err
	}
	if err := s.records.Insert(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) load(recordID string) (*reconciliation.Record, error) {
	rec, err := s.records.GetByID(recordID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", recordID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("record %s not found", recordID)
	}
	return rec, nil
}

// UpsertHyperswitchSnapshot attaches or replaces the orchestrator-side
// snapshot. Once both sides are present the record is re-processed so score
// and classification never drift apart.
func (s *Service) UpsertHyperswitchSnapshot(recordID string, data reconciliation.HyperswitchData) (*reconciliation.Record, error) {
	rec, err := s.load(recordID)
	if err != nil {
		return nil, err
	}
	rec.UpdateHyperswitchData(data, s.policy)
	return s.reprocess(rec)
}

// UpsertConnectorSnapshot attaches or replaces the connector-side snapshot,
// with the same re-processing behaviour.
func (s *Service) UpsertConnectorSnapshot(recordID string, data reconciliation.ConnectorData) (*reconciliation.Record, error) {
	rec, err := s.load(recordID)
	if err != nil {
		return nil, err
	}
	rec.UpdateConnectorData(data, s.policy)
	return s.reprocess(rec)
}

func (s *Service) reprocess(rec *reconciliation.Record) (*reconciliation.Record, error) {
	// A record with only one snapshot stays pending until a batch run or the
	// other side arrives; reclassifying it now would flag it unmatched
	// prematurely.
	if rec.Hyperswitch != nil && rec.ConnectorSide != nil {
		before := len(rec.Discrepancies)
		if err := rec.ProcessAutoReconciliation(s.policy); err != nil {
			return nil, err
		}
		recordsProcessed.WithLabelValues(string(rec.Status)).Inc()
		discrepanciesDetected.Add(float64(len(rec.Discrepancies) - before))
	}
	if err := s.records.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Process runs auto-reconciliation on one record, regardless of snapshot
// completeness, and persists the outcome.
func (s *Service) Process(recordID string) (*reconciliation.Record, error) {
	rec, err := s.load(recordID)
	if err != nil {
		return nil, err
	}
	before := len(rec.Discrepancies)
	if err := rec.ProcessAutoReconciliation(s.policy); err != nil {
		return nil, err
	}
	recordsProcessed.WithLabelValues(string(rec.Status)).Inc()
	discrepanciesDetected.Add(float64(len(rec.Discrepancies) - before))
	if err := s.records.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ResolveDiscrepancy closes one discrepancy on a record and persists the
// result.
func (s *Service) ResolveDiscrepancy(recordID string, index int, notes, resolvedBy string) (*reconciliation.Record, error) {
	rec, err := s.load(recordID)
	if err != nil {
		return nil, err
	}
	if err := rec.ResolveDiscrepancy(index, notes, resolvedBy); err != nil {
		return nil, err
	}
	if err := s.records.Save(rec); err != nil {
		return nil, err
	}
	discrepanciesResolved.Inc()
	return rec, nil
}

// MarkForManualReview flags a record for an operator.
func (s *Service) MarkForManualReview(recordID, reason string) (*reconciliation.Record, error) {
	rec, err := s.load(recordID)
	if err != nil {
		return nil, err
	}
	rec.MarkForManualReview(reason)
	if err := s.records.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteManualReview closes a manual review with a terminal outcome.
func (s *Service) CompleteManualReview(recordID string, outcome reconciliation.Status, reviewer, notes string) (*reconciliation.Record, error) {
	rec, err := s.load(recordID)
	if err != nil {
		return nil, err
	}
	if err := rec.CompleteManualReview(outcome, reviewer, notes); err != nil {
		return nil, err
	}
	if err := s.records.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Summary returns record counts by reconciliation status.
func (s *Service) Summary() (map[string]int, error) {
	return s.records.SummaryByStatus()
}
