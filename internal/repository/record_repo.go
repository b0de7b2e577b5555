package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridianpay/reconciler/internal/daterange"
	"github.com/meridianpay/reconciler/internal/reconciliation"
)

// RecordRepo persists reconciliation records and their discrepancies.
// Snapshots are stored as JSON columns; discrepancies in their own table,
// ordered by position.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

func (r *RecordRepo) Insert(rec *reconciliation.Record) error {
	hsJSON, cnJSON, err := marshalSnapshots(rec)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO reconciliation_records
		(record_id, merchant_id, connector, batch_id, record_type, status,
		 match_score, hyperswitch_data, connector_data, auto_matched,
		 manual_intervention_required, reviewed_by, review_notes,
		 reconciliation_date, created_at, updated_at, processed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RecordID, rec.MerchantID, rec.Connector, rec.BatchID,
		string(rec.Type), string(rec.Status), nullableInt(rec.MatchScore),
		hsJSON, cnJSON, boolToInt(rec.AutoMatched),
		boolToInt(rec.ManualInterventionRequired), rec.ReviewedBy, rec.ReviewNotes,
		rec.ReconciliationDate.Format(time.RFC3339),
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339),
		formatNullableTime(rec.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	return r.replaceDiscrepancies(rec)
}

// Save updates a record in place, replacing its discrepancy rows so the
// stored list always mirrors the in-memory one.
func (r *RecordRepo) Save(rec *reconciliation.Record) error {
	hsJSON, cnJSON, err := marshalSnapshots(rec)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(
		`UPDATE reconciliation_records SET
		 merchant_id = ?, connector = ?, batch_id = ?, record_type = ?,
		 status = ?, match_score = ?, hyperswitch_data = ?, connector_data = ?,
		 auto_matched = ?, manual_intervention_required = ?, reviewed_by = ?,
		 review_notes = ?, reconciliation_date = ?, updated_at = ?, processed_at = ?
		 WHERE record_id = ?`,
		rec.MerchantID, rec.Connector, rec.BatchID, string(rec.Type),
		string(rec.Status), nullableInt(rec.MatchScore), hsJSON, cnJSON,
		boolToInt(rec.AutoMatched), boolToInt(rec.ManualInterventionRequired),
		rec.ReviewedBy, rec.ReviewNotes,
		rec.ReconciliationDate.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339), formatNullableTime(rec.ProcessedAt),
		rec.RecordID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	return r.replaceDiscrepancies(rec)
}

func (r *RecordRepo) replaceDiscrepancies(rec *reconciliation.Record) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM record_discrepancies WHERE record_id = ?", rec.RecordID); err != nil {
		return fmt.Errorf("clear discrepancies: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO record_discrepancies
		(id, record_id, position, type, description, expected_value,
		 actual_value, severity, resolved, resolution_notes, resolved_at, resolved_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range rec.Discrepancies {
		d := &rec.Discrepancies[i]
		_, err := stmt.Exec(
			uuid.NewString(), rec.RecordID, i, string(d.Type), d.Description,
			d.ExpectedValue, d.ActualValue, string(d.Severity),
			boolToInt(d.Resolved), d.ResolutionNotes,
			formatNullableTime(d.ResolvedAt), d.ResolvedBy,
		)
		if err != nil {
			return fmt.Errorf("insert discrepancy %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *RecordRepo) GetByID(recordID string) (*reconciliation.Record, error) {
	row := r.db.QueryRow(
		`SELECT record_id, merchant_id, connector, batch_id, record_type, status,
		 match_score, hyperswitch_data, connector_data, auto_matched,
		 manual_intervention_required, reviewed_by, review_notes,
		 reconciliation_date, created_at, updated_at, processed_at
		 FROM reconciliation_records WHERE record_id = ?`, recordID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if err := r.loadDiscrepancies(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *RecordRepo) loadDiscrepancies(rec *reconciliation.Record) error {
	rows, err := r.db.Query(
		`SELECT type, description, expected_value, actual_value, severity,
		 resolved, resolution_notes, resolved_at, resolved_by
		 FROM record_discrepancies WHERE record_id = ? ORDER BY position`,
		rec.RecordID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var d reconciliation.Discrepancy
		var dtype, sev string
		var resolved int
		var notes, resolvedBy sql.NullString
		var resolvedAt sql.NullString

		if err := rows.Scan(&dtype, &d.Description, &d.ExpectedValue,
			&d.ActualValue, &sev, &resolved, &notes, &resolvedAt, &resolvedBy); err != nil {
			return err
		}
		d.Type = reconciliation.DiscrepancyType(dtype)
		d.Severity = reconciliation.Severity(sev)
		d.Resolved = resolved != 0
		d.ResolutionNotes = notes.String
		d.ResolvedBy = resolvedBy.String
		d.ResolvedAt = parseNullableTime(resolvedAt)

		rec.Discrepancies = append(rec.Discrepancies, d)
	}
	return rows.Err()
}

// RecordFilter narrows List results. A nil Range means no date filtering;
// otherwise reconciliation_date must fall within the half-open range.
type RecordFilter struct {
	MerchantID string
	Connector  string
	BatchID    string
	Status     string
	Type       string
	Range      *daterange.Range
	Page       int
	Limit      int
}

func (r *RecordRepo) List(f RecordFilter) ([]reconciliation.Record, int, error) {
	where, args := buildRecordWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM reconciliation_records"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := `SELECT record_id, merchant_id, connector, batch_id, record_type, status,
		 match_score, hyperswitch_data, connector_data, auto_matched,
		 manual_intervention_required, reviewed_by, review_notes,
		 reconciliation_date, created_at, updated_at, processed_at
		 FROM reconciliation_records` + where +
		" ORDER BY reconciliation_date DESC, record_id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []reconciliation.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		if err := r.loadDiscrepancies(rec); err != nil {
			return nil, 0, err
		}
		recs = append(recs, *rec)
	}
	return recs, total, rows.Err()
}

// ListPendingForBatch returns the unprocessed records of one batch.
func (r *RecordRepo) ListPendingForBatch(batchID string) ([]reconciliation.Record, error) {
	recs, _, err := r.List(RecordFilter{
		BatchID: batchID,
		Status:  string(reconciliation.StatusPending),
		Limit:   100000,
	})
	return recs, err
}

func (r *RecordRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM reconciliation_records").Scan(&count)
	return count, err
}

// SummaryByStatus returns record counts grouped by reconciliation status.
func (r *RecordRepo) SummaryByStatus() (map[string]int, error) {
	rows, err := r.db.Query(
		"SELECT status, COUNT(*) FROM reconciliation_records GROUP BY status",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]int)
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*reconciliation.Record, error) {
	var rec reconciliation.Record
	var rtype, status string
	var matchScore sql.NullInt64
	var hsJSON, cnJSON, reviewedBy, reviewNotes sql.NullString
	var reconDate, createdAt, updatedAt string
	var processedAt sql.NullString
	var autoMatched, manual int

	err := row.Scan(
		&rec.RecordID, &rec.MerchantID, &rec.Connector, &rec.BatchID,
		&rtype, &status, &matchScore, &hsJSON, &cnJSON, &autoMatched,
		&manual, &reviewedBy, &reviewNotes, &reconDate, &createdAt,
		&updatedAt, &processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Type = reconciliation.RecordType(rtype)
	rec.Status = reconciliation.Status(status)
	if matchScore.Valid {
		score := int(matchScore.Int64)
		rec.MatchScore = &score
	}
	if hsJSON.Valid && hsJSON.String != "" {
		var hs reconciliation.HyperswitchData
		if err := json.Unmarshal([]byte(hsJSON.String), &hs); err != nil {
			return nil, fmt.Errorf("unmarshal hyperswitch data: %w", err)
		}
		rec.Hyperswitch = &hs
	}
	if cnJSON.Valid && cnJSON.String != "" {
		var cn reconciliation.ConnectorData
		if err := json.Unmarshal([]byte(cnJSON.String), &cn); err != nil {
			return nil, fmt.Errorf("unmarshal connector data: %w", err)
		}
		rec.ConnectorSide = &cn
	}
	rec.AutoMatched = autoMatched != 0
	rec.ManualInterventionRequired = manual != 0
	rec.ReviewedBy = reviewedBy.String
	rec.ReviewNotes = reviewNotes.String
	rec.ReconciliationDate, _ = time.Parse(time.RFC3339, reconDate)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	rec.ProcessedAt = parseNullableTime(processedAt)

	return &rec, nil
}

func buildRecordWhere(f RecordFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.MerchantID != "" {
		clauses = append(clauses, "merchant_id = ?")
		args = append(args, f.MerchantID)
	}
	if f.Connector != "" {
		clauses = append(clauses, "connector = ?")
		args = append(args, f.Connector)
	}
	if f.BatchID != "" {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		clauses = append(clauses, "record_type = ?")
		args = append(args, f.Type)
	}
	if f.Range != nil {
		clauses = append(clauses, "reconciliation_date >= ?", "reconciliation_date < ?")
		args = append(args, f.Range.Start().Format(time.RFC3339), f.Range.End().Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func marshalSnapshots(rec *reconciliation.Record) (hs, cn any, err error) {
	if rec.Hyperswitch != nil {
		b, err := json.Marshal(rec.Hyperswitch)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal hyperswitch data: %w", err)
		}
		hs = string(b)
	}
	if rec.ConnectorSide != nil {
		b, err := json.Marshal(rec.ConnectorSide)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal connector data: %w", err)
		}
		cn = string(b)
	}
	return hs, cn, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
