package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridianpay/reconciler/internal/batch"
	"github.com/meridianpay/reconciler/internal/currency"
	"github.com/meridianpay/reconciler/internal/daterange"
	"github.com/meridianpay/reconciler/internal/reconciliation"
	"github.com/meridianpay/reconciler/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	recordRepo *repository.RecordRepo
	svc        *batch.Service
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- records ---

type createRecordRequest struct {
	RecordID           string `json:"record_id"`
	MerchantID         string `json:"merchant_id"`
	Connector          string `json:"connector"`
	BatchID            string `json:"reconciliation_batch_id"`
	RecordType         string `json:"record_type"`
	ReconciliationDate string `json:"reconciliation_date"`
}

func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rtype, err := reconciliation.ParseRecordType(req.RecordType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reconDate := time.Now().UTC()
	if t := parseTime(req.ReconciliationDate); t != nil {
		reconDate = *t
	}

	rec, err := h.svc.CreateRecord(req.RecordID, req.MerchantID, req.Connector,
		req.BatchID, rtype, reconDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.RecordFilter{
		MerchantID: q.Get("merchant_id"),
		Connector:  q.Get("connector"),
		BatchID:    q.Get("batch_id"),
		Status:     q.Get("status"),
		Type:       q.Get("record_type"),
		Page:       parseIntDefault(q.Get("page"), 1),
		Limit:      parseIntDefault(q.Get("limit"), 50),
	}

	from := parseTime(q.Get("from"))
	to := parseTime(q.Get("to"))
	if from != nil && to != nil {
		rng, err := daterange.New(*from, *to)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Range = &rng
	}

	recs, total, err := h.recordRepo.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []reconciliation.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": recs,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.recordRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "record not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) UpsertHyperswitchSnapshot(w http.ResponseWriter, r *http.Request) {
	var data reconciliation.HyperswitchData
	if !decodeBody(w, r, &data) {
		return
	}
	if data.Currency != "" && !currency.IsSupported(data.Currency) {
		writeError(w, http.StatusBadRequest, "unsupported currency: "+data.Currency)
		return
	}
	rec, err := h.svc.UpsertHyperswitchSnapshot(chi.URLParam(r, "id"), data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) UpsertConnectorSnapshot(w http.ResponseWriter, r *http.Request) {
	var data reconciliation.ConnectorData
	if !decodeBody(w, r, &data) {
		return
	}
	if data.ConnectorCurrency != "" && !currency.IsSupported(data.ConnectorCurrency) {
		writeError(w, http.StatusBadRequest, "unsupported currency: "+data.ConnectorCurrency)
		return
	}
	rec, err := h.svc.UpsertConnectorSnapshot(chi.URLParam(r, "id"), data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) ProcessRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Process(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type resolveDiscrepancyRequest struct {
	Notes      string `json:"notes"`
	ResolvedBy string `json:"resolved_by"`
}

func (h *Handlers) ResolveDiscrepancy(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid discrepancy index")
		return
	}

	var req resolveDiscrepancyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.svc.ResolveDiscrepancy(chi.URLParam(r, "id"), index, req.Notes, req.ResolvedBy)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, reconciliation.ErrIndexOutOfRange) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type manualReviewRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) MarkForManualReview(w http.ResponseWriter, r *http.Request) {
	var req manualReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.svc.MarkForManualReview(chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type completeReviewRequest struct {
	Outcome  string `json:"outcome"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}

func (h *Handlers) CompleteManualReview(w http.ResponseWriter, r *http.Request) {
	var req completeReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, err := reconciliation.ParseStatus(req.Outcome)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.CompleteManualReview(chi.URLParam(r, "id"), outcome, req.Reviewer, req.Notes)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// --- batches ---

func (h *Handlers) RunBatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunBatch(chi.URLParam(r, "batchID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- reporting ---

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"by_status": summary})
}

func (h *Handlers) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := currency.Supported()
	sort.Strings(codes)

	currencies := make([]currency.Currency, 0, len(codes))
	for _, code := range codes {
		c, err := currency.Lookup(code)
		if err != nil {
			continue
		}
		currencies = append(currencies, c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"currencies": currencies})
}
