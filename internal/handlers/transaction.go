package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ShailySarker/digital-wallet-backend/internal/middleware"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/reporting"
)

type TransactionHandler struct {
	svc *reporting.Service
}

func NewTransactionHandler(svc *reporting.Service) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// transactionFilter parses the shared history query parameters.
func transactionFilter(r *http.Request) models.TransactionFilter {
	q := r.URL.Query()
	filter := models.TransactionFilter{
		Type:     models.TransactionType(q.Get("type")),
		Status:   models.TransactionStatus(q.Get("status")),
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("order") != "asc",
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = t
		}
	}
	filter.Page, filter.Limit = pageParams(r)
	return filter
}

// Get handles GET /transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.svc.Transaction(r.Context(), *claims, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// History handles GET /transactions/me
func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	transactions, meta, err := h.svc.History(r.Context(), *claims, transactionFilter(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"meta":         meta,
	})
}

// List handles GET /transactions (admin-wide view)
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	transactions, meta, err := h.svc.AllTransactions(r.Context(), *claims, transactionFilter(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"meta":         meta,
	})
}

// AgentSummary handles GET /transactions/commission/summary
func (h *TransactionHandler) AgentSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	report, err := h.svc.AgentSummary(r.Context(), *claims)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CommissionHistory handles GET /transactions/commission/history
func (h *TransactionHandler) CommissionHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	page, limit := pageParams(r)
	transactions, meta, err := h.svc.CommissionHistory(r.Context(), *claims, page, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"meta":         meta,
	})
}

// Overview handles GET /transactions/overview (admin dashboard)
func (h *TransactionHandler) Overview(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	overview, err := h.svc.AdminOverview(r.Context(), *claims)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
