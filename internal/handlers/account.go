package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ShailySarker/digital-wallet-backend/internal/account"
	"github.com/ShailySarker/digital-wallet-backend/internal/middleware"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

type AccountHandler struct {
	svc *account.Service
}

func NewAccountHandler(svc *account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Register handles POST /accounts/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Me handles GET /accounts/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	acct, err := h.svc.Profile(r.Context(), claims.AccountID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// Get handles GET /accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	acct, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// Update handles PATCH /accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var patch models.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.svc.Update(r.Context(), *claims, id, patch)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Lookup handles GET /accounts/lookup?identifier=
// Used for pre-transfer recipient checks; never returns admins.
func (h *AccountHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	acct, err := h.svc.Lookup(r.Context(), identifier)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    acct.ID,
		"name":  acct.Name,
		"phone": acct.Phone,
		"role":  acct.Role,
	})
}

// List handles GET /accounts?role=&search=&active_state=&approval_state=&sort_by=&order=&page=&limit=
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	q := r.URL.Query()
	filter := models.AccountFilter{
		Role:          models.Role(q.Get("role")),
		Search:        q.Get("search"),
		ActiveState:   models.ActiveState(q.Get("active_state")),
		ApprovalState: models.ApprovalState(q.Get("approval_state")),
		SortBy:        q.Get("sort_by"),
		SortDesc:      q.Get("order") == "desc",
	}
	if v := q.Get("verified"); v == "true" || v == "false" {
		verified := v == "true"
		filter.Verified = &verified
	}
	if v := q.Get("deleted"); v == "true" || v == "false" {
		deleted := v == "true"
		filter.Deleted = &deleted
	}
	filter.Page, filter.Limit = pageParams(r)

	accounts, meta, counts, err := h.svc.List(r.Context(), *claims, filter)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}

	resp := map[string]interface{}{
		"accounts": accounts,
		"meta":     meta,
	}
	if counts != nil {
		resp["counts"] = counts
	}
	writeJSON(w, http.StatusOK, resp)
}
