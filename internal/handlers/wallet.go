package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ShailySarker/digital-wallet-backend/internal/ledger"
	"github.com/ShailySarker/digital-wallet-backend/internal/middleware"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

type WalletHandler struct {
	engine  *ledger.Engine
	wallets repository.WalletRepository
}

func NewWalletHandler(engine *ledger.Engine, wallets repository.WalletRepository) *WalletHandler {
	return &WalletHandler{engine: engine, wallets: wallets}
}

// amountRequest covers deposit and withdraw bodies.
type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// counterpartyRequest covers send, cash-in and cash-out bodies. For
// send, Recipient may be a phone number or an email address; for
// cash-in and cash-out it must be a user's phone number.
type counterpartyRequest struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

// Me handles GET /wallets/me
func (h *WalletHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	wallet, err := h.wallets.ByAccount(r.Context(), claims.AccountID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// Deposit handles POST /wallets/deposit
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wallet, err := h.engine.Deposit(r.Context(), claims.AccountID, req.Amount)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// Withdraw handles POST /wallets/withdraw
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wallet, err := h.engine.Withdraw(r.Context(), claims.AccountID, req.Amount)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// Send handles POST /wallets/send
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	var req counterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	result, err := h.engine.Send(r.Context(), claims.AccountID, req.Recipient, req.Amount)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CashIn handles POST /wallets/cash-in
func (h *WalletHandler) CashIn(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	var req counterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	result, err := h.engine.CashIn(r.Context(), claims.AccountID, req.Recipient, req.Amount)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CashOut handles POST /wallets/cash-out
func (h *WalletHandler) CashOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	var req counterpartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	result, err := h.engine.CashOut(r.Context(), claims.AccountID, req.Recipient, req.Amount)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SetStatus handles PATCH /wallets/{id}/status
func (h *WalletHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wallet id")
		return
	}

	var req struct {
		Status models.WalletStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wallet, err := h.engine.SetWalletStatus(r.Context(), claims.AccountID, id, req.Status)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// List handles GET /wallets?page=&limit= (admin directory)
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	wallets, meta, err := h.wallets.List(r.Context(), page, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if wallets == nil {
		wallets = []models.Wallet{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallets": wallets,
		"meta":    meta,
	})
}
