package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

type ContactHandler struct {
	repo repository.ContactRepository
}

func NewContactHandler(repo repository.ContactRepository) *ContactHandler {
	return &ContactHandler{repo: repo}
}

// Create handles POST /contact (public, rate-limited)
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "name, email and message are required")
		return
	}

	msg := &models.ContactMessage{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.Create(r.Context(), msg); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// List handles GET /contact (admin)
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	msgs, meta, err := h.repo.List(r.Context(), page, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.ContactMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"meta":     meta,
	})
}
