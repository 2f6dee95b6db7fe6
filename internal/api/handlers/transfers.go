package handlers

import (
	"net/http"

	"github.com/baharkarakas/wallet-transfer/internal/api/httpx"
	"github.com/baharkarakas/wallet-transfer/internal/services"
	"github.com/go-chi/chi/v5"
)

const idempotencyHeader = "Idempotency-Key"

type TransferHandler struct {
	Svc TransferService
}

func NewTransferHandler(s TransferService) *TransferHandler { return &TransferHandler{Svc: s} }

// Create takes the key from the Idempotency-Key header, or from the body when the header is absent.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	var req services.TransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if k := r.Header.Get(idempotencyHeader); k != "" {
		req.IdempotencyKey = k
	}
	res, err := h.Svc.Create(r.Context(), p, req)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
