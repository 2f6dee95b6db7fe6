package handlers

import (
	"net/http"

	"github.com/baharkarakas/wallet-transfer/internal/api/httpx"
	"github.com/baharkarakas/wallet-transfer/internal/services"
	"github.com/go-chi/chi/v5"
)

type PayoutHandler struct {
	Svc PayoutService
}

func NewPayoutHandler(s PayoutService) *PayoutHandler { return &PayoutHandler{Svc: s} }

func (h *PayoutHandler) Request(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	var req services.PayoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	if k := r.Header.Get(idempotencyHeader); k != "" {
		req.IdempotencyKey = k
	}
	payout, err := h.Svc.Request(r.Context(), p, req)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	// held and waiting on the bank
	httpx.WriteJSON(w, http.StatusAccepted, payout)
}

func (h *PayoutHandler) Settle(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	var req services.SettleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	payout, err := h.Svc.Settle(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payout)
}

func (h *PayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	payout, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payout)
}
