package handlers

import (
	"net/http"

	"github.com/baharkarakas/wallet-transfer/internal/api/httpx"
	"github.com/go-chi/chi/v5"
)

type WalletHandler struct {
	Wallets     WalletService
	TransferSvc TransferService
}

func NewWalletHandler(w WalletService, t TransferService) *WalletHandler {
	return &WalletHandler{Wallets: w, TransferSvc: t}
}

type openWalletReq struct {
	Currency string `json:"currency"`
}

// Open creates a wallet owned by the caller.
func (h *WalletHandler) Open(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	var req openWalletReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	wallet, err := h.Wallets.Open(r.Context(), p, req.Currency)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, wallet)
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.Wallets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wallet)
}

func (h *WalletHandler) Entries(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	entries, err := h.Wallets.Entries(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": nonNil(entries), "limit": limit, "offset": offset})
}

func (h *WalletHandler) Transfers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	list, err := h.TransferSvc.ListByWallet(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": nonNil(list), "limit": limit, "offset": offset})
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
