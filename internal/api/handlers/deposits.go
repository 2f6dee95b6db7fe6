package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/wallet-transfer/internal/api/httpx"
	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/services"
)

const (
	signatureHeader  = "X-Signature"
	webhookPrincipal = "pg-webhook"
	maxWebhookBody   = 64 << 10
)

// DepositWebhook receives payment gateway confirmations. The gateway signs the raw body with
// HMAC-SHA256 and sends the hex digest in X-Signature.
type DepositWebhook struct {
	Svc    DepositService
	Secret []byte
}

func NewDepositWebhook(s DepositService, secret string) *DepositWebhook {
	return &DepositWebhook{Svc: s, Secret: []byte(secret)}
}

// Sign is what the gateway computes; exported for tests and replay tooling.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *DepositWebhook) verify(body []byte, sig string) bool {
	if len(h.Secret) == 0 {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.Secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func (h *DepositWebhook) Confirm(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.WriteErr(w, r, apperr.Wrap(apperr.KindBadRequest, err, "read body"))
		return
	}
	if !h.verify(body, r.Header.Get(signatureHeader)) {
		slog.WarnContext(r.Context(), "deposit webhook signature rejected", "remote", r.RemoteAddr)
		httpx.WriteErr(w, r, apperr.New(apperr.KindUnauthorized, "invalid signature"))
		return
	}
	var req services.DepositRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteErr(w, r, apperr.Wrap(apperr.KindBadRequest, err, "invalid JSON body"))
		return
	}
	d, err := h.Svc.Confirm(r.Context(), webhookPrincipal, req)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}
