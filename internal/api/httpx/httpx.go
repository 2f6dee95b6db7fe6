package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/wallet-transfer/internal/apperr"
	"github.com/baharkarakas/wallet-transfer/internal/validate"
)

// maxBody caps request bodies read by DecodeJSON.
const maxBody = 1 << 20

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindBadRequest:        http.StatusBadRequest,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindDuplicateRequest:  http.StatusConflict,
	apperr.KindInvalidState:      http.StatusConflict,
	apperr.KindRateLimitExceeded: http.StatusTooManyRequests,
	apperr.KindInsufficientFunds: http.StatusBadRequest,
	apperr.KindLockTimeout:       http.StatusInternalServerError,
	apperr.KindStoreUnavailable:  http.StatusInternalServerError,
	apperr.KindInternal:          http.StatusInternalServerError,
}

// StatusOf maps an error to its HTTP status by kind.
func StatusOf(err error) int {
	if s, ok := statusByKind[apperr.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteErr renders err in the error envelope. Internal details never reach the client.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(err)

	msg := err.Error()
	var details interface{}
	var fields validate.Errs
	if errors.As(err, &fields) {
		msg, details = "validation failed", fields
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "request_id", w.Header().Get("X-Request-Id"), "err", err)
		msg = http.StatusText(status)
	}
	WriteError(w, status, string(kind), msg, details)
}

// DecodeJSON reads one JSON object into v and rejects unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, err, "invalid JSON body")
	}
	return nil
}
