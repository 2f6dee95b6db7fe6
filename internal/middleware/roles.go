package middleware

import (
	"net/http"

	"github.com/baharkarakas/wallet-transfer/internal/api/httpx"
	"github.com/baharkarakas/wallet-transfer/internal/apperr"
)

// RequireRole lets through only callers Auth resolved with the given role.
func RequireRole(need string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := Principal(r.Context()); !ok {
				httpx.WriteErr(w, r, apperr.New(apperr.KindUnauthorized, "missing principal"))
				return
			}
			if got := Role(r.Context()); got != need {
				httpx.WriteErr(w, r, apperr.New(apperr.KindForbidden, "role %s required", need))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
