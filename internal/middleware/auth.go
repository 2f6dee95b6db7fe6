package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baharkarakas/wallet-transfer/internal/api/httpx"
	"github.com/baharkarakas/wallet-transfer/internal/auth"
)

type principalKey struct{}

type identity struct {
	id   string
	role string
}

// Principal returns the caller resolved by Auth.
func Principal(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalKey{}).(identity)
	return v.id, ok && v.id != ""
}

// Role returns the caller's role, empty when Auth did not run.
func Role(ctx context.Context) string {
	v, _ := ctx.Value(principalKey{}).(identity)
	return v.role
}

func WithPrincipal(ctx context.Context, id, role string) context.Context {
	if role == "" {
		role = auth.RoleUser
	}
	return context.WithValue(ctx, principalKey{}, identity{id: id, role: role})
}

type AuthMiddleware struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthMiddleware(tm *auth.TokenManager, appEnv string) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, AppEnv: appEnv}
}

// DEV: Bearer dev-<id>[@role] | any env: Bearer <JWT(access)>
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		if m.AppEnv == "dev" && strings.HasPrefix(token, "dev-") {
			id, role, _ := strings.Cut(strings.TrimPrefix(token, "dev-"), "@")
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), id, role)))
			return
		}

		claims, err := m.TM.Parse(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims.UserID, claims.Role)))
	})
}
