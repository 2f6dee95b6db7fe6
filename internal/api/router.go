package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/wallet-transfer/internal/api/handlers"
	"github.com/baharkarakas/wallet-transfer/internal/auth"
	"github.com/baharkarakas/wallet-transfer/internal/config"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
	"github.com/baharkarakas/wallet-transfer/internal/middleware"
)

type RouterDeps struct {
	Cfg       config.Config
	Tokens    *auth.TokenManager
	Limiter   *guard.RateLimiter
	Wallets   handlers.WalletService
	Transfers handlers.TransferService
	Payouts   handlers.PayoutService
	Deposits  handlers.DepositService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Limiter, d.Cfg.HTTPRateLimit))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	wallets := handlers.NewWalletHandler(d.Wallets, d.Transfers)
	transfers := handlers.NewTransferHandler(d.Transfers)
	payouts := handlers.NewPayoutHandler(d.Payouts)
	deposits := handlers.NewDepositWebhook(d.Deposits, d.Cfg.DepositWebhookSecret)
	authMW := middleware.NewAuthMiddleware(d.Tokens, d.Cfg.Env)

	r.Post("/webhooks/deposit", deposits.Confirm)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW.Auth)

		r.Post("/wallets", wallets.Open)
		r.Get("/wallets/{id}", wallets.Get)
		r.Get("/wallets/{id}/entries", wallets.Entries)
		r.Get("/wallets/{id}/transfers", wallets.Transfers)

		r.Post("/transfers", transfers.Create)
		r.Get("/transfers/{id}", transfers.Get)

		r.Post("/payouts", payouts.Request)
		r.Get("/payouts/{id}", payouts.Get)
		// bank-rail callback
		r.With(middleware.RequireRole(auth.RoleOperator)).Post("/payouts/{id}/settle", payouts.Settle)
	})

	return r
}
