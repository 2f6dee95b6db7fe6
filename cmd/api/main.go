package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baharkarakas/wallet-transfer/internal/api"
	"github.com/baharkarakas/wallet-transfer/internal/audit"
	"github.com/baharkarakas/wallet-transfer/internal/auth"
	"github.com/baharkarakas/wallet-transfer/internal/config"
	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/metrics"
	"github.com/baharkarakas/wallet-transfer/internal/notify"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"github.com/baharkarakas/wallet-transfer/internal/repository/memory"
	"github.com/baharkarakas/wallet-transfer/internal/repository/postgres"
	"github.com/baharkarakas/wallet-transfer/internal/services"
	"github.com/baharkarakas/wallet-transfer/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	repos, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := guard.NewRedis(ctx, guard.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	wp := worker.NewPool(cfg.WorkerCount, 1024)
	var closers []io.Closer
	defer func() { drain(wp, log, closers...) }()

	var pub audit.Publisher = audit.LogPublisher{Log: log}
	if len(cfg.KafkaBrokers) > 0 {
		kp := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		closers = append(closers, kp)
		pub = kp
	}

	var notifier services.TransferNotifier
	if conn, err := amqp.Dial(cfg.RabbitURL); err != nil {
		log.Warn("rabbitmq unavailable, transfer notifications disabled", "err", err)
	} else {
		closers = append(closers, conn)
		rp, err := notify.NewRabbitPublisher(conn, cfg.NotifyExchange)
		if err != nil {
			return err
		}
		closers = append(closers, rp)
		notifier = notify.NewNotifier(rp, wp, log)
	}

	limiter := guard.NewRateLimiter(rdb)
	deps := services.Deps{
		Tx:        repos.Tx,
		Wallets:   repos.Wallets,
		Entries:   repos.LedgerEntries,
		Transfers: repos.Transfers,
		Deposits:  repos.Deposits,
		Payouts:   repos.Payouts,
		Limiter:   limiter,
		Idem:      guard.NewIdempotency(rdb),
		Audit:     audit.NewEmitter(pub, wp, log),
		Notifier:  notifier,
		Policy: services.Policy{
			IdempotencyTTL:    cfg.IdempotencyTTL,
			TransferRateLimit: cfg.TransferRateLimit,
			PayoutRateLimit:   cfg.PayoutRateLimit,
			RateWindow:        cfg.TransferRateWindow,
		},
		Log: log,
	}

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:       cfg,
		Tokens:    auth.NewTokenManager(cfg.JWTSecret, 15*time.Minute),
		Limiter:   limiter,
		Wallets:   services.NewWalletService(deps),
		Transfers: services.NewTransferService(deps),
		Payouts:   services.NewPayoutService(deps),
		Deposits:  services.NewDepositService(deps),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type stopper interface{ Stop() }

// drain waits for queued audit and notification jobs, then closes what they publish to,
// last opened first.
func drain(wp stopper, log *slog.Logger, closers ...io.Closer) {
	wp.Stop()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.Warn("close on shutdown", "err", err)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.Repositories, func(), error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("using in-memory storage, data is lost on exit")
		return memory.NewStore(cfg.LockTimeout).Repositories(), func() {}, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return repo.Repositories{}, nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return repo.Repositories{}, nil, err
		}
	}
	return postgres.NewRepositories(pool, cfg.LockTimeout), pool.Close, nil
}
