// Command worker consumes the audit stream into its store and dispatches notifications.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/wallet-transfer/internal/audit"
	"github.com/baharkarakas/wallet-transfer/internal/config"
	"github.com/baharkarakas/wallet-transfer/internal/db"
	"github.com/baharkarakas/wallet-transfer/internal/guard"
	"github.com/baharkarakas/wallet-transfer/internal/logger"
	"github.com/baharkarakas/wallet-transfer/internal/notify"
	"github.com/baharkarakas/wallet-transfer/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if len(cfg.KafkaBrokers) > 0 {
		g.Go(func() error { return runAudit(ctx, cfg, log) })
	} else {
		log.Warn("KAFKA_BROKERS empty, audit consumer disabled")
	}
	g.Go(func() error { return runNotifications(ctx, cfg, log) })

	if err := g.Wait(); err != nil {
		log.Error("worker exited", "err", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func runAudit(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var sink audit.Sink
	switch cfg.AuditSink {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sink = audit.RepoSink{Logs: postgres.NewRepositories(pool, cfg.LockTimeout).AuditLogs}
	default:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := client.Ping(ctx, nil); err != nil {
			return err
		}
		sink = audit.NewMongoSink(client, cfg.MongoDB)
	}

	reader := audit.NewKafkaReader(cfg.KafkaBrokers, cfg.AuditTopic, cfg.AuditGroup)
	defer reader.Close()
	log.Info("audit consumer starting", "topic", cfg.AuditTopic, "group", cfg.AuditGroup, "sink", cfg.AuditSink)
	return audit.NewConsumer(reader, sink, log).Run(ctx)
}

func runNotifications(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rdb, err := guard.NewRedis(ctx, guard.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	svc := notify.NewService(rdb, cfg.NotifyDedupTTL,
		[]notify.Template{notify.TransferCompletedTemplate{}},
		[]notify.Channel{notify.PushChannel{Log: log}},
		log,
	)
	c, err := notify.NewConsumer(conn, cfg.NotifyExchange, cfg.NotifyQueue, svc, log)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Run(ctx)
}
