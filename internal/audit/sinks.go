package audit

import (
	"context"
	"fmt"

	"github.com/baharkarakas/wallet-transfer/internal/models"
	repo "github.com/baharkarakas/wallet-transfer/internal/repository"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoSink stores events in the audit_logs collection, keyed by event id.
type MongoSink struct {
	collection *mongo.Collection
}

func NewMongoSink(client *mongo.Client, dbName string) *MongoSink {
	return &MongoSink{collection: client.Database(dbName).Collection("audit_logs")}
}

func (s *MongoSink) Save(ctx context.Context, e models.AuditEvent) error {
	if _, err := s.collection.InsertOne(ctx, e); err != nil {
		// redelivery of an event we already stored
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// RepoSink stores events through the audit_logs repository (Postgres).
type RepoSink struct {
	Logs repo.AuditLogs
}

func (s RepoSink) Save(ctx context.Context, e models.AuditEvent) error {
	return s.Logs.Create(ctx, e)
}
