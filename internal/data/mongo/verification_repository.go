package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tuneable/tipledger/internal/domain/verification"
)

const (
	// VerificationCollectionName is the name of the verification records collection in MongoDB
	VerificationCollectionName = "verification_records"
)

// VerificationRepository implements the verification.Repository interface for MongoDB
type VerificationRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewVerificationRepository creates a new MongoDB verification repository
func NewVerificationRepository(logger *slog.Logger, db *mongo.Database) verification.Repository {
	return &VerificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new verification record for a ledger entry
func (r *VerificationRepository) Create(ctx context.Context, record *verification.Record) error {
	collection := r.db.Collection(VerificationCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to create verification record",
			"entry_id", record.EntryID.String(),
			"error", err)
		return fmt.Errorf("failed to create verification record: %w", err)
	}

	return nil
}

// GetByEntryID retrieves the verification record guarding a ledger entry.
// Returns ErrRecordNotFound if the entry has no record.
func (r *VerificationRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*verification.Record, error) {
	collection := r.db.Collection(VerificationCollectionName)

	filter := bson.M{"entry_id": entryID}
	var record verification.Record
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, verification.ErrRecordNotFound{EntryID: entryID}
		}
		r.logger.Error("Failed to get verification record",
			"entry_id", entryID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get verification record: %w", err)
	}

	return &record, nil
}

// RecordResult writes the outcome of a verification pass. The original hash
// column is never part of the update.
func (r *VerificationRepository) RecordResult(ctx context.Context, entryID uuid.UUID, observedHash string, match bool) error {
	collection := r.db.Collection(VerificationCollectionName)

	status := verification.StatusVerified
	if !match {
		status = verification.StatusMismatch
	}

	inc := bson.M{"verification_count": 1}
	if !match {
		inc["mismatch_count"] = 1
	}

	filter := bson.M{"entry_id": entryID}
	update := bson.M{
		"$set": bson.M{
			"last_observed_hash": observedHash,
			"status":             status,
			"last_verified_at":   time.Now(),
		},
		"$inc": inc,
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to record verification result",
			"entry_id", entryID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to record verification result: %w", err)
	}

	if result.MatchedCount == 0 {
		return verification.ErrRecordNotFound{EntryID: entryID}
	}

	return nil
}

// CountByStatus summarizes the collection by verification status
func (r *VerificationRepository) CountByStatus(ctx context.Context) (*verification.Stats, error) {
	collection := r.db.Collection(VerificationCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to count verification records", "error", err)
		return nil, fmt.Errorf("failed to count verification records: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Status verification.Status `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		r.logger.Error("Failed to decode verification counts", "error", err)
		return nil, fmt.Errorf("failed to decode verification counts: %w", err)
	}

	stats := &verification.Stats{}
	for _, result := range results {
		stats.Total += result.Count
		switch result.Status {
		case verification.StatusUnverified:
			stats.Unverified = result.Count
		case verification.StatusVerified:
			stats.Verified = result.Count
		case verification.StatusMismatch:
			stats.Mismatched = result.Count
		}
	}

	return stats, nil
}

// ListMismatched retrieves records flagged as MISMATCH, most recently
// verified first
func (r *VerificationRepository) ListMismatched(ctx context.Context, limit int) ([]*verification.Record, error) {
	collection := r.db.Collection(VerificationCollectionName)

	filter := bson.M{"status": verification.StatusMismatch}
	opts := options.Find().
		SetSort(bson.M{"last_verified_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list mismatched records", "error", err)
		return nil, fmt.Errorf("failed to list mismatched records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*verification.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode mismatched records", "error", err)
		return nil, fmt.Errorf("failed to decode mismatched records: %w", err)
	}

	return records, nil
}
