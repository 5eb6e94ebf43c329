package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tuneable/tipledger/internal/domain/shared"
)

const (
	// FailureCollectionName is the name of the rejected-events collection in MongoDB
	FailureCollectionName = "event_failures"
)

// FailureRepository implements the shared.FailureRepository interface for MongoDB
type FailureRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewFailureRepository creates a new MongoDB failure repository
func NewFailureRepository(logger *slog.Logger, db *mongo.Database) shared.FailureRepository {
	return &FailureRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a rejected-event record
func (r *FailureRepository) Create(ctx context.Context, failure *shared.EventFailure) error {
	collection := r.db.Collection(FailureCollectionName)

	_, err := collection.InsertOne(ctx, failure)
	if err != nil {
		r.logger.Error("Failed to create event failure record",
			"event_id", failure.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to create event failure record: %w", err)
	}

	return nil
}

// GetByEventID retrieves the failure record for an event, or nil if the
// event never failed
func (r *FailureRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*shared.EventFailure, error) {
	collection := r.db.Collection(FailureCollectionName)

	filter := bson.M{"event_id": eventID}
	var failure shared.EventFailure
	err := collection.FindOne(ctx, filter).Decode(&failure)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get event failure record",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get event failure record: %w", err)
	}

	return &failure, nil
}

// ListRecent retrieves the most recent rejections, newest first
func (r *FailureRepository) ListRecent(ctx context.Context, limit int) ([]*shared.EventFailure, error) {
	collection := r.db.Collection(FailureCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list event failures", "error", err)
		return nil, fmt.Errorf("failed to list event failures: %w", err)
	}
	defer cursor.Close(ctx)

	var failures []*shared.EventFailure
	if err := cursor.All(ctx, &failures); err != nil {
		r.logger.Error("Failed to decode event failures", "error", err)
		return nil, fmt.Errorf("failed to decode event failures: %w", err)
	}

	return failures, nil
}
