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

	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

const (
	// LedgerCollectionName is the name of the ledger collection in MongoDB
	LedgerCollectionName = "ledger_entries"
)

// LedgerRepository implements the ledger.Repository interface for MongoDB
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique index on entry_id that backs Create's
// idempotency guarantee. Called once at startup by the writing process.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(LedgerCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "entry_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger entry_id index: %w", err)
	}
	return nil
}

// Create stores a new ledger entry. The unique entry_id index makes the
// duplicate check atomic: a redelivered event racing another processor gets
// ErrDuplicateEntry from the second insert rather than a second document.
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		return r.insertError(err, entry.EntryID)
	}

	return nil
}

// insertError maps a unique-index violation on entry_id to ErrDuplicateEntry
// and wraps anything else.
func (r *LedgerRepository) insertError(err error, entryID uuid.UUID) error {
	if mongo.IsDuplicateKeyError(err) {
		return ledger.ErrDuplicateEntry{EntryID: entryID}
	}
	r.logger.Error("Failed to create ledger entry",
		"entry_id", entryID.String(),
		"error", err)
	return fmt.Errorf("failed to create ledger entry: %w", err)
}

// GetByEntryID retrieves a ledger entry by its entry ID.
// Returns ErrEntryNotFound if no entry exists for the given ID.
func (r *LedgerRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"entry_id": entryID}
	var entry ledger.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{EntryID: entryID}
		}
		r.logger.Error("Failed to get ledger entry",
			"entry_id", entryID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &entry, nil
}

// GetByActorID retrieves paginated ledger entries for an actor.
// Results are sorted by creation time in descending order (newest first).
func (r *LedgerRepository) GetByActorID(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"actor_id": actorID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}). // Sort by created_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries",
			"actor_id", actorID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"actor_id", actorID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// CountByActorID counts the total number of ledger entries for an actor
func (r *LedgerRepository) CountByActorID(ctx context.Context, actorID uuid.UUID) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"actor_id": actorID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count ledger entries",
			"actor_id", actorID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// List pages through entries filtered by transaction type, oldest first so
// sweep position stays stable while new entries are appended.
func (r *LedgerRepository) List(ctx context.Context, transactionType shared.TransactionType, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{}
	if transactionType != "" {
		filter["type"] = transactionType
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "entry_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list ledger entries",
			"type", string(transactionType),
			"error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"type", string(transactionType),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// Count counts entries filtered by transaction type ("" for all)
func (r *LedgerRepository) Count(ctx context.Context, transactionType shared.TransactionType) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{}
	if transactionType != "" {
		filter["type"] = transactionType
	}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count ledger entries",
			"type", string(transactionType),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves paginated ledger entries within the specified time window.
// Results are sorted by creation time in descending order for recent-first access.
func (r *LedgerRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{
		"created_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}). // Sort by created_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// ActiveTipTotal sums TIP amounts minus REFUND amounts across the whole
// collection, floored at zero. The total is recomputed on every call rather
// than kept as a counter that could drift from the entries.
func (r *LedgerRepository) ActiveTipTotal(ctx context.Context) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"type": bson.M{"$in": bson.A{shared.TransactionTypeTip, shared.TransactionTypeRefund}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$type", shared.TransactionTypeTip}},
				"$amount",
				bson.M{"$multiply": bson.A{"$amount", -1}},
			}}},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to aggregate active tip total", "error", err)
		return 0, fmt.Errorf("failed to aggregate active tip total: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		r.logger.Error("Failed to decode active tip total", "error", err)
		return 0, fmt.Errorf("failed to decode active tip total: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	total := results[0].Total
	if total < 0 {
		total = 0
	}
	return total, nil
}
