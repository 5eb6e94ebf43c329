package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

func TestSettlementRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: logger}

	settlement := &shared.ProcessedSettlement{
		ProviderReference: "stripe_ch_abc123",
		ActorID:           uuid.New(),
		Amount:            2000,
		ProcessedAt:       time.Now(),
	}

	query := `
		INSERT INTO processed_settlements \(provider_reference, actor_id, amount, processed_at\)
		VALUES \(\$1, \$2, \$3, \$4\)
		ON CONFLICT \(provider_reference\) DO NOTHING
	`

	t.Run("first delivery inserts", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(settlement.ProviderReference, settlement.ActorID, settlement.Amount, settlement.ProcessedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.MarkProcessed(ctx, settlement)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redelivery conflicts and is rejected", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(settlement.ProviderReference, settlement.ActorID, settlement.Amount, settlement.ProcessedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		err := repo.MarkProcessed(ctx, settlement)
		assert.ErrorIs(t, err, shared.ErrDuplicateSettlement)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_GetByReference(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettlementRepository{querier: mock, logger: logger}
	ref := "stripe_ch_abc123"
	actorID := uuid.New()
	now := time.Now()

	query := `
		SELECT provider_reference, actor_id, amount, processed_at
		FROM processed_settlements
		WHERE provider_reference = \$1
	`

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"provider_reference", "actor_id", "amount", "processed_at"}).
			AddRow(ref, actorID, int64(2000), now)
		mock.ExpectQuery(query).WithArgs(ref).WillReturnRows(rows)

		settlement, err := repo.GetByReference(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, ref, settlement.ProviderReference)
		assert.Equal(t, actorID, settlement.ActorID)
		assert.Equal(t, int64(2000), settlement.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(ref).WillReturnError(pgx.ErrNoRows)

		settlement, err := repo.GetByReference(ctx, ref)
		assert.Nil(t, settlement)
		assert.ErrorIs(t, err, shared.ErrSettlementNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
