package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuneable/tipledger/internal/domain/allocation"
)

const escrowColumns = `id, user_id, content_id, tip_entry_id, amount, remaining_amount, status, created_at, claimed_at`

func pendingEscrowRows(userID uuid.UUID, amounts ...int64) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "user_id", "content_id", "tip_entry_id", "amount", "remaining_amount", "status", "created_at", "claimed_at"})
	for i, amount := range amounts {
		rows.AddRow(int64(i+1), userID, uuid.New(), uuid.New(), amount, amount, allocation.EscrowEntryStatusPending, time.Now().Add(time.Duration(i)*time.Minute), (*time.Time)(nil))
	}
	return rows
}

func TestEscrowRepository_ConsumeFIFO(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	userID := uuid.New()

	t.Run("oldest entries consumed first, last entry split", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := &EscrowRepository{querier: mock, logger: logger}

		mock.ExpectQuery(`SELECT ` + escrowColumns).
			WithArgs(userID, allocation.EscrowEntryStatusPending).
			WillReturnRows(pendingEscrowRows(userID, 300, 400, 500))

		// 300 fully claimed, 400 fully claimed, 500 split leaving 200 pending
		mock.ExpectExec(`UPDATE escrow_entries`).
			WithArgs(int64(1), int64(0), allocation.EscrowEntryStatusClaimed, allocation.EscrowEntryStatusClaimed).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE escrow_entries`).
			WithArgs(int64(2), int64(0), allocation.EscrowEntryStatusClaimed, allocation.EscrowEntryStatusClaimed).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE escrow_entries`).
			WithArgs(int64(3), int64(200), allocation.EscrowEntryStatusPending, allocation.EscrowEntryStatusClaimed).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		consumed, err := repo.ConsumeFIFO(ctx, userID, 1000)
		require.NoError(t, err)
		require.Len(t, consumed, 3)
		assert.Equal(t, allocation.EscrowEntryStatusClaimed, consumed[0].Status)
		assert.Equal(t, allocation.EscrowEntryStatusClaimed, consumed[1].Status)
		assert.Equal(t, allocation.EscrowEntryStatusPending, consumed[2].Status)
		assert.Equal(t, int64(200), consumed[2].RemainingAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payout covered by first entry leaves the rest untouched", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := &EscrowRepository{querier: mock, logger: logger}

		mock.ExpectQuery(`SELECT ` + escrowColumns).
			WithArgs(userID, allocation.EscrowEntryStatusPending).
			WillReturnRows(pendingEscrowRows(userID, 300, 400))

		mock.ExpectExec(`UPDATE escrow_entries`).
			WithArgs(int64(1), int64(100), allocation.EscrowEntryStatusPending, allocation.EscrowEntryStatusClaimed).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		consumed, err := repo.ConsumeFIFO(ctx, userID, 200)
		require.NoError(t, err)
		require.Len(t, consumed, 1)
		assert.Equal(t, int64(100), consumed[0].RemainingAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no pending entries", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		repo := &EscrowRepository{querier: mock, logger: logger}

		mock.ExpectQuery(`SELECT ` + escrowColumns).
			WithArgs(userID, allocation.EscrowEntryStatusPending).
			WillReturnRows(pendingEscrowRows(userID))

		consumed, err := repo.ConsumeFIFO(ctx, userID, 200)
		require.NoError(t, err)
		assert.Empty(t, consumed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEscrowRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &EscrowRepository{querier: mock, logger: logger}

	entry := &allocation.EscrowEntry{
		UserID:          uuid.New(),
		ContentID:       uuid.New(),
		TipEntryID:      uuid.New(),
		Amount:          350,
		RemainingAmount: 350,
		Status:          allocation.EscrowEntryStatusPending,
		CreatedAt:       time.Now(),
	}

	mock.ExpectQuery(`INSERT INTO escrow_entries`).
		WithArgs(entry.UserID, entry.ContentID, entry.TipEntryID, entry.Amount, entry.RemainingAmount, entry.Status, entry.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	err = repo.Create(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(7), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
