package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuneable/tipledger/internal/domain/shared"
)

func snap(pre, post int64) Snapshot {
	return Snapshot{Pre: pre, Post: post}
}

func TestNewTipEntry(t *testing.T) {
	actorID := uuid.New()
	contentID := uuid.New()
	sessionID := uuid.New()

	t.Run("valid tip", func(t *testing.T) {
		entry, err := NewTipEntry(actorID, &contentID, &sessionID, 500,
			snap(1000, 500), snap(0, 500), snap(2000, 2500), snap(9000, 9500))
		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeTip, entry.Type)
		assert.Equal(t, int64(500), entry.Amount)
		assert.Equal(t, actorID, entry.ActorID)
		assert.Equal(t, &contentID, entry.ContentID)
		assert.Equal(t, &sessionID, entry.SessionID)
		require.NotNil(t, entry.UserAggregate)
		assert.Equal(t, snap(0, 500), *entry.UserAggregate)
		require.NotNil(t, entry.ContentAggregate)
		assert.Equal(t, snap(2000, 2500), *entry.ContentAggregate)
		assert.NotEqual(t, uuid.Nil, entry.EntryID)
		assert.False(t, entry.CreatedAt.IsZero())
		assert.Zero(t, entry.CreatedAt.Nanosecond()%int(time.Millisecond),
			"timestamps finer than a millisecond do not survive storage")
	})

	t.Run("missing content id", func(t *testing.T) {
		_, err := NewTipEntry(actorID, nil, nil, 500,
			snap(1000, 500), snap(0, 500), snap(2000, 2500), snap(9000, 9500))
		assert.ErrorIs(t, err, ErrMissingSnapshot)
	})

	t.Run("balance snapshot off by one", func(t *testing.T) {
		_, err := NewTipEntry(actorID, &contentID, nil, 500,
			snap(1000, 501), snap(0, 500), snap(2000, 2500), snap(9000, 9500))
		assert.ErrorIs(t, err, ErrSnapshotMismatch)
	})

	t.Run("balance increasing on a tip", func(t *testing.T) {
		_, err := NewTipEntry(actorID, &contentID, nil, 500,
			snap(1000, 1500), snap(0, 500), snap(2000, 2500), snap(9000, 9500))
		assert.ErrorIs(t, err, ErrSnapshotMismatch)
	})

	t.Run("aggregate snapshot mismatch", func(t *testing.T) {
		_, err := NewTipEntry(actorID, &contentID, nil, 500,
			snap(1000, 500), snap(0, 400), snap(2000, 2500), snap(9000, 9500))
		assert.ErrorIs(t, err, ErrSnapshotMismatch)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := NewTipEntry(actorID, &contentID, nil, 0,
			snap(1000, 1000), snap(0, 0), snap(2000, 2000), snap(9000, 9000))
		assert.Error(t, err)
	})
}

func TestNewRefundEntry(t *testing.T) {
	actorID := uuid.New()
	contentID := uuid.New()

	t.Run("valid refund", func(t *testing.T) {
		entry, err := NewRefundEntry(actorID, &contentID, 500,
			snap(500, 1000), snap(800, 300), snap(2500, 2000), snap(9500, 9000))
		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeRefund, entry.Type)
		assert.Equal(t, snap(500, 1000), entry.Balance)
	})

	t.Run("aggregates clamp at zero", func(t *testing.T) {
		entry, err := NewRefundEntry(actorID, &contentID, 500,
			snap(500, 1000), snap(300, 0), snap(2500, 2000), snap(9500, 9000))
		require.NoError(t, err)
		assert.Equal(t, snap(300, 0), *entry.UserAggregate)
	})

	t.Run("clamp below zero rejected", func(t *testing.T) {
		_, err := NewRefundEntry(actorID, &contentID, 500,
			snap(500, 1000), snap(300, -200), snap(2500, 2000), snap(9500, 9000))
		assert.ErrorIs(t, err, ErrSnapshotMismatch)
	})

	t.Run("partial decrease without clamp rejected", func(t *testing.T) {
		_, err := NewRefundEntry(actorID, &contentID, 500,
			snap(500, 1000), snap(800, 500), snap(2500, 2000), snap(9500, 9000))
		assert.ErrorIs(t, err, ErrSnapshotMismatch)
	})

	t.Run("missing content id", func(t *testing.T) {
		_, err := NewRefundEntry(actorID, nil, 500,
			snap(500, 1000), snap(800, 300), snap(2500, 2000), snap(9500, 9000))
		assert.ErrorIs(t, err, ErrMissingSnapshot)
	})
}

func TestNewTopUpEntry(t *testing.T) {
	actorID := uuid.New()

	t.Run("valid top up", func(t *testing.T) {
		entry, err := NewTopUpEntry(actorID, 2000, snap(100, 2100), snap(9000, 9000))
		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeTopUp, entry.Type)
		assert.Nil(t, entry.UserAggregate)
		assert.Nil(t, entry.ContentAggregate)
	})

	t.Run("global aggregate must not move", func(t *testing.T) {
		_, err := NewTopUpEntry(actorID, 2000, snap(100, 2100), snap(9000, 9100))
		assert.ErrorIs(t, err, ErrSnapshotMismatch)
	})
}

func TestNewPayoutEntry(t *testing.T) {
	actorID := uuid.New()

	t.Run("valid payout", func(t *testing.T) {
		entry, err := NewPayoutEntry(actorID, 700, snap(1000, 300), snap(9000, 9000))
		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypePayout, entry.Type)
		assert.Equal(t, snap(1000, 300), entry.Balance)
	})

	t.Run("escrow snapshot must decrease by amount", func(t *testing.T) {
		_, err := NewPayoutEntry(actorID, 700, snap(1000, 400), snap(9000, 9000))
		assert.ErrorIs(t, err, ErrSnapshotMismatch)
	})
}

func TestNewBonusCreditEntry(t *testing.T) {
	actorID := uuid.New()

	entry, err := NewBonusCreditEntry(actorID, 250, snap(0, 250), snap(9000, 9000))
	require.NoError(t, err)
	assert.Equal(t, shared.TransactionTypeBonusCredit, entry.Type)

	_, err = NewBonusCreditEntry(actorID, 250, snap(0, 200), snap(9000, 9000))
	assert.ErrorIs(t, err, ErrSnapshotMismatch)
}

func TestTransactionTypeBalanceDelta(t *testing.T) {
	assert.Equal(t, int64(-100), shared.TransactionTypeTip.BalanceDelta(100))
	assert.Equal(t, int64(-100), shared.TransactionTypePayout.BalanceDelta(100))
	assert.Equal(t, int64(100), shared.TransactionTypeRefund.BalanceDelta(100))
	assert.Equal(t, int64(100), shared.TransactionTypeTopUp.BalanceDelta(100))
	assert.Equal(t, int64(100), shared.TransactionTypeBonusCredit.BalanceDelta(100))
}
