package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Mutation reports the outcome of a single atomic balance update. Pre and
// Post are snapshots of the mutated balance captured by the same statement
// that applied the change. LifetimePre/LifetimePost are populated only by
// the tip and refund mutations, which also move the lifetime-tipped
// aggregate.
type Mutation struct {
	Username     string
	Pre          int64
	Post         int64
	LifetimePre  int64
	LifetimePost int64
}

// Repository defines wallet persistence operations. All balance changes are
// single-statement conditional updates: the precondition (e.g. balance >=
// amount) is evaluated at apply time by the same statement that mutates the
// row, so concurrent operations on one wallet cannot lose updates.
type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	GetByID(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// DebitForTip moves amount out of the spendable balance and into the
	// lifetime-tipped aggregate. Fails with ErrInsufficientFunds if the
	// balance is below amount at apply time.
	DebitForTip(ctx context.Context, userID uuid.UUID, amount int64) (*Mutation, error)

	// CreditRefund reverses a tip: spendable balance increases, the
	// lifetime-tipped aggregate decreases clamped at zero.
	CreditRefund(ctx context.Context, userID uuid.UUID, amount int64) (*Mutation, error)

	// CreditTopUp adds settled external funds to the spendable balance.
	CreditTopUp(ctx context.Context, userID uuid.UUID, amount int64) (*Mutation, error)

	// CreditEscrow adds an allocated revenue share to the escrow balance.
	CreditEscrow(ctx context.Context, userID uuid.UUID, amount int64) (*Mutation, error)

	// DebitEscrow removes amount from the escrow balance for a payout. Fails
	// with ErrInsufficientEscrow if the escrow balance is below amount at
	// apply time.
	DebitEscrow(ctx context.Context, userID uuid.UUID, amount int64) (*Mutation, error)

	// CreditBonus adds a non-withdrawable bonus credit.
	CreditBonus(ctx context.Context, userID uuid.UUID, amount int64) (*Mutation, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrWalletNotFound indicates missing wallet
type ErrWalletNotFound struct {
	UserID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found: " + e.UserID.String()
}

// Is implements the errors.Is interface for ErrWalletNotFound
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID
}

// ErrDuplicateWallet indicates user ID uniqueness violation
type ErrDuplicateWallet struct {
	UserID uuid.UUID
}

func (e ErrDuplicateWallet) Error() string {
	return "wallet already exists for user: " + e.UserID.String()
}
