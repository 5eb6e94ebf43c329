package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds  = errors.New("insufficient spendable balance")
	ErrInsufficientEscrow = errors.New("insufficient escrow balance")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrEmptyUsername      = errors.New("username cannot be empty")
)

// Wallet holds a user's balance fields. Every field here changes only through
// the repository's atomic mutations, each of which produces a ledger entry;
// no other code path may write them.
type Wallet struct {
	UserID         uuid.UUID `json:"user_id"`
	Username       string    `json:"username"`
	Balance        int64     `json:"balance"`         // Spendable, minor units
	LifetimeTipped int64     `json:"lifetime_tipped"` // Aggregate of all tips placed
	EscrowBalance  int64     `json:"escrow_balance"`  // Allocated but not yet paid out
	BonusBalance   int64     `json:"bonus_balance"`   // Non-withdrawable credits
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewWallet creates a wallet with the given initial spendable balance
func NewWallet(userID uuid.UUID, username string, initialBalance int64) (*Wallet, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if initialBalance < 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Wallet{
		UserID:         userID,
		Username:       username,
		Balance:        initialBalance,
		LifetimeTipped: 0,
		EscrowBalance:  0,
		BonusBalance:   0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
