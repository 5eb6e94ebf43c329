package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Item is a media item that receives tips. TipTotal is the item's
// received-tips aggregate, mutated only through the repository's atomic
// updates alongside a ledger entry.
type Item struct {
	ContentID uuid.UUID `json:"content_id"`
	Title     string    `json:"title"`
	TipTotal  int64     `json:"tip_total"` // Minor units
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnershipShare assigns a percentage of a content item's creator pool to a
// payee. UserID is nil for rights-holders not yet registered as users; they
// are matched later by PayeeName and ChannelRef.
type OwnershipShare struct {
	ContentID  uuid.UUID  `json:"content_id"`
	PayeeName  string     `json:"payee_name"`
	ChannelRef string     `json:"channel_ref,omitempty"` // External channel identifier
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Percentage float64    `json:"percentage"` // [0,100]
}

// AggregateMutation reports an atomic tip-total update with pre/post
// snapshots captured by the applying statement. Clamped is true when a
// refund decrement would have driven the aggregate negative and was floored
// at zero instead.
type AggregateMutation struct {
	Title   string
	Pre     int64
	Post    int64
	Clamped bool
}

// Repository defines content item persistence operations
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, contentID uuid.UUID) (*Item, error)

	// AddTip atomically increments the received-tips aggregate.
	AddTip(ctx context.Context, contentID uuid.UUID, amount int64) (*AggregateMutation, error)

	// SubtractRefund atomically decrements the aggregate, flooring at zero.
	SubtractRefund(ctx context.Context, contentID uuid.UUID, amount int64) (*AggregateMutation, error)

	// GetShares returns the ownership shares configured for a content item.
	GetShares(ctx context.Context, contentID uuid.UUID) ([]OwnershipShare, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrContentNotFound indicates missing content item
type ErrContentNotFound struct {
	ContentID uuid.UUID
}

func (e ErrContentNotFound) Error() string {
	return "content item not found: " + e.ContentID.String()
}

// Is implements the errors.Is interface for ErrContentNotFound
func (e ErrContentNotFound) Is(target error) bool {
	t, ok := target.(ErrContentNotFound)
	if !ok {
		return false
	}
	if t.ContentID == uuid.Nil {
		return true
	}
	return e.ContentID == t.ContentID
}
