package handler

// CreateWalletRequest represents a request to register a new wallet
type CreateWalletRequest struct {
	UserID         string `json:"user_id" binding:"required,uuid"`
	Username       string `json:"username" binding:"required"`
	InitialBalance int64  `json:"initial_balance" binding:"min=0"`
}

// WalletResponse represents a wallet in API responses
type WalletResponse struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Balance        int64  `json:"balance"`
	LifetimeTipped int64  `json:"lifetime_tipped"`
	EscrowBalance  int64  `json:"escrow_balance"`
	BonusBalance   int64  `json:"bonus_balance"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// PlaceTipRequest represents a request to tip a content item
type PlaceTipRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	ContentID string `json:"content_id" binding:"required,uuid"`
	SessionID string `json:"session_id,omitempty" binding:"omitempty,uuid"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
}

// IssueRefundRequest represents a request to reverse a tip
type IssueRefundRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	ContentID   string `json:"content_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	ReferenceID string `json:"reference_id" binding:"required"`
}

// SettlementRequest represents a settled external payment callback
type SettlementRequest struct {
	UserID            string `json:"user_id" binding:"required,uuid"`
	Amount            int64  `json:"amount" binding:"required,gt=0"`
	ProviderReference string `json:"provider_reference" binding:"required"`
}

// PayoutRequest represents an approved escrow withdrawal
type PayoutRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// IdentityVerificationRequest represents a verified payee identity
type IdentityVerificationRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	IdentityKey string `json:"identity_key" binding:"required"`
}

// BonusCreditRequest represents an administrative bonus grant
type BonusCreditRequest struct {
	UserID     string `json:"user_id" binding:"required,uuid"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
	Reason     string `json:"reason,omitempty"`
	AdminActor string `json:"admin_actor,omitempty"`
}

// SnapshotResponse represents a pre/post balance pair in API responses
type SnapshotResponse struct {
	Pre  int64 `json:"pre"`
	Post int64 `json:"post"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	EntryID          string            `json:"entry_id"`
	ActorID          string            `json:"actor_id"`
	ContentID        string            `json:"content_id,omitempty"`
	SessionID        string            `json:"session_id,omitempty"`
	Type             string            `json:"type"`
	Amount           int64             `json:"amount"`
	Balance          SnapshotResponse  `json:"balance"`
	UserAggregate    *SnapshotResponse `json:"user_aggregate,omitempty"`
	ContentAggregate *SnapshotResponse `json:"content_aggregate,omitempty"`
	GlobalAggregate  SnapshotResponse  `json:"global_aggregate"`
	ReferenceID      string            `json:"reference_id,omitempty"`
	ReferenceType    string            `json:"reference_type,omitempty"`
	ActorName        string            `json:"actor_name,omitempty"`
	ContentTitle     string            `json:"content_title,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        string            `json:"created_at"`
}

// EscrowEntryResponse represents an escrow history row in API responses
type EscrowEntryResponse struct {
	ID              int64  `json:"id"`
	ContentID       string `json:"content_id"`
	TipEntryID      string `json:"tip_entry_id"`
	Amount          int64  `json:"amount"`
	RemainingAmount int64  `json:"remaining_amount"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	ClaimedAt       string `json:"claimed_at,omitempty"`
}

// EscrowResponse combines the escrow balance with its history
type EscrowResponse struct {
	UserID        string                `json:"user_id"`
	EscrowBalance int64                 `json:"escrow_balance"`
	Entries       []EscrowEntryResponse `json:"entries"`
}

// VerificationRecordResponse represents a verification record in API responses
type VerificationRecordResponse struct {
	RecordID          string `json:"record_id"`
	EntryID           string `json:"entry_id"`
	OriginalHash      string `json:"original_hash"`
	LastObservedHash  string `json:"last_observed_hash,omitempty"`
	Status            string `json:"status"`
	VerificationCount int64  `json:"verification_count"`
	MismatchCount     int64  `json:"mismatch_count"`
	LastVerifiedAt    string `json:"last_verified_at,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
