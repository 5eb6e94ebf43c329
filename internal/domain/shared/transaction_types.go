package shared

// TransactionType defines the balance-affecting operations recorded in the ledger
type TransactionType string

const (
	TransactionTypeTip         TransactionType = "TIP"
	TransactionTypeRefund      TransactionType = "REFUND"
	TransactionTypeTopUp       TransactionType = "TOP_UP"
	TransactionTypePayout      TransactionType = "PAY_OUT"
	TransactionTypeBonusCredit TransactionType = "BONUS_CREDIT"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeTip, TransactionTypeRefund, TransactionTypeTopUp,
		TransactionTypePayout, TransactionTypeBonusCredit:
		return true
	}
	return false
}

// BalanceDelta returns the signed change the transaction type applies to the
// balance it affects (spendable for TIP/REFUND/TOP_UP, escrow for PAY_OUT,
// bonus for BONUS_CREDIT). The amount itself is always stored non-negative;
// direction is implied by the type.
func (t TransactionType) BalanceDelta(amount int64) int64 {
	switch t {
	case TransactionTypeTip, TransactionTypePayout:
		return -amount
	default:
		return amount
	}
}

// FailureReason defines event rejection categories
type FailureReason string

const (
	FailureReasonWalletNotFound      FailureReason = "WALLET_NOT_FOUND"
	FailureReasonContentNotFound     FailureReason = "CONTENT_NOT_FOUND"
	FailureReasonInsufficientFunds   FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonInsufficientEscrow  FailureReason = "INSUFFICIENT_ESCROW"
	FailureReasonDuplicateSettlement FailureReason = "DUPLICATE_SETTLEMENT"
	FailureReasonUnresolvedPayee     FailureReason = "UNRESOLVED_PAYEE"
	FailureReasonInvalidAmount       FailureReason = "INVALID_AMOUNT"
	FailureReasonUnknownEventType    FailureReason = "UNKNOWN_EVENT_TYPE"
)
