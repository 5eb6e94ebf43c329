package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tuneable/tipledger/internal/domain/allocation"
	"github.com/tuneable/tipledger/internal/domain/ledger"
	"github.com/tuneable/tipledger/internal/domain/wallet"
)

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	walletRepo wallet.Repository
	ledgerRepo ledger.Repository
	escrowRepo allocation.EscrowRepository
}

// NewWalletService creates a new wallet service
func NewWalletService(walletRepo wallet.Repository, ledgerRepo ledger.Repository, escrowRepo allocation.EscrowRepository) WalletService {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		escrowRepo: escrowRepo,
	}
}

// CreateWallet registers a new wallet, rejecting duplicate user IDs
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, userID uuid.UUID, username string, initialBalance int64) (*wallet.Wallet, error) {
	existing, err := s.walletRepo.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, wallet.ErrWalletNotFound{}) {
		return nil, err
	}
	if existing != nil {
		return nil, wallet.ErrDuplicateWallet{UserID: userID}
	}

	w, err := wallet.NewWallet(userID, username, initialBalance)
	if err != nil {
		return nil, err
	}

	if err := s.walletRepo.Create(ctx, w); err != nil {
		return nil, err
	}

	return w, nil
}

// GetWalletByID retrieves a wallet, returns ErrWalletNotFound if not found
func (s *WalletServiceImpl) GetWalletByID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return s.walletRepo.GetByID(ctx, userID)
}

// GetLedgerByUserID retrieves the paginated ledger history for a user
// Returns entries, total count, and any error
func (s *WalletServiceImpl) GetLedgerByUserID(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.GetByActorID(ctx, userID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByActorID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetEscrowHistory retrieves the wallet and its paginated escrow history
func (s *WalletServiceImpl) GetEscrowHistory(ctx context.Context, userID uuid.UUID, page, perPage int) (*wallet.Wallet, []*allocation.EscrowEntry, error) {
	w, err := s.walletRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	offset := (page - 1) * perPage
	entries, err := s.escrowRepo.GetByUserID(ctx, userID, perPage, offset)
	if err != nil {
		return nil, nil, err
	}

	return w, entries, nil
}
