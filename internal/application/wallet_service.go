package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/pkg/domain"
)

// WalletHistoryReader pages through a user's wallet audit rows, newest first.
type WalletHistoryReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*ledger.WalletTransaction, int64, error)
}

// WalletService exposes credit balances and admin top-ups.
type WalletService struct {
	uow     UnitOfWork
	history WalletHistoryReader
	clock   Clock
	logger  *zap.Logger
}

// NewWalletService creates a new WalletService.
func NewWalletService(uow UnitOfWork, history WalletHistoryReader, clock Clock, logger *zap.Logger) *WalletService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &WalletService{uow: uow, history: history, clock: clock, logger: logger}
}

// GetBalance returns the user's credit balance. A user without an account has zero credits.
func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (*WalletDTO, error) {
	acct, err := s.uow.Accounts().FindByUserID(ctx, userID)
	if domain.IsNotFound(err) {
		acct, err = ledger.NewAccount(userID, s.clock.Now())
	}
	if err != nil {
		return nil, err
	}
	result := toWalletDTO(acct)
	return &result, nil
}

// GetHistory returns the user's wallet audit rows, newest first.
func (s *WalletService) GetHistory(ctx context.Context, userID uuid.UUID, page, limit int) (*domain.PaginatedResult[WalletTransactionDTO], error) {
	txns, total, err := s.history.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet history: %w", err)
	}
	dtos := make([]WalletTransactionDTO, len(txns))
	for i, txn := range txns {
		dtos[i] = toWalletTransactionDTO(txn)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// GrantCredits adds purchased or bonus credits to a user's account, creating it if needed.
func (s *WalletService) GrantCredits(ctx context.Context, adminID, userID uuid.UUID, req GrantCreditsRequest) (*WalletDTO, error) {
	bucket := ledger.Bucket(req.Bucket)
	txType := ledger.TypePurchase
	switch bucket {
	case ledger.BucketPurchased:
	case ledger.BucketBonus:
		txType = ledger.TypeBonus
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("credits can only be granted to the purchased or bonus bucket, got %q", req.Bucket))
	}
	if !req.Amount.IsPositive() {
		return nil, domain.NewValidationError("grant amount must be positive")
	}
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user ID is required")
	}

	now := s.clock.Now()
	var acct *ledger.Account
	err := runInTx(ctx, s.uow, func(tx Tx) error {
		if err := ensureAccount(ctx, tx, userID, now); err != nil {
			return err
		}
		accounts, err := tx.Accounts().FindForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		acct = accounts[userID]
		previous := acct.Credits()
		if err := acct.Deposit(bucket, req.Amount, now); err != nil {
			return err
		}
		description := req.Note
		if description == "" {
			description = fmt.Sprintf("Granted %s %s credits", req.Amount.StringFixed(2), bucket)
		}
		return recordLedger(ctx, tx, acct, previous, txType, nil, description,
			map[string]interface{}{"granted_by": adminID.String()}, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credits granted",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", adminID.String()),
		zap.String("bucket", string(bucket)),
		zap.String("amount", req.Amount.String()),
	)
	result := toWalletDTO(acct)
	return &result, nil
}
