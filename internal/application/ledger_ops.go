package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/pkg/domain"
)

// recordLedger persists a balance change made to acct since previous and appends the matching
// audit row. Both writes belong to the caller's transaction.
func recordLedger(
	ctx context.Context,
	repos Repositories,
	acct *ledger.Account,
	previous decimal.Decimal,
	txType ledger.TransactionType,
	bookingID *uuid.UUID,
	description string,
	metadata map[string]interface{},
	now time.Time,
) error {
	acct.IncrementVersion()
	if err := repos.Accounts().Update(ctx, acct); err != nil {
		return fmt.Errorf("failed to update credit account: %w", err)
	}
	txn := ledger.NewWalletTransaction(acct, previous, txType, bookingID, description, metadata, now)
	if err := repos.Transactions().Create(ctx, txn); err != nil {
		return fmt.Errorf("failed to record wallet transaction: %w", err)
	}
	return nil
}

// ensureAccount creates an empty credit account for userID if none exists yet.
func ensureAccount(ctx context.Context, repos Repositories, userID uuid.UUID, now time.Time) error {
	_, err := repos.Accounts().FindByUserID(ctx, userID)
	if err == nil {
		return nil
	}
	if !domain.IsNotFound(err) {
		return err
	}
	acct, err := ledger.NewAccount(userID, now)
	if err != nil {
		return err
	}
	if err := repos.Accounts().Save(ctx, acct); err != nil {
		return fmt.Errorf("failed to create credit account: %w", err)
	}
	return nil
}

func allocationMetadata(alloc ledger.Allocation) map[string]interface{} {
	return map[string]interface{}{
		"earned":    alloc.Earned.String(),
		"purchased": alloc.Purchased.String(),
		"bonus":     alloc.Bonus.String(),
	}
}
