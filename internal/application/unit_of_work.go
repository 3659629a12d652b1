package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/internal/domain/skill"
)

// Repositories exposes the stores a use case reads and writes.
type Repositories interface {
	Bookings() bookingDomain.BookingRepository
	Accounts() ledger.AccountRepository
	Transactions() ledger.TransactionRepository
	Skills() skill.SkillRepository
}

// Tx is one database transaction. Repositories obtained from it take part in the transaction.
type Tx interface {
	Repositories

	// LockProviderSchedule serializes schedule changes for one provider until the
	// transaction ends.
	LockProviderSchedule(ctx context.Context, providerID uuid.UUID) error

	Commit() error

	// Rollback aborts the transaction. It is a no-op after Commit.
	Rollback() error
}

// UnitOfWork opens transactions. Its own repositories run outside any transaction.
type UnitOfWork interface {
	Repositories
	Begin(ctx context.Context) (Tx, error)
}

// runInTx runs fn in a new transaction and commits it when fn succeeds.
func runInTx(ctx context.Context, uow UnitOfWork, fn func(tx Tx) error) error {
	tx, err := uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
