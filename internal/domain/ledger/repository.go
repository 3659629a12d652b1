package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the persistence contract for credit accounts. Implementations
// bound to a transaction must make every method part of that transaction.
type AccountRepository interface {
	// FindByUserID retrieves an account without locking it.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)

	// FindForUpdate locks and returns the accounts of the given users in ascending id order.
	// A missing account is a not-found error.
	FindForUpdate(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*Account, error)

	// Save persists a new account. An account that already exists is left untouched.
	Save(ctx context.Context, acct *Account) error

	// Update persists balance changes with optimistic locking.
	Update(ctx context.Context, acct *Account) error
}

// TransactionRepository appends wallet audit rows.
type TransactionRepository interface {
	// Create inserts an audit row.
	Create(ctx context.Context, txn *WalletTransaction) error

	// FindByBookingID returns the rows written for a booking, oldest first.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*WalletTransaction, error)
}
