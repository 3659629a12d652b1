package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/skillswap/service-booking/internal/domain/ledger"
)

// SqlxWalletHistoryReader serves the read-only wallet history with hand-written SQL.
type SqlxWalletHistoryReader struct {
	db *sqlx.DB
}

// NewSqlxWalletHistoryReader creates a reader over an existing connection pool.
func NewSqlxWalletHistoryReader(db *sqlx.DB) *SqlxWalletHistoryReader {
	return &SqlxWalletHistoryReader{db: db}
}

type walletTransactionRow struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	BookingID       uuid.NullUUID   `db:"booking_id"`
	Type            string          `db:"type"`
	Amount          decimal.Decimal `db:"amount"`
	PreviousBalance decimal.Decimal `db:"previous_balance"`
	NewBalance      decimal.Decimal `db:"new_balance"`
	Status          string          `db:"status"`
	Description     string          `db:"description"`
	Metadata        []byte          `db:"metadata"`
	CreatedAt       time.Time       `db:"created_at"`
}

// ListByUser returns a user's audit rows, newest first, with the total row count.
func (r *SqlxWalletHistoryReader) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]*ledger.WalletTransaction, int64, error) {
	rows := []walletTransactionRow{}
	query := `
		SELECT id, user_id, booking_id, type, amount, previous_balance, new_balance,
		       status, COALESCE(description, '') AS description, metadata, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, (page-1)*limit); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch wallet history for user %s: %w", userID, err)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet history for user %s: %w", userID, err)
	}

	txns := make([]*ledger.WalletTransaction, len(rows))
	for i, row := range rows {
		meta, err := decodeMetadata(row.Metadata)
		if err != nil {
			return nil, 0, err
		}
		txn := &ledger.WalletTransaction{
			ID:              row.ID,
			UserID:          row.UserID,
			Type:            ledger.TransactionType(row.Type),
			Amount:          row.Amount,
			PreviousBalance: row.PreviousBalance,
			NewBalance:      row.NewBalance,
			Status:          ledger.TransactionStatus(row.Status),
			Description:     row.Description,
			Metadata:        meta,
			CreatedAt:       row.CreatedAt,
		}
		if row.BookingID.Valid {
			id := row.BookingID.UUID
			txn.BookingID = &id
		}
		txns[i] = txn
	}
	return txns, total, nil
}
