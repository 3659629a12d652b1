package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the business reason for a ledger mutation.
type TransactionType string

const (
	TypePayment    TransactionType = "payment"
	TypeEarning    TransactionType = "earning"
	TypeRefund     TransactionType = "refund"
	TypeReversal   TransactionType = "reversal"
	TypePurchase   TransactionType = "purchase"
	TypeBonus      TransactionType = "bonus"
	TypeRedemption TransactionType = "redemption"
	TypeWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus is the settlement state of an audit row.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// WalletTransaction is the immutable audit record written alongside every balance change.
type WalletTransaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	BookingID       *uuid.UUID
	Type            TransactionType
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Status          TransactionStatus
	Description     string
	Metadata        map[string]interface{}
	CreatedAt       time.Time
}

// NewWalletTransaction builds a completed audit row for a change from previous to the
// account's current balance. The signed amount is derived from the two balances.
func NewWalletTransaction(
	acct *Account,
	previous decimal.Decimal,
	txType TransactionType,
	bookingID *uuid.UUID,
	description string,
	metadata map[string]interface{},
	now time.Time,
) *WalletTransaction {
	return &WalletTransaction{
		ID:              uuid.New(),
		UserID:          acct.UserID(),
		BookingID:       bookingID,
		Type:            txType,
		Amount:          acct.Credits().Sub(previous),
		PreviousBalance: previous,
		NewBalance:      acct.Credits(),
		Status:          StatusCompleted,
		Description:     description,
		Metadata:        metadata,
		CreatedAt:       now,
	}
}

// MetadataJSON encodes the metadata for storage.
func (t *WalletTransaction) MetadataJSON() (json.RawMessage, error) {
	if len(t.Metadata) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(t.Metadata)
}
