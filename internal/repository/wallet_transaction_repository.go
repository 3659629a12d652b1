package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skillswap/service-booking/internal/domain/ledger"
)

// WalletTransactionModel is the GORM model for the append-only wallet_transactions table.
type WalletTransactionModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"type:uuid;index:idx_wallet_txn_user_created,priority:1;not null"`
	BookingID       *uuid.UUID      `gorm:"type:uuid;index"`
	Type            string          `gorm:"not null;size:20"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	PreviousBalance decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	NewBalance      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Status          string          `gorm:"not null;size:20"`
	Description     string          `gorm:"size:500"`
	Metadata        json.RawMessage `gorm:"type:jsonb;not null"`
	CreatedAt       time.Time       `gorm:"not null;index:idx_wallet_txn_user_created,priority:2"`
}

func (WalletTransactionModel) TableName() string {
	return "wallet_transactions"
}

// GormWalletTransactionRepository implements ledger.TransactionRepository.
type GormWalletTransactionRepository struct {
	db *gorm.DB
}

func NewGormWalletTransactionRepository(db *gorm.DB) *GormWalletTransactionRepository {
	return &GormWalletTransactionRepository{db: db}
}

// Create inserts an audit row.
func (r *GormWalletTransactionRepository) Create(ctx context.Context, txn *ledger.WalletTransaction) error {
	model, err := toWalletTransactionModel(txn)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}
	return nil
}

// FindByBookingID returns the audit rows of a booking, oldest first.
func (r *GormWalletTransactionRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*ledger.WalletTransaction, error) {
	var models []WalletTransactionModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find wallet transactions: %w", err)
	}

	txns := make([]*ledger.WalletTransaction, len(models))
	for i := range models {
		txn, err := toDomainWalletTransaction(&models[i])
		if err != nil {
			return nil, err
		}
		txns[i] = txn
	}
	return txns, nil
}

func toWalletTransactionModel(txn *ledger.WalletTransaction) (*WalletTransactionModel, error) {
	meta, err := txn.MetadataJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction metadata: %w", err)
	}
	return &WalletTransactionModel{
		ID:              txn.ID,
		UserID:          txn.UserID,
		BookingID:       txn.BookingID,
		Type:            string(txn.Type),
		Amount:          txn.Amount,
		PreviousBalance: txn.PreviousBalance,
		NewBalance:      txn.NewBalance,
		Status:          string(txn.Status),
		Description:     txn.Description,
		Metadata:        meta,
		CreatedAt:       txn.CreatedAt,
	}, nil
}

func toDomainWalletTransaction(m *WalletTransactionModel) (*ledger.WalletTransaction, error) {
	meta, err := decodeMetadata(m.Metadata)
	if err != nil {
		return nil, err
	}
	return &ledger.WalletTransaction{
		ID:              m.ID,
		UserID:          m.UserID,
		BookingID:       m.BookingID,
		Type:            ledger.TransactionType(m.Type),
		Amount:          m.Amount,
		PreviousBalance: m.PreviousBalance,
		NewBalance:      m.NewBalance,
		Status:          ledger.TransactionStatus(m.Status),
		Description:     m.Description,
		Metadata:        meta,
		CreatedAt:       m.CreatedAt,
	}, nil
}

func decodeMetadata(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return meta, nil
}
