package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/pkg/domain"
)

// CreditAccountModel is the GORM model for the credit_accounts table.
// Credits is a projection of the three buckets and is checked on every read.
type CreditAccountModel struct {
	UserID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Credits            decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	EarnedCredits      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	PurchasedCredits   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	BonusCredits       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	SessionsAsLearner  int64           `gorm:"not null;default:0"`
	SessionsAsProvider int64           `gorm:"not null;default:0"`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

func (CreditAccountModel) TableName() string {
	return "credit_accounts"
}

// GormCreditAccountRepository implements ledger.AccountRepository.
type GormCreditAccountRepository struct {
	db *gorm.DB
}

func NewGormCreditAccountRepository(db *gorm.DB) *GormCreditAccountRepository {
	return &GormCreditAccountRepository{db: db}
}

// FindByUserID retrieves an account without locking it.
func (r *GormCreditAccountRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*ledger.Account, error) {
	var model CreditAccountModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("CreditAccount", userID.String())
		}
		return nil, fmt.Errorf("failed to find credit account: %w", err)
	}
	return toDomainAccount(&model)
}

// FindForUpdate locks the accounts in ascending user_id order so that two transactions
// touching the same pair of users always acquire the row locks in the same sequence.
func (r *GormCreditAccountRepository) FindForUpdate(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*ledger.Account, error) {
	ids := sortedUnique(userIDs)
	if len(ids) == 0 {
		return map[uuid.UUID]*ledger.Account{}, nil
	}

	var models []CreditAccountModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id IN ?", ids).
		Order("user_id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to lock credit accounts: %w", err)
	}

	accounts := make(map[uuid.UUID]*ledger.Account, len(models))
	for i := range models {
		acct, err := toDomainAccount(&models[i])
		if err != nil {
			return nil, err
		}
		accounts[acct.UserID()] = acct
	}
	for _, id := range ids {
		if _, ok := accounts[id]; !ok {
			return nil, domain.NewNotFoundError("CreditAccount", id.String())
		}
	}
	return accounts, nil
}

// Save inserts a new account; an existing row for the same user wins.
func (r *GormCreditAccountRepository) Save(ctx context.Context, acct *ledger.Account) error {
	model := toCreditAccountModel(acct)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(model).Error; err != nil {
		return fmt.Errorf("failed to save credit account: %w", err)
	}
	return nil
}

// Update persists balance changes with optimistic locking.
func (r *GormCreditAccountRepository) Update(ctx context.Context, acct *ledger.Account) error {
	model := toCreditAccountModel(acct)
	result := r.db.WithContext(ctx).
		Model(&CreditAccountModel{}).
		Where("user_id = ? AND version = ?", model.UserID, acct.Version()-1).
		Updates(map[string]interface{}{
			"credits":              model.Credits,
			"earned_credits":       model.EarnedCredits,
			"purchased_credits":    model.PurchasedCredits,
			"bonus_credits":        model.BonusCredits,
			"sessions_as_learner":  model.SessionsAsLearner,
			"sessions_as_provider": model.SessionsAsProvider,
			"version":              model.Version,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update credit account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("credit account was modified by another transaction")
	}
	return nil
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func toCreditAccountModel(acct *ledger.Account) *CreditAccountModel {
	return &CreditAccountModel{
		UserID:             acct.UserID(),
		Credits:            acct.Credits(),
		EarnedCredits:      acct.EarnedCredits(),
		PurchasedCredits:   acct.PurchasedCredits(),
		BonusCredits:       acct.BonusCredits(),
		SessionsAsLearner:  acct.SessionsAsLearner(),
		SessionsAsProvider: acct.SessionsAsProvider(),
		Version:            acct.Version(),
		CreatedAt:          acct.CreatedAt(),
		UpdatedAt:          acct.UpdatedAt(),
	}
}

func toDomainAccount(m *CreditAccountModel) (*ledger.Account, error) {
	return ledger.ReconstructAccount(
		m.UserID,
		m.EarnedCredits,
		m.PurchasedCredits,
		m.BonusCredits,
		m.Credits,
		m.SessionsAsLearner,
		m.SessionsAsProvider,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
