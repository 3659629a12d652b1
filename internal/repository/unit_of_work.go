package repository

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillswap/service-booking/internal/application"
	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/internal/domain/skill"
)

// gormRepositories binds every store to one *gorm.DB handle, pooled or transactional.
type gormRepositories struct {
	bookings     *GormBookingRepository
	accounts     *GormCreditAccountRepository
	transactions *GormWalletTransactionRepository
	skills       *GormSkillRepository
}

func newGormRepositories(db *gorm.DB) gormRepositories {
	return gormRepositories{
		bookings:     NewGormBookingRepository(db),
		accounts:     NewGormCreditAccountRepository(db),
		transactions: NewGormWalletTransactionRepository(db),
		skills:       NewGormSkillRepository(db),
	}
}

func (r gormRepositories) Bookings() bookingDomain.BookingRepository  { return r.bookings }
func (r gormRepositories) Accounts() ledger.AccountRepository         { return r.accounts }
func (r gormRepositories) Transactions() ledger.TransactionRepository { return r.transactions }
func (r gormRepositories) Skills() skill.SkillRepository              { return r.skills }

// GormUnitOfWork opens PostgreSQL transactions through GORM.
type GormUnitOfWork struct {
	gormRepositories
	db *gorm.DB
}

// NewGormUnitOfWork creates a unit of work over the connection pool.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{gormRepositories: newGormRepositories(db), db: db}
}

// Begin starts a transaction.
func (u *GormUnitOfWork) Begin(ctx context.Context) (application.Tx, error) {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormTx{gormRepositories: newGormRepositories(tx), tx: tx}, nil
}

type gormTx struct {
	gormRepositories
	tx   *gorm.DB
	done bool
}

// LockProviderSchedule takes a transaction-scoped advisory lock keyed by the provider.
func (t *gormTx) LockProviderSchedule(ctx context.Context, providerID uuid.UUID) error {
	if err := t.tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", scheduleLockKey(providerID)).Error; err != nil {
		return fmt.Errorf("failed to lock provider schedule: %w", err)
	}
	return nil
}

func (t *gormTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Commit().Error
}

func (t *gormTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback().Error
}

func scheduleLockKey(providerID uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("booking-schedule:"))
	_, _ = h.Write(providerID[:])
	return int64(h.Sum64())
}

var _ application.UnitOfWork = (*GormUnitOfWork)(nil)
