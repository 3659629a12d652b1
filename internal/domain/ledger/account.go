package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skillswap/service-booking/pkg/domain"
)

// Bucket names one of the three credit sub-balances.
type Bucket string

const (
	BucketEarned    Bucket = "earned"
	BucketPurchased Bucket = "purchased"
	BucketBonus     Bucket = "bonus"
)

// IsValid returns true if the bucket is recognized.
func (b Bucket) IsValid() bool {
	switch b {
	case BucketEarned, BucketPurchased, BucketBonus:
		return true
	}
	return false
}

// Allocation records how many credits were taken from each bucket by a hold, so that a
// refund can put them back exactly where they came from.
type Allocation struct {
	Earned    decimal.Decimal `json:"earned"`
	Purchased decimal.Decimal `json:"purchased"`
	Bonus     decimal.Decimal `json:"bonus"`
}

// Total returns the sum of the allocation.
func (a Allocation) Total() decimal.Decimal {
	return a.Earned.Add(a.Purchased).Add(a.Bonus)
}

// IsZero reports whether nothing was allocated.
func (a Allocation) IsZero() bool {
	return a.Total().IsZero()
}

// Account is a user's credit balance. The three buckets are the source of truth; the total is
// always derived from them.
type Account struct {
	userID             uuid.UUID
	earned             decimal.Decimal
	purchased          decimal.Decimal
	bonus              decimal.Decimal
	sessionsAsLearner  int64
	sessionsAsProvider int64
	version            int64
	createdAt          time.Time
	updatedAt          time.Time
}

// NewAccount creates an empty account.
func NewAccount(userID uuid.UUID, now time.Time) (*Account, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user ID is required")
	}
	return &Account{
		userID:    userID,
		earned:    decimal.Zero,
		purchased: decimal.Zero,
		bonus:     decimal.Zero,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructAccount rebuilds an Account from persistence. storedTotal is the persisted
// projection of the balance; a mismatch with the buckets means the row drifted and is refused.
func ReconstructAccount(
	userID uuid.UUID,
	earned, purchased, bonus, storedTotal decimal.Decimal,
	sessionsAsLearner, sessionsAsProvider int64,
	version int64,
	createdAt, updatedAt time.Time,
) (*Account, error) {
	a := &Account{
		userID:             userID,
		earned:             earned,
		purchased:          purchased,
		bonus:              bonus,
		sessionsAsLearner:  sessionsAsLearner,
		sessionsAsProvider: sessionsAsProvider,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
	if !a.Credits().Equal(storedTotal) {
		return nil, fmt.Errorf("credit account %s drifted: buckets sum to %s, stored total %s",
			userID, a.Credits(), storedTotal)
	}
	return a, nil
}

// --- Getters ---

// UserID returns the owner of the account.
func (a *Account) UserID() uuid.UUID { return a.userID }

// EarnedCredits returns the bucket filled by teaching sessions. It may be negative.
func (a *Account) EarnedCredits() decimal.Decimal { return a.earned }

// PurchasedCredits returns the bucket filled by purchases.
func (a *Account) PurchasedCredits() decimal.Decimal { return a.purchased }

// BonusCredits returns the bucket filled by promotional grants.
func (a *Account) BonusCredits() decimal.Decimal { return a.bonus }

// SessionsAsLearner returns the number of completed sessions the user attended.
func (a *Account) SessionsAsLearner() int64 { return a.sessionsAsLearner }

// SessionsAsProvider returns the number of completed sessions the user taught.
func (a *Account) SessionsAsProvider() int64 { return a.sessionsAsProvider }

// Version returns the optimistic locking version.
func (a *Account) Version() int64 { return a.version }

// CreatedAt returns when the account was opened.
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the time of the last balance change.
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

// Credits returns the total balance.
func (a *Account) Credits() decimal.Decimal {
	return a.earned.Add(a.purchased).Add(a.bonus)
}

// --- Behavior ---

// Hold debits amount for an escrow, draining bonus credits first, then purchased, then
// earned. It fails without side effects when the total balance is insufficient.
func (a *Account) Hold(amount decimal.Decimal, now time.Time) (Allocation, error) {
	if err := requireNonNegative(amount); err != nil {
		return Allocation{}, err
	}
	if a.Credits().LessThan(amount) {
		return Allocation{}, domain.NewValidationError(fmt.Sprintf(
			"insufficient credits: balance %s, required %s", a.Credits().StringFixed(2), amount.StringFixed(2)))
	}

	before := a.Credits()
	remaining := amount
	take := func(bucket *decimal.Decimal) decimal.Decimal {
		n := decimal.Min(*bucket, remaining)
		if n.IsNegative() {
			return decimal.Zero
		}
		*bucket = bucket.Sub(n)
		remaining = remaining.Sub(n)
		return n
	}

	alloc := Allocation{}
	alloc.Bonus = take(&a.bonus)
	alloc.Purchased = take(&a.purchased)
	alloc.Earned = take(&a.earned)

	if err := a.touch(before.Sub(amount), now); err != nil {
		return Allocation{}, err
	}
	return alloc, nil
}

// Release returns a previous hold to the buckets it was taken from.
func (a *Account) Release(alloc Allocation, now time.Time) error {
	if alloc.Earned.IsNegative() || alloc.Purchased.IsNegative() || alloc.Bonus.IsNegative() {
		return domain.NewValidationError("allocation cannot contain negative amounts")
	}
	before := a.Credits()
	a.earned = a.earned.Add(alloc.Earned)
	a.purchased = a.purchased.Add(alloc.Purchased)
	a.bonus = a.bonus.Add(alloc.Bonus)
	return a.touch(before.Add(alloc.Total()), now)
}

// Deposit credits amount to a single bucket. Session payouts go to the earned bucket.
func (a *Account) Deposit(bucket Bucket, amount decimal.Decimal, now time.Time) error {
	if err := requireNonNegative(amount); err != nil {
		return err
	}
	before := a.Credits()
	switch bucket {
	case BucketEarned:
		a.earned = a.earned.Add(amount)
	case BucketPurchased:
		a.purchased = a.purchased.Add(amount)
	case BucketBonus:
		a.bonus = a.bonus.Add(amount)
	default:
		return domain.NewValidationError(fmt.Sprintf("invalid credit bucket: %s", bucket))
	}
	return a.touch(before.Add(amount), now)
}

// ReverseEarning claws back a payout from the earned bucket. The bucket may go negative: the
// provider then owes credits, which later earnings pay down.
func (a *Account) ReverseEarning(amount decimal.Decimal, now time.Time) error {
	if err := requireNonNegative(amount); err != nil {
		return err
	}
	before := a.Credits()
	a.earned = a.earned.Sub(amount)
	return a.touch(before.Sub(amount), now)
}

// RecordLearnerSession counts a completed session attended by this user.
func (a *Account) RecordLearnerSession(now time.Time) {
	a.sessionsAsLearner++
	a.updatedAt = now
}

// RecordProviderSession counts a completed session taught by this user.
func (a *Account) RecordProviderSession(now time.Time) {
	a.sessionsAsProvider++
	a.updatedAt = now
}

// IncrementVersion bumps the version for optimistic locking.
func (a *Account) IncrementVersion() {
	a.version++
}

// touch asserts the derived total moved exactly as the operation intended.
func (a *Account) touch(expected decimal.Decimal, now time.Time) error {
	if !a.Credits().Equal(expected) {
		return fmt.Errorf("credit account %s invariant violated: total %s, expected %s",
			a.userID, a.Credits(), expected)
	}
	a.updatedAt = now
	return nil
}

func requireNonNegative(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.NewValidationError("credit amount cannot be negative")
	}
	return nil
}
