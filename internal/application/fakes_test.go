package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/internal/domain/skill"
	"github.com/skillswap/service-booking/pkg/domain"
)

// --- Clock ---

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Notifiers ---

type sentNotification struct {
	UserID  uuid.UUID
	Event   string
	Payload map[string]interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, event string, payload map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Event: event, Payload: payload})
	return nil
}

// last returns the most recent notification of the given event.
func (n *recordingNotifier) last(event string) (sentNotification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Event == event {
			return n.sent[i], true
		}
	}
	return sentNotification{}, false
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Event
	}
	return out
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, payload map[string]interface{}) error {
	args := m.Called(ctx, userID, event, payload)
	return args.Error(0)
}

// --- In-memory unit of work ---

// memState is one snapshot of every table. Aggregates are stored by value so a transaction
// can work on a private copy.
type memState struct {
	bookings map[uuid.UUID]bookingDomain.Booking
	accounts map[uuid.UUID]ledger.Account
	skills   map[uuid.UUID]skill.Skill
	txns     []ledger.WalletTransaction
}

func newMemState() *memState {
	return &memState{
		bookings: make(map[uuid.UUID]bookingDomain.Booking),
		accounts: make(map[uuid.UUID]ledger.Account),
		skills:   make(map[uuid.UUID]skill.Skill),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.skills {
		c.skills[k] = v
	}
	c.txns = append([]ledger.WalletTransaction(nil), s.txns...)
	return c
}

// memStore serializes transactions with txMu, which a transaction holds from Begin until
// Commit or Rollback. Reads outside a transaction see the last committed state.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex
	state  *memState

	// failTxnCreate, when set, makes every audit row insert fail.
	failTxnCreate error

	providerLocks int
	commits       int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

type memUoW struct {
	store *memStore
}

func newMemUoW() *memUoW {
	return &memUoW{store: newMemStore()}
}

func (u *memUoW) view() *memView { return &memView{store: u.store, shared: true} }

func (u *memUoW) Bookings() bookingDomain.BookingRepository  { return &memBookings{u.view()} }
func (u *memUoW) Accounts() ledger.AccountRepository         { return &memAccounts{u.view()} }
func (u *memUoW) Transactions() ledger.TransactionRepository { return &memTxns{u.view()} }
func (u *memUoW) Skills() skill.SkillRepository              { return &memSkills{u.view()} }

func (u *memUoW) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.store.txMu.Lock()
	u.store.dataMu.Lock()
	working := u.store.state.clone()
	u.store.dataMu.Unlock()
	return &memTx{memView: &memView{store: u.store, st: working}}, nil
}

// ListByUser makes the store double as the wallet history reader.
func (u *memUoW) ListByUser(_ context.Context, userID uuid.UUID, page, limit int) ([]*ledger.WalletTransaction, int64, error) {
	var out []*ledger.WalletTransaction
	u.view().with(func(st *memState) {
		for i := len(st.txns) - 1; i >= 0; i-- {
			if st.txns[i].UserID == userID {
				t := st.txns[i]
				out = append(out, &t)
			}
		}
	})
	total := int64(len(out))
	return paginate(out, page, limit), total, nil
}

// txnsFor returns the committed audit rows of userID, oldest first.
func (u *memUoW) txnsFor(userID uuid.UUID) []ledger.WalletTransaction {
	var out []ledger.WalletTransaction
	u.view().with(func(st *memState) {
		for _, t := range st.txns {
			if t.UserID == userID {
				out = append(out, t)
			}
		}
	})
	return out
}

type memTx struct {
	*memView
	done bool
}

func (t *memTx) Bookings() bookingDomain.BookingRepository  { return &memBookings{t.memView} }
func (t *memTx) Accounts() ledger.AccountRepository         { return &memAccounts{t.memView} }
func (t *memTx) Transactions() ledger.TransactionRepository { return &memTxns{t.memView} }
func (t *memTx) Skills() skill.SkillRepository              { return &memSkills{t.memView} }

func (t *memTx) LockProviderSchedule(_ context.Context, _ uuid.UUID) error {
	t.store.providerLocks++
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.dataMu.Lock()
	t.store.state = t.st
	t.store.commits++
	t.store.dataMu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

// memView is a set of tables: either a transaction's private copy or the shared committed
// state.
type memView struct {
	store  *memStore
	st     *memState
	shared bool
}

func (v *memView) with(fn func(st *memState)) {
	if !v.shared {
		fn(v.st)
		return
	}
	v.store.dataMu.Lock()
	defer v.store.dataMu.Unlock()
	fn(v.store.state)
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// --- Bookings ---

type memBookings struct{ *memView }

func (r *memBookings) get(id uuid.UUID) (*bookingDomain.Booking, error) {
	var (
		b  bookingDomain.Booking
		ok bool
	)
	r.with(func(st *memState) { b, ok = st.bookings[id] })
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	return &b, nil
}

func (r *memBookings) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.get(id)
}

func (r *memBookings) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.get(id)
}

func (r *memBookings) filter(keep func(b *bookingDomain.Booking) bool) []*bookingDomain.Booking {
	var out []*bookingDomain.Booking
	r.with(func(st *memState) {
		for _, b := range st.bookings {
			c := b
			if keep(&c) {
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out
}

func (r *memBookings) FindByLearnerID(_ context.Context, learnerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	all := r.filter(func(b *bookingDomain.Booking) bool { return b.LearnerID() == learnerID })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *memBookings) FindByProviderID(_ context.Context, providerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	all := r.filter(func(b *bookingDomain.Booking) bool { return b.ProviderID() == providerID })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *memBookings) ListAll(_ context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	all := r.filter(func(*bookingDomain.Booking) bool { return true })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *memBookings) CountByStatus(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, b := range r.filter(func(*bookingDomain.Booking) bool { return true }) {
		counts[string(b.Status())]++
	}
	return counts, nil
}

func (r *memBookings) CountOverlapping(_ context.Context, providerID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) (int64, error) {
	hits := r.filter(func(b *bookingDomain.Booking) bool {
		if b.ProviderID() != providerID || !b.Status().HoldsSlot() {
			return false
		}
		if excludeID != nil && b.ID() == *excludeID {
			return false
		}
		return b.Slot().StartAt.Before(to) && b.Slot().EndAt.After(from)
	})
	return int64(len(hits)), nil
}

func (r *memBookings) FindExpiredPending(_ context.Context, now, createdBefore time.Time, limit int) ([]*bookingDomain.Booking, error) {
	hits := r.filter(func(b *bookingDomain.Booking) bool {
		if b.Status() != bookingDomain.StatusPending {
			return false
		}
		return !b.Slot().StartAt.After(now) || !b.CreatedAt().After(createdBefore)
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].CreatedAt().Before(hits[j].CreatedAt()) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r *memBookings) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.with(func(st *memState) { st.bookings[b.ID()] = *b })
	return nil
}

func (r *memBookings) Update(_ context.Context, b *bookingDomain.Booking) error {
	var err error
	r.with(func(st *memState) {
		stored, ok := st.bookings[b.ID()]
		if !ok {
			err = domain.NewNotFoundError("booking", b.ID().String())
			return
		}
		if stored.Version() != b.Version()-1 {
			err = domain.NewConflictError("booking was modified concurrently")
			return
		}
		st.bookings[b.ID()] = *b
	})
	return err
}

// --- Accounts ---

type memAccounts struct{ *memView }

func (r *memAccounts) FindByUserID(_ context.Context, userID uuid.UUID) (*ledger.Account, error) {
	var (
		a  ledger.Account
		ok bool
	)
	r.with(func(st *memState) { a, ok = st.accounts[userID] })
	if !ok {
		return nil, domain.NewNotFoundError("credit account", userID.String())
	}
	return &a, nil
}

func (r *memAccounts) FindForUpdate(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*ledger.Account, error) {
	out := make(map[uuid.UUID]*ledger.Account, len(userIDs))
	for _, id := range userIDs {
		a, err := r.FindByUserID(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

func (r *memAccounts) Save(_ context.Context, a *ledger.Account) error {
	r.with(func(st *memState) {
		if _, exists := st.accounts[a.UserID()]; !exists {
			st.accounts[a.UserID()] = *a
		}
	})
	return nil
}

func (r *memAccounts) Update(_ context.Context, a *ledger.Account) error {
	var err error
	r.with(func(st *memState) {
		stored, ok := st.accounts[a.UserID()]
		if !ok {
			err = domain.NewNotFoundError("credit account", a.UserID().String())
			return
		}
		if stored.Version() != a.Version()-1 {
			err = domain.NewConflictError("credit account was modified concurrently")
			return
		}
		st.accounts[a.UserID()] = *a
	})
	return err
}

// --- Wallet transactions ---

type memTxns struct{ *memView }

func (r *memTxns) Create(_ context.Context, t *ledger.WalletTransaction) error {
	if r.store.failTxnCreate != nil {
		return r.store.failTxnCreate
	}
	r.with(func(st *memState) { st.txns = append(st.txns, *t) })
	return nil
}

func (r *memTxns) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*ledger.WalletTransaction, error) {
	var out []*ledger.WalletTransaction
	r.with(func(st *memState) {
		for _, t := range st.txns {
			if t.BookingID != nil && *t.BookingID == bookingID {
				c := t
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

// --- Skills ---

type memSkills struct{ *memView }

func (r *memSkills) FindByID(_ context.Context, id uuid.UUID) (*skill.Skill, error) {
	var (
		s  skill.Skill
		ok bool
	)
	r.with(func(st *memState) { s, ok = st.skills[id] })
	if !ok {
		return nil, domain.NewNotFoundError("skill", id.String())
	}
	return &s, nil
}

func (r *memSkills) FindByProviderID(_ context.Context, providerID uuid.UUID) ([]*skill.Skill, error) {
	var out []*skill.Skill
	r.with(func(st *memState) {
		for _, s := range st.skills {
			if s.ProviderID() == providerID {
				c := s
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

func (r *memSkills) Save(_ context.Context, s *skill.Skill) error {
	r.with(func(st *memState) { st.skills[s.ID()] = *s })
	return nil
}

func (r *memSkills) Update(ctx context.Context, s *skill.Skill) error {
	return r.Save(ctx, s)
}

func (r *memSkills) IncrementTotalSessions(_ context.Context, id uuid.UUID) error {
	var err error
	r.with(func(st *memState) {
		s, ok := st.skills[id]
		if !ok {
			err = domain.NewNotFoundError("skill", id.String())
			return
		}
		st.skills[id] = *skill.Reconstruct(s.ID(), s.ProviderID(), s.Title(), s.CreditsPerHour(), s.DurationHours(),
			s.Status(), s.TotalSessions()+1, s.Version(), s.CreatedAt(), s.UpdatedAt())
	})
	return err
}
