// Package memory implements repository.Store over in-process collections.
// All operations run under one mutex, so the store behaves as a single
// logical writer. RunTx takes a snapshot and rolls back on error, matching
// the transactional semantics of the postgres store closely enough for the
// services not to care which one they were given.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository"
)

type data struct {
	events       map[int64]domain.Event
	vouchers     map[int64]domain.Voucher
	transactions map[uuid.UUID]domain.Transaction
	txOrder      []uuid.UUID
	reviews      []domain.Review
	users        map[int64]domain.User

	nextEventID   int64
	nextVoucherID int64
	nextReviewID  int64
	nextUserID    int64
}

type Store struct {
	mu sync.Mutex
	d  *data

	// inTx is set on the view handed to RunTx callbacks; the view shares the
	// already-locked data and must not lock again.
	inTx bool
}

func NewStore() *Store {
	return &Store{
		d: &data{
			events:       make(map[int64]domain.Event),
			vouchers:     make(map[int64]domain.Voucher),
			transactions: make(map[uuid.UUID]domain.Transaction),
			users:        make(map[int64]domain.User),
		},
	}
}

func (s *Store) acquire() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Events() repository.EventRepository             { return &eventRepo{s} }
func (s *Store) Vouchers() repository.VoucherRepository         { return &voucherRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository { return &transactionRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository           { return &reviewRepo{s} }
func (s *Store) Users() repository.UserRepository               { return &userRepo{s} }

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()

	view := &Store{d: s.d, inTx: true}
	if err := fn(ctx, view); err != nil {
		*s.d = *snapshot
		return err
	}

	return nil
}

func (d *data) clone() *data {
	cp := *d

	cp.events = make(map[int64]domain.Event, len(d.events))
	for k, v := range d.events {
		cp.events[k] = v
	}
	cp.vouchers = make(map[int64]domain.Voucher, len(d.vouchers))
	for k, v := range d.vouchers {
		cp.vouchers[k] = v
	}
	cp.transactions = make(map[uuid.UUID]domain.Transaction, len(d.transactions))
	for k, v := range d.transactions {
		cp.transactions[k] = v
	}
	cp.txOrder = append([]uuid.UUID(nil), d.txOrder...)
	cp.reviews = append([]domain.Review(nil), d.reviews...)
	cp.users = make(map[int64]domain.User, len(d.users))
	for k, v := range d.users {
		cp.users[k] = v
	}

	return &cp
}

// --- events ---

type eventRepo struct{ s *Store }

func (r *eventRepo) Create(_ context.Context, e *domain.Event) (int64, error) {
	defer r.s.acquire()()

	d := r.s.d
	d.nextEventID++
	e.ID = d.nextEventID
	d.events[e.ID] = *e

	return e.ID, nil
}

func (r *eventRepo) Get(_ context.Context, id int64) (*domain.Event, error) {
	defer r.s.acquire()()

	e, ok := r.s.d.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return &e, nil
}

func (r *eventRepo) ListByOrganizer(_ context.Context, organizerID int64) ([]domain.Event, error) {
	defer r.s.acquire()()

	var out []domain.Event
	for _, e := range r.s.d.eventsInOrder() {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}

	return out, nil
}

func (r *eventRepo) Search(_ context.Context, query, category, location string) ([]domain.Event, error) {
	defer r.s.acquire()()

	q := strings.ToLower(query)

	var out []domain.Event
	for _, e := range r.s.d.eventsInOrder() {
		if q != "" &&
			!strings.Contains(strings.ToLower(e.Name), q) &&
			!strings.Contains(strings.ToLower(e.Description), q) {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		if location != "" && !strings.Contains(e.Location, location) {
			continue
		}
		out = append(out, e)
	}

	return out, nil
}

func (r *eventRepo) ReserveSeats(_ context.Context, eventID int64, qty int) error {
	defer r.s.acquire()()

	d := r.s.d
	e, ok := d.events[eventID]
	if !ok {
		return repository.ErrNotFound
	}
	if e.AvailableSeats < qty {
		return repository.ErrSeatsUnavailable
	}

	e.AvailableSeats -= qty
	d.events[eventID] = e

	return nil
}

func (r *eventRepo) ReleaseSeats(_ context.Context, eventID int64, qty int) error {
	defer r.s.acquire()()

	d := r.s.d
	e, ok := d.events[eventID]
	if !ok {
		return repository.ErrNotFound
	}

	e.AvailableSeats += qty
	if e.AvailableSeats > e.TotalSeats {
		e.AvailableSeats = e.TotalSeats
	}
	d.events[eventID] = e

	return nil
}

// eventsInOrder returns events sorted by ID; IDs are assigned sequentially,
// so this is insertion order.
func (d *data) eventsInOrder() []domain.Event {
	ids := make([]int64, 0, len(d.events))
	for id := range d.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.events[id])
	}

	return out
}

// --- vouchers ---

type voucherRepo struct{ s *Store }

func (r *voucherRepo) Create(_ context.Context, v *domain.Voucher) (int64, error) {
	defer r.s.acquire()()

	d := r.s.d
	d.nextVoucherID++
	v.ID = d.nextVoucherID
	d.vouchers[v.ID] = *v

	return v.ID, nil
}

func (r *voucherRepo) Get(_ context.Context, id int64) (*domain.Voucher, error) {
	defer r.s.acquire()()

	v, ok := r.s.d.vouchers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return &v, nil
}

func (r *voucherRepo) ListActiveByEvent(_ context.Context, eventID int64) ([]domain.Voucher, error) {
	defer r.s.acquire()()

	ids := make([]int64, 0, len(r.s.d.vouchers))
	for id := range r.s.d.vouchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []domain.Voucher
	for _, id := range ids {
		v := r.s.d.vouchers[id]
		if v.IsActive && v.EventID != nil && *v.EventID == eventID {
			out = append(out, v)
		}
	}

	return out, nil
}

// --- transactions ---

type transactionRepo struct{ s *Store }

func (r *transactionRepo) Create(_ context.Context, t *domain.Transaction) error {
	defer r.s.acquire()()

	d := r.s.d
	if _, ok := d.transactions[t.ID]; ok {
		return repository.ErrConflict
	}
	d.transactions[t.ID] = *t
	d.txOrder = append(d.txOrder, t.ID)

	return nil
}

func (r *transactionRepo) Get(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	defer r.s.acquire()()

	t, ok := r.s.d.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return &t, nil
}

func (r *transactionRepo) Update(_ context.Context, t *domain.Transaction) error {
	defer r.s.acquire()()

	d := r.s.d
	stored, ok := d.transactions[t.ID]
	if !ok {
		return repository.ErrNotFound
	}

	stored.Status = t.Status
	stored.PaymentProof = t.PaymentProof
	d.transactions[t.ID] = stored

	return nil
}

func (r *transactionRepo) ListByUser(_ context.Context, userID int64) ([]domain.Transaction, error) {
	defer r.s.acquire()()

	var out []domain.Transaction
	for _, id := range r.s.d.txOrder {
		t := r.s.d.transactions[id]
		if t.UserID == userID {
			out = append(out, t)
		}
	}

	return out, nil
}

func (r *transactionRepo) ListByOrganizer(_ context.Context, organizerID int64) ([]domain.Transaction, error) {
	defer r.s.acquire()()

	var out []domain.Transaction
	for _, id := range r.s.d.txOrder {
		t := r.s.d.transactions[id]
		e, ok := r.s.d.events[t.EventID]
		if ok && e.OrganizerID == organizerID {
			out = append(out, t)
		}
	}

	return out, nil
}

func (r *transactionRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Transaction, error) {
	defer r.s.acquire()()

	var out []domain.Transaction
	for _, id := range r.s.d.txOrder {
		t := r.s.d.transactions[id]
		if t.Status == domain.StatusWaitingForPayment && t.PaymentDeadline.Before(now) {
			out = append(out, t)
		}
	}

	return out, nil
}

func (r *transactionRepo) HasCompleted(_ context.Context, userID, eventID int64) (bool, error) {
	defer r.s.acquire()()

	for _, t := range r.s.d.transactions {
		if t.UserID == userID && t.EventID == eventID && t.Status == domain.StatusDone {
			return true, nil
		}
	}

	return false, nil
}

// --- reviews ---

type reviewRepo struct{ s *Store }

func (r *reviewRepo) Create(_ context.Context, rv *domain.Review) (int64, error) {
	defer r.s.acquire()()

	d := r.s.d
	d.nextReviewID++
	rv.ID = d.nextReviewID
	d.reviews = append(d.reviews, *rv)

	return rv.ID, nil
}

func (r *reviewRepo) ListByEvent(_ context.Context, eventID int64) ([]domain.Review, error) {
	defer r.s.acquire()()

	var out []domain.Review
	for _, rv := range r.s.d.reviews {
		if rv.EventID == eventID {
			out = append(out, rv)
		}
	}

	return out, nil
}

// --- users ---

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *domain.User) (int64, error) {
	defer r.s.acquire()()

	d := r.s.d
	for _, existing := range d.users {
		if existing.Email == u.Email || existing.ReferralCode == u.ReferralCode {
			return 0, repository.ErrConflict
		}
	}

	d.nextUserID++
	u.ID = d.nextUserID
	d.users[u.ID] = *u

	return u.ID, nil
}

func (r *userRepo) Get(_ context.Context, id int64) (*domain.User, error) {
	defer r.s.acquire()()

	u, ok := r.s.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.s.acquire()()

	for _, u := range r.s.d.users {
		if u.Email == email {
			return &u, nil
		}
	}

	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByReferralCode(_ context.Context, code string) (*domain.User, error) {
	defer r.s.acquire()()

	for _, u := range r.s.d.users {
		if u.ReferralCode == code {
			return &u, nil
		}
	}

	return nil, repository.ErrNotFound
}

func (r *userRepo) AddPoints(_ context.Context, id int64, points int64, expiry *time.Time) error {
	defer r.s.acquire()()

	d := r.s.d
	u, ok := d.users[id]
	if !ok {
		return repository.ErrNotFound
	}

	u.Points += points
	if expiry != nil {
		u.PointsExpiry = expiry
	}
	d.users[id] = u

	return nil
}
