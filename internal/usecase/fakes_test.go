package usecase

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/gateway"
	"travel-booking/pkg/messaging"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testGatewaySecret = "test-secret"

func testConfig() *utils.Config {
	return &utils.Config{
		Capacity: utils.CapacityConfig{
			Backend:       utils.CapacityBackendPostgres,
			TourStrategy:  utils.TourStrategyVersioned,
			RetryAttempts: 3,
		},
		Gateway: utils.GatewayConfig{
			KeyID:           "rzp_test",
			KeySecret:       testGatewaySecret,
			Currency:        "INR",
			StrictSignature: true,
		},
		Cab: utils.CabConfig{
			DefaultDistanceKm: 10,
			DefaultBaseFare:   50,
			DefaultPricePerKm: 15,
		},
	}
}

func zapNop() *zap.Logger { return zap.NewNop() }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func noSleepRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, Sleep: func(time.Duration) {}}
}

type fixture struct {
	repo      *repository.Repository
	users     *fakeUserRepo
	resources *fakeResourceRepo
	capacity  *fakeCapacityStore
	bookings  *fakeBookingRepo
	payments  *fakePaymentRepo
	events    *recordingPublisher
}

func newFixture() *fixture {
	f := &fixture{
		users:     &fakeUserRepo{users: map[uuid.UUID]*entity.User{}},
		resources: &fakeResourceRepo{resources: map[uuid.UUID]*entity.Resource{}},
		capacity:  newFakeCapacityStore(),
		bookings:  &fakeBookingRepo{bookings: map[uuid.UUID]*entity.Booking{}},
		payments:  &fakePaymentRepo{payments: map[uuid.UUID]*entity.Payment{}},
		events:    &recordingPublisher{},
	}
	f.repo = &repository.Repository{
		User:     f.users,
		Resource: f.resources,
		Capacity: f.capacity,
		Booking:  f.bookings,
		Payment:  f.payments,
		Tx:       fakeTransactor{},
	}
	return f
}

func (f *fixture) reservation(opts ...ReservationOption) ReservationService {
	opts = append([]ReservationOption{WithRetryPolicy(noSleepRetry())}, opts...)
	return NewReservationService(f.repo, testConfig(), f.events, zap.NewNop(), opts...)
}

func (f *fixture) payment(reservation ReservationService, opts ...PaymentOption) PaymentService {
	config := testConfig()
	gw := gateway.NewSandbox(config.Gateway, zap.NewNop())
	return NewPaymentService(f.repo, reservation, gw, config, f.events, zap.NewNop(), opts...)
}

func (f *fixture) addUser() uuid.UUID {
	user := &entity.User{Username: "traveller", Role: entity.RoleCustomer, IsActive: true}
	user.ID = uuid.New()
	_ = f.users.Create(context.Background(), user)
	return user.ID
}

// addResource registers a resource with a pool of the given capacity (ignored for cabs).
func (f *fixture) addResource(kind entity.BookingKind, capacity int, configure func(*entity.Resource)) uuid.UUID {
	resource := &entity.Resource{Kind: kind, Name: string(kind)}
	resource.ID = uuid.New()
	if configure != nil {
		configure(resource)
	}
	_ = f.resources.Create(context.Background(), resource)

	pool, err := newPool(resource.ID, kind, capacity)
	if err != nil {
		panic(err)
	}
	if err := f.capacity.Register(context.Background(), pool); err != nil {
		panic(err)
	}
	return resource.ID
}

func (f *fixture) available(id uuid.UUID) int {
	pool, _ := f.capacity.Get(context.Background(), id)
	return pool.Available
}

type fakeTransactor struct{}

func (fakeTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// failingCommitTransactor runs fn and then fails as if COMMIT was rejected.
type failingCommitTransactor struct{ err error }

func (t failingCommitTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return t.err
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

type fakeResourceRepo struct {
	mu        sync.Mutex
	resources map[uuid.UUID]*entity.Resource
}

func (r *fakeResourceRepo) Create(_ context.Context, resource *entity.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[resource.ID] = resource
	return nil
}

func (r *fakeResourceRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resources[id], nil
}

// fakeCapacityStore makes each claim one critical section, the way a conditional UPDATE does.
type fakeCapacityStore struct {
	mu    sync.Mutex
	pools map[uuid.UUID]*entity.CapacityPool

	// interfere simulates writers that bump the version just before a versioned claim lands.
	interfere int
	claims    int
	// releaseErr fails every release while set.
	releaseErr error
}

func newFakeCapacityStore() *fakeCapacityStore {
	return &fakeCapacityStore{pools: map[uuid.UUID]*entity.CapacityPool{}}
}

func (s *fakeCapacityStore) Register(_ context.Context, pool *entity.CapacityPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pool
	s.pools[pool.ID] = &cp
	return nil
}

func (s *fakeCapacityStore) Remove(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pools, id)
	return nil
}

func (s *fakeCapacityStore) Get(_ context.Context, id uuid.UUID) (*entity.CapacityPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.pools[id]
	if !ok {
		return nil, nil
	}
	cp := *pool
	return &cp, nil
}

func (s *fakeCapacityStore) claim(id uuid.UUID, qty int, kind entity.PoolKind, version *int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++

	pool, ok := s.pools[id]
	if !ok || pool.Kind != kind {
		return false
	}
	if version != nil && s.interfere > 0 {
		s.interfere--
		pool.Version++
	}
	if version != nil && pool.Version != *version {
		return false
	}
	if pool.Available < qty {
		return false
	}
	pool.Available -= qty
	pool.Version++
	return true
}

func (s *fakeCapacityStore) Claim(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	return s.claim(id, qty, entity.PoolKindCounted, nil), nil
}

func (s *fakeCapacityStore) ClaimVersioned(_ context.Context, id uuid.UUID, qty int, version int64) (bool, error) {
	return s.claim(id, qty, entity.PoolKindCounted, &version), nil
}

func (s *fakeCapacityStore) ClaimUnit(_ context.Context, id uuid.UUID) (bool, error) {
	return s.claim(id, 1, entity.PoolKindUnit, nil), nil
}

func (s *fakeCapacityStore) release(id uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return s.releaseErr
	}
	pool, ok := s.pools[id]
	if !ok {
		return entity.ErrNotFound
	}
	pool.Available += qty
	if pool.Total != nil && pool.Available > *pool.Total {
		pool.Available = *pool.Total
	}
	pool.Version++
	return nil
}

func (s *fakeCapacityStore) Release(_ context.Context, id uuid.UUID, qty int) error {
	return s.release(id, qty)
}

func (s *fakeCapacityStore) ReleaseUnit(_ context.Context, id uuid.UUID) error {
	return s.release(id, 1)
}

type fakeBookingRepo struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]*entity.Booking
	createErr error
	// confirmErr fails the guarded update for the listed bookings.
	confirmErr map[uuid.UUID]error
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *booking
	return &cp, nil
}

func (r *fakeBookingRepo) FindByRequester(_ context.Context, requesterID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, booking := range r.bookings {
		if booking.OwnedBy(requesterID) {
			cp := *booking
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return []*entity.Booking{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByRequester(_ context.Context, requesterID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, booking := range r.bookings {
		if booking.OwnedBy(requesterID) {
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) TransitionStatus(_ context.Context, id uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.confirmErr[id]; err != nil && to == entity.BookingStatusConfirmed {
		return false, err
	}
	booking, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if booking.Status == status {
			booking.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookingRepo) Complete(_ context.Context, id uuid.UUID, finalFare float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok || booking.Kind != entity.KindCabTrip || booking.Status != entity.BookingStatusConfirmed {
		return false, nil
	}
	booking.Status = entity.BookingStatusCompleted
	booking.FinalFare = &finalFare
	return true, nil
}

func (r *fakeBookingRepo) status(id uuid.UUID) entity.BookingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookings[id].Status
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*entity.Payment
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.RequesterID == payment.RequesterID && existing.Status == entity.PaymentStatusPending {
			return entity.ErrPaymentConflict
		}
	}
	cp := *payment
	r.payments[payment.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) find(match func(*entity.Payment) bool) *entity.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, payment := range r.payments {
		if match(payment) {
			cp := *payment
			return &cp
		}
	}
	return nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p *entity.Payment) bool { return p.ID == id }), nil
}

func (r *fakePaymentRepo) FindByGatewayOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	return r.find(func(p *entity.Payment) bool { return p.GatewayOrderID == orderID }), nil
}

func (r *fakePaymentRepo) FindPendingByRequester(_ context.Context, requesterID uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p *entity.Payment) bool {
		return p.RequesterID == requesterID && p.Status == entity.PaymentStatusPending
	}), nil
}

func (r *fakePaymentRepo) FindByRequester(_ context.Context, requesterID uuid.UUID) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entity.Payment{}
	for _, payment := range r.payments {
		if payment.RequesterID == requesterID {
			cp := *payment
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakePaymentRepo) ExistsPendingByRequester(ctx context.Context, requesterID uuid.UUID) (bool, error) {
	payment, _ := r.FindPendingByRequester(ctx, requesterID)
	return payment != nil, nil
}

func (r *fakePaymentRepo) MarkSuccess(_ context.Context, id uuid.UUID, gatewayPaymentID, signature string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok || payment.Status != entity.PaymentStatusPending {
		return false, nil
	}
	payment.Status = entity.PaymentStatusSuccess
	payment.GatewayPaymentID = &gatewayPaymentID
	payment.GatewaySignature = &signature
	payment.PaidAt = &paidAt
	return true, nil
}

func (r *fakePaymentRepo) MarkFailed(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok || payment.Status != entity.PaymentStatusPending {
		return false, nil
	}
	payment.Status = entity.PaymentStatusFailed
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}
