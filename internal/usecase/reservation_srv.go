package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/messaging"
	"travel-booking/pkg/metrics"
	"travel-booking/pkg/tracing"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ReserveInput is the kind-agnostic reservation request.
type ReserveInput struct {
	Kind        entity.BookingKind
	ResourceID  uuid.UUID
	RequesterID uuid.UUID
	Quantity    int
	Details     entity.BookingDetails
}

type ReservationService interface {
	Reserve(ctx context.Context, in ReserveInput) (*entity.Booking, error)
	Confirm(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
	Complete(ctx context.Context, bookingID uuid.UUID, finalFare *float64) (*entity.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
	ListUserBookings(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*entity.Booking, int64, error)
}

type ReservationOption func(*reservationService)

// WithRetryPolicy overrides the retry policy of the optimistic tour-seat claim.
func WithRetryPolicy(p RetryPolicy) ReservationOption {
	return func(s *reservationService) { s.retry = p }
}

type reservationService struct {
	repo         *repository.Repository
	pricer       Pricer
	retry        RetryPolicy
	tourStrategy string
	events       messaging.Publisher
	tracer       trace.Tracer
	log          *zap.Logger
}

func NewReservationService(repo *repository.Repository, config *utils.Config, events messaging.Publisher, log *zap.Logger, opts ...ReservationOption) ReservationService {
	retry := DefaultRetryPolicy()
	if config.Capacity.RetryAttempts > 0 {
		retry.MaxAttempts = config.Capacity.RetryAttempts
	}
	if config.Capacity.RetryBackoff > 0 {
		retry.Backoff = config.Capacity.RetryBackoff
	}

	s := &reservationService{
		repo:         repo,
		pricer:       NewPricer(config.Cab),
		retry:        retry,
		tourStrategy: config.Capacity.TourStrategy,
		events:       events,
		tracer:       tracing.Tracer("travel-booking/reservation"),
		log:          log.With(zap.String("service", "reservation")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reservationService) Reserve(ctx context.Context, in ReserveInput) (*entity.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Reserve", trace.WithAttributes(
		attribute.String("booking.kind", string(in.Kind)),
		attribute.String("resource.id", in.ResourceID.String()),
		attribute.Int("booking.quantity", in.Quantity),
	))
	defer span.End()

	booking, err := s.reserve(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.status", string(booking.Status)))
	return booking, nil
}

func (s *reservationService) reserve(ctx context.Context, in ReserveInput) (*entity.Booking, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("booking kind %q: %w", in.Kind, entity.ErrInvalidRequest)
	}
	if in.Kind == entity.KindCabTrip {
		in.Quantity = 1
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", in.Quantity, entity.ErrInvalidRequest)
	}

	resource, err := s.repo.Resource.FindByID(ctx, in.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("find resource %s: %w", in.ResourceID, err)
	}
	if resource == nil {
		return nil, fmt.Errorf("resource %s: %w", in.ResourceID, entity.ErrNotFound)
	}
	if resource.Kind != in.Kind {
		return nil, fmt.Errorf("resource %s is a %s, not a %s: %w", in.ResourceID, resource.Kind, in.Kind, entity.ErrInvalidRequest)
	}

	requester, err := s.repo.User.FindByID(ctx, in.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("find requester %s: %w", in.RequesterID, err)
	}
	if requester == nil {
		return nil, fmt.Errorf("requester %s: %w", in.RequesterID, entity.ErrNotFound)
	}

	s.pricer.ApplyDefaults(in.Kind, &in.Details)
	price, err := s.pricer.Price(resource, in.Quantity, in.Details)
	if err != nil {
		return nil, err
	}

	switch {
	case in.Kind == entity.KindCabTrip:
		err = s.claimUnit(ctx, in)
	case in.Kind == entity.KindTourSeat && s.tourStrategy == utils.TourStrategyVersioned:
		err = s.claimVersioned(ctx, in)
	default:
		err = s.claimCounted(ctx, in)
	}

	if errors.Is(err, entity.ErrConcurrencyExhausted) {
		return s.recordFailed(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	booking := newBooking(in, price, entity.BookingStatusPending)
	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to persist booking after claim, releasing capacity",
			zap.Error(err),
			zap.String("resource_id", in.ResourceID.String()),
			zap.Int("quantity", in.Quantity),
		)
		s.release(ctx, in.Kind, in.ResourceID, in.Quantity)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.BookingTransitionsTotal.WithLabelValues(string(booking.Kind), string(booking.Status)).Inc()
	publish(ctx, s.events, s.log, bookingEvent(messaging.EventBookingCreated, booking))

	s.log.Info("Booking reserved",
		zap.String("booking_id", booking.ID.String()),
		zap.String("kind", string(booking.Kind)),
		zap.String("resource_id", in.ResourceID.String()),
		zap.String("requester_id", in.RequesterID.String()),
		zap.Int("quantity", booking.Quantity),
		zap.Float64("price", booking.Price),
	)

	return booking, nil
}

// precheck reads the pool for a fast-fail. The claim that follows is what enforces capacity.
func (s *reservationService) precheck(ctx context.Context, in ReserveInput) (*entity.CapacityPool, error) {
	pool, err := s.repo.Capacity.Get(ctx, in.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("read capacity of %s: %w", in.ResourceID, err)
	}
	if pool == nil {
		return nil, fmt.Errorf("capacity pool %s: %w", in.ResourceID, entity.ErrNotFound)
	}
	if pool.Kind != in.Kind.PoolKind() {
		return nil, fmt.Errorf("pool %s is %s: %w", in.ResourceID, pool.Kind, entity.ErrInvalidRequest)
	}
	if pool.Available < in.Quantity {
		metrics.ClaimsTotal.WithLabelValues(string(in.Kind), "precheck_rejected").Inc()
		return nil, fmt.Errorf("requested %d of %s, %d available: %w", in.Quantity, in.ResourceID, pool.Available, entity.ErrCapacityExceeded)
	}
	return pool, nil
}

func (s *reservationService) claimCounted(ctx context.Context, in ReserveInput) error {
	if _, err := s.precheck(ctx, in); err != nil {
		return err
	}

	ok, err := s.repo.Capacity.Claim(ctx, in.ResourceID, in.Quantity)
	if err != nil {
		return fmt.Errorf("claim %d of %s: %w", in.Quantity, in.ResourceID, err)
	}
	return s.claimResult(in, ok)
}

func (s *reservationService) claimUnit(ctx context.Context, in ReserveInput) error {
	if _, err := s.precheck(ctx, in); err != nil {
		return err
	}

	ok, err := s.repo.Capacity.ClaimUnit(ctx, in.ResourceID)
	if err != nil {
		return fmt.Errorf("claim unit %s: %w", in.ResourceID, err)
	}
	return s.claimResult(in, ok)
}

func (s *reservationService) claimVersioned(ctx context.Context, in ReserveInput) error {
	ctx, span := s.tracer.Start(ctx, "capacity.ClaimVersioned")
	defer span.End()

	err := s.retry.Do(func(attempt int) (bool, error) {
		pool, err := s.precheck(ctx, in)
		if err != nil {
			return false, err
		}

		ok, err := s.repo.Capacity.ClaimVersioned(ctx, in.ResourceID, in.Quantity, pool.Version)
		if err != nil {
			return false, fmt.Errorf("versioned claim of %s: %w", in.ResourceID, err)
		}
		if !ok {
			metrics.ClaimConflictsTotal.Inc()
			s.log.Debug("Version conflict on tour seat claim",
				zap.String("resource_id", in.ResourceID.String()),
				zap.Int64("version", pool.Version),
				zap.Int("attempt", attempt),
			)
		}
		span.SetAttributes(attribute.Int("claim.attempts", attempt))
		return ok, nil
	})

	switch {
	case err == nil:
		metrics.ClaimsTotal.WithLabelValues(string(in.Kind), "claimed").Inc()
	case errors.Is(err, entity.ErrConcurrencyExhausted):
		metrics.ClaimsTotal.WithLabelValues(string(in.Kind), "exhausted").Inc()
		span.SetStatus(codes.Error, "retries exhausted")
	}
	return err
}

func (s *reservationService) claimResult(in ReserveInput, ok bool) error {
	if !ok {
		metrics.ClaimsTotal.WithLabelValues(string(in.Kind), "rejected").Inc()
		return fmt.Errorf("claim %d of %s: %w", in.Quantity, in.ResourceID, entity.ErrCapacityExceeded)
	}
	metrics.ClaimsTotal.WithLabelValues(string(in.Kind), "claimed").Inc()
	return nil
}

// recordFailed persists the terminal record of a tour claim that lost every retry.
// It carries no resource or requester and claimed nothing.
func (s *reservationService) recordFailed(ctx context.Context, in ReserveInput) (*entity.Booking, error) {
	booking := newBooking(in, 0, entity.BookingStatusFailed)
	booking.ResourceID = nil
	booking.RequesterID = nil

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("record failed booking: %w", err)
	}

	metrics.BookingTransitionsTotal.WithLabelValues(string(booking.Kind), string(booking.Status)).Inc()
	publish(ctx, s.events, s.log, bookingEvent(messaging.EventBookingFailed, booking))

	s.log.Warn("Tour seat claim retries exhausted",
		zap.String("booking_id", booking.ID.String()),
		zap.String("resource_id", in.ResourceID.String()),
		zap.String("requester_id", in.RequesterID.String()),
		zap.Int("quantity", in.Quantity),
		zap.Int("attempts", s.retry.MaxAttempts),
	)
	return booking, nil
}

func newBooking(in ReserveInput, price float64, status entity.BookingStatus) *entity.Booking {
	now := time.Now()
	resourceID, requesterID := in.ResourceID, in.RequesterID
	return &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Kind:        in.Kind,
		ResourceID:  &resourceID,
		RequesterID: &requesterID,
		Quantity:    in.Quantity,
		Price:       price,
		Status:      status,
		Details:     in.Details,
	}
}

func (s *reservationService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, entity.ErrNotFound)
	}
	return booking, nil
}

func (s *reservationService) ListUserBookings(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*entity.Booking, int64, error) {
	bookings, err := s.repo.Booking.FindByRequester(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings of %s: %w", requesterID, err)
	}

	total, err := s.repo.Booking.CountByRequester(ctx, requesterID)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookings of %s: %w", requesterID, err)
	}

	return bookings, total, nil
}

func (s *reservationService) Confirm(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, _, err := s.transition(ctx, bookingID, []entity.BookingStatus{entity.BookingStatusPending}, entity.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.log, bookingEvent(messaging.EventBookingConfirmed, booking))
	s.log.Info("Booking confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("kind", string(booking.Kind)),
	)
	return booking, nil
}

// Cancel flips the status and releases the claim in one unit of work. The guarded
// update guarantees a single release per booking.
func (s *reservationService) Cancel(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	var booking *entity.Booking
	err := s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		cancelled, prior, err := s.transition(ctx, bookingID, entity.CancellableStatuses(), entity.BookingStatusCancelled)
		if err != nil {
			return err
		}
		if err := s.releaseClaim(ctx, cancelled, prior); err != nil {
			return fmt.Errorf("release capacity of cancelled booking %s: %w", bookingID, err)
		}
		booking = cancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, s.log, bookingEvent(messaging.EventBookingCancelled, booking))
	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("kind", string(booking.Kind)),
		zap.Int("released", booking.Quantity),
	)
	return booking, nil
}

func (s *reservationService) Complete(ctx context.Context, bookingID uuid.UUID, finalFare *float64) (*entity.Booking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(booking.Kind, booking.Status, entity.BookingStatusCompleted) {
		return nil, fmt.Errorf("complete %s booking %s in status %s: %w", booking.Kind, bookingID, booking.Status, entity.ErrInvalidTransition)
	}

	fare := booking.Price
	if finalFare != nil {
		if *finalFare < 0 {
			return nil, fmt.Errorf("final fare %.2f: %w", *finalFare, entity.ErrInvalidRequest)
		}
		fare = *finalFare
	}

	prior := booking.Status
	err = s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Booking.Complete(ctx, bookingID, fare)
		if err != nil {
			return fmt.Errorf("complete booking %s: %w", bookingID, err)
		}
		if !ok {
			return fmt.Errorf("complete booking %s: %w", bookingID, entity.ErrInvalidTransition)
		}
		booking.Status = entity.BookingStatusCompleted
		if err := s.releaseClaim(ctx, booking, prior); err != nil {
			return fmt.Errorf("free cab of completed booking %s: %w", bookingID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	booking.FinalFare = &fare
	metrics.BookingTransitionsTotal.WithLabelValues(string(booking.Kind), string(booking.Status)).Inc()

	publish(ctx, s.events, s.log, bookingEvent(messaging.EventBookingCompleted, booking))
	s.log.Info("Cab booking completed",
		zap.String("booking_id", booking.ID.String()),
		zap.Float64("final_fare", fare),
	)
	return booking, nil
}

// transition validates and applies a guarded status change. It returns the updated
// booking and the status it moved from.
func (s *reservationService) transition(ctx context.Context, bookingID uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (*entity.Booking, entity.BookingStatus, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if !entity.CanTransition(booking.Kind, booking.Status, to) {
		return nil, "", fmt.Errorf("booking %s is %s, cannot move to %s: %w", bookingID, booking.Status, to, entity.ErrInvalidTransition)
	}

	ok, err := s.repo.Booking.TransitionStatus(ctx, bookingID, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("move booking %s to %s: %w", bookingID, to, err)
	}
	if !ok {
		// a concurrent request changed the status between the read and the guarded write
		return nil, "", fmt.Errorf("booking %s changed concurrently, cannot move to %s: %w", bookingID, to, entity.ErrInvalidTransition)
	}

	prior := booking.Status
	booking.Status = to
	booking.UpdatedAt = time.Now()
	metrics.BookingTransitionsTotal.WithLabelValues(string(booking.Kind), string(to)).Inc()
	return booking, prior, nil
}

// releaseClaim returns the booking's capacity. When the release fails the booking is
// moved back to prior, so the claim is still owned by an active booking and a retry
// can release it. On Postgres the surrounding transaction rolls back as well.
func (s *reservationService) releaseClaim(ctx context.Context, booking *entity.Booking, prior entity.BookingStatus) error {
	err := s.release(ctx, booking.Kind, *booking.ResourceID, booking.Quantity)
	if err == nil {
		return nil
	}

	restored, revertErr := s.repo.Booking.TransitionStatus(ctx, booking.ID, []entity.BookingStatus{booking.Status}, prior)
	if revertErr != nil || !restored {
		s.log.Error("Failed to restore booking status after failed release",
			zap.Error(revertErr),
			zap.String("booking_id", booking.ID.String()),
			zap.String("status", string(prior)),
		)
	}
	return err
}

func (s *reservationService) release(ctx context.Context, kind entity.BookingKind, resourceID uuid.UUID, qty int) error {
	var err error
	if kind.PoolKind() == entity.PoolKindUnit {
		err = s.repo.Capacity.ReleaseUnit(ctx, resourceID)
	} else {
		err = s.repo.Capacity.Release(ctx, resourceID, qty)
	}

	if err != nil {
		metrics.ReleasesTotal.WithLabelValues(string(kind), "error").Inc()
		s.log.Error("Failed to release capacity",
			zap.Error(err),
			zap.String("resource_id", resourceID.String()),
			zap.Int("quantity", qty),
		)
		return err
	}

	metrics.ReleasesTotal.WithLabelValues(string(kind), "released").Inc()
	return nil
}
