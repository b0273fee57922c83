package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/gateway"
	"travel-booking/pkg/messaging"
	"travel-booking/pkg/metrics"
	"travel-booking/pkg/tracing"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PaymentService interface {
	HasPendingPayment(ctx context.Context, requesterID uuid.UUID) (bool, error)
	GetPendingPayment(ctx context.Context, requesterID uuid.UUID) (*entity.Payment, error)
	ListUserPayments(ctx context.Context, requesterID uuid.UUID) ([]*entity.Payment, error)
	CreateOrder(ctx context.Context, requesterID uuid.UUID, refs entity.BookingRefs) (*entity.Payment, error)
	// Verify settles the requester's pending payment for orderID and confirms its bookings.
	Verify(ctx context.Context, requesterID uuid.UUID, orderID, gatewayPaymentID, signature string) (*entity.Payment, error)
	Cancel(ctx context.Context, paymentID, requesterID uuid.UUID) error
}

// BookingConfirmer moves a pending booking to confirmed.
type BookingConfirmer interface {
	Confirm(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
}

type PaymentOption func(*paymentService)

// WithClock overrides the clock used for receipts and paid timestamps.
func WithClock(now func() time.Time) PaymentOption {
	return func(s *paymentService) { s.now = now }
}

type paymentService struct {
	repo      *repository.Repository
	confirmer BookingConfirmer
	gateway   gateway.Gateway
	currency  string
	events    messaging.Publisher
	tracer    trace.Tracer
	now       func() time.Time
	log       *zap.Logger
}

func NewPaymentService(repo *repository.Repository, confirmer BookingConfirmer, gw gateway.Gateway, config *utils.Config, events messaging.Publisher, log *zap.Logger, opts ...PaymentOption) PaymentService {
	s := &paymentService{
		repo:      repo,
		confirmer: confirmer,
		gateway:   gw,
		currency:  config.Gateway.Currency,
		events:    events,
		tracer:    tracing.Tracer("travel-booking/payment"),
		now:       time.Now,
		log:       log.With(zap.String("service", "payment")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *paymentService) HasPendingPayment(ctx context.Context, requesterID uuid.UUID) (bool, error) {
	exists, err := s.repo.Payment.ExistsPendingByRequester(ctx, requesterID)
	if err != nil {
		return false, fmt.Errorf("check pending payment of %s: %w", requesterID, err)
	}
	return exists, nil
}

func (s *paymentService) GetPendingPayment(ctx context.Context, requesterID uuid.UUID) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindPendingByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("find pending payment of %s: %w", requesterID, err)
	}
	if payment == nil {
		return nil, fmt.Errorf("pending payment of %s: %w", requesterID, entity.ErrNotFound)
	}
	return payment, nil
}

func (s *paymentService) ListUserPayments(ctx context.Context, requesterID uuid.UUID) ([]*entity.Payment, error) {
	payments, err := s.repo.Payment.FindByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list payments of %s: %w", requesterID, err)
	}
	return payments, nil
}

func (s *paymentService) CreateOrder(ctx context.Context, requesterID uuid.UUID, refs entity.BookingRefs) (*entity.Payment, error) {
	if refs.Len() == 0 {
		return nil, fmt.Errorf("payment order references no bookings: %w", entity.ErrInvalidRequest)
	}

	pending, err := s.HasPendingPayment(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("requester %s already has a pending payment: %w", requesterID, entity.ErrPaymentConflict)
	}

	total, err := s.aggregate(ctx, requesterID, refs)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("payment total %.2f: %w", total, entity.ErrInvalidRequest)
	}

	now := s.now()
	order, err := s.gateway.CreateOrder(ctx, utils.ToMinorUnits(total), s.currency, utils.GenerateReceipt(now))
	if err != nil {
		s.log.Error("Failed to create gateway order",
			zap.Error(err),
			zap.String("requester_id", requesterID.String()),
			zap.Float64("amount", total),
		)
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	payment := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		RequesterID:    requesterID,
		Amount:         total,
		Currency:       order.Currency,
		Status:         entity.PaymentStatusPending,
		GatewayOrderID: order.ID,
		Receipt:        order.Receipt,
		Bookings:       refs,
	}

	// the partial unique index still catches a concurrent order that passed the check above
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	metrics.PaymentsTotal.WithLabelValues(string(payment.Status)).Inc()
	publish(ctx, s.events, s.log, paymentEvent(messaging.EventPaymentCreated, payment))

	s.log.Info("Payment order created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.GatewayOrderID),
		zap.String("requester_id", requesterID.String()),
		zap.Float64("amount", total),
		zap.Int("bookings", refs.Len()),
	)
	return payment, nil
}

// aggregate sums the prices of the referenced bookings after checking each one may be paid for.
func (s *paymentService) aggregate(ctx context.Context, requesterID uuid.UUID, refs entity.BookingRefs) (float64, error) {
	seen := make(map[uuid.UUID]struct{}, refs.Len())
	var total float64

	for _, group := range refs.Groups() {
		for _, id := range group.IDs {
			if _, dup := seen[id]; dup {
				return 0, fmt.Errorf("booking %s referenced twice: %w", id, entity.ErrInvalidRequest)
			}
			seen[id] = struct{}{}

			booking, err := s.repo.Booking.FindByID(ctx, id)
			if err != nil {
				return 0, fmt.Errorf("find booking %s: %w", id, err)
			}
			if booking == nil {
				return 0, fmt.Errorf("booking %s: %w", id, entity.ErrNotFound)
			}
			if booking.Kind != group.Kind {
				return 0, fmt.Errorf("booking %s is a %s, listed as %s: %w", id, booking.Kind, group.Kind, entity.ErrInvalidRequest)
			}
			if !booking.OwnedBy(requesterID) {
				return 0, fmt.Errorf("booking %s: %w", id, entity.ErrUnauthorized)
			}
			if booking.Status != entity.BookingStatusPending {
				return 0, fmt.Errorf("booking %s is %s: %w", id, booking.Status, entity.ErrInvalidTransition)
			}

			total += booking.Price
		}
	}

	return total, nil
}

func (s *paymentService) Verify(ctx context.Context, requesterID uuid.UUID, orderID, gatewayPaymentID, signature string) (*entity.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Verify", trace.WithAttributes(
		attribute.String("payment.order_id", orderID),
	))
	defer span.End()

	payment, err := s.repo.Payment.FindByGatewayOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find payment by order %s: %w", orderID, err)
	}
	if payment == nil {
		return nil, fmt.Errorf("payment for order %s: %w", orderID, entity.ErrNotFound)
	}
	if payment.RequesterID != requesterID {
		s.log.Warn("Payment verification by a different user",
			zap.String("payment_id", payment.ID.String()),
			zap.String("user_id", requesterID.String()),
		)
		return nil, fmt.Errorf("payment %s: %w", payment.ID, entity.ErrUnauthorized)
	}
	if payment.Status != entity.PaymentStatusPending {
		return nil, fmt.Errorf("payment %s is %s: %w", payment.ID, payment.Status, entity.ErrPaymentConflict)
	}

	if err := s.gateway.VerifyPayment(ctx, orderID, gatewayPaymentID, signature); err != nil {
		if errors.Is(err, gateway.ErrSignatureMismatch) {
			s.log.Warn("Rejected payment with invalid signature",
				zap.String("payment_id", payment.ID.String()),
				zap.String("order_id", orderID),
			)
			return nil, fmt.Errorf("verify payment %s: %w", payment.ID, entity.ErrInvalidSignature)
		}
		return nil, fmt.Errorf("verify payment %s: %w", payment.ID, err)
	}

	paidAt := s.now()
	ok, err := s.repo.Payment.MarkSuccess(ctx, payment.ID, gatewayPaymentID, signature, paidAt)
	if err != nil {
		return nil, fmt.Errorf("mark payment %s successful: %w", payment.ID, err)
	}
	if !ok {
		return nil, fmt.Errorf("payment %s settled concurrently: %w", payment.ID, entity.ErrPaymentConflict)
	}
	payment.Status = entity.PaymentStatusSuccess
	payment.GatewayPaymentID = &gatewayPaymentID
	payment.GatewaySignature = &signature
	payment.PaidAt = &paidAt
	payment.UpdatedAt = paidAt

	metrics.PaymentsTotal.WithLabelValues(string(payment.Status)).Inc()
	publish(ctx, s.events, s.log, paymentEvent(messaging.EventPaymentSucceeded, payment))

	confirmed := s.confirmBookings(ctx, payment)
	span.SetAttributes(attribute.Int("payment.bookings_confirmed", confirmed))

	s.log.Info("Payment verified",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", orderID),
		zap.Int("bookings", payment.Bookings.Len()),
		zap.Int("confirmed", confirmed),
	)
	return payment, nil
}

// confirmBookings confirms every referenced booking independently. A failed step is
// logged and counted; the remaining steps still run and nothing is rolled back.
func (s *paymentService) confirmBookings(ctx context.Context, payment *entity.Payment) int {
	confirmed := 0
	for _, group := range payment.Bookings.Groups() {
		for _, id := range group.IDs {
			_, err := s.confirmer.Confirm(ctx, id)
			switch {
			case err == nil:
				confirmed++
				metrics.FanoutStepsTotal.WithLabelValues(string(group.Kind), "confirmed").Inc()
			case errors.Is(err, entity.ErrNotFound), errors.Is(err, entity.ErrInvalidTransition):
				metrics.FanoutStepsTotal.WithLabelValues(string(group.Kind), "skipped").Inc()
				s.log.Warn("Skipped booking during payment fan-out",
					zap.Error(err),
					zap.String("payment_id", payment.ID.String()),
					zap.String("booking_id", id.String()),
					zap.String("kind", string(group.Kind)),
				)
			default:
				metrics.FanoutStepsTotal.WithLabelValues(string(group.Kind), "error").Inc()
				s.log.Error("Failed to confirm booking during payment fan-out",
					zap.Error(err),
					zap.String("payment_id", payment.ID.String()),
					zap.String("booking_id", id.String()),
					zap.String("kind", string(group.Kind)),
				)
			}
		}
	}
	return confirmed
}

// Cancel fails a pending payment. Its bookings keep their claims and stay pending.
func (s *paymentService) Cancel(ctx context.Context, paymentID, requesterID uuid.UUID) error {
	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("find payment %s: %w", paymentID, err)
	}
	if payment == nil {
		return fmt.Errorf("payment %s: %w", paymentID, entity.ErrNotFound)
	}
	if payment.RequesterID != requesterID {
		return fmt.Errorf("payment %s: %w", paymentID, entity.ErrUnauthorized)
	}
	if payment.Status != entity.PaymentStatusPending {
		return fmt.Errorf("payment %s is %s: %w", paymentID, payment.Status, entity.ErrPaymentConflict)
	}

	ok, err := s.repo.Payment.MarkFailed(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("cancel payment %s: %w", paymentID, err)
	}
	if !ok {
		return fmt.Errorf("payment %s settled concurrently: %w", paymentID, entity.ErrPaymentConflict)
	}
	payment.Status = entity.PaymentStatusFailed

	metrics.PaymentsTotal.WithLabelValues(string(payment.Status)).Inc()
	publish(ctx, s.events, s.log, paymentEvent(messaging.EventPaymentCancelled, payment))

	s.log.Info("Payment cancelled",
		zap.String("payment_id", paymentID.String()),
		zap.String("requester_id", requesterID.String()),
	)
	return nil
}
