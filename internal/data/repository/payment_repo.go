package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	// Create persists the payment and its booking references atomically. A second
	// pending payment for the same requester fails with entity.ErrPaymentConflict.
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	FindPendingByRequester(ctx context.Context, requesterID uuid.UUID) (*entity.Payment, error)
	FindByRequester(ctx context.Context, requesterID uuid.UUID) ([]*entity.Payment, error)
	ExistsPendingByRequester(ctx context.Context, requesterID uuid.UUID) (bool, error)

	// MarkSuccess and MarkFailed only act on pending payments and report whether they did.
	MarkSuccess(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, requester_id, amount, currency, status, gateway_order_id, gateway_payment_id,
	gateway_signature, receipt, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.RequesterID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.GatewayOrderID,
		&payment.GatewayPaymentID,
		&payment.GatewaySignature,
		&payment.Receipt,
		&payment.PaidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	err := database.WithTx(ctx, r.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, r.db)

		query := `
			INSERT INTO payments (` + paymentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		if _, err := conn.Exec(ctx, query,
			payment.ID,
			payment.RequesterID,
			payment.Amount,
			payment.Currency,
			payment.Status,
			payment.GatewayOrderID,
			payment.GatewayPaymentID,
			payment.GatewaySignature,
			payment.Receipt,
			payment.PaidAt,
			payment.CreatedAt,
			payment.UpdatedAt,
		); err != nil {
			return err
		}

		position := 0
		for _, group := range payment.Bookings.Groups() {
			for _, bookingID := range group.IDs {
				if _, err := conn.Exec(ctx,
					`INSERT INTO payment_bookings (payment_id, booking_id, kind, position) VALUES ($1, $2, $3, $4)`,
					payment.ID, bookingID, group.Kind, position,
				); err != nil {
					return err
				}
				position++
			}
		}
		return nil
	})

	if database.IsUniqueViolation(err) {
		r.log.Warn("Pending payment already exists",
			zap.String("requester_id", payment.RequesterID.String()),
		)
		return fmt.Errorf("create payment for requester %s: %w", payment.RequesterID, entity.ErrPaymentConflict)
	}
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("requester_id", payment.RequesterID.String()),
		)
		return fmt.Errorf("create payment %s: %w", payment.ID, err)
	}

	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, where string, arg any) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + where

	payment, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadBookings(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) loadBookings(ctx context.Context, payment *entity.Payment) error {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT booking_id, kind FROM payment_bookings WHERE payment_id = $1 ORDER BY position`,
		payment.ID,
	)
	if err != nil {
		return fmt.Errorf("load bookings of payment %s: %w", payment.ID, err)
	}
	defer rows.Close()

	payment.Bookings = entity.BookingRefs{}
	for rows.Next() {
		var (
			bookingID uuid.UUID
			kind      entity.BookingKind
		)
		if err := rows.Scan(&bookingID, &kind); err != nil {
			return fmt.Errorf("scan payment booking row: %w", err)
		}
		payment.Bookings.Add(kind, bookingID)
	}

	return rows.Err()
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	payment, err := r.findOne(ctx, `id = $1`, id)
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id, err)
	}
	return payment, nil
}

func (r *paymentRepository) FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	payment, err := r.findOne(ctx, `gateway_order_id = $1`, orderID)
	if err != nil {
		r.log.Error("Failed to find payment by gateway order ID",
			zap.Error(err),
			zap.String("gateway_order_id", orderID),
		)
		return nil, fmt.Errorf("find payment by gateway order ID %s: %w", orderID, err)
	}
	return payment, nil
}

func (r *paymentRepository) FindPendingByRequester(ctx context.Context, requesterID uuid.UUID) (*entity.Payment, error) {
	payment, err := r.findOne(ctx, `requester_id = $1 AND status = 'pending'`, requesterID)
	if err != nil {
		r.log.Error("Failed to find pending payment",
			zap.Error(err),
			zap.String("requester_id", requesterID.String()),
		)
		return nil, fmt.Errorf("find pending payment of requester %s: %w", requesterID, err)
	}
	return payment, nil
}

func (r *paymentRepository) FindByRequester(ctx context.Context, requesterID uuid.UUID) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE requester_id = $1 ORDER BY created_at DESC`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, requesterID)
	if err != nil {
		r.log.Error("Failed to find payments by requester",
			zap.Error(err),
			zap.String("requester_id", requesterID.String()),
		)
		return nil, fmt.Errorf("find payments by requester %s: %w", requesterID, err)
	}

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			rows.Close()
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments of requester %s: %w", requesterID, err)
	}

	// rows must be closed before the connection is reused for the references
	for _, payment := range payments {
		if err := r.loadBookings(ctx, payment); err != nil {
			r.log.Error("Failed to load payment bookings",
				zap.Error(err),
				zap.String("payment_id", payment.ID.String()),
			)
			return nil, err
		}
	}

	return payments, nil
}

func (r *paymentRepository) ExistsPendingByRequester(ctx context.Context, requesterID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE requester_id = $1 AND status = 'pending')`

	var exists bool
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, requesterID).Scan(&exists); err != nil {
		r.log.Error("Failed to check pending payment",
			zap.Error(err),
			zap.String("requester_id", requesterID.String()),
		)
		return false, fmt.Errorf("check pending payment of requester %s: %w", requesterID, err)
	}

	return exists, nil
}

func (r *paymentRepository) MarkSuccess(ctx context.Context, id uuid.UUID, gatewayPaymentID, signature string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'success', gateway_payment_id = $2, gateway_signature = $3, paid_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, gatewayPaymentID, signature, paidAt)
	if err != nil {
		r.log.Error("Failed to mark payment success",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return false, fmt.Errorf("mark payment %s success: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE payments SET status = 'failed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark payment failed",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return false, fmt.Errorf("mark payment %s failed: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
