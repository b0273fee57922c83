package repository

import (
	"context"
	"errors"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByRequester(ctx context.Context, requesterID uuid.UUID) (int64, error)

	// TransitionStatus moves the booking to `to` only if its current status is one
	// of `from`. It reports false when the guard did not match (or the booking is
	// missing), which makes repeated transitions no-ops.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error)

	// Complete moves a confirmed cab booking to completed and records the final fare.
	Complete(ctx context.Context, id uuid.UUID, finalFare float64) (bool, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, kind, resource_id, requester_id, quantity, price, final_fare, status, details, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.Kind,
		&booking.ResourceID,
		&booking.RequesterID,
		&booking.Quantity,
		&booking.Price,
		&booking.FinalFare,
		&booking.Status,
		&booking.Details,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.Kind,
		booking.ResourceID,
		booking.RequesterID,
		booking.Quantity,
		booking.Price,
		booking.FinalFare,
		booking.Status,
		booking.Details,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("kind", string(booking.Kind)),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, requesterID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by requester",
			zap.Error(err),
			zap.String("requester_id", requesterID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by requester %s: %w", requesterID, err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) CountByRequester(ctx context.Context, requesterID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE requester_id = $1`

	var count int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, requesterID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by requester",
			zap.Error(err),
			zap.String("requester_id", requesterID.String()),
		)
		return 0, fmt.Errorf("count bookings by requester %s: %w", requesterID, err)
	}

	return count, nil
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.BookingStatus, to entity.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1 AND status = ANY($3)`

	allowed := make([]string, len(from))
	for i, status := range from {
		allowed[i] = string(status)
	}

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, to, allowed)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("status", string(to)),
		)
		return false, fmt.Errorf("update booking %s status to %s: %w", id, to, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) Complete(ctx context.Context, id uuid.UUID, finalFare float64) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', final_fare = $2, updated_at = NOW()
		WHERE id = $1 AND kind = 'cab_trip' AND status = 'confirmed'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, finalFare)
	if err != nil {
		r.log.Error("Failed to complete booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("complete booking %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
