package repository

import (
	"context"

	"travel-booking/pkg/database"

	"go.uber.org/zap"
)

// Transactor groups repository calls into one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository struct {
	User     UserRepository
	Session  SessionRepository
	Resource ResourceRepository
	Capacity CapacityStore
	Booking  BookingRepository
	Payment  PaymentRepository
	Tx       Transactor
}

// NewRepository builds the Postgres repositories. Capacity defaults to Postgres and
// may be replaced with NewRedisCapacityStore.
func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:     NewUserRepository(db, log),
		Session:  NewSessionRepository(db, log),
		Resource: NewResourceRepository(db, log),
		Capacity: NewCapacityRepository(db, log),
		Booking:  NewBookingRepository(db, log),
		Payment:  NewPaymentRepository(db, log),
		Tx:       pgTransactor{db: db},
	}
}

type pgTransactor struct {
	db database.PgxIface
}

func (t pgTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, t.db, fn)
}
