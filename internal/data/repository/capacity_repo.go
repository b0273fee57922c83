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

// CapacityStore is the only writer of pool availability. Every claim is a single
// atomic check-and-decrement at the storage layer; callers never read-modify-write.
//
// Claim methods report false when there is not enough availability (or the pool
// does not exist); errors are reserved for storage failures.
type CapacityStore interface {
	Register(ctx context.Context, pool *entity.CapacityPool) error
	Get(ctx context.Context, id uuid.UUID) (*entity.CapacityPool, error)
	// Remove drops a pool whose resource registration did not commit. Missing pools are ignored.
	Remove(ctx context.Context, id uuid.UUID) error

	// Counted pools
	Claim(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	ClaimVersioned(ctx context.Context, id uuid.UUID, qty int, version int64) (bool, error)
	Release(ctx context.Context, id uuid.UUID, qty int) error

	// Unit pools
	ClaimUnit(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseUnit(ctx context.Context, id uuid.UUID) error
}

type capacityRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCapacityRepository(db database.PgxIface, log *zap.Logger) CapacityStore {
	return &capacityRepository{
		db:  db,
		log: log.With(zap.String("repository", "capacity")),
	}
}

func (r *capacityRepository) Register(ctx context.Context, pool *entity.CapacityPool) error {
	query := `
		INSERT INTO capacity_pools (id, kind, total, available, version, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW())
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query, pool.ID, pool.Kind, pool.Total, pool.Available)
	if err != nil {
		r.log.Error("Failed to register capacity pool",
			zap.Error(err),
			zap.String("pool_id", pool.ID.String()),
			zap.String("kind", string(pool.Kind)),
		)
		return fmt.Errorf("register capacity pool %s: %w", pool.ID, err)
	}

	return nil
}

func (r *capacityRepository) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM capacity_pools WHERE id = $1`, id); err != nil {
		r.log.Error("Failed to remove capacity pool",
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return fmt.Errorf("remove capacity pool %s: %w", id, err)
	}
	return nil
}

func (r *capacityRepository) Get(ctx context.Context, id uuid.UUID) (*entity.CapacityPool, error) {
	query := `
		SELECT id, kind, total, available, version, updated_at
		FROM capacity_pools
		WHERE id = $1
	`

	var pool entity.CapacityPool
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&pool.ID,
		&pool.Kind,
		&pool.Total,
		&pool.Available,
		&pool.Version,
		&pool.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to get capacity pool",
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return nil, fmt.Errorf("get capacity pool %s: %w", id, err)
	}

	return &pool, nil
}

func (r *capacityRepository) Claim(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	query := `
		UPDATE capacity_pools
		SET available = available - $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND kind = 'counted' AND available >= $2
	`

	return r.claim(ctx, "claim", id, query, id, qty)
}

func (r *capacityRepository) ClaimVersioned(ctx context.Context, id uuid.UUID, qty int, version int64) (bool, error) {
	query := `
		UPDATE capacity_pools
		SET available = available - $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND kind = 'counted' AND version = $3 AND available >= $2
	`

	return r.claim(ctx, "versioned claim", id, query, id, qty, version)
}

func (r *capacityRepository) ClaimUnit(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE capacity_pools
		SET available = 0, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND kind = 'unit' AND available = 1
	`

	return r.claim(ctx, "unit claim", id, query, id)
}

func (r *capacityRepository) claim(ctx context.Context, op string, id uuid.UUID, query string, args ...any) (bool, error) {
	result, err := database.Conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op,
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return false, fmt.Errorf("%s on pool %s: %w", op, id, err)
	}

	return result.RowsAffected() == 1, nil
}

// Release never lifts availability above total.
func (r *capacityRepository) Release(ctx context.Context, id uuid.UUID, qty int) error {
	query := `
		UPDATE capacity_pools
		SET available = CASE WHEN total IS NULL THEN available + $2 ELSE LEAST(total, available + $2) END,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND kind = 'counted'
	`

	return r.release(ctx, "release", id, query, id, qty)
}

func (r *capacityRepository) ReleaseUnit(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE capacity_pools
		SET available = 1, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND kind = 'unit'
	`

	return r.release(ctx, "unit release", id, query, id)
}

func (r *capacityRepository) release(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op,
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return fmt.Errorf("%s on pool %s: %w", op, id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("capacity pool %s: %w", id, entity.ErrNotFound)
	}

	return nil
}
