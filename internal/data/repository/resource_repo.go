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

// ResourceRepository reads the catalog records the reservation flow prices against.
type ResourceRepository interface {
	Create(ctx context.Context, resource *entity.Resource) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Resource, error)
}

type resourceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewResourceRepository(db database.PgxIface, log *zap.Logger) ResourceRepository {
	return &resourceRepository{
		db:  db,
		log: log.With(zap.String("repository", "resource")),
	}
}

func (r *resourceRepository) Create(ctx context.Context, resource *entity.Resource) error {
	query := `
		INSERT INTO resources (id, kind, name, unit_price, price_per_night, base_fare, price_per_km, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		resource.ID,
		resource.Kind,
		resource.Name,
		resource.UnitPrice,
		resource.PricePerNight,
		resource.BaseFare,
		resource.PricePerKm,
		resource.CreatedAt,
		resource.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create resource",
			zap.Error(err),
			zap.String("kind", string(resource.Kind)),
			zap.String("name", resource.Name),
		)
		return fmt.Errorf("create resource %s: %w", resource.Name, err)
	}

	return nil
}

func (r *resourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Resource, error) {
	query := `
		SELECT id, kind, name, unit_price, price_per_night, base_fare, price_per_km, created_at, updated_at
		FROM resources
		WHERE id = $1
	`

	var resource entity.Resource
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&resource.ID,
		&resource.Kind,
		&resource.Name,
		&resource.UnitPrice,
		&resource.PricePerNight,
		&resource.BaseFare,
		&resource.PricePerKm,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find resource by ID",
			zap.Error(err),
			zap.String("resource_id", id.String()),
		)
		return nil, fmt.Errorf("find resource by ID %s: %w", id.String(), err)
	}

	return &resource, nil
}
