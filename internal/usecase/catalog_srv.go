package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegisterResourceInput struct {
	Kind          entity.BookingKind
	Name          string
	UnitPrice     float64
	PricePerNight float64
	BaseFare      *float64
	PricePerKm    *float64
	// Capacity is ignored for cabs, which are always a single unit.
	Capacity int
}

type CatalogService interface {
	RegisterResource(ctx context.Context, in RegisterResourceInput) (*entity.Resource, *entity.CapacityPool, error)
	GetAvailability(ctx context.Context, resourceID uuid.UUID) (*entity.CapacityPool, error)
}

type catalogService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewCatalogService(repo *repository.Repository, log *zap.Logger) CatalogService {
	return &catalogService{
		repo: repo,
		log:  log.With(zap.String("service", "catalog")),
	}
}

func (s *catalogService) RegisterResource(ctx context.Context, in RegisterResourceInput) (*entity.Resource, *entity.CapacityPool, error) {
	if !in.Kind.Valid() {
		return nil, nil, fmt.Errorf("resource kind %q: %w", in.Kind, entity.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, fmt.Errorf("resource name is required: %w", entity.ErrInvalidRequest)
	}

	now := time.Now()
	resource := &entity.Resource{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Kind:          in.Kind,
		Name:          in.Name,
		UnitPrice:     in.UnitPrice,
		PricePerNight: in.PricePerNight,
		BaseFare:      in.BaseFare,
		PricePerKm:    in.PricePerKm,
	}

	pool, err := newPool(resource.ID, in.Kind, in.Capacity)
	if err != nil {
		return nil, nil, err
	}

	registered := false
	err = s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Resource.Create(ctx, resource); err != nil {
			return err
		}
		if err := s.repo.Capacity.Register(ctx, pool); err != nil {
			return err
		}
		registered = true
		return nil
	})
	if err != nil {
		// a store outside the database keeps the pool after a rollback
		if registered {
			if removeErr := s.repo.Capacity.Remove(ctx, pool.ID); removeErr != nil {
				s.log.Error("Failed to remove pool of uncommitted resource",
					zap.Error(removeErr),
					zap.String("resource_id", resource.ID.String()),
				)
			}
		}
		return nil, nil, fmt.Errorf("register resource: %w", err)
	}

	s.log.Info("Resource registered",
		zap.String("resource_id", resource.ID.String()),
		zap.String("kind", string(resource.Kind)),
		zap.String("name", resource.Name),
		zap.Int("available", pool.Available),
	)
	return resource, pool, nil
}

func newPool(id uuid.UUID, kind entity.BookingKind, capacity int) (*entity.CapacityPool, error) {
	total := 1
	if kind.PoolKind() == entity.PoolKindCounted {
		if capacity <= 0 {
			return nil, fmt.Errorf("capacity %d: %w", capacity, entity.ErrInvalidRequest)
		}
		total = capacity
	}

	return &entity.CapacityPool{
		ID:        id,
		Kind:      kind.PoolKind(),
		Total:     &total,
		Available: total,
		UpdatedAt: time.Now(),
	}, nil
}

func (s *catalogService) GetAvailability(ctx context.Context, resourceID uuid.UUID) (*entity.CapacityPool, error) {
	pool, err := s.repo.Capacity.Get(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("read capacity of %s: %w", resourceID, err)
	}
	if pool == nil {
		return nil, fmt.Errorf("capacity pool %s: %w", resourceID, entity.ErrNotFound)
	}
	return pool, nil
}
