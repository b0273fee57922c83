package response

import (
	"time"

	"travel-booking/internal/data/entity"

	"github.com/google/uuid"
)

type AvailabilityResponse struct {
	ResourceID string          `json:"resource_id"`
	PoolKind   entity.PoolKind `json:"pool_kind"`
	Total      *int            `json:"total,omitempty"`
	Available  int             `json:"available"`
	Free       bool            `json:"free"`
	Version    int64           `json:"version"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ResourceResponse struct {
	ID            string               `json:"id"`
	Kind          entity.BookingKind   `json:"kind"`
	Name          string               `json:"name"`
	UnitPrice     float64              `json:"unit_price,omitempty"`
	PricePerNight float64              `json:"price_per_night,omitempty"`
	BaseFare      *float64             `json:"base_fare,omitempty"`
	PricePerKm    *float64             `json:"price_per_km,omitempty"`
	Availability  AvailabilityResponse `json:"availability"`
	CreatedAt     time.Time            `json:"created_at"`
}

func AvailabilityToResponse(pool *entity.CapacityPool) AvailabilityResponse {
	return AvailabilityResponse{
		ResourceID: pool.ID.String(),
		PoolKind:   pool.Kind,
		Total:      pool.Total,
		Available:  pool.Available,
		Free:       pool.Free(),
		Version:    pool.Version,
		UpdatedAt:  pool.UpdatedAt,
	}
}

func ResourceToResponse(resource *entity.Resource, pool *entity.CapacityPool) ResourceResponse {
	return ResourceResponse{
		ID:            resource.ID.String(),
		Kind:          resource.Kind,
		Name:          resource.Name,
		UnitPrice:     resource.UnitPrice,
		PricePerNight: resource.PricePerNight,
		BaseFare:      resource.BaseFare,
		PricePerKm:    resource.PricePerKm,
		Availability:  AvailabilityToResponse(pool),
		CreatedAt:     resource.CreatedAt,
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
