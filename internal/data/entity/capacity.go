package entity

import (
	"time"

	"github.com/google/uuid"
)

type PoolKind string

const (
	// PoolKindCounted is a bounded counter of seats, slots or rooms.
	PoolKindCounted PoolKind = "counted"
	// PoolKindUnit is a single binary unit such as a cab. Available is 1 when free, 0 when claimed.
	PoolKindUnit PoolKind = "unit"
)

// CapacityPool is the availability record of one bookable resource instance.
// Its ID equals the resource ID.
type CapacityPool struct {
	ID        uuid.UUID `db:"id"`
	Kind      PoolKind  `db:"kind"`
	Total     *int      `db:"total"`
	Available int       `db:"available"`
	Version   int64     `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Free reports whether a unit pool is currently unclaimed.
func (p *CapacityPool) Free() bool {
	return p.Available > 0
}
