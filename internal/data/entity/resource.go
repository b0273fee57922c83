package entity

// Resource is the catalog record of a bookable item. Its pricing fields are
// read by the reservation flow; each kind uses its own subset.
type Resource struct {
	BaseNoDelete
	Kind          BookingKind `db:"kind"`
	Name          string      `db:"name"`
	UnitPrice     float64     `db:"unit_price"`      // tour seat, activity slot
	PricePerNight float64     `db:"price_per_night"` // hotel room
	BaseFare      *float64    `db:"base_fare"`       // cab
	PricePerKm    *float64    `db:"price_per_km"`    // cab
}
