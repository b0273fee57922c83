package request

type RegisterResourceRequest struct {
	Kind          string   `json:"kind" validate:"required,oneof=tour_seat activity_slot hotel_room cab_trip"`
	Name          string   `json:"name" validate:"required,min=2,max=200"`
	UnitPrice     float64  `json:"unit_price" validate:"gte=0"`
	PricePerNight float64  `json:"price_per_night" validate:"gte=0"`
	BaseFare      *float64 `json:"base_fare,omitempty" validate:"omitempty,gte=0"`
	PricePerKm    *float64 `json:"price_per_km,omitempty" validate:"omitempty,gte=0"`
	Capacity      int      `json:"capacity" validate:"required_unless=Kind cab_trip,gte=0,max=100000"`
}
