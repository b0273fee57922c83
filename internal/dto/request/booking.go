package request

// CreateBookingRequest reserves capacity on one resource. Only the fields of the
// chosen kind are read; quantity is ignored for cab trips.
type CreateBookingRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=tour_seat activity_slot hotel_room cab_trip"`
	ResourceID string `json:"resource_id" validate:"required,uuid4"`
	Quantity   int    `json:"quantity" validate:"omitempty,min=1,max=50"`

	TravelDate string `json:"travel_date,omitempty" validate:"omitempty,datetime=2006-01-02"`

	RoomType string `json:"room_type,omitempty" validate:"omitempty,max=50"`
	CheckIn  string `json:"check_in,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CheckOut string `json:"check_out,omitempty" validate:"omitempty,datetime=2006-01-02"`

	PickupLocation string   `json:"pickup_location,omitempty" validate:"required_if=Kind cab_trip,max=255"`
	DropLocation   string   `json:"drop_location,omitempty" validate:"required_if=Kind cab_trip,max=255"`
	DistanceKm     *float64 `json:"distance_km,omitempty" validate:"omitempty,gte=0,lte=5000"`
	PickupTime     string   `json:"pickup_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type CompleteBookingRequest struct {
	FinalFare *float64 `json:"final_fare,omitempty" validate:"omitempty,gte=0"`
}
