package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

type BookingResponse struct {
	ID          string                `json:"id"`
	Kind        entity.BookingKind    `json:"kind"`
	ResourceID  *string               `json:"resource_id"`
	RequesterID *string               `json:"requester_id"`
	Quantity    int                   `json:"quantity"`
	Price       float64               `json:"price"`
	FinalFare   *float64              `json:"final_fare,omitempty"`
	Status      entity.BookingStatus  `json:"status"`
	Details     entity.BookingDetails `json:"details"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func BookingToResponse(booking *entity.Booking) BookingResponse {
	res := BookingResponse{
		ID:        booking.ID.String(),
		Kind:      booking.Kind,
		Quantity:  booking.Quantity,
		Price:     booking.Price,
		FinalFare: booking.FinalFare,
		Status:    booking.Status,
		Details:   booking.Details,
		CreatedAt: booking.CreatedAt,
		UpdatedAt: booking.UpdatedAt,
	}
	if booking.ResourceID != nil {
		id := booking.ResourceID.String()
		res.ResourceID = &id
	}
	if booking.RequesterID != nil {
		id := booking.RequesterID.String()
		res.RequesterID = &id
	}
	return res
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, BookingToResponse(booking))
	}
	return out
}
