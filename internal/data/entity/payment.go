package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// BookingRefs groups the ids of the bookings a payment settles, by kind.
type BookingRefs struct {
	Hotel    []uuid.UUID `json:"hotel_booking_ids"`
	Cab      []uuid.UUID `json:"cab_booking_ids"`
	Activity []uuid.UUID `json:"activity_booking_ids"`
}

// Groups returns the refs keyed by booking kind in settlement order.
func (r BookingRefs) Groups() []BookingGroup {
	return []BookingGroup{
		{Kind: KindHotelRoom, IDs: r.Hotel},
		{Kind: KindCabTrip, IDs: r.Cab},
		{Kind: KindActivitySlot, IDs: r.Activity},
	}
}

// Len returns the number of referenced bookings.
func (r BookingRefs) Len() int {
	return len(r.Hotel) + len(r.Cab) + len(r.Activity)
}

// Add appends id to the group for kind. Non-payable kinds are ignored.
func (r *BookingRefs) Add(kind BookingKind, id uuid.UUID) {
	switch kind {
	case KindHotelRoom:
		r.Hotel = append(r.Hotel, id)
	case KindCabTrip:
		r.Cab = append(r.Cab, id)
	case KindActivitySlot:
		r.Activity = append(r.Activity, id)
	}
}

type BookingGroup struct {
	Kind BookingKind
	IDs  []uuid.UUID
}

type Payment struct {
	BaseNoDelete
	RequesterID      uuid.UUID     `db:"requester_id"`
	Amount           float64       `db:"amount"`
	Currency         string        `db:"currency"`
	Status           PaymentStatus `db:"status"`
	GatewayOrderID   string        `db:"gateway_order_id"`
	GatewayPaymentID *string       `db:"gateway_payment_id"`
	GatewaySignature *string       `db:"gateway_signature"`
	Receipt          string        `db:"receipt"`
	Bookings         BookingRefs   `db:"-"`
	PaidAt           *time.Time    `db:"paid_at"`
}
