package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingKind string

const (
	KindTourSeat     BookingKind = "tour_seat"
	KindActivitySlot BookingKind = "activity_slot"
	KindHotelRoom    BookingKind = "hotel_room"
	KindCabTrip      BookingKind = "cab_trip"
)

// Valid reports whether k is one of the four bookable kinds.
func (k BookingKind) Valid() bool {
	switch k {
	case KindTourSeat, KindActivitySlot, KindHotelRoom, KindCabTrip:
		return true
	}
	return false
}

// Payable reports whether bookings of this kind are settled through a payment order.
// Tour seats are not payment-gated.
func (k BookingKind) Payable() bool {
	return k == KindActivitySlot || k == KindHotelRoom || k == KindCabTrip
}

// PoolKind returns the capacity pool shape backing this booking kind.
func (k BookingKind) PoolKind() PoolKind {
	if k == KindCabTrip {
		return PoolKindUnit
	}
	return PoolKindCounted
}

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusFailed    BookingStatus = "failed"
)

// cancellableFrom lists the statuses a cancel may start from.
var cancellableFrom = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// CancellableStatuses returns a copy of the statuses a cancel may start from.
func CancellableStatuses() []BookingStatus {
	out := make([]BookingStatus, len(cancellableFrom))
	copy(out, cancellableFrom)
	return out
}

// CanTransition reports whether a booking of kind k may move from one status to another.
func CanTransition(k BookingKind, from, to BookingStatus) bool {
	switch to {
	case BookingStatusConfirmed:
		return from == BookingStatusPending
	case BookingStatusCancelled:
		return from == BookingStatusPending || from == BookingStatusConfirmed
	case BookingStatusCompleted:
		return k == KindCabTrip && from == BookingStatusConfirmed
	}
	return false
}

// BookingDetails carries the kind-specific payload of a booking.
// Only the fields relevant to the booking's kind are set.
type BookingDetails struct {
	// tour seats and activity slots
	TravelDate *time.Time `json:"travel_date,omitempty"`

	// hotel rooms
	RoomType string     `json:"room_type,omitempty"`
	CheckIn  *time.Time `json:"check_in,omitempty"`
	CheckOut *time.Time `json:"check_out,omitempty"`

	// cab trips
	PickupLocation string     `json:"pickup_location,omitempty"`
	DropLocation   string     `json:"drop_location,omitempty"`
	DistanceKm     *float64   `json:"distance_km,omitempty"`
	PickupTime     *time.Time `json:"pickup_time,omitempty"`
}

// Booking is one reservation of a resource. Kind, ResourceID, RequesterID and
// Quantity are fixed at creation; only Status (and FinalFare on completion) change.
// FAILED bookings carry no resource or requester reference.
type Booking struct {
	BaseNoDelete
	Kind        BookingKind    `db:"kind"`
	ResourceID  *uuid.UUID     `db:"resource_id"`
	RequesterID *uuid.UUID     `db:"requester_id"`
	Quantity    int            `db:"quantity"`
	Price       float64        `db:"price"`
	FinalFare   *float64       `db:"final_fare"`
	Status      BookingStatus  `db:"status"`
	Details     BookingDetails `db:"details"`
}

// OwnedBy reports whether the booking belongs to the given requester.
func (b *Booking) OwnedBy(requesterID uuid.UUID) bool {
	return b.RequesterID != nil && *b.RequesterID == requesterID
}
