package usecase

import (
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/utils"
)

// Pricer computes the price of a reservation from the catalog record.
type Pricer struct {
	cab utils.CabConfig
}

func NewPricer(cab utils.CabConfig) Pricer {
	return Pricer{cab: cab}
}

// ApplyDefaults fills kind-specific fields the fare depends on.
func (p Pricer) ApplyDefaults(kind entity.BookingKind, details *entity.BookingDetails) {
	if kind == entity.KindCabTrip && details.DistanceKm == nil {
		distance := p.cab.DefaultDistanceKm
		details.DistanceKm = &distance
	}
}

func (p Pricer) Price(resource *entity.Resource, qty int, details entity.BookingDetails) (float64, error) {
	switch resource.Kind {
	case entity.KindTourSeat, entity.KindActivitySlot:
		return resource.UnitPrice * float64(qty), nil

	case entity.KindHotelRoom:
		nights, err := Nights(details.CheckIn, details.CheckOut)
		if err != nil {
			return 0, err
		}
		return resource.PricePerNight * float64(nights) * float64(qty), nil

	case entity.KindCabTrip:
		baseFare := p.cab.DefaultBaseFare
		if resource.BaseFare != nil {
			baseFare = *resource.BaseFare
		}
		perKm := p.cab.DefaultPricePerKm
		if resource.PricePerKm != nil {
			perKm = *resource.PricePerKm
		}
		distance := p.cab.DefaultDistanceKm
		if details.DistanceKm != nil {
			distance = *details.DistanceKm
		}
		if distance < 0 {
			return 0, fmt.Errorf("distance %.2f km: %w", distance, entity.ErrInvalidRequest)
		}
		return baseFare + perKm*distance, nil
	}

	return 0, fmt.Errorf("unknown resource kind %q: %w", resource.Kind, entity.ErrInvalidRequest)
}

// Nights counts calendar days between check-in and check-out; it must be positive.
func Nights(checkIn, checkOut *time.Time) (int, error) {
	if checkIn == nil || checkOut == nil {
		return 0, fmt.Errorf("check-in and check-out dates are required: %w", entity.ErrInvalidRequest)
	}

	in := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(checkOut.Year(), checkOut.Month(), checkOut.Day(), 0, 0, 0, 0, time.UTC)
	nights := int(out.Sub(in).Hours() / 24)
	if nights <= 0 {
		return 0, fmt.Errorf("check-out must be after check-in: %w", entity.ErrInvalidRequest)
	}
	return nights, nil
}
