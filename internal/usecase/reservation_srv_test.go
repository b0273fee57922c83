package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/messaging"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 14, 0, 0, 0, time.UTC)
	return &t
}

func TestReservationService_Reserve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("activity slots are priced per unit and claimed", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		activity := f.addResource(entity.KindActivitySlot, 10, func(r *entity.Resource) { r.UnitPrice = 25 })

		booking, err := svc.Reserve(ctx, ReserveInput{
			Kind: entity.KindActivitySlot, ResourceID: activity, RequesterID: user, Quantity: 4,
		})
		require.NoError(t, err)

		assert.Equal(t, entity.BookingStatusPending, booking.Status)
		assert.Equal(t, 100.0, booking.Price)
		assert.Equal(t, 4, booking.Quantity)
		assert.True(t, booking.OwnedBy(user))
		assert.Equal(t, 6, f.available(activity))
		assert.Equal(t, []string{messaging.EventBookingCreated}, f.events.types())
	})

	t.Run("hotel rooms are priced per night and room", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		hotel := f.addResource(entity.KindHotelRoom, 5, func(r *entity.Resource) { r.PricePerNight = 100 })

		booking, err := svc.Reserve(ctx, ReserveInput{
			Kind: entity.KindHotelRoom, ResourceID: hotel, RequesterID: user, Quantity: 2,
			Details: entity.BookingDetails{RoomType: "deluxe", CheckIn: date(2026, 3, 1), CheckOut: date(2026, 3, 4)},
		})
		require.NoError(t, err)
		assert.Equal(t, 600.0, booking.Price)
		assert.Equal(t, 3, f.available(hotel))
	})

	t.Run("hotel stay without nights is rejected before claiming", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		hotel := f.addResource(entity.KindHotelRoom, 5, func(r *entity.Resource) { r.PricePerNight = 100 })

		_, err := svc.Reserve(ctx, ReserveInput{
			Kind: entity.KindHotelRoom, ResourceID: hotel, RequesterID: user, Quantity: 1,
			Details: entity.BookingDetails{CheckIn: date(2026, 3, 4), CheckOut: date(2026, 3, 4)},
		})
		assert.ErrorIs(t, err, entity.ErrInvalidRequest)
		assert.Equal(t, 5, f.available(hotel))
		assert.Empty(t, f.bookings.bookings)
	})

	t.Run("cab fare falls back to defaults and quantity is one", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		cab := f.addResource(entity.KindCabTrip, 0, nil)

		booking, err := svc.Reserve(ctx, ReserveInput{
			Kind: entity.KindCabTrip, ResourceID: cab, RequesterID: user, Quantity: 3,
			Details: entity.BookingDetails{PickupLocation: "airport", DropLocation: "hotel"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, booking.Quantity)
		assert.Equal(t, 200.0, booking.Price)
		require.NotNil(t, booking.Details.DistanceKm)
		assert.Equal(t, 10.0, *booking.Details.DistanceKm)
		assert.Equal(t, 0, f.available(cab))
	})

	t.Run("claimed cab cannot be booked again", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		cab := f.addResource(entity.KindCabTrip, 0, nil)

		_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindCabTrip, ResourceID: cab, RequesterID: user})
		require.NoError(t, err)

		_, err = svc.Reserve(ctx, ReserveInput{Kind: entity.KindCabTrip, ResourceID: cab, RequesterID: user})
		assert.ErrorIs(t, err, entity.ErrCapacityExceeded)
		assert.Len(t, f.bookings.bookings, 1)
	})

	t.Run("missing references are not found", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 5, nil)

		_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: uuid.New(), RequesterID: user, Quantity: 1})
		assert.ErrorIs(t, err, entity.ErrNotFound)

		_, err = svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: uuid.New(), Quantity: 1})
		assert.ErrorIs(t, err, entity.ErrNotFound)
		assert.Equal(t, 5, f.available(tour))
	})

	t.Run("kind must match the resource", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 5, nil)

		_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindActivitySlot, ResourceID: tour, RequesterID: user, Quantity: 1})
		assert.ErrorIs(t, err, entity.ErrInvalidRequest)
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 5, nil)

		_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: user, Quantity: 0})
		assert.ErrorIs(t, err, entity.ErrInvalidRequest)
	})

	t.Run("over-capacity request creates no booking", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 2, nil)

		_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: user, Quantity: 3})
		assert.ErrorIs(t, err, entity.ErrCapacityExceeded)
		assert.Empty(t, f.bookings.bookings)
		assert.Equal(t, 2, f.available(tour))
	})

	t.Run("claim is released when the booking cannot be stored", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		activity := f.addResource(entity.KindActivitySlot, 4, nil)
		f.bookings.createErr = errors.New("connection reset")

		_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindActivitySlot, ResourceID: activity, RequesterID: user, Quantity: 3})
		require.Error(t, err)
		assert.Equal(t, 4, f.available(activity))
	})

	t.Run("publish failure does not fail the reservation", func(t *testing.T) {
		f := newFixture()
		f.events.err = errors.New("broker down")
		svc := f.reservation()
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 5, nil)

		booking, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: user, Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusPending, booking.Status)
	})
}

func TestReservationService_TourSeatRetries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("three conflicting writers exhaust the retries", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 10, func(r *entity.Resource) { r.UnitPrice = 40 })
		f.capacity.interfere = 3

		booking, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: user, Quantity: 2})
		require.NoError(t, err)

		assert.Equal(t, entity.BookingStatusFailed, booking.Status)
		assert.Nil(t, booking.ResourceID)
		assert.Nil(t, booking.RequesterID)
		assert.Equal(t, 2, booking.Quantity)
		assert.Zero(t, booking.Price)
		assert.Equal(t, 10, f.available(tour))
		assert.Equal(t, 3, f.capacity.claims)
		assert.Equal(t, []string{messaging.EventBookingFailed}, f.events.types())
	})

	t.Run("two conflicting writers still succeed on the third attempt", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 10, func(r *entity.Resource) { r.UnitPrice = 40 })
		f.capacity.interfere = 2

		booking, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: user, Quantity: 2})
		require.NoError(t, err)

		assert.Equal(t, entity.BookingStatusPending, booking.Status)
		assert.Equal(t, 80.0, booking.Price)
		assert.Equal(t, 8, f.available(tour))
		assert.Equal(t, 3, f.capacity.claims)
	})

	t.Run("conditional strategy skips versioning", func(t *testing.T) {
		f := newFixture()
		config := testConfig()
		config.Capacity.TourStrategy = utils.TourStrategyConditional
		svc := NewReservationService(f.repo, config, f.events, zapNop())
		user := f.addUser()
		tour := f.addResource(entity.KindTourSeat, 10, nil)
		f.capacity.interfere = 5

		booking, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: user, Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusPending, booking.Status)
		assert.Equal(t, 5, f.capacity.interfere)
	})
}

func TestReservationService_ConcurrentClaims(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kinds := []entity.BookingKind{entity.KindTourSeat, entity.KindActivitySlot, entity.KindHotelRoom}
	for _, kind := range kinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()

			const capacity, requests, qty = 7, 40, 2
			f := newFixture()
			svc := f.reservation()
			user := f.addUser()
			resource := f.addResource(kind, capacity, func(r *entity.Resource) {
				r.UnitPrice = 10
				r.PricePerNight = 10
			})

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				claimed int
			)
			for i := 0; i < requests; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					booking, err := svc.Reserve(ctx, ReserveInput{
						Kind: kind, ResourceID: resource, RequesterID: user, Quantity: qty,
						Details: entity.BookingDetails{CheckIn: date(2026, 5, 1), CheckOut: date(2026, 5, 2)},
					})
					if err == nil && booking.Status == entity.BookingStatusPending {
						mu.Lock()
						claimed += booking.Quantity
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.LessOrEqual(t, claimed, capacity)
			assert.Equal(t, capacity-claimed, f.available(resource))
			assert.GreaterOrEqual(t, f.available(resource), 0)
		})
	}

	t.Run("one of two overlapping requests wins", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		svc := f.reservation()
		user := f.addUser()
		activity := f.addResource(entity.KindActivitySlot, 5, nil)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Reserve(ctx, ReserveInput{Kind: entity.KindActivitySlot, ResourceID: activity, RequesterID: user, Quantity: 3})
			}(i)
		}
		wg.Wait()

		succeeded, exceeded := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, entity.ErrCapacityExceeded):
				exceeded++
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, exceeded)
		assert.Equal(t, 2, f.available(activity))
	})

	t.Run("many requesters race for one cab", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		svc := f.reservation()
		cab := f.addResource(entity.KindCabTrip, 0, nil)

		var wg sync.WaitGroup
		var mu sync.Mutex
		won := 0
		users := make([]uuid.UUID, 20)
		for i := range users {
			users[i] = f.addUser()
		}
		for _, user := range users {
			user := user
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindCabTrip, ResourceID: cab, RequesterID: user}); err == nil {
					mu.Lock()
					won++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, won)
		assert.Equal(t, 0, f.available(cab))
	})
}

func TestReservationService_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reserve := func(t *testing.T, f *fixture, svc ReservationService, kind entity.BookingKind, capacity, qty int) *entity.Booking {
		t.Helper()
		resource := f.addResource(kind, capacity, func(r *entity.Resource) {
			r.UnitPrice = 10
			r.PricePerNight = 100
		})
		var details entity.BookingDetails
		if kind == entity.KindHotelRoom {
			details.CheckIn, details.CheckOut = date(2026, time.March, 1), date(2026, time.March, 3)
		}
		booking, err := svc.Reserve(ctx, ReserveInput{Kind: kind, ResourceID: resource, RequesterID: f.addUser(), Quantity: qty, Details: details})
		require.NoError(t, err)
		return booking
	}

	t.Run("confirm moves pending to confirmed once", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindActivitySlot, 5, 1)

		confirmed, err := svc.Confirm(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusConfirmed, confirmed.Status)

		_, err = svc.Confirm(ctx, booking.ID)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	})

	t.Run("cancel releases the claim exactly once", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindTourSeat, 5, 2)
		require.Equal(t, 3, f.available(*booking.ResourceID))

		cancelled, err := svc.Cancel(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
		assert.Equal(t, 5, f.available(*booking.ResourceID))

		_, err = svc.Cancel(ctx, booking.ID)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		assert.Equal(t, 5, f.available(*booking.ResourceID))
	})

	t.Run("concurrent cancels release once", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindActivitySlot, 6, 4)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.Cancel(ctx, booking.ID)
			}()
		}
		wg.Wait()

		assert.Equal(t, 6, f.available(*booking.ResourceID))
		assert.Equal(t, entity.BookingStatusCancelled, f.bookings.status(booking.ID))
	})

	t.Run("confirmed bookings can be cancelled", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindHotelRoom, 3, 1)
		_, err := svc.Confirm(ctx, booking.ID)
		require.NoError(t, err)

		require.Equal(t, 2, f.available(*booking.ResourceID))
		assert.Equal(t, 200.0, booking.Price)

		cancelled, err := svc.Cancel(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
		assert.Equal(t, 3, f.available(*booking.ResourceID))
	})

	t.Run("failed release keeps the booking cancellable", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindActivitySlot, 5, 3)
		require.Equal(t, 2, f.available(*booking.ResourceID))

		f.capacity.releaseErr = errors.New("capacity store unavailable")
		_, err := svc.Cancel(ctx, booking.ID)
		require.Error(t, err)
		assert.Equal(t, entity.BookingStatusPending, f.bookings.status(booking.ID))
		assert.Equal(t, 2, f.available(*booking.ResourceID))
		assert.NotContains(t, f.events.types(), messaging.EventBookingCancelled)

		f.capacity.releaseErr = nil
		_, err = svc.Cancel(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCancelled, f.bookings.status(booking.ID))
		assert.Equal(t, 5, f.available(*booking.ResourceID))
	})

	t.Run("failed release restores a confirmed booking", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindHotelRoom, 3, 1)
		_, err := svc.Confirm(ctx, booking.ID)
		require.NoError(t, err)

		f.capacity.releaseErr = errors.New("capacity store unavailable")
		_, err = svc.Cancel(ctx, booking.ID)
		require.Error(t, err)
		assert.Equal(t, entity.BookingStatusConfirmed, f.bookings.status(booking.ID))
		assert.Equal(t, 2, f.available(*booking.ResourceID))
	})

	t.Run("failed release keeps the cab trip open", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindCabTrip, 0, 1)
		_, err := svc.Confirm(ctx, booking.ID)
		require.NoError(t, err)

		f.capacity.releaseErr = errors.New("capacity store unavailable")
		_, err = svc.Complete(ctx, booking.ID, nil)
		require.Error(t, err)
		assert.Equal(t, entity.BookingStatusConfirmed, f.bookings.status(booking.ID))
		assert.Equal(t, 0, f.available(*booking.ResourceID))

		f.capacity.releaseErr = nil
		completed, err := svc.Complete(ctx, booking.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCompleted, completed.Status)
		assert.Equal(t, 1, f.available(*booking.ResourceID))
	})

	t.Run("complete records the fare and frees the cab", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindCabTrip, 0, 1)

		_, err := svc.Complete(ctx, booking.ID, nil)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)

		_, err = svc.Confirm(ctx, booking.ID)
		require.NoError(t, err)

		fare := 180.0
		completed, err := svc.Complete(ctx, booking.ID, &fare)
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCompleted, completed.Status)
		require.NotNil(t, completed.FinalFare)
		assert.Equal(t, 180.0, *completed.FinalFare)
		assert.Equal(t, 1, f.available(*booking.ResourceID))

		_, err = svc.Cancel(ctx, booking.ID)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		assert.Equal(t, 1, f.available(*booking.ResourceID))
	})

	t.Run("complete defaults to the estimated fare", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindCabTrip, 0, 1)
		_, err := svc.Confirm(ctx, booking.ID)
		require.NoError(t, err)

		completed, err := svc.Complete(ctx, booking.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, booking.Price, *completed.FinalFare)
	})

	t.Run("only cabs complete", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		booking := reserve(t, f, svc, entity.KindTourSeat, 3, 1)
		_, err := svc.Confirm(ctx, booking.ID)
		require.NoError(t, err)

		_, err = svc.Complete(ctx, booking.ID, nil)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	})

	t.Run("failed bookings stay terminal", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()
		tour := f.addResource(entity.KindTourSeat, 3, nil)
		f.capacity.interfere = 3
		booking, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: f.addUser(), Quantity: 1})
		require.NoError(t, err)
		require.Equal(t, entity.BookingStatusFailed, booking.Status)

		_, err = svc.Confirm(ctx, booking.ID)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		_, err = svc.Cancel(ctx, booking.ID)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
		assert.Equal(t, 3, f.available(tour))
	})

	t.Run("unknown booking is not found", func(t *testing.T) {
		f := newFixture()
		svc := f.reservation()

		_, err := svc.Cancel(ctx, uuid.New())
		assert.ErrorIs(t, err, entity.ErrNotFound)
		_, err = svc.GetBooking(ctx, uuid.New())
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})
}

func TestReservationService_ListUserBookings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture()
	svc := f.reservation()
	user := f.addUser()
	tour := f.addResource(entity.KindTourSeat, 10, nil)
	for i := 0; i < 3; i++ {
		_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: user, Quantity: 1})
		require.NoError(t, err)
	}
	_, err := svc.Reserve(ctx, ReserveInput{Kind: entity.KindTourSeat, ResourceID: tour, RequesterID: f.addUser(), Quantity: 1})
	require.NoError(t, err)

	bookings, total, err := svc.ListUserBookings(ctx, user, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, bookings, 2)
}
