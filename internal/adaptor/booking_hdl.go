package adaptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	service usecase.ReservationService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.ReservationService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings (protected)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	details, err := bookingDetails(req)
	if err != nil {
		utils.ResponseBadRequest(w, err.Error(), nil)
		return
	}

	booking, err := h.service.Reserve(r.Context(), usecase.ReserveInput{
		Kind:        entity.BookingKind(req.Kind),
		ResourceID:  uuid.MustParse(req.ResourceID),
		RequesterID: userID,
		Quantity:    req.Quantity,
		Details:     details,
	})
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}

	// exhausted retries are a recorded outcome, not an error
	if booking.Status == entity.BookingStatusFailed {
		utils.ResponseJSON(w, http.StatusConflict, false, "Booking failed due to concurrent demand, please retry", response.BookingToResponse(booking), nil)
		return
	}

	utils.ResponseCreated(w, "success", response.BookingToResponse(booking))
}

func bookingDetails(req request.CreateBookingRequest) (entity.BookingDetails, error) {
	details := entity.BookingDetails{
		RoomType:       req.RoomType,
		PickupLocation: req.PickupLocation,
		DropLocation:   req.DropLocation,
		DistanceKm:     req.DistanceKm,
	}

	var err error
	if details.TravelDate, err = parseTime(dateLayout, req.TravelDate); err != nil {
		return details, errors.New("invalid travel_date")
	}
	if details.CheckIn, err = parseTime(dateLayout, req.CheckIn); err != nil {
		return details, errors.New("invalid check_in")
	}
	if details.CheckOut, err = parseTime(dateLayout, req.CheckOut); err != nil {
		return details, errors.New("invalid check_out")
	}
	if details.PickupTime, err = parseTime(time.RFC3339, req.PickupTime); err != nil {
		return details, errors.New("invalid pickup_time")
	}
	return details, nil
}

func parseTime(layout, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetUserBookings handles GET /api/bookings (protected)
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, total, err := h.service.ListUserBookings(r.Context(), userID, req.Limit(), req.Offset())
	if err != nil {
		handleServiceError(w, h.log, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success",
		response.NewPaginatedResponse(response.BookingsToResponse(bookings), req.Page, req.Limit(), total))
}

// GetBooking handles GET /api/bookings/{id} (owner or admin)
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.ownedBooking(w, r, "get booking")
	if !ok {
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}

// CancelOwnBooking handles PUT /api/bookings/{id}/cancel (owner)
func (h *BookingHandler) CancelOwnBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.ownedBooking(w, r, "cancel booking")
	if !ok {
		return
	}

	cancelled, err := h.service.Cancel(r.Context(), booking.ID)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(cancelled))
}

func (h *BookingHandler) ownedBooking(w http.ResponseWriter, r *http.Request, operation string) (*entity.Booking, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return nil, false
	}

	bookingID, ok := parseIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return nil, false
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, operation)
		return nil, false
	}

	if !booking.OwnedBy(userID) && !isAdmin(r) {
		handleServiceError(w, h.log, fmt.Errorf("booking %s: %w", bookingID, entity.ErrUnauthorized), operation)
		return nil, false
	}
	return booking, true
}

// ==================== ADMIN METHODS ====================

// ConfirmBooking handles PUT /api/admin/bookings/{id}/confirm (admin only)
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := parseIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	booking, err := h.service.Confirm(r.Context(), bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "confirm booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}

// CancelBooking handles PUT /api/admin/bookings/{id}/cancel (admin only)
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := parseIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	booking, err := h.service.Cancel(r.Context(), bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}

// CompleteBooking handles PUT /api/admin/bookings/{id}/complete (admin only, cab trips)
func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := parseIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	var req request.CompleteBookingRequest
	// the body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.service.Complete(r.Context(), bookingID, req.FinalFare)
	if err != nil {
		handleServiceError(w, h.log, err, "complete booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking))
}
