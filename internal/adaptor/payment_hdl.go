package adaptor

import (
	"encoding/json"
	"net/http"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	keyID   string
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, keyID string, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		keyID:   keyID,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreateOrder handles POST /api/payments/orders (protected)
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreatePaymentOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	var refs entity.BookingRefs
	addRefs(&refs, entity.KindHotelRoom, req.HotelBookingIDs)
	addRefs(&refs, entity.KindCabTrip, req.CabBookingIDs)
	addRefs(&refs, entity.KindActivitySlot, req.ActivityBookingIDs)

	payment, err := h.service.CreateOrder(r.Context(), userID, refs)
	if err != nil {
		handleServiceError(w, h.log, err, "create payment order")
		return
	}

	utils.ResponseCreated(w, "success", response.PaymentOrderToResponse(payment, h.keyID))
}

// ids are validated as uuid4 before this runs
func addRefs(refs *entity.BookingRefs, kind entity.BookingKind, ids []string) {
	for _, id := range ids {
		refs.Add(kind, uuid.MustParse(id))
	}
}

// VerifyPayment handles POST /api/payments/verify (protected)
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.Verify(r.Context(), userID, req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature)
	if err != nil {
		handleServiceError(w, h.log, err, "verify payment")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentToResponse(payment))
}

// CancelPayment handles PUT /api/payments/{id}/cancel (owner)
func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	paymentID, ok := parseIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid payment ID", nil)
		return
	}

	if err := h.service.Cancel(r.Context(), paymentID, userID); err != nil {
		handleServiceError(w, h.log, err, "cancel payment")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// GetUserPayments handles GET /api/payments (protected)
func (h *PaymentHandler) GetUserPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payments, err := h.service.ListUserPayments(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.log, err, "get user payments")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentsToResponse(payments))
}

// GetPendingPayment handles GET /api/payments/pending (protected)
func (h *PaymentHandler) GetPendingPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.GetPendingPayment(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.log, err, "get pending payment")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentToResponse(payment))
}

// HasPendingPayment handles GET /api/payments/pending/exists (protected)
func (h *PaymentHandler) HasPendingPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	pending, err := h.service.HasPendingPayment(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.log, err, "check pending payment")
		return
	}

	utils.ResponseSuccess(w, "success", response.PendingPaymentExistsResponse{HasPending: pending})
}
