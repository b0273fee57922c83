package response

import (
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/utils"
)

type PaymentResponse struct {
	ID                 string               `json:"id"`
	RequesterID        string               `json:"requester_id"`
	Amount             float64              `json:"amount"`
	Currency           string               `json:"currency"`
	Status             entity.PaymentStatus `json:"status"`
	GatewayOrderID     string               `json:"gateway_order_id"`
	GatewayPaymentID   *string              `json:"gateway_payment_id,omitempty"`
	Receipt            string               `json:"receipt"`
	HotelBookingIDs    []string             `json:"hotel_booking_ids"`
	CabBookingIDs      []string             `json:"cab_booking_ids"`
	ActivityBookingIDs []string             `json:"activity_booking_ids"`
	PaidAt             *time.Time           `json:"paid_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

// PaymentOrderResponse carries what the client needs to open the gateway checkout.
type PaymentOrderResponse struct {
	PaymentResponse
	KeyID       string `json:"key_id"`
	AmountMinor int64  `json:"amount_minor"`
}

type PendingPaymentExistsResponse struct {
	HasPending bool `json:"has_pending"`
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                 payment.ID.String(),
		RequesterID:        payment.RequesterID.String(),
		Amount:             payment.Amount,
		Currency:           payment.Currency,
		Status:             payment.Status,
		GatewayOrderID:     payment.GatewayOrderID,
		GatewayPaymentID:   payment.GatewayPaymentID,
		Receipt:            payment.Receipt,
		HotelBookingIDs:    idStrings(payment.Bookings.Hotel),
		CabBookingIDs:      idStrings(payment.Bookings.Cab),
		ActivityBookingIDs: idStrings(payment.Bookings.Activity),
		PaidAt:             payment.PaidAt,
		CreatedAt:          payment.CreatedAt,
	}
}

func PaymentOrderToResponse(payment *entity.Payment, keyID string) PaymentOrderResponse {
	return PaymentOrderResponse{
		PaymentResponse: PaymentToResponse(payment),
		KeyID:           keyID,
		AmountMinor:     utils.ToMinorUnits(payment.Amount),
	}
}

func PaymentsToResponse(payments []*entity.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		out = append(out, PaymentToResponse(payment))
	}
	return out
}
