package request

type CreatePaymentOrderRequest struct {
	HotelBookingIDs    []string `json:"hotel_booking_ids" validate:"omitempty,max=20,dive,uuid4"`
	CabBookingIDs      []string `json:"cab_booking_ids" validate:"omitempty,max=20,dive,uuid4"`
	ActivityBookingIDs []string `json:"activity_booking_ids" validate:"omitempty,max=20,dive,uuid4"`
}

// VerifyPaymentRequest is the success evidence the client relays from the gateway checkout.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required,max=100"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required,max=100"`
	GatewaySignature string `json:"gateway_signature" validate:"required,max=256"`
}
