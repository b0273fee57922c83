package adaptor

import (
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking *BookingHandler
	Payment *PaymentHandler
	Catalog *CatalogHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Reservation, log),
		Payment: NewPaymentHandler(service.Payment, config.Gateway.KeyID, log),
		Catalog: NewCatalogHandler(service.Catalog, log),
	}
}
