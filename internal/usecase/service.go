package usecase

import (
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/gateway"
	"travel-booking/pkg/messaging"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reservation ReservationService
	Payment     PaymentService
	Catalog     CatalogService
}

func NewService(repo *repository.Repository, gw gateway.Gateway, events messaging.Publisher, config *utils.Config, log *zap.Logger) *Service {
	reservation := NewReservationService(repo, config, events, log)
	return &Service{
		Reservation: reservation,
		Payment:     NewPaymentService(repo, reservation, gw, config, events, log),
		Catalog:     NewCatalogService(repo, log),
	}
}
