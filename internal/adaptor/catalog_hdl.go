package adaptor

import (
	"encoding/json"
	"net/http"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type CatalogHandler struct {
	service usecase.CatalogService
	log     *zap.Logger
}

func NewCatalogHandler(service usecase.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log.With(zap.String("handler", "catalog")),
	}
}

// RegisterResource handles POST /api/admin/resources (admin only)
func (h *CatalogHandler) RegisterResource(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resource, pool, err := h.service.RegisterResource(r.Context(), usecase.RegisterResourceInput{
		Kind:          entity.BookingKind(req.Kind),
		Name:          req.Name,
		UnitPrice:     req.UnitPrice,
		PricePerNight: req.PricePerNight,
		BaseFare:      req.BaseFare,
		PricePerKm:    req.PricePerKm,
		Capacity:      req.Capacity,
	})
	if err != nil {
		handleServiceError(w, h.log, err, "register resource")
		return
	}

	utils.ResponseCreated(w, "success", response.ResourceToResponse(resource, pool))
}

// GetAvailability handles GET /api/resources/{id}/availability (public)
func (h *CatalogHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := parseIDParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid resource ID", nil)
		return
	}

	pool, err := h.service.GetAvailability(r.Context(), resourceID)
	if err != nil {
		handleServiceError(w, h.log, err, "get availability")
		return
	}

	utils.ResponseSuccess(w, "success", response.AvailabilityToResponse(pool))
}
