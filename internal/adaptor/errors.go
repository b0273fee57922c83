package adaptor

import (
	"errors"
	"net/http"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleServiceError maps domain errors onto HTTP responses.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	fields := []zap.Field{zap.Error(err), zap.String("operation", operation)}

	switch {
	case errors.Is(err, entity.ErrNotFound):
		log.Warn(operation+" failed - not found", fields...)
		utils.ResponseNotFound(w, "Not found")

	case errors.Is(err, entity.ErrInvalidRequest):
		log.Warn("Invalid input for "+operation, fields...)
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, entity.ErrInvalidSignature):
		log.Warn(operation+" failed - invalid signature", fields...)
		utils.ResponseBadRequest(w, "Invalid payment signature", nil)

	case errors.Is(err, entity.ErrCapacityExceeded):
		log.Info(operation+" failed - capacity exceeded", fields...)
		utils.ResponseConflict(w, "Not enough availability")

	case errors.Is(err, entity.ErrInvalidTransition):
		log.Warn(operation+" failed - invalid state", fields...)
		utils.ResponseConflict(w, "Booking is not in a state that allows this action")

	case errors.Is(err, entity.ErrPaymentConflict):
		log.Warn(operation+" failed - payment conflict", fields...)
		utils.ResponseConflict(w, "A pending payment already exists or the payment is already settled")

	case errors.Is(err, entity.ErrUnauthorized):
		log.Warn(operation+" failed - not owner", fields...)
		utils.ResponseForbidden(w, "You do not have access to this resource")

	default:
		log.Error("Failed to "+operation, fields...)
		utils.ResponseInternalError(w, "Internal server error")
	}
}

func parseIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func isAdmin(r *http.Request) bool {
	role, ok := utils.GetRoleFromContext(r.Context())
	return ok && role == string(entity.RoleAdmin)
}
