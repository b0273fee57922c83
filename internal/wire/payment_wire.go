package wire

import (
	"net/http"

	"travel-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, auth func(http.Handler) http.Handler) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Use(auth)

		r.Get("/", paymentHandler.GetUserPayments)
		r.Get("/pending", paymentHandler.GetPendingPayment)
		r.Get("/pending/exists", paymentHandler.HasPendingPayment)
		r.Post("/orders", paymentHandler.CreateOrder)
		r.Post("/verify", paymentHandler.VerifyPayment)
		r.Put("/{id}/cancel", paymentHandler.CancelPayment)
	})
}
