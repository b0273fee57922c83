package usecase

import (
	"context"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/messaging"

	"go.uber.org/zap"
)

// publish is best-effort: a lost event never fails the operation that produced it.
func publish(ctx context.Context, events messaging.Publisher, log *zap.Logger, event messaging.Event) {
	if err := events.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish event",
			zap.Error(err),
			zap.String("type", event.Type),
			zap.String("aggregate_id", event.AggregateID),
		)
	}
}

func bookingEvent(eventType string, b *entity.Booking) messaging.Event {
	event := messaging.Event{
		Type:        eventType,
		AggregateID: b.ID.String(),
		Kind:        string(b.Kind),
		Status:      string(b.Status),
		Amount:      b.Price,
		OccurredAt:  time.Now().UTC(),
	}
	if b.RequesterID != nil {
		event.RequesterID = b.RequesterID.String()
	}
	return event
}

func paymentEvent(eventType string, p *entity.Payment) messaging.Event {
	return messaging.Event{
		Type:        eventType,
		AggregateID: p.ID.String(),
		RequesterID: p.RequesterID.String(),
		Status:      string(p.Status),
		Amount:      p.Amount,
		OccurredAt:  time.Now().UTC(),
	}
}
