package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/habilitation-management/internal/core/events"
)

// EventHandler bridges the event bus to the audit sink.
type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

func (h *EventHandler) Register(bus *events.EventBus) {
	bus.Subscribe(EventTypeRecorded, h.HandleRecorded)
}

func (h *EventHandler) HandleRecorded(ctx context.Context, event events.Event) error {
	recorded, ok := event.(RecordedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload for %s: %T", event.EventType(), event)
	}

	// The publishing request may already be done by the time this runs, so
	// the insert must survive its cancellation.
	h.service.Record(context.WithoutCancel(ctx), recorded.Entry)
	return nil
}
