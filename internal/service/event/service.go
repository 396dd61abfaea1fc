package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
)

// Emitter writes domain events to the outbox. The relay worker delivers them.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type EventService struct {
	recorder repository.EventRecorder
}

func NewEventService(recorder repository.EventRecorder) *EventService {
	return &EventService{recorder: recorder}
}

func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := s.recorder.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// Discard is an Emitter that drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, string, interface{}) error { return nil }
