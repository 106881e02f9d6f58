package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"
)

// HandlerFunc processes one decoded call event.
type HandlerFunc func(ctx context.Context, env Envelope)

// Subscriber implements queue.SubscribeWorker, fanning call events out
// to handlers registered per event type.
type Subscriber struct {
	Handlers map[EventType][]HandlerFunc
	Pool     workerpool.WorkerPool
}

// On registers a handler for one event type.
func (s *Subscriber) On(eventType EventType, h HandlerFunc) {
	if s.Handlers == nil {
		s.Handlers = make(map[EventType][]HandlerFunc)
	}
	s.Handlers[eventType] = append(s.Handlers[eventType], h)
}

// Handle is called by frame's pub/sub for each event message.
func (s *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		util.Log(ctx).WithError(err).Error("event subscriber: unmarshal envelope")
		return err
	}

	for _, h := range s.Handlers[env.Type] {
		h := h
		if s.Pool != nil {
			if err := s.Pool.Submit(ctx, func() { h(ctx, env) }); err != nil {
				slog.WarnContext(ctx, "event handler pool full",
					slog.String("event_id", env.ID),
					slog.String("event_type", string(env.Type)))
			}
		} else {
			go h(ctx, env)
		}
	}

	return nil
}
