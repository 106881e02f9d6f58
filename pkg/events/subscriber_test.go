package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestSubscriberDispatchesByType(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	sub := &Subscriber{}
	sub.On(CallTerminated, func(ctx context.Context, env Envelope) {
		mu.Lock()
		got = append(got, env.SessionID)
		mu.Unlock()
		close(done)
	})
	sub.On(CallDialing, func(ctx context.Context, env Envelope) {
		t.Error("dialing handler fired for a terminated event")
	})

	msg, err := json.Marshal(Envelope{
		ID:        "evt-1",
		Type:      CallTerminated,
		SessionID: "+16474944500",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.Handle(context.Background(), nil, msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "+16474944500" {
		t.Errorf("handled sessions = %v", got)
	}
}

func TestSubscriberRejectsMalformedEnvelope(t *testing.T) {
	sub := &Subscriber{}
	sub.On(CallTerminated, func(ctx context.Context, env Envelope) {
		t.Error("handler fired for malformed message")
	})

	if err := sub.Handle(context.Background(), nil, []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestSubscriberNoHandlersIsNoop(t *testing.T) {
	sub := &Subscriber{}
	msg, _ := json.Marshal(Envelope{Type: ToolInvoked})
	if err := sub.Handle(context.Background(), nil, msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}
