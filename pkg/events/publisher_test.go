package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeSerialization(t *testing.T) {
	data, err := json.Marshal(&CallTerminatedData{
		Outcome:     "completed",
		HangupCause: "agent_hangup",
		DurationMs:  42000,
	})
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}

	env := Envelope{
		ID:        "evt-1",
		Type:      CallTerminated,
		Source:    "session",
		SessionID: "+16474944500",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if decoded.Type != CallTerminated {
		t.Errorf("type = %q, want %q", decoded.Type, CallTerminated)
	}
	if decoded.SessionID != "+16474944500" {
		t.Errorf("session_id = %q", decoded.SessionID)
	}

	var payload CallTerminatedData
	if err := json.Unmarshal(decoded.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.DurationMs != 42000 {
		t.Errorf("duration_ms = %d", payload.DurationMs)
	}
}

func TestEventTypeConstants(t *testing.T) {
	types := []EventType{
		CallDialing, CallAnswered, CallFailed,
		CallTransferring, CallTerminated, VoicemailDetected,
		ToolInvoked, ToolFailed,
	}

	seen := make(map[EventType]bool)
	for _, et := range types {
		if et == "" {
			t.Error("empty event type constant")
		}
		if seen[et] {
			t.Errorf("duplicate event type: %q", et)
		}
		seen[et] = true
	}
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	if err := p.Emit(context.Background(), CallDialing, "s", &CallDialingData{ToNumber: "+1"}); err != nil {
		t.Fatalf("nil publisher Emit: %v", err)
	}
}
