package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of call event flowing through the system.
type EventType string

const (
	CallDialing       EventType = "call.dialing"
	CallAnswered      EventType = "call.answered"
	CallFailed        EventType = "call.failed"
	CallTransferring  EventType = "call.transferring"
	CallTerminated    EventType = "call.terminated"
	VoicemailDetected EventType = "voicemail.detected"
	ToolInvoked       EventType = "tool.invoked"
	ToolFailed        EventType = "tool.failed"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// CallDialingData is the payload for call.dialing events.
type CallDialingData struct {
	ToNumber string `json:"to_number"`
	TrunkID  string `json:"trunk_id,omitempty"`
}

// CallAnsweredData is the payload for call.answered events.
type CallAnsweredData struct {
	ParticipantIdentity string `json:"participant_identity"`
}

// CallFailedData is the payload for call.failed events.
type CallFailedData struct {
	Reason    string `json:"reason"`
	SIPStatus int    `json:"sip_status,omitempty"`
}

// CallTransferringData is the payload for call.transferring events.
type CallTransferringData struct {
	TransferTo string `json:"transfer_to"`
}

// CallTerminatedData is the payload for call.terminated events.
type CallTerminatedData struct {
	Outcome     string `json:"outcome"`
	HangupCause string `json:"hangup_cause,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// ToolInvokedData is the payload for tool.invoked and tool.failed events.
type ToolInvokedData struct {
	Tool    string `json:"tool"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
