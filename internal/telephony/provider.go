// Package telephony adapts the session manager to SIP room providers.
//
// Rules:
// - No provider SDK calls outside this package.
// - Adapters translate boundary errors into internal types and stay
//   free of call business logic; decisions belong to internal/session.
package telephony

import (
	"context"
	"fmt"
)

// Provider is the provider-agnostic telephony interface the session
// manager depends on.
type Provider interface {
	Name() string

	// CreateParticipant dials the destination into the room and blocks
	// until the remote party answers or the attempt definitively fails.
	CreateParticipant(ctx context.Context, req CreateParticipantRequest) (ParticipantInfo, error)

	// TransferParticipant moves a connected participant to a telephone
	// URI. On success the provider owns the call from then on.
	TransferParticipant(ctx context.Context, req TransferRequest) error

	// DeleteRoom tears down the call's room, hanging up everyone in it.
	DeleteRoom(ctx context.Context, roomName string) error
}

// CreateParticipantRequest describes one outbound dial.
type CreateParticipantRequest struct {
	RoomName            string `json:"room_name"`
	TrunkID             string `json:"sip_trunk_id"`
	CallTo              string `json:"sip_call_to"`
	ParticipantIdentity string `json:"participant_identity"`

	// WaitUntilAnswered makes the request block for answer/no-answer.
	WaitUntilAnswered bool `json:"wait_until_answered"`
}

// ParticipantInfo identifies the participant the provider created.
type ParticipantInfo struct {
	Identity  string `json:"participant_identity"`
	SIPCallID string `json:"sip_call_id,omitempty"`
}

// TransferRequest moves a participant to a telephone URI.
type TransferRequest struct {
	RoomName            string `json:"room_name"`
	ParticipantIdentity string `json:"participant_identity"`

	// TransferTo is a tel: URI, e.g. "tel:+15551234567".
	TransferTo string `json:"transfer_to"`
}

// DialError is a definitive dial failure reported by the provider.
// Dial attempts are not retried; the session goes to Failed.
type DialError struct {
	Message       string `json:"message"`
	SIPStatusCode int    `json:"sip_status_code,omitempty"`
	SIPStatus     string `json:"sip_status,omitempty"`
}

func (e *DialError) Error() string {
	if e.SIPStatusCode != 0 {
		return fmt.Sprintf("telephony: dial failed: %s (SIP %d %s)", e.Message, e.SIPStatusCode, e.SIPStatus)
	}
	return "telephony: dial failed: " + e.Message
}
