package session

// State is the lifecycle state of one outbound call session.
type State string

const (
	StateIdle           State = "idle"
	StateDialing        State = "dialing"
	StateAwaitingAnswer State = "awaiting_answer"
	StateConnected      State = "connected"
	StateInConversation State = "in_conversation"
	StateTransferring   State = "transferring"
	StateEnding         State = "ending"
	StateTerminated     State = "terminated"
	StateFailed         State = "failed"
)

// Terminal reports whether the session can no longer change state.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateFailed
}

// Live reports whether a remote party is (or may be) on the line.
func (s State) Live() bool {
	switch s {
	case StateConnected, StateInConversation, StateTransferring:
		return true
	default:
		return false
	}
}
