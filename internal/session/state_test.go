package session

import "testing"

func TestStateClassification(t *testing.T) {
	live := map[State]bool{
		StateConnected:      true,
		StateInConversation: true,
		StateTransferring:   true,
	}
	terminal := map[State]bool{
		StateTerminated: true,
		StateFailed:     true,
	}

	all := []State{
		StateIdle, StateDialing, StateAwaitingAnswer, StateConnected,
		StateInConversation, StateTransferring, StateEnding,
		StateTerminated, StateFailed,
	}
	for _, s := range all {
		if got := s.Live(); got != live[s] {
			t.Errorf("%s.Live() = %v, want %v", s, got, live[s])
		}
		if got := s.Terminal(); got != terminal[s] {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, terminal[s])
		}
	}
}
