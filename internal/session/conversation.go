package session

import "context"

// Conversation is the speech/reasoning collaborator for one call: the
// STT/TTS pipeline plus the language-model layer driving the dialogue.
// The session manager only starts it, speaks short utterances through
// it, and watches its playout status; everything else is outside this
// package.
type Conversation interface {
	// Start brings the conversational session up and begins listening.
	// It must be running before the callee can speak, or early speech
	// is lost.
	Start(ctx context.Context, instructions string) error

	// Say speaks a short utterance to the caller.
	Say(ctx context.Context, text string) error

	// CurrentPlayout returns the in-flight speech playout, or nil when
	// nothing is being spoken.
	CurrentPlayout() Playout

	// Close releases the conversational session's resources.
	Close(ctx context.Context) error
}

// Playout is one utterance currently being spoken to the caller.
type Playout interface {
	// WaitForPlayout blocks until the spoken audio finishes.
	WaitForPlayout(ctx context.Context) error
}
