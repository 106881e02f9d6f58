package runtime

import (
	"context"
	"log/slog"

	"github.com/clinicdial/clinicdial/internal/session"
)

// logConversation writes utterances to the log instead of a speech
// pipeline. It stands in when no speech backend is wired up, so calls
// can be placed and exercised end to end without audio.
type logConversation struct{}

// LogConversations returns a factory producing the logging backend.
func LogConversations() ConversationFactory {
	return func(ctx context.Context, instructions string, invoke ToolInvoker) (session.Conversation, error) {
		return logConversation{}, nil
	}
}

func (logConversation) Start(ctx context.Context, instructions string) error {
	slog.InfoContext(ctx, "conversation started", slog.Int("instruction_bytes", len(instructions)))
	return nil
}

func (logConversation) Say(ctx context.Context, text string) error {
	slog.InfoContext(ctx, "agent utterance", slog.String("text", text))
	return nil
}

func (logConversation) CurrentPlayout() session.Playout { return nil }

func (logConversation) Close(ctx context.Context) error { return nil }
