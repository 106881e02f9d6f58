// Package runtime maps incoming dial jobs onto call sessions: it
// resolves the script, builds the session collaborators, and drives the
// call to completion.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pitabwire/frame/workerpool"

	"github.com/clinicdial/clinicdial/internal/session"
	"github.com/clinicdial/clinicdial/internal/telephony"
	"github.com/clinicdial/clinicdial/internal/tools"
	"github.com/clinicdial/clinicdial/pkg/calllog"
	"github.com/clinicdial/clinicdial/pkg/events"
	"github.com/clinicdial/clinicdial/pkg/script"
)

// DialJob describes one outbound call to place.
type DialJob struct {
	PhoneNumber string            `json:"phone_number"`
	TransferTo  string            `json:"transfer_to,omitempty"`
	ScriptName  string            `json:"script_name,omitempty"`
	RoomName    string            `json:"room_name,omitempty"`
	Form        map[string]string `json:"form,omitempty"`
}

// ToolInvoker is handed to the conversation layer so it can emit tool
// calls back into the router.
type ToolInvoker func(ctx context.Context, name string, args map[string]any) tools.Result

// ConversationFactory builds the speech/reasoning session for one call.
// The factory receives the rendered script instructions and the tool
// invoker the conversation will call back through.
type ConversationFactory func(ctx context.Context, instructions string, invoke ToolInvoker) (session.Conversation, error)

// Options configures a Runner. Provider, Scripts, Router, and
// Conversations are required; the rest are optional collaborators
// passed through to each session.
type Options struct {
	Provider      telephony.Provider
	Scripts       *script.Loader
	Router        *tools.Router
	Conversations ConversationFactory
	Publisher     *events.Publisher
	Records       *calllog.Repository
	Pool          workerpool.WorkerPool

	TrunkID        string
	DefaultScript  string
	TransferNumber string
}

// Runner executes dial jobs. One job is one call session, run to a
// terminal state.
type Runner struct {
	opts Options
}

// NewRunner creates a dial-job runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Provider == nil {
		return nil, errors.New("runtime: telephony provider is required")
	}
	if opts.Scripts == nil {
		return nil, errors.New("runtime: script loader is required")
	}
	if opts.Router == nil {
		return nil, errors.New("runtime: tool router is required")
	}
	if opts.Conversations == nil {
		return nil, errors.New("runtime: conversation factory is required")
	}
	return &Runner{opts: opts}, nil
}

// Run places the call described by job and blocks until the session
// reaches a terminal state. The returned error reports dial or setup
// failure; a call that connects and later hangs up normally returns nil.
func (r *Runner) Run(ctx context.Context, job DialJob) error {
	if strings.TrimSpace(job.PhoneNumber) == "" {
		return errors.New("runtime: dial job has no phone number")
	}

	scriptName := job.ScriptName
	if scriptName == "" {
		scriptName = r.opts.DefaultScript
	}
	s, ok := r.opts.Scripts.Get(scriptName)
	if !ok {
		return fmt.Errorf("runtime: script %q not found", scriptName)
	}
	instructions, err := s.Instructions(job.Form)
	if err != nil {
		return fmt.Errorf("runtime: render script %q: %w", scriptName, err)
	}

	transferTo := job.TransferTo
	if transferTo == "" {
		transferTo = r.opts.TransferNumber
	}

	// The conversation calls tools before the manager exists, in
	// principle, but in practice tool calls only arrive after Start, by
	// which point mgr is assigned.
	var mgr *session.Manager
	invoke := func(ctx context.Context, name string, args map[string]any) tools.Result {
		return r.opts.Router.Invoke(ctx, name, args, mgr)
	}

	conv, err := r.opts.Conversations(ctx, instructions, invoke)
	if err != nil {
		return fmt.Errorf("runtime: build conversation: %w", err)
	}

	mgr, err = session.NewManager(session.Options{
		RoomName:     job.RoomName,
		TrunkID:      r.opts.TrunkID,
		DialInfo:     session.DialInfo{PhoneNumber: job.PhoneNumber, TransferTo: transferTo},
		ScriptName:   scriptName,
		Instructions: instructions,
		Provider:     r.opts.Provider,
		Conversation: conv,
		Publisher:    r.opts.Publisher,
		Records:      r.opts.Records,
		Pool:         r.opts.Pool,
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "dial job starting",
		slog.String("session_id", mgr.ID()),
		slog.String("script", scriptName))

	if err := mgr.StartDialing(ctx); err != nil {
		return fmt.Errorf("runtime: dial %s: %w", job.PhoneNumber, err)
	}
	return nil
}
