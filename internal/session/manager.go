// Package session owns the lifecycle of one outbound call: dialing,
// answer binding, transfer, and teardown.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pitabwire/frame/workerpool"

	"github.com/clinicdial/clinicdial/internal/telephony"
	"github.com/clinicdial/clinicdial/pkg/calllog"
	"github.com/clinicdial/clinicdial/pkg/events"
)

var (
	// ErrNoSuchParticipant is returned when the answering identity does
	// not match the dialed destination.
	ErrNoSuchParticipant = errors.New("session: no such participant")

	// ErrAlreadyEnded is returned when transfer/hangup/voicemail race a
	// session that another path already tore down.
	ErrAlreadyEnded = errors.New("session: call already ended")
)

// DialInfo is the immutable dial target for one session.
type DialInfo struct {
	// PhoneNumber is the destination; it doubles as the expected
	// participant identity.
	PhoneNumber string

	// TransferTo is the optional escalation target. Empty disables the
	// transfer-call operation.
	TransferTo string
}

// Options configures a session manager. Provider and Conversation are
// required; Publisher, Records, and Pool are optional.
type Options struct {
	RoomName     string
	TrunkID      string
	DialInfo     DialInfo
	ScriptName   string
	Instructions string

	Provider     telephony.Provider
	Conversation Conversation
	Publisher    *events.Publisher
	Records      *calllog.Repository
	Pool         workerpool.WorkerPool
}

// Manager drives one outbound call session through its state machine.
// All state mutation happens through Manager methods; collaborators
// hold only a reference and never write state directly.
type Manager struct {
	opts Options

	mu          sync.Mutex
	state       State
	participant string
	startedAt   time.Time
	answeredAt  time.Time
	roomDeleted bool
}

// NewManager creates a manager for one call in Idle state.
func NewManager(opts Options) (*Manager, error) {
	if opts.Provider == nil {
		return nil, errors.New("session: telephony provider is required")
	}
	if opts.Conversation == nil {
		return nil, errors.New("session: conversation is required")
	}
	if strings.TrimSpace(opts.DialInfo.PhoneNumber) == "" {
		return nil, errors.New("session: destination phone number is required")
	}
	if opts.RoomName == "" {
		opts.RoomName = "call-" + opts.DialInfo.PhoneNumber
	}
	return &Manager{opts: opts, state: StateIdle}, nil
}

// ID is the session identifier: the destination phone number.
func (m *Manager) ID() string { return m.opts.DialInfo.PhoneNumber }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Participant returns the bound participant identity, if answered.
func (m *Manager) Participant() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participant
}

// StartDialing starts the conversational session and issues the
// outbound dial. The two run concurrently: the conversation must
// already be listening when the callee picks up, or whatever they say
// first is lost. Blocks until the call is answered and bound, or the
// dial definitively fails. Dial failures are not retried.
func (m *Manager) StartDialing(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("session: cannot dial from state %q", state)
	}
	m.state = StateDialing
	m.startedAt = time.Now()
	m.mu.Unlock()

	m.opts.Publisher.Emit(ctx, events.CallDialing, m.ID(), &events.CallDialingData{
		ToNumber: m.opts.DialInfo.PhoneNumber,
		TrunkID:  m.opts.TrunkID,
	})

	convErr := make(chan error, 1)
	startConv := func() {
		convErr <- m.opts.Conversation.Start(ctx, m.opts.Instructions)
	}
	if m.opts.Pool != nil {
		if err := m.opts.Pool.Submit(ctx, startConv); err != nil {
			go startConv()
		}
	} else {
		go startConv()
	}

	m.setState(StateAwaitingAnswer)

	info, err := m.opts.Provider.CreateParticipant(ctx, telephony.CreateParticipantRequest{
		RoomName:            m.opts.RoomName,
		TrunkID:             m.opts.TrunkID,
		CallTo:              m.opts.DialInfo.PhoneNumber,
		ParticipantIdentity: m.opts.DialInfo.PhoneNumber,
		WaitUntilAnswered:   true,
	})
	if err != nil {
		m.failDial(ctx, err)
		return err
	}

	if err := <-convErr; err != nil {
		// The callee answered into a dead conversation; hang up rather
		// than leave them in silence.
		err = fmt.Errorf("session: conversation start: %w", err)
		m.failDial(ctx, err)
		return err
	}

	return m.BindParticipant(ctx, info.Identity)
}

// BindParticipant records the answered participant and moves the
// session into conversation.
func (m *Manager) BindParticipant(ctx context.Context, identity string) error {
	if identity != m.opts.DialInfo.PhoneNumber {
		return fmt.Errorf("%w: got %q, expected %q", ErrNoSuchParticipant, identity, m.opts.DialInfo.PhoneNumber)
	}

	m.mu.Lock()
	if m.state != StateAwaitingAnswer {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("session: cannot bind participant in state %q", state)
	}
	m.state = StateConnected
	m.participant = identity
	m.answeredAt = time.Now()
	m.state = StateInConversation
	m.mu.Unlock()

	slog.InfoContext(ctx, "participant joined",
		slog.String("session_id", m.ID()),
		slog.String("identity", identity))
	m.opts.Publisher.Emit(ctx, events.CallAnswered, m.ID(), &events.CallAnsweredData{
		ParticipantIdentity: identity,
	})
	return nil
}

// Transfer escalates the call to the configured transfer target. With
// no target configured it returns a spoken-safe notice and changes
// nothing. On provider failure the caller must not be left in limbo:
// the manager apologizes and forces a hangup.
func (m *Manager) Transfer(ctx context.Context) (string, error) {
	target := strings.TrimSpace(m.opts.DialInfo.TransferTo)
	if target == "" {
		return "No transfer number is configured.", nil
	}

	m.mu.Lock()
	if m.state != StateInConversation {
		m.mu.Unlock()
		return "The call has already ended.", ErrAlreadyEnded
	}
	m.state = StateTransferring
	participant := m.participant
	m.mu.Unlock()

	slog.InfoContext(ctx, "transferring call",
		slog.String("session_id", m.ID()), slog.String("transfer_to", target))
	m.opts.Publisher.Emit(ctx, events.CallTransferring, m.ID(), &events.CallTransferringData{
		TransferTo: target,
	})

	if err := m.opts.Conversation.Say(ctx, "Sure, one moment while I transfer you."); err != nil {
		slog.WarnContext(ctx, "transfer notice failed",
			slog.String("session_id", m.ID()), slog.String("error", err.Error()))
	}

	err := m.opts.Provider.TransferParticipant(ctx, telephony.TransferRequest{
		RoomName:            m.opts.RoomName,
		ParticipantIdentity: participant,
		TransferTo:          "tel:" + target,
	})
	if err != nil {
		slog.ErrorContext(ctx, "transfer failed",
			slog.String("session_id", m.ID()), slog.String("error", err.Error()))
		if sayErr := m.opts.Conversation.Say(ctx, "Apologies, something went wrong transferring the call."); sayErr != nil {
			slog.WarnContext(ctx, "transfer apology failed",
				slog.String("session_id", m.ID()), slog.String("error", sayErr.Error()))
		}
		m.teardown(ctx, calllog.OutcomeTransferFailed, "transfer_failed")
		return "Transfer failed.", err
	}

	// The provider owns the call from here; the room is torn down on
	// its side.
	m.finalize(ctx, calllog.OutcomeTransferred, "transferred")
	return fmt.Sprintf("Transferred to %s.", target), nil
}

// EndCall hangs up, waiting for any in-flight speech to finish first.
func (m *Manager) EndCall(ctx context.Context) (string, error) {
	if err := m.end(ctx, calllog.OutcomeCompleted, "agent_hangup"); err != nil {
		return "The call has already ended.", err
	}
	return "Call ended.", nil
}

// DetectVoicemail ends the call with a voicemail outcome. Valid any
// time after the call connects.
func (m *Manager) DetectVoicemail(ctx context.Context) (string, error) {
	m.opts.Publisher.Emit(ctx, events.VoicemailDetected, m.ID(), nil)
	if err := m.end(ctx, calllog.OutcomeVoicemail, "voicemail"); err != nil {
		return "The call has already ended.", err
	}
	return "Voicemail detected, call ended.", nil
}

func (m *Manager) end(ctx context.Context, outcome, cause string) error {
	m.mu.Lock()
	if !m.state.Live() {
		m.mu.Unlock()
		return ErrAlreadyEnded
	}
	m.state = StateEnding
	m.mu.Unlock()

	slog.InfoContext(ctx, "ending call",
		slog.String("session_id", m.ID()), slog.String("cause", cause))

	// Never cut the agent off mid-sentence: release resources only
	// after the current playout completes.
	if p := m.opts.Conversation.CurrentPlayout(); p != nil {
		if err := p.WaitForPlayout(ctx); err != nil {
			slog.WarnContext(ctx, "playout wait interrupted",
				slog.String("session_id", m.ID()), slog.String("error", err.Error()))
		}
	}

	m.teardown(ctx, outcome, cause)
	return nil
}

// failDial handles a definitive dial failure: absorbing Failed state,
// room cleanup, outcome record. No retry; telephony dial attempts are
// not safely repeatable.
func (m *Manager) failDial(ctx context.Context, cause error) {
	slog.ErrorContext(ctx, "dial failed",
		slog.String("session_id", m.ID()), slog.String("error", cause.Error()))

	sipStatus := 0
	var derr *telephony.DialError
	if errors.As(cause, &derr) {
		sipStatus = derr.SIPStatusCode
	}
	m.opts.Publisher.Emit(ctx, events.CallFailed, m.ID(), &events.CallFailedData{
		Reason:    cause.Error(),
		SIPStatus: sipStatus,
	})

	m.mu.Lock()
	m.state = StateFailed
	m.mu.Unlock()

	m.deleteRoom(ctx)
	m.closeConversation(ctx)
	m.record(ctx, calllog.OutcomeDialFailed, cause.Error(), sipStatus)
}

// teardown releases the room and conversation and finalizes. Provider
// errors here are logged and swallowed: a session must always reach
// Terminated or Failed, never hang.
func (m *Manager) teardown(ctx context.Context, outcome, cause string) {
	m.deleteRoom(ctx)
	m.finalize(ctx, outcome, cause)
}

func (m *Manager) finalize(ctx context.Context, outcome, cause string) {
	m.closeConversation(ctx)

	m.mu.Lock()
	if !m.state.Terminal() {
		m.state = StateTerminated
	}
	m.mu.Unlock()

	m.record(ctx, outcome, cause, 0)
}

func (m *Manager) deleteRoom(ctx context.Context) {
	m.mu.Lock()
	if m.roomDeleted {
		m.mu.Unlock()
		return
	}
	m.roomDeleted = true
	m.mu.Unlock()

	if err := m.opts.Provider.DeleteRoom(ctx, m.opts.RoomName); err != nil {
		slog.ErrorContext(ctx, "room deletion failed",
			slog.String("session_id", m.ID()),
			slog.String("room", m.opts.RoomName),
			slog.String("error", err.Error()))
	}
}

func (m *Manager) closeConversation(ctx context.Context) {
	if err := m.opts.Conversation.Close(ctx); err != nil {
		slog.WarnContext(ctx, "conversation close failed",
			slog.String("session_id", m.ID()), slog.String("error", err.Error()))
	}
}

func (m *Manager) record(ctx context.Context, outcome, cause string, sipStatus int) {
	now := time.Now()

	m.mu.Lock()
	answeredAt := m.answeredAt
	startedAt := m.startedAt
	m.mu.Unlock()

	var duration time.Duration
	rec := &calllog.CallRecord{
		SessionID:   m.ID(),
		RoomName:    m.opts.RoomName,
		ToNumber:    m.opts.DialInfo.PhoneNumber,
		TransferTo:  m.opts.DialInfo.TransferTo,
		ScriptName:  m.opts.ScriptName,
		Outcome:     outcome,
		HangupCause: cause,
		SIPStatus:   sipStatus,
		EndedAt:     sql.NullTime{Time: now, Valid: true},
	}
	if !answeredAt.IsZero() {
		rec.AnsweredAt = sql.NullTime{Time: answeredAt, Valid: true}
		duration = now.Sub(answeredAt)
	} else if !startedAt.IsZero() {
		duration = now.Sub(startedAt)
	}
	rec.DurationMs = duration.Milliseconds()

	if err := m.opts.Records.Save(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "call record save failed",
			slog.String("session_id", m.ID()), slog.String("error", err.Error()))
	}

	m.opts.Publisher.Emit(ctx, events.CallTerminated, m.ID(), &events.CallTerminatedData{
		Outcome:     outcome,
		HangupCause: cause,
		DurationMs:  rec.DurationMs,
	})
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
