// Package tools routes named tool calls from the conversation layer to
// their handlers. Every failure is converted into a spoken-safe result;
// a tool error must never abort the conversation.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/clinicdial/clinicdial/pkg/availability"
	"github.com/clinicdial/clinicdial/pkg/crm"
	"github.com/clinicdial/clinicdial/pkg/events"
)

// Recognized tool names. The dispatch table is static and closed; the
// conversation layer cannot invoke anything outside this set.
const (
	ToolLookupKnowledgeBase = "lookup-knowledge-base"
	ToolCheckAvailability   = "check-availability"
	ToolUpdateLead          = "update-lead"
	ToolGetLeads            = "get-leads"
	ToolTransferCall        = "transfer-call"
	ToolEndCall             = "end-call"
	ToolDetectVoicemail     = "detect-voicemail"
)

// ErrUnknownTool is returned inside an error Result when the requested
// name is not in the dispatch table.
var ErrUnknownTool = errors.New("tools: unknown tool")

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the structured outcome handed back to the conversation
// layer. Message is always safe to speak aloud.
type Result struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

func errorResult(msg string) Result {
	return Result{Status: StatusError, Message: msg}
}

// SlotResolver checks one requested appointment slot.
type SlotResolver interface {
	Resolve(ctx context.Context, rawDate, rawTime string) availability.Result
}

// LeadService is the CRM surface the router depends on.
type LeadService interface {
	FetchKnowledgeBase(ctx context.Context, clinicID string) (crm.KnowledgeBase, error)
	UpdateLead(ctx context.Context, rec crm.LeadRecord) (map[string]any, error)
	ListLeads(ctx context.Context, f crm.LeadFilter) (crm.LeadPage, error)
}

// CallControl is the slice of the session manager the router may drive.
// The router never mutates session state directly; these methods do.
type CallControl interface {
	ID() string
	Transfer(ctx context.Context) (string, error)
	EndCall(ctx context.Context) (string, error)
	DetectVoicemail(ctx context.Context) (string, error)
}

// Options configures a Router. Resolver and Leads are required for the
// tools that use them; Publisher is optional.
type Options struct {
	Resolver  SlotResolver
	Leads     LeadService
	ClinicID  string
	Timeout   time.Duration
	Publisher *events.Publisher
}

// Router validates tool arguments and dispatches to handlers.
type Router struct {
	opts Options
}

// NewRouter creates a router. A zero Timeout defaults to 10 seconds.
func NewRouter(opts Options) *Router {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Router{opts: opts}
}

// Invoke runs one tool call and always returns a Result, converting
// validation failures, handler errors, timeouts, and panics into error
// results. A tool failure is never fatal to the conversation.
func (r *Router) Invoke(ctx context.Context, name string, args map[string]any, call CallControl) (result Result) {
	sessionID := ""
	if call != nil {
		sessionID = call.ID()
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "tool handler panicked",
				slog.String("tool", name), slog.Any("panic", rec))
			result = errorResult(fmt.Sprintf("the %s tool hit an internal error", name))
		}
		r.emit(ctx, name, sessionID, result)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	switch name {
	case ToolLookupKnowledgeBase:
		return r.lookupKnowledgeBase(ctx)
	case ToolCheckAvailability:
		return r.checkAvailability(ctx, args)
	case ToolUpdateLead:
		return r.updateLead(ctx, args)
	case ToolGetLeads:
		return r.getLeads(ctx, args)
	case ToolTransferCall:
		return callResult(call, func() (string, error) { return call.Transfer(ctx) })
	case ToolEndCall:
		return callResult(call, func() (string, error) { return call.EndCall(ctx) })
	case ToolDetectVoicemail:
		return callResult(call, func() (string, error) { return call.DetectVoicemail(ctx) })
	default:
		slog.WarnContext(ctx, "unknown tool requested", slog.String("tool", name))
		return errorResult(fmt.Sprintf("%v: %q", ErrUnknownTool, name))
	}
}

func (r *Router) lookupKnowledgeBase(ctx context.Context) Result {
	kb, err := r.opts.Leads.FetchKnowledgeBase(ctx, r.opts.ClinicID)
	if err != nil {
		slog.ErrorContext(ctx, "knowledge base fetch failed", slog.String("error", err.Error()))
		return errorResult("could not load the clinic knowledge base right now")
	}
	return Result{
		Status:  StatusSuccess,
		Message: "clinic knowledge base loaded",
		Payload: map[string]any{"knowledge_base": map[string]any(kb)},
	}
}

func (r *Router) checkAvailability(ctx context.Context, args map[string]any) Result {
	date, ok := stringArg(args, "date")
	if !ok {
		return errorResult("date invalid")
	}
	slotTime, ok := stringArg(args, "time")
	if !ok {
		return errorResult("time invalid")
	}

	res := r.opts.Resolver.Resolve(ctx, date, slotTime)
	switch res.Status {
	case availability.StatusAvailable:
		return Result{
			Status:  StatusSuccess,
			Message: fmt.Sprintf("the slot on %s at %s is available", res.Date, res.Time),
			Payload: map[string]any{"date": res.Date, "time": res.Time},
		}
	case availability.StatusAlternatives:
		return Result{
			Status:  StatusSuccess,
			Message: "that slot is taken, but nearby times are open: " + strings.Join(res.Alternatives, ", "),
			Payload: map[string]any{"alternatives": res.Alternatives},
		}
	case availability.StatusInvalidInput:
		return errorResult(res.Reason)
	default:
		return errorResult("that slot is not available: " + res.Reason)
	}
}

func (r *Router) updateLead(ctx context.Context, args map[string]any) Result {
	rec := crm.MergeLead(args)

	ack, err := r.opts.Leads.UpdateLead(ctx, rec)
	if err != nil {
		var verr *crm.ValidationError
		if errors.As(err, &verr) {
			return errorResult(verr.Field + " invalid")
		}
		slog.ErrorContext(ctx, "lead update failed", slog.String("error", err.Error()))
		return errorResult("could not save the lead details right now")
	}
	return Result{Status: StatusSuccess, Message: "lead updated", Payload: ack}
}

func (r *Router) getLeads(ctx context.Context, args map[string]any) Result {
	filter := crm.LeadFilter{}
	if v, ok := intArg(args, "page"); ok {
		filter.Page = v
	}
	if v, ok := intArg(args, "limit"); ok {
		filter.Limit = v
	}
	if v, ok := stringArg(args, "search"); ok {
		filter.Search = v
	}
	if v, ok := stringArg(args, "search_type"); ok {
		filter.SearchType = v
	}
	if names, ok := args["website_names"]; ok {
		switch t := names.(type) {
		case []string:
			filter.WebsiteNames = t
		case []any:
			for _, n := range t {
				if s, ok := n.(string); ok {
					filter.WebsiteNames = append(filter.WebsiteNames, s)
				}
			}
		case string:
			filter.WebsiteNames = []string{t}
		default:
			return errorResult("website_names invalid")
		}
	}

	page, err := r.opts.Leads.ListLeads(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "lead listing failed", slog.String("error", err.Error()))
		return errorResult("could not look up leads right now")
	}

	leads := make([]map[string]any, 0, len(page.Leads))
	for _, l := range page.Leads {
		leads = append(leads, map[string]any(l))
	}
	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("found %d leads", page.Total),
		Payload: map[string]any{"leads": leads, "total": page.Total},
	}
}

// callResult adapts a session control operation into a Result. The
// spoken message comes back even when the operation reports an error,
// so "already ended" reads as a statement rather than a failure.
func callResult(call CallControl, op func() (string, error)) Result {
	if call == nil {
		return errorResult("no active call")
	}
	msg, err := op()
	if err != nil {
		return errorResult(msg)
	}
	return Result{Status: StatusSuccess, Message: msg}
}

func (r *Router) emit(ctx context.Context, name, sessionID string, res Result) {
	eventType := events.ToolInvoked
	if res.Status == StatusError {
		eventType = events.ToolFailed
	}
	r.opts.Publisher.Emit(ctx, eventType, sessionID, &events.ToolInvokedData{
		Tool:    name,
		Status:  res.Status,
		Message: res.Message,
	})
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// intArg coerces JSON numbers, ints, and numeric strings.
func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
