package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clinicdial/clinicdial/pkg/availability"
	"github.com/clinicdial/clinicdial/pkg/crm"
)

type fakeResolver struct {
	calls  int
	result availability.Result
}

func (f *fakeResolver) Resolve(ctx context.Context, rawDate, rawTime string) availability.Result {
	f.calls++
	return f.result
}

type fakeLeads struct {
	kb        crm.KnowledgeBase
	kbErr     error
	updateErr error
	page      crm.LeadPage
	listErr   error

	updated    crm.LeadRecord
	lastFilter crm.LeadFilter
	panicOnKB  bool
}

func (f *fakeLeads) FetchKnowledgeBase(ctx context.Context, clinicID string) (crm.KnowledgeBase, error) {
	if f.panicOnKB {
		panic("kb handler exploded")
	}
	return f.kb, f.kbErr
}

func (f *fakeLeads) UpdateLead(ctx context.Context, rec crm.LeadRecord) (map[string]any, error) {
	f.updated = rec
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return map[string]any{"ok": true}, nil
}

func (f *fakeLeads) ListLeads(ctx context.Context, filter crm.LeadFilter) (crm.LeadPage, error) {
	f.lastFilter = filter
	return f.page, f.listErr
}

type fakeCall struct {
	transferMsg string
	transferErr error
	endMsg      string
	endCalls    int
}

func (f *fakeCall) ID() string { return "+16474944500" }

func (f *fakeCall) Transfer(ctx context.Context) (string, error) {
	return f.transferMsg, f.transferErr
}

func (f *fakeCall) EndCall(ctx context.Context) (string, error) {
	f.endCalls++
	return f.endMsg, nil
}

func (f *fakeCall) DetectVoicemail(ctx context.Context) (string, error) {
	return "Voicemail detected, call ended.", nil
}

func newTestRouter(resolver *fakeResolver, leads *fakeLeads) *Router {
	return NewRouter(Options{
		Resolver: resolver,
		Leads:    leads,
		ClinicID: "34",
	})
}

func TestInvokeUnknownTool(t *testing.T) {
	r := newTestRouter(&fakeResolver{}, &fakeLeads{})

	res := r.Invoke(context.Background(), "book-flight", nil, nil)
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if !strings.Contains(res.Message, "unknown tool") || !strings.Contains(res.Message, "book-flight") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestCheckAvailabilityMissingArgsSkipResolver(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRouter(resolver, &fakeLeads{})

	cases := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing date", map[string]any{"time": "14:30"}, "date invalid"},
		{"blank date", map[string]any{"date": "  ", "time": "14:30"}, "date invalid"},
		{"missing time", map[string]any{"date": "2025-05-05"}, "time invalid"},
		{"non-string time", map[string]any{"date": "2025-05-05", "time": 1430}, "time invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Invoke(context.Background(), ToolCheckAvailability, tc.args, nil)
			if res.Status != StatusError || res.Message != tc.want {
				t.Errorf("result = %+v, want error %q", res, tc.want)
			}
		})
	}
	if resolver.calls != 0 {
		t.Errorf("resolver called %d times on invalid args, want 0", resolver.calls)
	}
}

func TestCheckAvailabilityAvailable(t *testing.T) {
	resolver := &fakeResolver{result: availability.Result{
		Status: availability.StatusAvailable, Date: "2025-05-05", Time: "14:30",
	}}
	r := newTestRouter(resolver, &fakeLeads{})

	res := r.Invoke(context.Background(), ToolCheckAvailability,
		map[string]any{"date": "2025-05-05", "time": "2:30 PM"}, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	if res.Payload["time"] != "14:30" {
		t.Errorf("payload time = %v, want 14:30", res.Payload["time"])
	}
}

func TestCheckAvailabilityAlternativesSpoken(t *testing.T) {
	resolver := &fakeResolver{result: availability.Result{
		Status:       availability.StatusAlternatives,
		Alternatives: []string{"09:00", "10:00", "11:00"},
	}}
	r := newTestRouter(resolver, &fakeLeads{})

	res := r.Invoke(context.Background(), ToolCheckAvailability,
		map[string]any{"date": "2025-05-05", "time": "14:30"}, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Message, "09:00, 10:00, 11:00") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestUpdateLeadValidationFieldSurfaced(t *testing.T) {
	leads := &fakeLeads{updateErr: &crm.ValidationError{Field: "first_name"}}
	r := newTestRouter(&fakeResolver{}, leads)

	res := r.Invoke(context.Background(), ToolUpdateLead,
		map[string]any{"first_name": ""}, nil)
	if res.Status != StatusError || res.Message != "first_name invalid" {
		t.Errorf("result = %+v, want first_name invalid", res)
	}
}

func TestUpdateLeadMergesDefaults(t *testing.T) {
	leads := &fakeLeads{}
	r := newTestRouter(&fakeResolver{}, leads)

	res := r.Invoke(context.Background(), ToolUpdateLead, map[string]any{
		"first_name":  "Jordan",
		"lead_status": "Open",
	}, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	if leads.updated["lead_type"] != "AI_call_lead" {
		t.Errorf("default lead_type missing: %v", leads.updated["lead_type"])
	}
	if leads.updated["lead_status"] != "Open" {
		t.Errorf("caller value lost: lead_status = %v", leads.updated["lead_status"])
	}
}

func TestGetLeadsArgumentCoercion(t *testing.T) {
	leads := &fakeLeads{page: crm.LeadPage{Total: 2, Leads: []crm.LeadRecord{
		{"first_name": "A"}, {"first_name": "B"},
	}}}
	r := newTestRouter(&fakeResolver{}, leads)

	// JSON decoding hands numbers over as float64 and lists as []any.
	res := r.Invoke(context.Background(), ToolGetLeads, map[string]any{
		"page":          float64(2),
		"limit":         "25",
		"search":        "implant",
		"website_names": []any{"indianaimplantclinic"},
	}, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	if leads.lastFilter.Page != 2 || leads.lastFilter.Limit != 25 {
		t.Errorf("filter = %+v", leads.lastFilter)
	}
	if len(leads.lastFilter.WebsiteNames) != 1 || leads.lastFilter.WebsiteNames[0] != "indianaimplantclinic" {
		t.Errorf("website names = %v", leads.lastFilter.WebsiteNames)
	}
	if res.Payload["total"] != 2 {
		t.Errorf("payload total = %v", res.Payload["total"])
	}
}

func TestHandlerPanicBecomesErrorResult(t *testing.T) {
	leads := &fakeLeads{panicOnKB: true}
	r := newTestRouter(&fakeResolver{}, leads)

	res := r.Invoke(context.Background(), ToolLookupKnowledgeBase, nil, nil)
	if res.Status != StatusError {
		t.Fatalf("result = %+v, want error", res)
	}
	if !strings.Contains(res.Message, "internal error") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestServiceFailureIsSpokenSafe(t *testing.T) {
	leads := &fakeLeads{kbErr: &crm.ServiceError{StatusCode: 502, Message: "bad gateway"}}
	r := newTestRouter(&fakeResolver{}, leads)

	res := r.Invoke(context.Background(), ToolLookupKnowledgeBase, nil, nil)
	if res.Status != StatusError {
		t.Fatalf("result = %+v", res)
	}
	// Raw transport detail stays out of the spoken message.
	if strings.Contains(res.Message, "502") || strings.Contains(res.Message, "gateway") {
		t.Errorf("message leaks transport detail: %q", res.Message)
	}
}

func TestCallControlTools(t *testing.T) {
	call := &fakeCall{transferMsg: "Transferred to +15551234567.", endMsg: "Call ended."}
	r := newTestRouter(&fakeResolver{}, &fakeLeads{})

	res := r.Invoke(context.Background(), ToolTransferCall, nil, call)
	if res.Status != StatusSuccess || res.Message != "Transferred to +15551234567." {
		t.Errorf("transfer result = %+v", res)
	}

	res = r.Invoke(context.Background(), ToolEndCall, nil, call)
	if res.Status != StatusSuccess || call.endCalls != 1 {
		t.Errorf("end result = %+v, endCalls = %d", res, call.endCalls)
	}

	res = r.Invoke(context.Background(), ToolEndCall, nil, nil)
	if res.Status != StatusError || res.Message != "no active call" {
		t.Errorf("nil call result = %+v", res)
	}
}

func TestTransferErrorSurfacesSpokenMessage(t *testing.T) {
	call := &fakeCall{transferMsg: "Transfer failed.", transferErr: errors.New("trunk rejected")}
	r := newTestRouter(&fakeResolver{}, &fakeLeads{})

	res := r.Invoke(context.Background(), ToolTransferCall, nil, call)
	if res.Status != StatusError || res.Message != "Transfer failed." {
		t.Errorf("result = %+v", res)
	}
}
