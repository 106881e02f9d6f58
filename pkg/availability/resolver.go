// Package availability resolves spoken appointment requests against the
// clinic's slot calendar.
package availability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/clinicdial/clinicdial/pkg/crm"
)

const (
	dateLayout   = "2006-01-02"
	time12Layout = "3:04PM"
	time24Layout = "15:04"

	// At most this many alternative slots are offered back to the
	// caller, in the order the CRM returned them.
	maxAlternatives = 3
)

// SlotChecker is the remote availability check the resolver delegates to.
type SlotChecker interface {
	CheckAvailability(ctx context.Context, q crm.SlotQuery) (crm.AvailabilityResponse, error)
}

// Status tags a Result.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusUnavailable  Status = "unavailable"
	StatusAlternatives Status = "unavailable_with_alternatives"
	StatusInvalidInput Status = "invalid_input"
)

// Result is the resolver's decision for one requested slot.
type Result struct {
	Status Status

	// Date and Time are set when Status is StatusAvailable. Time is
	// 24-hour HH:MM.
	Date string
	Time string

	// Reason is set for StatusUnavailable and StatusInvalidInput.
	Reason string

	// Alternatives is set for StatusAlternatives: up to maxAlternatives
	// slots, CRM order preserved.
	Alternatives []string
}

// Resolver normalizes caller-spoken dates and times and interprets the
// CRM's availability answer. It owns no network state; the remote check
// is delegated to the injected SlotChecker.
type Resolver struct {
	checker     SlotChecker
	websiteName string
}

// NewResolver creates a resolver querying slots for the given website.
func NewResolver(checker SlotChecker, websiteName string) *Resolver {
	return &Resolver{checker: checker, websiteName: websiteName}
}

// Resolve parses rawDate (YYYY-MM-DD) and rawTime (12-hour with AM/PM
// suffix, or 24-hour HH:MM), queries the CRM, and interprets the answer.
// Invalid input never reaches the network.
func (r *Resolver) Resolve(ctx context.Context, rawDate, rawTime string) Result {
	if _, err := time.Parse(dateLayout, strings.TrimSpace(rawDate)); err != nil {
		return Result{Status: StatusInvalidInput, Reason: "bad date format, say it like 2025-05-05"}
	}

	normalized, ok := normalizeTime(rawTime)
	if !ok {
		return Result{Status: StatusInvalidInput, Reason: "bad time format, say it like 02:30PM or 14:30"}
	}

	date := strings.TrimSpace(rawDate)
	resp, err := r.checker.CheckAvailability(ctx, crm.SlotQuery{
		WebsiteName: r.websiteName,
		Date:        date,
		Time:        normalized,
	})
	if err != nil {
		slog.WarnContext(ctx, "availability lookup failed",
			slog.String("date", date), slog.String("time", normalized),
			slog.String("error", err.Error()))
		return Result{Status: StatusUnavailable, Reason: err.Error()}
	}

	if !resp.Success {
		reason := resp.Message
		if reason == "" {
			reason = "unknown error from the slot availability service"
		}
		return Result{Status: StatusUnavailable, Reason: reason}
	}

	if resp.SlotAvailable {
		return Result{Status: StatusAvailable, Date: date, Time: normalized}
	}

	alts := resp.Slots.Available
	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	return Result{Status: StatusAlternatives, Alternatives: alts}
}

// normalizeTime accepts "h:mmAM/PM" (space and case tolerant) or
// 24-hour "HH:MM" and returns the 24-hour form. Callers speak times
// conversationally while internal callers pass 24-hour values; both
// must work without the caller knowing which format is expected.
func normalizeTime(raw string) (string, bool) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if t, err := time.Parse(time12Layout, cleaned); err == nil {
		return t.Format(time24Layout), true
	}
	if t, err := time.Parse(time24Layout, cleaned); err == nil {
		return t.Format(time24Layout), true
	}
	return "", false
}
