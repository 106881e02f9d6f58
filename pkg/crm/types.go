package crm

import "fmt"

// KnowledgeBase is the clinic knowledge payload returned by the CRM.
// The caller forwards it to the conversation layer without interpreting it.
type KnowledgeBase map[string]any

// SlotQuery identifies one requested appointment slot.
type SlotQuery struct {
	WebsiteName string
	// Date is a calendar date, YYYY-MM-DD.
	Date string
	// Time is wall-clock time normalized to 24-hour HH:MM.
	Time string
}

// AvailabilityResponse is the CRM's answer to a slot query.
type AvailabilityResponse struct {
	Success       bool   `json:"success"`
	SlotAvailable bool   `json:"slotAvailable"`
	Slots         Slots  `json:"slots"`
	Message       string `json:"message"`
}

// Slots wraps the alternative slot list the CRM returns when the
// requested time is taken.
type Slots struct {
	Available []string `json:"available"`
}

// LeadFilter selects a page of leads.
type LeadFilter struct {
	Page         int      `json:"page"`
	Limit        int      `json:"limit"`
	Search       string   `json:"search"`
	WebsiteNames []string `json:"websiteNames"`
	SearchType   string   `json:"searchType"`
}

// LeadPage is one page of a lead listing. The record contents are
// CRM-domain payloads the caller does not interpret.
type LeadPage struct {
	Leads []LeadRecord   `json:"leads"`
	Total int            `json:"total"`
	Raw   map[string]any `json:"-"`
}

// ServiceError is the uniform error for transport failures and non-2xx
// CRM responses. CRM writes are not guaranteed idempotent, so callers
// must not retry on it.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("crm: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "crm: " + e.Message
}

// ValidationError reports a lead field that failed pre-submit validation.
// No request is sent when this is returned.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("crm: %s invalid", e.Field)
}
