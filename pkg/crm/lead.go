package crm

// LeadRecord is the wide CRM lead payload. Beyond the required identity
// fields it is forwarded as-is; the caller does not interpret it.
type LeadRecord map[string]any

// requiredLeadFields must be present and non-empty before a lead update
// is submitted.
var requiredLeadFields = []string{
	"assign_to",
	"email",
	"first_name",
	"last_name",
	"phone_number",
	"treatment",
}

// DefaultLeadTemplate returns the baseline update-leads payload. Caller
// supplied fields are merged over it and win on conflict.
func DefaultLeadTemplate() LeadRecord {
	return LeadRecord{
		"email_verify":        "verified",
		"finance_score":       "High",
		"form_status":         "Completed",
		"lead_status":         "Closed",
		"lead_type":           "AI_call_lead",
		"phone_verify":        "verified",
		"appointment_status":  "Confirmed",
		"appointment_duration": "30",
		"conversations_lead":  true,
		"ai_call":             true,
	}
}

// MergeLead overlays caller supplied fields onto the default template.
func MergeLead(fields map[string]any) LeadRecord {
	rec := DefaultLeadTemplate()
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

// Validate checks the required identity fields. It returns a
// *ValidationError naming the first missing or empty field.
func (r LeadRecord) Validate() error {
	for _, f := range requiredLeadFields {
		v, ok := r[f]
		if !ok {
			return &ValidationError{Field: f}
		}
		s, isStr := v.(string)
		if isStr && s == "" {
			return &ValidationError{Field: f}
		}
		if v == nil {
			return &ValidationError{Field: f}
		}
	}
	return nil
}
