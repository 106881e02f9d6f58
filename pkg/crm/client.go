package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// Client talks to the CRM's lead and knowledge-base endpoints.
//
// Every operation is a single attempt with a hard timeout. CRM writes
// are not guaranteed idempotent, so the client never retries; callers
// that want a retry must make that decision themselves.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a CRM client. baseURL is the path prefix up to and
// including the auth segment, without a trailing slash.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// FetchKnowledgeBase retrieves the clinic knowledge base for the given
// clinic ID.
func (c *Client) FetchKnowledgeBase(ctx context.Context, clinicID string) (KnowledgeBase, error) {
	var kb KnowledgeBase
	err := c.post(ctx, "/getClinicKnowledgeBaseDetails", map[string]any{"clinic_id": clinicID}, &kb)
	if err != nil {
		return nil, err
	}
	return kb, nil
}

// CheckAvailability asks the CRM whether the queried slot is free.
//
// The appointment_time value is sent duplicated ("HH:MM HH:MM"); the
// live CRM expects that shape on this endpoint.
func (c *Client) CheckAvailability(ctx context.Context, q SlotQuery) (AvailabilityResponse, error) {
	payload := map[string]any{
		"website_name":     q.WebsiteName,
		"appointment_date": q.Date,
		"appointment_time": fmt.Sprintf("%s %s", q.Time, q.Time),
	}
	var resp AvailabilityResponse
	if err := c.post(ctx, "/checkClinicSlotAvailability", payload, &resp); err != nil {
		return AvailabilityResponse{}, err
	}
	return resp, nil
}

// UpdateLead submits a lead update. The record is validated before any
// request is sent; a *ValidationError means nothing left the process.
func (c *Client) UpdateLead(ctx context.Context, rec LeadRecord) (map[string]any, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	var ack map[string]any
	if err := c.post(ctx, "/update-leads", rec, &ack); err != nil {
		return nil, err
	}
	return ack, nil
}

// ListLeads fetches a filtered page of leads.
func (c *Client) ListLeads(ctx context.Context, f LeadFilter) (LeadPage, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.SearchType == "" {
		f.SearchType = "text"
	}

	var raw map[string]any
	if err := c.post(ctx, "/get-leads", f, &raw); err != nil {
		return LeadPage{}, err
	}

	page := LeadPage{Raw: raw}
	if rows, ok := raw["leads"].([]any); ok {
		for _, row := range rows {
			if m, ok := row.(map[string]any); ok {
				page.Leads = append(page.Leads, LeadRecord(m))
			}
		}
	}
	if total, ok := raw["total"].(float64); ok {
		page.Total = int(total)
	}
	return page, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	// Drain remainder for connection reuse.
	io.Copy(io.Discard, resp.Body)
	if err != nil {
		return &ServiceError{Message: fmt.Sprintf("read %s response: %v", path, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServiceError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ServiceError{Message: fmt.Sprintf("decode %s response: %v", path, err)}
	}
	return nil
}
