package telephony

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

const controlTimeout = 10 * time.Second

// RoomServiceProvider talks to a room-service control API over HTTP
// JSON with bearer auth.
type RoomServiceProvider struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRoomServiceProvider creates a room-service telephony adapter.
func NewRoomServiceProvider(baseURL, token string) *RoomServiceProvider {
	return &RoomServiceProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// No client-level timeout: CreateParticipant blocks for the
		// provider's own answer/no-answer window. Control operations
		// set per-request deadlines instead.
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (p *RoomServiceProvider) Name() string { return "roomservice" }

// CreateParticipant dials out. The request blocks until the provider
// reports answered or a definitive failure; failures come back as
// *DialError and must not be retried.
func (p *RoomServiceProvider) CreateParticipant(ctx context.Context, req CreateParticipantRequest) (ParticipantInfo, error) {
	var info ParticipantInfo
	if err := p.post(ctx, "/v1/sip/participants", req, &info, true); err != nil {
		return ParticipantInfo{}, err
	}
	if info.Identity == "" {
		info.Identity = req.ParticipantIdentity
	}
	return info, nil
}

// TransferParticipant hands the participant to a telephone URI.
func (p *RoomServiceProvider) TransferParticipant(ctx context.Context, req TransferRequest) error {
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()
	return p.post(ctx, "/v1/sip/transfers", req, nil, false)
}

// DeleteRoom hangs up the call by deleting its room.
func (p *RoomServiceProvider) DeleteRoom(ctx context.Context, roomName string) error {
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()
	return p.post(ctx, "/v1/rooms/delete", map[string]string{"room_name": roomName}, nil, false)
}

func (p *RoomServiceProvider) post(ctx context.Context, path string, payload, out any, dial bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telephony: marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telephony: create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if dial {
			return &DialError{Message: err.Error()}
		}
		return fmt.Errorf("telephony: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if dial {
			derr := &DialError{Message: strings.TrimSpace(string(respBody))}
			// The provider reports SIP detail in the error body when
			// it has it.
			var detail DialError
			if json.Unmarshal(respBody, &detail) == nil && detail.Message != "" {
				derr = &detail
			}
			return derr
		}
		return fmt.Errorf("telephony: %s returned HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("telephony: decode %s response: %w", path, err)
	}
	return nil
}
