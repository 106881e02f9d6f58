package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateParticipantSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sip/participants" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer room-token" {
			t.Error("missing bearer token")
		}
		var req CreateParticipantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !req.WaitUntilAnswered {
			t.Error("wait_until_answered not set")
		}
		json.NewEncoder(w).Encode(ParticipantInfo{Identity: req.ParticipantIdentity, SIPCallID: "abc"})
	}))
	defer ts.Close()

	p := NewRoomServiceProvider(ts.URL, "room-token")
	info, err := p.CreateParticipant(context.Background(), CreateParticipantRequest{
		RoomName:            "call-1",
		TrunkID:             "trunk-1",
		CallTo:              "+16474944500",
		ParticipantIdentity: "+16474944500",
		WaitUntilAnswered:   true,
	})
	if err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
	if info.Identity != "+16474944500" || info.SIPCallID != "abc" {
		t.Errorf("info = %+v", info)
	}
}

func TestCreateParticipantFailureCarriesSIPStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(DialError{Message: "no answer", SIPStatusCode: 480, SIPStatus: "Temporarily Unavailable"})
	}))
	defer ts.Close()

	p := NewRoomServiceProvider(ts.URL, "t")
	_, err := p.CreateParticipant(context.Background(), CreateParticipantRequest{RoomName: "call-1"})

	var derr *DialError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want *DialError", err)
	}
	if derr.SIPStatusCode != 480 {
		t.Errorf("sip status = %d, want 480", derr.SIPStatusCode)
	}
}

func TestTransferParticipantSendsTelURI(t *testing.T) {
	var got TransferRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sip/transfers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := NewRoomServiceProvider(ts.URL, "t")
	err := p.TransferParticipant(context.Background(), TransferRequest{
		RoomName:            "call-1",
		ParticipantIdentity: "+16474944500",
		TransferTo:          "tel:+15551234567",
	})
	if err != nil {
		t.Fatalf("TransferParticipant: %v", err)
	}
	if got.TransferTo != "tel:+15551234567" {
		t.Errorf("transfer_to = %q", got.TransferTo)
	}
}

func TestDeleteRoomErrorIsNotDialError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "room gone", http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewRoomServiceProvider(ts.URL, "t")
	err := p.DeleteRoom(context.Background(), "call-1")
	if err == nil {
		t.Fatal("expected error")
	}
	var derr *DialError
	if errors.As(err, &derr) {
		t.Errorf("room deletion error should not be a DialError: %v", err)
	}
}
