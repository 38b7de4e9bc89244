package chatbot

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSay(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"status":"ok","event_id":"ev-1"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Say("people", "alice", "hello")
	if err != nil {
		t.Fatalf("Say failed: %v", err)
	}
	if resp.EventID != "ev-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got.Header.Type != "pubsub" || got.Header.Channel != "people" || got.Header.From != "alice" || got.Message != "hello" {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if got.Header.Timestamp == 0 {
		t.Fatal("expected timestamp to be set")
	}
}

func TestPresence(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		w.Write([]byte(`{"status":"ok","event_id":"ev"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Presence("bob", true); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Presence("bob", false); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(bodies[0], `"type":"endpointConnect"`) || !strings.Contains(bodies[0], `"endpointId":"bob"`) {
		t.Fatalf("unexpected connect body %s", bodies[0])
	}
	if !strings.Contains(bodies[1], `"type":"endpointDisconnect"`) {
		t.Fatalf("unexpected disconnect body %s", bodies[1])
	}
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/people/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"group":"people","messages":[{"ts":1,"from":"alice","body":"hi"}]}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).History("people")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].From != "alice" {
		t.Fatalf("unexpected history %+v", resp)
	}
}

func TestErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"endpointId required"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Token("")
	if err == nil || !strings.Contains(err.Error(), "endpointId required") {
		t.Fatalf("expected server error message, got %v", err)
	}
}

func TestHealthDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","checks":{"respoke_socket":{"status":"fail"}}}`))
	}))
	defer srv.Close()

	health, err := NewClient(srv.URL).Health()
	if err == nil {
		t.Fatal("expected error for degraded server")
	}
	if health == nil || health.Checks["respoke_socket"].Status != "fail" {
		t.Fatalf("expected decoded checks, got %+v", health)
	}
}

func TestGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"groups":[{"id":"people","message_count":3,"last_timestamp":42}],"total":1}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Groups()
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Groups[0].LastTimestamp != 42 {
		t.Fatalf("unexpected groups %+v", resp)
	}
}
