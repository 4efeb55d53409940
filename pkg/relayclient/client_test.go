package relayclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"unlock-relay/internal/config"
	"unlock-relay/internal/domain"
	"unlock-relay/internal/handler"
	"unlock-relay/internal/logging"
	"unlock-relay/internal/repository"
	"unlock-relay/internal/service"
)

const (
	testAdminKey  = "relay-admin-key"
	testDeviceKey = "lock1-device-key"
)

func newRelay(t *testing.T) *httptest.Server {
	t.Helper()

	devices, err := repository.NewDeviceRepository([]*domain.Device{
		{ID: "lock1", Secret: testDeviceKey},
	})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	events := repository.NewEventRepository()
	auth := service.NewAuthService(devices, testAdminKey, "relay-jwt-secret", time.Hour, nil)

	srv := httptest.NewServer(handler.NewRouter(handler.RouterDeps{
		Commands: service.NewCommandService(devices, events),
		Auth:     auth,
		Events:   service.NewEventService(events),
		CORS:     config.CORSConfig{AllowedOrigins: "*"},
		Logger:   logging.Discard(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_IssuePollAck(t *testing.T) {
	srv := newRelay(t)
	ctx := context.Background()

	admin := New(srv.URL, nil, WithAdminKey(testAdminKey))
	device := New(srv.URL, nil, WithDeviceKey(testDeviceKey))

	issued, err := admin.Issue(ctx, "lock1", 5*time.Second)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !issued.IsUnlock() || len(issued.RequestID) != 16 {
		t.Fatalf("unexpected command %+v", issued)
	}

	polled, err := device.Poll(ctx, "lock1")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if polled.RequestID != issued.RequestID {
		t.Errorf("expected request id %s, got %s", issued.RequestID, polled.RequestID)
	}

	result, err := device.Ack(ctx, "lock1", issued.RequestID, "")
	if err != nil {
		t.Fatalf("Ack() error = %v", err)
	}
	if !result.Accepted {
		t.Errorf("expected ack to be accepted, got %+v", result)
	}

	result, err = device.Ack(ctx, "lock1", issued.RequestID, "")
	if err != nil {
		t.Fatalf("Ack() error = %v", err)
	}
	if result.Accepted || result.Reason != "request_id mismatch" {
		t.Errorf("expected duplicate ack to be rejected, got %+v", result)
	}

	polled, err = device.Poll(ctx, "lock1")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if polled.IsUnlock() {
		t.Errorf("expected no command after ack, got %+v", polled)
	}

	list, err := admin.Events(ctx, 10)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	want := []string{"issued", "ack", "ack_mismatch"}
	if list.Count != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), list.Count)
	}
	for i, e := range list.Events {
		if e.Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], e.Type)
		}
		if e.Status == "" && e.Type != "issued" {
			t.Errorf("event %d: expected status to be recorded", i)
		}
	}
}

func TestClient_Errors(t *testing.T) {
	srv := newRelay(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "issue with wrong admin key",
			call: func() error {
				_, err := New(srv.URL, nil, WithAdminKey("wrong")).Issue(ctx, "lock1", 0)
				return err
			},
			want: ErrUnauthorized,
		},
		{
			name: "issue for unknown device",
			call: func() error {
				_, err := New(srv.URL, nil, WithAdminKey(testAdminKey)).Issue(ctx, "ghost", 0)
				return err
			},
			want: ErrUnknownDevice,
		},
		{
			name: "ack with wrong device key",
			call: func() error {
				_, err := New(srv.URL, nil, WithDeviceKey("wrong")).Ack(ctx, "lock1", "abc", "")
				return err
			},
			want: ErrUnauthorized,
		},
		{
			name: "poll without device id",
			call: func() error {
				_, err := New(srv.URL, nil).Poll(ctx, "")
				return err
			},
			want: ErrBadRequest,
		},
		{
			name: "events without credentials",
			call: func() error {
				_, err := New(srv.URL, nil).Events(ctx, 0)
				return err
			},
			want: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.Message == "" {
				t.Errorf("expected StatusError with message, got %v", err)
			}
		})
	}
}

func TestClient_AdminToken(t *testing.T) {
	srv := newRelay(t)
	ctx := context.Background()

	token, err := New(srv.URL, nil, WithAdminKey(testAdminKey)).AdminToken(ctx)
	if err != nil {
		t.Fatalf("AdminToken() error = %v", err)
	}
	if token.AccessToken == "" || token.ExpiresIn != 3600 {
		t.Fatalf("unexpected token %+v", token)
	}

	admin := New(srv.URL, nil, WithAdminToken(token.AccessToken))
	if _, err := admin.Issue(ctx, "lock1", 0); err != nil {
		t.Errorf("Issue() with token error = %v", err)
	}
}

func TestClient_WaitForCommand(t *testing.T) {
	var polls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/command" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		if atomic.AddInt32(&polls, 1) < 3 {
			w.Write([]byte(`{"success":true,"data":{"device_id":"lock1","action":"none","request_id":"","expires_at":0,"created_at":0}}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"device_id":"lock1","action":"unlock","request_id":"00112233aabbccdd","expires_at":1700000010,"created_at":1700000000}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd, err := New(srv.URL, nil).WaitForCommand(ctx, "lock1", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForCommand() error = %v", err)
	}
	if cmd.RequestID != "00112233aabbccdd" {
		t.Errorf("unexpected command %+v", cmd)
	}
	if n := atomic.LoadInt32(&polls); n != 3 {
		t.Errorf("expected 3 polls, got %d", n)
	}
}

func TestClient_WaitForCommandHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"device_id":"lock1","action":"none"}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL, nil).WaitForCommand(ctx, "lock1", 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_IssueRoundsTTLUp(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want string
	}{
		{name: "server default", ttl: 0, want: `{"device_id":"lock1"}`},
		{name: "sub-second", ttl: 200 * time.Millisecond, want: `{"device_id":"lock1","ttl_seconds":1}`},
		{name: "whole seconds", ttl: 5 * time.Second, want: `{"device_id":"lock1","ttl_seconds":5}`},
		{name: "fractional seconds", ttl: 5500 * time.Millisecond, want: `{"device_id":"lock1","ttl_seconds":6}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				raw, _ := io.ReadAll(r.Body)
				body = string(raw)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"success":true,"data":{"device_id":"lock1","action":"unlock","request_id":"00112233aabbccdd"}}`))
			}))
			defer srv.Close()

			if _, err := New(srv.URL, nil, WithAdminKey(testAdminKey)).Issue(context.Background(), "lock1", tt.ttl); err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			if body != tt.want {
				t.Errorf("expected body %s, got %s", tt.want, body)
			}
		})
	}
}

func TestClient_SubSecondTTLClampsToMinimum(t *testing.T) {
	srv := newRelay(t)

	before := time.Now().Unix()
	cmd, err := New(srv.URL, nil, WithAdminKey(testAdminKey)).Issue(context.Background(), "lock1", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := cmd.ExpiresAt - before; got < 3 || got > 4 {
		t.Errorf("expected expiry about 3s out, got %ds", got)
	}
}

func TestClient_EventTimestamps(t *testing.T) {
	srv := newRelay(t)
	ctx := context.Background()
	admin := New(srv.URL, nil, WithAdminKey(testAdminKey))

	before := time.Now().Unix()
	if _, err := admin.Issue(ctx, "lock1", 0); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	list, err := admin.Events(ctx, 0)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("expected 1 event, got %d", list.Count)
	}
	if ts := list.Events[0].Timestamp; ts < before || ts > time.Now().Unix() {
		t.Errorf("unexpected ts %d", ts)
	}
}
