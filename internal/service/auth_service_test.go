package service

import (
	"errors"
	"testing"
	"time"

	"unlock-relay/internal/domain"
	"unlock-relay/internal/metrics"
	"unlock-relay/pkg/hash"
	"unlock-relay/pkg/jwt"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

const (
	testAdminKey  = "CHANGE_ME_ADMIN_KEY_12345"
	testJWTSecret = "test-secret"
)

func newTestAuthService(t *testing.T) (*AuthService, *metrics.Metrics) {
	t.Helper()

	hashedKey, err := hash.Hash("HASHED_DEVICE_KEY_GATE")
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}

	devices := newMockDeviceRepo(
		&domain.Device{ID: "lock1", Secret: "CHANGE_ME_DEVICE_KEY_LOCK1"},
		&domain.Device{ID: "gate", Secret: hashedKey},
	)
	m := metrics.New(nil)
	return NewAuthService(devices, testAdminKey, testJWTSecret, 15*time.Minute, m), m
}

func TestAuthService_AuthorizeDevice(t *testing.T) {
	svc, m := newTestAuthService(t)

	tests := []struct {
		name     string
		deviceID string
		key      string
		wantErr  error
	}{
		{name: "plain key", deviceID: "lock1", key: "CHANGE_ME_DEVICE_KEY_LOCK1", wantErr: nil},
		{name: "hashed key", deviceID: "gate", key: "HASHED_DEVICE_KEY_GATE", wantErr: nil},
		{name: "wrong key", deviceID: "lock1", key: "nope", wantErr: ErrUnauthorized},
		{name: "missing key", deviceID: "lock1", key: "", wantErr: ErrUnauthorized},
		{name: "another device's key", deviceID: "gate", key: "CHANGE_ME_DEVICE_KEY_LOCK1", wantErr: ErrUnauthorized},
		{name: "unknown device", deviceID: "ghost", key: "CHANGE_ME_DEVICE_KEY_LOCK1", wantErr: ErrUnknownDevice},
		{name: "admin key is not a device key", deviceID: "lock1", key: testAdminKey, wantErr: ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.AuthorizeDevice(tt.deviceID, tt.key)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("AuthorizeDevice() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AuthorizeDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := testutil.ToFloat64(m.AuthFailuresTotal.WithLabelValues("device")); got != 4 {
		t.Errorf("expected 4 device auth failures, got %v", got)
	}
}

func TestAuthService_AuthorizeAdmin(t *testing.T) {
	svc, m := newTestAuthService(t)

	valid, err := jwt.GenerateToken("admin", jwt.RoleAdmin, time.Hour, testJWTSecret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	wrongRole, _ := jwt.GenerateToken("admin", "viewer", time.Hour, testJWTSecret)
	wrongSecret, _ := jwt.GenerateToken("admin", jwt.RoleAdmin, time.Hour, "other-secret")
	expired, _ := jwt.GenerateToken("admin", jwt.RoleAdmin, -time.Hour, testJWTSecret)

	tests := []struct {
		name    string
		apiKey  string
		bearer  string
		wantErr bool
	}{
		{name: "api key", apiKey: testAdminKey, wantErr: false},
		{name: "session token", bearer: valid, wantErr: false},
		{name: "wrong api key", apiKey: "CHANGE_ME_DEVICE_KEY_LOCK1", wantErr: true},
		{name: "no credentials", wantErr: true},
		{name: "token with wrong role", bearer: wrongRole, wantErr: true},
		{name: "token with wrong secret", bearer: wrongSecret, wantErr: true},
		{name: "expired token", bearer: expired, wantErr: true},
		{name: "wrong key with valid token", apiKey: "bad", bearer: valid, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.AuthorizeAdmin(tt.apiKey, tt.bearer)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("AuthorizeAdmin() error = %v, want ErrUnauthorized", err)
				}
				return
			}
			if err != nil {
				t.Errorf("AuthorizeAdmin() unexpected error = %v", err)
			}
		})
	}

	if got := testutil.ToFloat64(m.AuthFailuresTotal.WithLabelValues("admin")); got != 5 {
		t.Errorf("expected 5 admin auth failures, got %v", got)
	}
}

func TestAuthService_IssueAdminToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	resp, err := svc.IssueAdminToken(testAdminKey)
	if err != nil {
		t.Fatalf("IssueAdminToken() error = %v", err)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != int64((15*time.Minute).Seconds()) {
		t.Errorf("unexpected token response %+v", resp)
	}

	if err := svc.AuthorizeAdmin("", resp.AccessToken); err != nil {
		t.Errorf("issued token should authorize admin, got %v", err)
	}

	if _, err := svc.IssueAdminToken("wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.IssueAdminToken(""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for empty key, got %v", err)
	}
}
