package service

import (
	"errors"
	"fmt"
	"time"

	"unlock-relay/internal/domain"
	"unlock-relay/internal/metrics"
	"unlock-relay/internal/repository"
	"unlock-relay/pkg/hash"
	"unlock-relay/pkg/jwt"
)

// AuthService holds the two independent credential stores: the admin secret
// and the per-device secrets from the registry.
type AuthService struct {
	devices       repository.DeviceRepository
	adminKey      string
	jwtSecret     string
	jwtExpiration time.Duration
	metrics       *metrics.Metrics
}

func NewAuthService(devices repository.DeviceRepository, adminKey, jwtSecret string, jwtExp time.Duration, m *metrics.Metrics) *AuthService {
	return &AuthService{
		devices:       devices,
		adminKey:      adminKey,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExp,
		metrics:       m,
	}
}

// AuthorizeAdmin accepts either the admin API key or an admin session token.
func (s *AuthService) AuthorizeAdmin(apiKey, bearerToken string) error {
	if apiKey != "" && hash.Verify(s.adminKey, apiKey) {
		return nil
	}

	if bearerToken != "" {
		claims, err := jwt.ValidateToken(bearerToken, s.jwtSecret)
		if err == nil && claims.Role == jwt.RoleAdmin {
			return nil
		}
	}

	s.authFailure("admin")
	return ErrInvalidAdminKey
}

// AuthorizeDevice checks deviceKey against the registry secret of deviceID.
// An unknown device is reported as ErrUnknownDevice, never as unauthorized.
func (s *AuthService) AuthorizeDevice(deviceID, deviceKey string) error {
	device, err := s.devices.FindByID(deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
		}
		return err
	}

	if !hash.Verify(device.Secret, deviceKey) {
		s.authFailure("device")
		return ErrInvalidDeviceKey
	}
	return nil
}

// IssueAdminToken exchanges the admin API key for a short-lived session token
// so browser and phone clients need not keep the raw key around.
func (s *AuthService) IssueAdminToken(apiKey string) (*domain.AdminTokenResponse, error) {
	if apiKey == "" || !hash.Verify(s.adminKey, apiKey) {
		s.authFailure("admin")
		return nil, ErrInvalidAdminKey
	}

	token, err := jwt.GenerateToken("admin", jwt.RoleAdmin, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin token: %w", err)
	}

	return &domain.AdminTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) authFailure(role string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AuthFailuresTotal.WithLabelValues(role).Inc()
}
