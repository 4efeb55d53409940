package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"unlock-relay/internal/domain"
	"unlock-relay/internal/logging"
	"unlock-relay/internal/metrics"
	"unlock-relay/internal/repository"
)

const (
	MinTTLSeconds     = 3
	MaxTTLSeconds     = 60
	DefaultTTLSeconds = 10

	DefaultAckStatus = "done"

	requestIDBytes = 8
)

type commandSlot struct {
	mu  sync.Mutex
	cmd domain.Command
}

// CommandService owns the single command slot of every registered device.
// The slot map is built once from the registry and never changes, so only the
// per-slot mutex is needed; operations on different devices do not contend.
type CommandService struct {
	slots   map[string]*commandSlot
	events  repository.EventRepository
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*CommandService)

// WithClock replaces time.Now for expiry decisions and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *CommandService) {
		s.now = now
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *CommandService) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CommandService) {
		s.metrics = m
	}
}

func NewCommandService(devices repository.DeviceRepository, events repository.EventRepository, opts ...Option) *CommandService {
	s := &CommandService{
		slots:  make(map[string]*commandSlot),
		events: events,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, d := range devices.List() {
		s.slots[d.ID] = &commandSlot{cmd: domain.EmptyCommand(d.ID)}
	}

	return s
}

// ClampTTL turns the caller supplied ttl into the effective lifetime. A nil or
// zero value selects the default; anything else is bounded to the allowed range.
func ClampTTL(ttlSeconds *int) time.Duration {
	ttl := DefaultTTLSeconds
	if ttlSeconds != nil && *ttlSeconds != 0 {
		ttl = *ttlSeconds
	}
	if ttl < MinTTLSeconds {
		ttl = MinTTLSeconds
	}
	if ttl > MaxTTLSeconds {
		ttl = MaxTTLSeconds
	}
	return time.Duration(ttl) * time.Second
}

// generateRequestID returns 8 random bytes from crypto/rand, hex encoded.
func generateRequestID() (string, error) {
	b := make([]byte, requestIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate request id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CheckDevice returns ErrUnknownDevice when deviceID is not registered.
func (s *CommandService) CheckDevice(deviceID string) error {
	_, err := s.slot(deviceID)
	return err
}

func (s *CommandService) slot(deviceID string) (*commandSlot, error) {
	slot, ok := s.slots[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	return slot, nil
}

// Issue replaces the device's slot with a fresh unlock command. Any pending
// command is silently invalidated.
func (s *CommandService) Issue(deviceID string, ttlSeconds *int) (domain.Command, error) {
	defer s.observeLatency("issue", time.Now())

	slot, err := s.slot(deviceID)
	if err != nil {
		return domain.Command{}, err
	}

	requestID, err := generateRequestID()
	if err != nil {
		return domain.Command{}, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	now := s.now()
	previous := slot.cmd
	slot.cmd = domain.Command{
		DeviceID:  deviceID,
		Action:    domain.ActionUnlock,
		RequestID: requestID,
		CreatedAt: now,
		ExpiresAt: now.Add(ClampTTL(ttlSeconds)),
	}

	s.events.Append(domain.Event{
		Timestamp: now.UTC(),
		Type:      domain.EventIssued,
		DeviceID:  deviceID,
		RequestID: requestID,
		ExpiresAt: slot.cmd.ExpiresAt.Unix(),
	})

	if s.metrics != nil {
		s.metrics.IssuedTotal.Inc()
	}
	s.logger.Info("command issued",
		"device_id", deviceID,
		"request_id", requestID,
		"expires_at", slot.cmd.ExpiresAt.Unix(),
		"replaced_request_id", previous.RequestID,
	)

	return slot.cmd, nil
}

// Poll returns the device's current command. A pending command whose expiry
// has passed is cleared here, and only here, with one expired event.
func (s *CommandService) Poll(deviceID string) (domain.Command, error) {
	defer s.observeLatency("poll", time.Now())

	slot, err := s.slot(deviceID)
	if err != nil {
		return domain.Command{}, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	now := s.now()
	if slot.cmd.ExpiredAt(now) {
		expired := slot.cmd
		slot.cmd = domain.EmptyCommand(deviceID)

		s.events.Append(domain.Event{
			Timestamp: now.UTC(),
			Type:      domain.EventExpired,
			DeviceID:  deviceID,
			RequestID: expired.RequestID,
		})

		s.incPoll("expired")
		s.logger.Info("command expired",
			"device_id", deviceID,
			"request_id", expired.RequestID,
		)
		return slot.cmd, nil
	}

	if slot.cmd.IsPending() {
		s.incPoll("pending")
	} else {
		s.incPoll("none")
	}
	return slot.cmd, nil
}

// Acknowledge consumes the pending command iff requestID equals the stored
// one. Expiry is not consulted. A mismatch is recorded and reported, not
// returned as an error.
func (s *CommandService) Acknowledge(deviceID, requestID, status string) (domain.AckResult, error) {
	defer s.observeLatency("ack", time.Now())

	slot, err := s.slot(deviceID)
	if err != nil {
		return domain.AckResult{}, err
	}
	if status == "" {
		status = DefaultAckStatus
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	now := s.now()
	current := slot.cmd.RequestID

	if current == "" || current != requestID {
		s.events.Append(domain.Event{
			Timestamp:        now.UTC(),
			Type:             domain.EventAckMismatch,
			DeviceID:         deviceID,
			RequestID:        requestID,
			CurrentRequestID: current,
			Status:           status,
		})

		s.incAck("mismatch")
		s.logger.Warn("ack request_id mismatch",
			"device_id", deviceID,
			"request_id", requestID,
			"current_request_id", current,
			"status", status,
		)
		return domain.AckResult{
			Accepted:         false,
			Reason:           domain.ReasonRequestMismatch,
			CurrentRequestID: current,
		}, nil
	}

	slot.cmd = domain.EmptyCommand(deviceID)
	s.events.Append(domain.Event{
		Timestamp: now.UTC(),
		Type:      domain.EventAck,
		DeviceID:  deviceID,
		RequestID: requestID,
		Status:    status,
	})

	s.incAck("accepted")
	s.logger.Info("command acknowledged",
		"device_id", deviceID,
		"request_id", requestID,
		"status", status,
	)
	return domain.AckResult{Accepted: true}, nil
}

func (s *CommandService) observeLatency(op string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.OpLatencyMS.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

func (s *CommandService) incPoll(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.PollTotal.WithLabelValues(result).Inc()
}

func (s *CommandService) incAck(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AckTotal.WithLabelValues(result).Inc()
}
