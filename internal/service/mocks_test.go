package service

import (
	"sort"
	"sync"
	"time"

	"unlock-relay/internal/domain"
	"unlock-relay/internal/repository"
)

type mockDeviceRepo struct {
	devices map[string]*domain.Device
}

func newMockDeviceRepo(devices ...*domain.Device) *mockDeviceRepo {
	m := &mockDeviceRepo{
		devices: make(map[string]*domain.Device),
	}
	for _, d := range devices {
		m.devices[d.ID] = d
	}
	return m
}

func (m *mockDeviceRepo) FindByID(deviceID string) (*domain.Device, error) {
	if d, exists := m.devices[deviceID]; exists {
		return d, nil
	}
	return nil, repository.ErrDeviceNotFound
}

func (m *mockDeviceRepo) List() []*domain.Device {
	var devices []*domain.Device
	for _, d := range m.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(1_700_000_000, 0).Add(offset)
}

func countEvents(events []domain.Event, eventType domain.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
