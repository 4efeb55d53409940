package repository

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"unlock-relay/internal/domain"

	"gopkg.in/yaml.v3"
)

var ErrDeviceNotFound = errors.New("device not found")

// DeviceRepository is the read-only device registry. It is fully built before
// the server starts and never changes afterwards.
type DeviceRepository interface {
	FindByID(deviceID string) (*domain.Device, error)
	List() []*domain.Device
}

type deviceRepository struct {
	devices map[string]*domain.Device
}

// NewDeviceRepository builds a registry from devices. A later entry with the
// same ID replaces an earlier one.
func NewDeviceRepository(devices []*domain.Device) (DeviceRepository, error) {
	index := make(map[string]*domain.Device, len(devices))
	for _, d := range devices {
		if d == nil || d.ID == "" {
			return nil, fmt.Errorf("device with empty id in registry")
		}
		if d.Secret == "" {
			return nil, fmt.Errorf("device %s has no secret", d.ID)
		}
		copied := *d
		index[d.ID] = &copied
	}

	if len(index) == 0 {
		return nil, fmt.Errorf("device registry is empty")
	}

	return &deviceRepository{devices: index}, nil
}

func (r *deviceRepository) FindByID(deviceID string) (*domain.Device, error) {
	d, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *deviceRepository) List() []*domain.Device {
	devices := make([]*domain.Device, 0, len(r.devices))
	for _, d := range r.devices {
		copied := *d
		devices = append(devices, &copied)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

type registryFile struct {
	Devices []*domain.Device `yaml:"devices"`
}

// LoadDevicesFromFile reads a YAML registry file of the form
//
//	devices:
//	  - id: lock1
//	    secret: CHANGE_ME_DEVICE_KEY_LOCK1
func LoadDevicesFromFile(path string) ([]*domain.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device registry file: %w", err)
	}

	return ParseDevicesYAML(data)
}

func ParseDevicesYAML(data []byte) ([]*domain.Device, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse device registry: %w", err)
	}

	for i, d := range file.Devices {
		if d == nil || strings.TrimSpace(d.ID) == "" {
			return nil, fmt.Errorf("device registry entry %d has no id", i)
		}
		d.ID = strings.TrimSpace(d.ID)
	}

	return file.Devices, nil
}

// ParseDeviceKeys parses "id=secret" pairs separated by commas.
func ParseDeviceKeys(raw string) ([]*domain.Device, error) {
	var devices []*domain.Device
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		id, secret, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		secret = strings.TrimSpace(secret)
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid device key entry %q, expected id=secret", pair)
		}

		devices = append(devices, &domain.Device{ID: id, Secret: secret})
	}
	return devices, nil
}
