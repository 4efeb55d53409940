package repository

import (
	"context"
	"fmt"

	"unlock-relay/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const couchDeviceDocType = "lock_device"

type couchDeviceDoc struct {
	ID       string `json:"_id"`
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	Secret   string `json:"secret"`
}

// CouchDeviceSource reads registry entries from CouchDB once at startup.
type CouchDeviceSource struct {
	client *kivik.Client
	dbName string
}

func NewCouchDeviceSource(client *kivik.Client, dbName string) *CouchDeviceSource {
	return &CouchDeviceSource{
		client: client,
		dbName: dbName,
	}
}

func (s *CouchDeviceSource) LoadDevices(ctx context.Context) ([]*domain.Device, error) {
	db := s.client.DB(s.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"type": couchDeviceDocType,
		},
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		var doc couchDeviceDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue // Skip malformed docs
		}
		if doc.DeviceID == "" || doc.Secret == "" {
			continue
		}
		devices = append(devices, &domain.Device{ID: doc.DeviceID, Secret: doc.Secret})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read devices: %w", err)
	}

	return devices, nil
}
