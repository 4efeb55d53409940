package domain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventIssued      EventType = "issued"
	EventExpired     EventType = "expired"
	EventAck         EventType = "ack"
	EventAckMismatch EventType = "ack_mismatch"
)

// Event is an audit record of a command lifecycle transition. It is never
// modified after being appended. On the wire ts is unix seconds.
type Event struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"-"`
	Type             EventType `json:"type"`
	DeviceID         string    `json:"device_id"`
	RequestID        string    `json:"request_id,omitempty"`
	CurrentRequestID string    `json:"current_request_id,omitempty"`
	Status           string    `json:"status,omitempty"`
	ExpiresAt        int64     `json:"expires_at,omitempty"`
}

type eventAlias Event

type eventJSON struct {
	eventAlias
	TS int64 `json:"ts"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{eventAlias: eventAlias(e), TS: e.Timestamp.Unix()})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.eventAlias)
	e.Timestamp = time.Unix(raw.TS, 0).UTC()
	return nil
}

type EventListResponse struct {
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}
