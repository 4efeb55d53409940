package relayclient

// Command is the device's current slot as reported by the relay.
// Action is "none" or "unlock"; timestamps are unix seconds.
type Command struct {
	DeviceID  string `json:"device_id"`
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
	ExpiresAt int64  `json:"expires_at"`
	CreatedAt int64  `json:"created_at"`
}

func (c Command) IsUnlock() bool {
	return c.Action == "unlock" && c.RequestID != ""
}

type AckResult struct {
	Accepted         bool   `json:"accepted"`
	Reason           string `json:"reason,omitempty"`
	CurrentRequestID string `json:"current_request_id,omitempty"`
}

type Event struct {
	ID               string `json:"id"`
	Timestamp        int64  `json:"ts"`
	Type             string `json:"type"`
	DeviceID         string `json:"device_id"`
	RequestID        string `json:"request_id,omitempty"`
	CurrentRequestID string `json:"current_request_id,omitempty"`
	Status           string `json:"status,omitempty"`
	ExpiresAt        int64  `json:"expires_at,omitempty"`
}

type EventList struct {
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}

type AdminToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
