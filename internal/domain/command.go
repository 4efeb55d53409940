package domain

import "time"

type Action string

const (
	ActionNone   Action = "none"
	ActionUnlock Action = "unlock"
)

// Command is the single pending-command slot of a device. RequestID is
// non-empty iff Action is not ActionNone.
type Command struct {
	DeviceID  string
	Action    Action
	RequestID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func EmptyCommand(deviceID string) Command {
	return Command{DeviceID: deviceID, Action: ActionNone}
}

func (c Command) IsPending() bool {
	return c.Action != ActionNone
}

// ExpiredAt reports whether the command is pending and now is past its expiry.
func (c Command) ExpiredAt(now time.Time) bool {
	return c.IsPending() && now.After(c.ExpiresAt)
}

func (c Command) ToResponse() *CommandResponse {
	resp := &CommandResponse{
		DeviceID:  c.DeviceID,
		Action:    c.Action,
		RequestID: c.RequestID,
	}
	if c.IsPending() {
		resp.CreatedAt = c.CreatedAt.Unix()
		resp.ExpiresAt = c.ExpiresAt.Unix()
	}
	return resp
}

type IssueCommandRequest struct {
	DeviceID   string `json:"device_id" validate:"required"`
	TTLSeconds *int   `json:"ttl_seconds"`
}

type AckRequest struct {
	DeviceID  string `json:"device_id" validate:"required"`
	RequestID string `json:"request_id" validate:"required"`
	Status    string `json:"status"`
}

type CommandResponse struct {
	DeviceID  string `json:"device_id"`
	Action    Action `json:"action"`
	RequestID string `json:"request_id"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

type AckResult struct {
	Accepted         bool   `json:"accepted"`
	Reason           string `json:"reason,omitempty"`
	CurrentRequestID string `json:"current_request_id,omitempty"`
}

const ReasonRequestMismatch = "request_id mismatch"
