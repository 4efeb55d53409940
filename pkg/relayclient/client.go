package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"unlock-relay/pkg/response"
)

const (
	adminKeyHeader  = "X-API-Key"
	deviceKeyHeader = "X-Device-Key"
)

// Client talks to the relay as an admin, a device, or both, depending on
// which credentials it was given.
type Client struct {
	baseURL    string
	http       *http.Client
	adminKey   string
	adminToken string
	deviceKey  string
}

type Option func(*Client)

func WithAdminKey(key string) Option {
	return func(c *Client) {
		c.adminKey = key
	}
}

// WithAdminToken authenticates admin calls with a session token instead of
// the raw admin key.
func WithAdminToken(token string) Option {
	return func(c *Client) {
		c.adminToken = token
	}
}

func WithDeviceKey(key string) Option {
	return func(c *Client) {
		c.deviceKey = key
	}
}

func New(baseURL string, hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type issueReq struct {
	DeviceID   string `json:"device_id"`
	TTLSeconds *int   `json:"ttl_seconds,omitempty"`
}

type ackReq struct {
	DeviceID  string `json:"device_id"`
	RequestID string `json:"request_id"`
	Status    string `json:"status,omitempty"`
}

// Issue asks the relay to unlock deviceID. A ttl of zero lets the server
// choose its default.
func (c *Client) Issue(ctx context.Context, deviceID string, ttl time.Duration) (Command, error) {
	req := issueReq{DeviceID: deviceID}
	if ttl > 0 {
		// Round up: a zero ttl_seconds would select the server default.
		secs := int((ttl + time.Second - 1) / time.Second)
		req.TTLSeconds = &secs
	}

	var out Command
	err := c.do(ctx, http.MethodPost, "/api/v1/unlock", req, c.adminHeaders(), &out)
	return out, err
}

func (c *Client) Poll(ctx context.Context, deviceID string) (Command, error) {
	path := "/api/v1/command?device_id=" + url.QueryEscape(deviceID)

	var out Command
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

// Ack reports execution of requestID. A mismatch is not an error; check
// AckResult.Accepted.
func (c *Client) Ack(ctx context.Context, deviceID, requestID, status string) (AckResult, error) {
	req := ackReq{DeviceID: deviceID, RequestID: requestID, Status: status}
	headers := map[string]string{deviceKeyHeader: c.deviceKey}

	var out AckResult
	err := c.do(ctx, http.MethodPost, "/api/v1/ack", req, headers, &out)
	return out, err
}

func (c *Client) Events(ctx context.Context, limit int) (EventList, error) {
	path := "/api/v1/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out EventList
	err := c.do(ctx, http.MethodGet, path, nil, c.adminHeaders(), &out)
	return out, err
}

// AdminToken exchanges the configured admin key for a session token.
func (c *Client) AdminToken(ctx context.Context) (AdminToken, error) {
	headers := map[string]string{adminKeyHeader: c.adminKey}

	var out AdminToken
	err := c.do(ctx, http.MethodPost, "/api/v1/admin/token", nil, headers, &out)
	return out, err
}

// WaitForCommand polls until an unlock command is pending or ctx is done.
func (c *Client) WaitForCommand(ctx context.Context, deviceID string, interval time.Duration) (Command, error) {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		cmd, err := c.Poll(ctx, deviceID)
		if err != nil {
			return Command{}, err
		}
		if cmd.IsUnlock() {
			return cmd, nil
		}

		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) adminHeaders() map[string]string {
	if c.adminToken != "" {
		return map[string]string{"Authorization": "Bearer " + c.adminToken}
	}
	return map[string]string{adminKeyHeader: c.adminKey}
}

// do sends an optional JSON body and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	rsp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	env, err := response.Decode(io.LimitReader(rsp.Body, 1<<20), out)
	if err != nil {
		if rsp.StatusCode >= 300 {
			return &StatusError{Method: method, Path: path, Code: rsp.StatusCode}
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if rsp.StatusCode >= 300 || !env.Success {
		return &StatusError{Method: method, Path: path, Code: rsp.StatusCode, Message: env.Error}
	}
	return nil
}
