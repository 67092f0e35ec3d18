package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// AccessEvent is a single entry of the audit trail. Events are immutable
// server-side; the console only reads them.
type AccessEvent struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserName  string    `json:"user_name,omitempty"`
	CardUID   string    `json:"card_uid,omitempty"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	Details   string    `json:"details,omitempty"`
}

const StatusSuccess = "SUCCESS"

// ListAccessLogs fetches up to limit events, newest first. limit <= 0
// leaves the server's default in effect.
func (c *Client) ListAccessLogs(ctx context.Context, limit int) ([]AccessEvent, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	var events []AccessEvent
	if err := c.do(ctx, http.MethodGet, "/access/logs", query, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ExportAccessLogs downloads the full audit trail as CSV bytes. Naming and
// writing the file is the caller's concern.
func (c *Client) ExportAccessLogs(ctx context.Context) ([]byte, error) {
	var payload []byte
	if err := c.do(ctx, http.MethodGet, "/access/export", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
