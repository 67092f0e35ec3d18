package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Device is the listable representation of a door controller. It carries
// no token field on purpose: the plaintext device credential exists only in
// DeviceCredential, which only creation and rotation return, so a list
// fetch can never re-display one.
type Device struct {
	ID         int64     `json:"id"`
	DeviceName string    `json:"device_name"`
	Location   string    `json:"location"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// DeviceCredential is the one-time creation/rotation response. Token is
// shown to the operator exactly once and is not retrievable through any
// other call.
type DeviceCredential struct {
	ID         int64     `json:"id"`
	DeviceName string    `json:"device_name"`
	Location   string    `json:"location"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	Token      string    `json:"token"`
}

type DeviceInput struct {
	DeviceName string `json:"device_name"`
	Location   string `json:"location"`
	IsActive   bool   `json:"is_active"`
}

func (in DeviceInput) Validate() error {
	if strings.TrimSpace(in.DeviceName) == "" {
		return &ValidationError{Field: "device_name", Reason: "required"}
	}
	if strings.TrimSpace(in.Location) == "" {
		return &ValidationError{Field: "location", Reason: "required"}
	}
	return nil
}

func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.do(ctx, http.MethodGet, "/devices/", nil, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// CreateDevice registers a controller and returns its freshly issued
// credential under the one-time-reveal contract.
func (c *Client) CreateDevice(ctx context.Context, in DeviceInput) (*DeviceCredential, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var created DeviceCredential
	if err := c.do(ctx, http.MethodPost, "/devices/", nil, in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateDevice(ctx context.Context, id int64, in DeviceInput) (*Device, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var device Device
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/devices/%d", id), nil, in, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// DeleteDevice is irreversible. Existing users may keep referencing the
// deleted id until their next refresh; callers render such ids as unknown
// rather than assuming the server scrubbed them.
func (c *Client) DeleteDevice(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/devices/%d", id), nil, nil, nil)
}

// ResetDeviceToken invalidates the device's current credential immediately
// and returns the replacement, again shown exactly once.
func (c *Client) ResetDeviceToken(ctx context.Context, id int64) (*DeviceCredential, error) {
	var rotated DeviceCredential
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/devices/%d/reset-token", id), nil, nil, &rotated); err != nil {
		return nil, err
	}
	return &rotated, nil
}
