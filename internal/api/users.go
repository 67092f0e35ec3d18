package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// User is a cardholder as the backend reports it. AccessibleDeviceIDs is
// the owning side of the user/device permission relation; the name list is
// a server-side convenience for rendering and may be shorter than the id
// list when a referenced device no longer exists.
type User struct {
	ID                    int64    `json:"id"`
	StudentID             string   `json:"student_id"`
	Name                  string   `json:"name"`
	Email                 string   `json:"email,omitempty"`
	CardUID               string   `json:"card_uid,omitempty"`
	IsActive              bool     `json:"is_active"`
	AccessibleDeviceIDs   []int64  `json:"accessible_device_ids"`
	AccessibleDeviceNames []string `json:"accessible_device_names,omitempty"`
}

// UserInput is the create/update payload. The permission set is submitted
// wholesale: whatever ids are present here fully replace the stored set.
type UserInput struct {
	StudentID           string  `json:"student_id"`
	Name                string  `json:"name"`
	Email               string  `json:"email,omitempty"`
	CardUID             string  `json:"card_uid,omitempty"`
	IsActive            bool    `json:"is_active"`
	AccessibleDeviceIDs []int64 `json:"accessible_device_ids"`
}

// Validate applies the client-side prechecks. Duplicate student ids or
// card uids are left to the server, which knows the full population.
func (in UserInput) Validate() error {
	if strings.TrimSpace(in.StudentID) == "" {
		return &ValidationError{Field: "student_id", Reason: "required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users/", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/users/", nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in UserInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var user User
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil, nil)
}
