// Package api is the console's single outbound choke point. Every request
// to the backend goes through Client, which attaches the current session
// credential and converts failures into the typed errors in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BobChen3310/esp32-access-system/internal/session"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	session     *session.Store
	onExpired   func()
	logRequests bool
}

type Option func(*Client)

// WithExpiryHook registers a callback fired when a request is rejected as
// unauthorized and the session is actually torn down. It fires at most once
// per teardown, however many in-flight requests receive the rejection.
func WithExpiryHook(hook func()) Option {
	return func(c *Client) { c.onExpired = hook }
}

func WithRequestLogging(enabled bool) Option {
	return func(c *Client) { c.logRequests = enabled }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(baseURL string, store *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login submits form-encoded credentials. On success the returned
// credential is persisted through the session store before Login returns;
// on failure the prior session state is untouched.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// A rejected login is not a session expiry: prior state, if any, stays
	// untouched.
	var resp loginResponse
	if err := c.run(req, &resp, false); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return ErrInvalidCredentials
		}
		return err
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("login response missing access token")
	}
	return c.session.SetCredential(resp.AccessToken)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword pre-checks the fields locally, then submits the change.
// Confirmation-mismatch and unchanged-password cases never reach the
// network. On success the caller is expected to log out and prompt for
// re-authentication.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	if oldPassword == "" || newPassword == "" {
		return &ValidationError{Field: "password", Reason: "all fields are required"}
	}
	if newPassword == oldPassword {
		return &ValidationError{Field: "new_password", Reason: "must differ from the old password"}
	}
	if newPassword != confirm {
		return &ValidationError{Field: "confirm_password", Reason: "does not match the new password"}
	}
	return c.do(ctx, http.MethodPost, "/auth/change-password", nil, changePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, nil)
}

// do runs a JSON request against path and decodes the response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.execute(req, out)
}

// execute sends the prepared request with the shared credential attached
// and applies the global unauthorized reaction.
func (c *Client) execute(req *http.Request, out interface{}) error {
	return c.run(req, out, true)
}

func (c *Client) run(req *http.Request, out interface{}, teardownOnUnauthorized bool) error {
	if credential := c.session.Credential(); credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.logRequests {
		log.Printf("api: %s %s", req.Method, req.URL.Path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if teardownOnUnauthorized {
			c.expireSession()
		}
		return fmt.Errorf("%w: %v", ErrSessionExpired, &Error{Status: resp.StatusCode, Detail: decodeDetail(resp.Body)})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Detail: decodeDetail(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// expireSession is the one unauthorized reaction. The store's Clear reports
// whether this call actually transitioned the session, so concurrent 401s
// tear down once and the hook never re-fires for an already logged-out
// session.
func (c *Client) expireSession() {
	if !c.session.Clear() {
		return
	}
	log.Printf("api: credential rejected by server, session cleared")
	if c.onExpired != nil {
		c.onExpired()
	}
}

// decodeDetail pulls the backend's {"detail": ...} explanation out of an
// error body. Decoded here once so call sites never re-parse error shapes.
func decodeDetail(body io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 1<<16)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}
