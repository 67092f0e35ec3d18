package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/BobChen3310/esp32-access-system/internal/api"
)

// loginPrompt collects credentials and attempts a login. It returns false
// when the input closed and the console should exit. Rejections always get
// the same generic message regardless of what the server said.
func (c *Console) loginPrompt(ctx context.Context) (bool, error) {
	fmt.Fprintln(c.out, "Access console login (Ctrl+D to quit)")
	username, err := c.readLine("Username: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	password, err := c.readLine("Password: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	if err := c.client.Login(ctx, username, password); err != nil {
		if errors.Is(err, api.ErrInvalidCredentials) {
			fmt.Fprintln(c.out, "Invalid username or password.")
		} else {
			c.reportError("Login", err)
		}
		return true, nil
	}

	c.idle.Arm()
	if identity := c.store.Identity(); identity != "" {
		fmt.Fprintf(c.out, "Welcome, %s.\n", identity)
	} else {
		fmt.Fprintln(c.out, "Logged in.")
	}
	return true, nil
}

// changePassword applies the client-side prechecks via the gateway, then
// forces a re-login on success: the old session is considered invalid the
// moment the password changes.
func (c *Console) changePassword(ctx context.Context) {
	oldPassword, err := c.readLine("Current password: ")
	if err != nil {
		return
	}
	newPassword, err := c.readLine("New password: ")
	if err != nil {
		return
	}
	confirm, err := c.readLine("Confirm new password: ")
	if err != nil {
		return
	}
	c.idle.Touch()

	if err := c.client.ChangePassword(ctx, oldPassword, newPassword, confirm); err != nil {
		c.reportError("Password change", err)
		return
	}

	fmt.Fprintln(c.out, "Password changed. Please log in again.")
	c.logout()
}
