package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/BobChen3310/esp32-access-system/internal/api"
)

// resolveDeviceNames maps a permission set to display names against the
// device list current at render time. Ids with no matching device render as
// an explicit unknown placeholder instead of being hidden or failing.
func resolveDeviceNames(ids []int64, devices []api.Device) []string {
	byID := make(map[int64]string, len(devices))
	for _, d := range devices {
		byID[d.ID] = d.DeviceName
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("(unknown:%d)", id))
		}
	}
	return names
}

func (c *Console) listUsers(ctx context.Context) {
	users, err := c.client.ListUsers(ctx)
	if err != nil {
		c.reportError("User list", err)
		return
	}
	devices, err := c.client.ListDevices(ctx)
	if err != nil {
		c.reportError("User list", err)
		return
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT\tNAME\tEMAIL\tCARD\tACTIVE\tDEVICES")
	for _, u := range users {
		card := u.CardUID
		if card == "" {
			card = "-"
		}
		deviceList := strings.Join(resolveDeviceNames(u.AccessibleDeviceIDs, devices), ", ")
		if deviceList == "" {
			deviceList = "(none)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%v\t%s\n", u.ID, u.StudentID, u.Name, u.Email, card, u.IsActive, deviceList)
	}
	w.Flush()
}

func (c *Console) userCommand(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "Usage: user add | user edit <id> | user rm <id>")
		return
	}
	switch args[0] {
	case "add":
		c.addUser(ctx)
	case "edit":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "Usage: user edit <id>")
			return
		}
		id, err := parseID(args[1])
		if err != nil {
			fmt.Fprintln(c.out, err)
			return
		}
		c.editUser(ctx, id)
	case "rm":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "Usage: user rm <id>")
			return
		}
		id, err := parseID(args[1])
		if err != nil {
			fmt.Fprintln(c.out, err)
			return
		}
		c.removeUser(ctx, id)
	default:
		fmt.Fprintln(c.out, "Usage: user add | user edit <id> | user rm <id>")
	}
}

// promptField reads a value, keeping current when the operator just hits
// Enter.
func (c *Console) promptField(label, current string) (string, error) {
	prompt := label + ": "
	if current != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, current)
	}
	value, err := c.readLine(prompt)
	if err != nil {
		return "", err
	}
	c.idle.Touch()
	if value == "" {
		return current, nil
	}
	return value, nil
}

// selectDevices shows the current device list and reads the complete
// desired permission set. Whatever comes back replaces the stored set
// wholesale on save.
func (c *Console) selectDevices(ctx context.Context, current []int64) ([]int64, error) {
	devices, err := c.client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No devices registered.")
		return []int64{}, nil
	}

	fmt.Fprintln(c.out, "Devices:")
	for _, d := range devices {
		fmt.Fprintf(c.out, "  %d) %s (%s)\n", d.ID, d.DeviceName, d.Location)
	}
	currentList := make([]string, 0, len(current))
	for _, id := range current {
		currentList = append(currentList, strconv.FormatInt(id, 10))
	}
	prompt := "Accessible device ids (comma-separated, empty for none)"
	if len(currentList) > 0 {
		prompt = fmt.Sprintf("%s [%s]", prompt, strings.Join(currentList, ","))
	}
	raw, err := c.readLine(prompt + ": ")
	if err != nil {
		return nil, err
	}
	c.idle.Touch()
	if raw == "" {
		if len(current) > 0 {
			return current, nil
		}
		return []int64{}, nil
	}
	if raw == "none" {
		return []int64{}, nil
	}

	ids := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := parseID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Console) addUser(ctx context.Context) {
	input := api.UserInput{IsActive: true, AccessibleDeviceIDs: []int64{}}
	var err error
	if input.StudentID, err = c.promptField("Student id", ""); err != nil {
		return
	}
	if input.Name, err = c.promptField("Name", ""); err != nil {
		return
	}
	if input.Email, err = c.promptField("Email (optional)", ""); err != nil {
		return
	}
	if input.CardUID, err = c.promptField("Card UID (optional)", ""); err != nil {
		return
	}
	if input.AccessibleDeviceIDs, err = c.selectDevices(ctx, nil); err != nil {
		c.reportError("User creation", err)
		return
	}

	user, err := c.client.CreateUser(ctx, input)
	if err != nil {
		c.reportError("User creation", err)
		return
	}
	fmt.Fprintf(c.out, "Created user %d (%s).\n", user.ID, user.Name)
}

func (c *Console) editUser(ctx context.Context, id int64) {
	users, err := c.client.ListUsers(ctx)
	if err != nil {
		c.reportError("User edit", err)
		return
	}
	var existing *api.User
	for i := range users {
		if users[i].ID == id {
			existing = &users[i]
			break
		}
	}
	if existing == nil {
		fmt.Fprintf(c.out, "No user with id %d.\n", id)
		return
	}

	input := api.UserInput{IsActive: existing.IsActive}
	if input.StudentID, err = c.promptField("Student id", existing.StudentID); err != nil {
		return
	}
	if input.Name, err = c.promptField("Name", existing.Name); err != nil {
		return
	}
	if input.Email, err = c.promptField("Email (optional)", existing.Email); err != nil {
		return
	}
	if input.CardUID, err = c.promptField("Card UID (optional)", existing.CardUID); err != nil {
		return
	}
	active, err := c.promptField("Active (true/false)", strconv.FormatBool(existing.IsActive))
	if err != nil {
		return
	}
	if parsed, err := strconv.ParseBool(active); err == nil {
		input.IsActive = parsed
	}
	if input.AccessibleDeviceIDs, err = c.selectDevices(ctx, existing.AccessibleDeviceIDs); err != nil {
		c.reportError("User edit", err)
		return
	}

	updated, err := c.client.UpdateUser(ctx, id, input)
	if err != nil {
		c.reportError("User edit", err)
		return
	}
	fmt.Fprintf(c.out, "Updated user %d (%s).\n", updated.ID, updated.Name)
}

func (c *Console) removeUser(ctx context.Context, id int64) {
	if !c.confirm(fmt.Sprintf("Delete user %d? This cannot be undone.", id)) {
		fmt.Fprintln(c.out, "Cancelled.")
		return
	}
	if err := c.client.DeleteUser(ctx, id); err != nil {
		c.reportError("User deletion", err)
		return
	}
	fmt.Fprintf(c.out, "Deleted user %d.\n", id)
}
