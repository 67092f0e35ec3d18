package console

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/BobChen3310/esp32-access-system/internal/api"
)

func (c *Console) listDevices(ctx context.Context) {
	devices, err := c.client.ListDevices(ctx)
	if err != nil {
		c.reportError("Device list", err)
		return
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tTOKEN\tACTIVE")
	for _, d := range devices {
		// Tokens are never retrievable after issuance; the column only
		// confirms one exists.
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\n", d.ID, d.DeviceName, d.Location, "(hidden)", d.IsActive)
	}
	w.Flush()
}

func (c *Console) deviceCommand(ctx context.Context, args []string) {
	usage := "Usage: device add | device edit <id> | device reset <id> | device rm <id>"
	if len(args) == 0 {
		fmt.Fprintln(c.out, usage)
		return
	}
	if args[0] == "add" {
		c.addDevice(ctx)
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(c.out, usage)
		return
	}
	id, err := parseID(args[1])
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	switch args[0] {
	case "edit":
		c.editDevice(ctx, id)
	case "reset":
		c.resetDeviceToken(ctx, id)
	case "rm":
		c.removeDevice(ctx, id)
	default:
		fmt.Fprintln(c.out, usage)
	}
}

// revealToken is the single point where a device credential reaches the
// operator. Once this returns, the value is gone for good.
func (c *Console) revealToken(credential *api.DeviceCredential) {
	fmt.Fprintf(c.out, "\nToken for %s (shown once, save it now):\n\n    %s\n\n", credential.DeviceName, credential.Token)
}

func (c *Console) addDevice(ctx context.Context) {
	input := api.DeviceInput{IsActive: true}
	var err error
	if input.DeviceName, err = c.promptField("Device name", ""); err != nil {
		return
	}
	if input.Location, err = c.promptField("Location", ""); err != nil {
		return
	}

	created, err := c.client.CreateDevice(ctx, input)
	if err != nil {
		c.reportError("Device creation", err)
		return
	}
	fmt.Fprintf(c.out, "Created device %d (%s).\n", created.ID, created.DeviceName)
	c.revealToken(created)
}

func (c *Console) editDevice(ctx context.Context, id int64) {
	devices, err := c.client.ListDevices(ctx)
	if err != nil {
		c.reportError("Device edit", err)
		return
	}
	var existing *api.Device
	for i := range devices {
		if devices[i].ID == id {
			existing = &devices[i]
			break
		}
	}
	if existing == nil {
		fmt.Fprintf(c.out, "No device with id %d.\n", id)
		return
	}

	input := api.DeviceInput{IsActive: existing.IsActive}
	if input.DeviceName, err = c.promptField("Device name", existing.DeviceName); err != nil {
		return
	}
	if input.Location, err = c.promptField("Location", existing.Location); err != nil {
		return
	}
	active, err := c.promptField("Active (true/false)", strconv.FormatBool(existing.IsActive))
	if err != nil {
		return
	}
	if parsed, err := strconv.ParseBool(active); err == nil {
		input.IsActive = parsed
	}

	updated, err := c.client.UpdateDevice(ctx, id, input)
	if err != nil {
		c.reportError("Device edit", err)
		return
	}
	fmt.Fprintf(c.out, "Updated device %d (%s).\n", updated.ID, updated.DeviceName)
}

func (c *Console) resetDeviceToken(ctx context.Context, id int64) {
	if !c.confirm(fmt.Sprintf("Reset the token for device %d? The old token stops working immediately.", id)) {
		fmt.Fprintln(c.out, "Cancelled.")
		return
	}
	rotated, err := c.client.ResetDeviceToken(ctx, id)
	if err != nil {
		c.reportError("Token reset", err)
		return
	}
	fmt.Fprintf(c.out, "Token reset for device %d (%s).\n", rotated.ID, rotated.DeviceName)
	c.revealToken(rotated)
}

func (c *Console) removeDevice(ctx context.Context, id int64) {
	if !c.confirm(fmt.Sprintf("Delete device %d? This cannot be undone.", id)) {
		fmt.Fprintln(c.out, "Cancelled.")
		return
	}
	if err := c.client.DeleteDevice(ctx, id); err != nil {
		c.reportError("Device deletion", err)
		return
	}
	fmt.Fprintf(c.out, "Deleted device %d. Users referencing it keep the stale id until their next edit.\n", id)
}
