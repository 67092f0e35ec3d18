package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BobChen3310/esp32-access-system/internal/api"
)

// countToday counts events stamped on now's calendar day, in now's
// location.
func countToday(events []api.AccessEvent, now time.Time) int {
	year, month, day := now.Date()
	count := 0
	for _, e := range events {
		y, m, d := e.Timestamp.In(now.Location()).Date()
		if y == year && m == month && d == day {
			count++
		}
	}
	return count
}

// showDashboard renders one snapshot. Every refresh replaces the whole
// snapshot with the latest responses; nothing carries over from the
// previous cycle.
func (c *Console) showDashboard(ctx context.Context) {
	users, err := c.client.ListUsers(ctx)
	if err != nil {
		c.reportDashboardOffline(err)
		return
	}
	events, err := c.client.ListAccessLogs(ctx, 1000)
	if err != nil {
		c.reportDashboardOffline(err)
		return
	}

	fmt.Fprintf(c.out, "[%s] users: %d | events: %d | today: %d | backend: online\n",
		time.Now().Format("15:04:05"), len(users), len(events), countToday(events, time.Now()))
}

func (c *Console) reportDashboardOffline(err error) {
	c.reportError("Dashboard", err)
	if errors.Is(err, api.ErrSessionExpired) {
		// The session was rejected, not the backend unreachable; the expiry
		// hook already said so.
		return
	}
	fmt.Fprintf(c.out, "[%s] backend: offline\n", time.Now().Format("15:04:05"))
}

// runWatch repeats a view on the poll interval until the operator presses
// Enter. A slow or out-of-order cycle cannot interleave with the next: each
// tick fetches and renders synchronously, wholesale.
func (c *Console) runWatch(ctx context.Context, args []string) {
	var refresh func(context.Context)
	view := "dashboard"
	if len(args) > 0 {
		view = args[0]
	}
	switch view {
	case "dashboard":
		refresh = c.showDashboard
	case "logs":
		refresh = func(ctx context.Context) { c.showLogs(ctx, nil) }
	default:
		fmt.Fprintln(c.out, "Usage: watch dashboard | watch logs")
		return
	}

	fmt.Fprintf(c.out, "Refreshing every %s, press Enter to stop.\n", c.cfg.PollInterval)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	refresh(ctx)
	for {
		select {
		case res, ok := <-c.lines:
			// One line of input ends the watch; it also counts as activity.
			// A closed input stream ends it too, and the prompt loop sees
			// the EOF on its next read.
			if ok && res.err == nil {
				c.idle.Touch()
			}
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.store.Authenticated() {
				return
			}
			refresh(ctx)
		}
	}
}
