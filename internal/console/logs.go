package console

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/BobChen3310/esp32-access-system/internal/api"
)

func (c *Console) showLogs(ctx context.Context, args []string) {
	limit := 50
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			fmt.Fprintf(c.out, "Not a valid limit: %q\n", args[0])
			return
		}
		limit = parsed
	}
	events, err := c.client.ListAccessLogs(ctx, limit)
	if err != nil {
		c.reportError("Access log", err)
		return
	}
	c.renderEvents(events)
}

func (c *Console) renderEvents(events []api.AccessEvent) {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tCARD\tMETHOD\tSTATUS\tDETAILS")
	for _, e := range events {
		name := e.UserName
		if name == "" {
			name = "-"
		}
		card := e.CardUID
		if card == "" {
			card = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), name, card, e.Method, e.Status, e.Details)
	}
	w.Flush()
}

// exportFilename stamps the download the way operators expect to find it
// later: access_logs_YYYYMMDD_HHMM.csv.
func exportFilename(now time.Time) string {
	return "access_logs_" + now.Format("20060102_1504") + ".csv"
}

func (c *Console) exportLogs(ctx context.Context) {
	payload, err := c.client.ExportAccessLogs(ctx)
	if err != nil {
		c.reportError("Export", err)
		return
	}
	path := filepath.Join(c.cfg.ExportDir, exportFilename(time.Now()))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		c.reportError("Export", err)
		return
	}
	fmt.Fprintf(c.out, "Exported %d bytes to %s.\n", len(payload), path)
}
