// Package console is the operator-facing command loop: a line-oriented
// admin surface over the backend API. All state it renders comes from the
// last response of whichever call produced it; nothing is merged across
// refreshes.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/BobChen3310/esp32-access-system/internal/api"
	"github.com/BobChen3310/esp32-access-system/internal/config"
	"github.com/BobChen3310/esp32-access-system/internal/session"
)

type Console struct {
	cfg    config.Config
	store  *session.Store
	client *api.Client
	idle   *session.IdleMonitor
	lines  chan readResult
	out    io.Writer
}

// readResult is one line of operator input, or the error that ended the
// input stream. EOF is signaled by closing the channel instead.
type readResult struct {
	text string
	err  error
}

func New(cfg config.Config, store *session.Store, in io.Reader, out io.Writer) *Console {
	c := &Console{
		cfg:   cfg,
		store: store,
		lines: make(chan readResult),
		out:   out,
	}
	go readInput(in, c.lines)
	c.idle = session.NewIdleMonitor(cfg.IdleTimeout, c.handleIdleExpiry)
	httpClient := &http.Client{}
	if cfg.RequestTimeout > 0 {
		httpClient.Timeout = cfg.RequestTimeout
	}
	c.client = api.NewClient(cfg.APIBaseURL, store,
		api.WithExpiryHook(c.handleServerExpiry),
		api.WithRequestLogging(cfg.LogRequests),
		api.WithHTTPClient(httpClient),
	)
	return c
}

// Run drives the console until the input closes, the operator quits, or
// ctx is canceled. An unauthenticated loop iteration always lands on the
// login prompt, so every forced teardown routes back there on its own.
func (c *Console) Run(ctx context.Context) error {
	if err := c.store.Initialize(); err != nil {
		return fmt.Errorf("reading persisted session: %w", err)
	}
	if c.store.Authenticated() {
		c.idle.Arm()
		if identity := c.store.Identity(); identity != "" {
			fmt.Fprintf(c.out, "Resumed session for %s.\n", identity)
		} else {
			fmt.Fprintln(c.out, "Resumed session.")
		}
	}

	for {
		if ctx.Err() != nil {
			c.idle.Disarm()
			return nil
		}
		if !c.store.Authenticated() {
			ok, err := c.loginPrompt(ctx)
			if err != nil || !ok {
				return err
			}
			continue
		}

		line, err := c.readLine("> ")
		if err != nil {
			c.idle.Disarm()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		c.idle.Touch()
		if !c.store.Authenticated() {
			// The session expired while the prompt was waiting; drop the
			// input and fall back to the login surface.
			continue
		}
		if quit := c.dispatch(ctx, line); quit {
			c.idle.Disarm()
			return nil
		}
	}
}

// dispatch runs one command line. It reports whether the operator asked to
// quit.
func (c *Console) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "help":
		c.printHelp()
	case "whoami":
		if identity := c.store.Identity(); identity != "" {
			fmt.Fprintln(c.out, identity)
		} else {
			fmt.Fprintln(c.out, "(identity unavailable)")
		}
	case "dashboard":
		c.showDashboard(ctx)
	case "watch":
		c.runWatch(ctx, fields[1:])
	case "users":
		c.listUsers(ctx)
	case "user":
		c.userCommand(ctx, fields[1:])
	case "devices":
		c.listDevices(ctx)
	case "device":
		c.deviceCommand(ctx, fields[1:])
	case "logs":
		c.showLogs(ctx, fields[1:])
	case "export":
		c.exportLogs(ctx)
	case "passwd":
		c.changePassword(ctx)
	case "logout":
		c.logout()
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command %q. Try help.\n", fields[0])
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `Commands:
  dashboard            show counts and backend status
  watch dashboard      refresh the dashboard until Enter is pressed
  users                list cardholders
  user add             register a cardholder
  user edit <id>       edit a cardholder and their device permissions
  user rm <id>         delete a cardholder
  devices              list door controllers
  device add           register a controller (reveals its token once)
  device edit <id>     edit a controller
  device reset <id>    rotate a controller token (old token stops working)
  device rm <id>       delete a controller
  logs [n]             show the latest n access events (default 50)
  watch logs           follow access events until Enter is pressed
  export               download the audit trail as CSV
  passwd               change the operator password
  whoami               show the logged-in identity
  logout               end the session
  quit                 leave the console
`)
}

// handleIdleExpiry is the inactivity timeout firing. It goes through the
// store's single mutation path like every other writer.
func (c *Console) handleIdleExpiry() {
	if !c.store.Clear() {
		return
	}
	fmt.Fprintln(c.out, "\nSession ended after inactivity. Please log in again.")
}

// handleServerExpiry runs after the gateway tore the session down on a 401.
func (c *Console) handleServerExpiry() {
	c.idle.Disarm()
	fmt.Fprintln(c.out, "\nSession rejected by the server. Please log in again.")
}

func (c *Console) logout() {
	c.idle.Disarm()
	c.store.Clear()
	fmt.Fprintln(c.out, "Logged out.")
}

// readInput is the sole reader of the input stream. Every consumer (the
// prompt loop, confirmations, watch views) takes lines from the channel it
// feeds, so two goroutines can never touch the underlying reader at once.
func readInput(in io.Reader, lines chan<- readResult) {
	defer close(lines)
	r := bufio.NewReader(in)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				lines <- readResult{text: trimmed}
			}
			if !errors.Is(err, io.EOF) {
				lines <- readResult{err: err}
			}
			return
		}
		lines <- readResult{text: strings.TrimSpace(line)}
	}
}

func (c *Console) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	res, ok := <-c.lines
	if !ok {
		return "", io.EOF
	}
	if res.err != nil {
		return "", res.err
	}
	return res.text, nil
}

// reportError is the one place operator-visible failure wording lives.
// Validation problems name the field, constraint conflicts carry the
// server's own detail, and everything else collapses into a generic retry
// message.
func (c *Console) reportError(action string, err error) {
	switch {
	case err == nil:
	case api.IsValidation(err):
		fmt.Fprintf(c.out, "%s not submitted: %v\n", action, err)
	case errors.Is(err, api.ErrSessionExpired):
		// The expiry hook already told the operator.
	case api.IsConflict(err):
		var serverErr *api.Error
		if errors.As(err, &serverErr) && serverErr.Detail != "" {
			fmt.Fprintf(c.out, "%s failed: %s\n", action, serverErr.Detail)
		} else {
			fmt.Fprintf(c.out, "%s failed.\n", action)
		}
	default:
		log.Printf("console: %s: %v", strings.ToLower(action), err)
		fmt.Fprintf(c.out, "%s failed, please try again.\n", action)
	}
}

// confirm requires an explicit yes for destructive actions.
func (c *Console) confirm(question string) bool {
	answer, err := c.readLine(question + " [y/N] ")
	if err != nil {
		return false
	}
	c.idle.Touch()
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("not a valid id: %q", raw)
	}
	return id, nil
}
