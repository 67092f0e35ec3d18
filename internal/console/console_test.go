package console

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BobChen3310/esp32-access-system/internal/api"
	"github.com/BobChen3310/esp32-access-system/internal/apitest"
	"github.com/BobChen3310/esp32-access-system/internal/config"
	"github.com/BobChen3310/esp32-access-system/internal/session"
)

func TestResolveDeviceNamesRendersUnknownIDs(t *testing.T) {
	devices := []api.Device{
		{ID: 1, DeviceName: "Door-1"},
		{ID: 3, DeviceName: "Door-3"},
	}
	names := resolveDeviceNames([]int64{1, 2, 3}, devices)
	want := []string{"Door-1", "(unknown:2)", "Door-3"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestCountToday(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	events := []api.AccessEvent{
		{Timestamp: now.Add(-time.Hour)},
		{Timestamp: now.Add(-14 * time.Hour)},
		{Timestamp: now.Add(-26 * time.Hour)},
		{Timestamp: now.AddDate(0, 0, -7)},
	}
	if got := countToday(events, now); got != 2 {
		t.Fatalf("expected 2 events today, got %d", got)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)
	if got := exportFilename(now); got != "access_logs_20260314_1504.csv" {
		t.Fatalf("unexpected export filename %q", got)
	}
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	return config.Config{
		APIBaseURL:   baseURL,
		StateDir:     t.TempDir(),
		ExportDir:    t.TempDir(),
		IdleTimeout:  time.Minute,
		PollInterval: 10 * time.Millisecond,
	}
}

func newBackend(t *testing.T) (*apitest.Server, string) {
	t.Helper()
	backend := apitest.NewServer()
	backend.SeedAdmin("alice", "correct")
	server := httptest.NewServer(backend.Router())
	t.Cleanup(server.Close)
	return backend, server.URL
}

// safeBuffer collects output that may arrive from the console loop and its
// timer goroutines while the test is still inspecting it.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *safeBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, output so far:\n%s", want, out.String())
}

func runScript(t *testing.T, cfg config.Config, store *session.Store, script string) string {
	t.Helper()
	var out bytes.Buffer
	ui := New(cfg, store, strings.NewReader(script), &out)
	if err := ui.Run(context.Background()); err != nil {
		t.Fatalf("console run error: %v", err)
	}
	return out.String()
}

func TestScriptedLoginRetryAndDeviceLifecycle(t *testing.T) {
	_, baseURL := newBackend(t)
	cfg := testConfig(t, baseURL)
	store := session.NewStore(cfg.StateDir)

	script := strings.Join([]string{
		"alice", "wrong", // rejected, generic message
		"alice", "correct",
		"device add", "Door-1", "Lobby",
		"devices",
		"logout",
	}, "\n") + "\n"

	out := runScript(t, cfg, store, script)

	if !strings.Contains(out, "Invalid username or password.") {
		t.Fatalf("expected generic rejection message, got:\n%s", out)
	}
	if !strings.Contains(out, "Welcome, alice.") {
		t.Fatalf("expected welcome for alice, got:\n%s", out)
	}
	if !strings.Contains(out, "shown once") {
		t.Fatalf("expected one-time token reveal, got:\n%s", out)
	}
	if !strings.Contains(out, "(hidden)") {
		t.Fatalf("expected device list to mask the token, got:\n%s", out)
	}
	if store.Authenticated() {
		t.Fatalf("expected logged-out store after script")
	}
}

func TestScriptedServerRejectionRoutesToLogin(t *testing.T) {
	_, baseURL := newBackend(t)
	cfg := testConfig(t, baseURL)
	store := session.NewStore(cfg.StateDir)
	if err := store.SetCredential("forged-or-expired"); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	out := runScript(t, cfg, store, "users\n")

	if !strings.Contains(out, "Session rejected by the server.") {
		t.Fatalf("expected server rejection notice, got:\n%s", out)
	}
	if !strings.Contains(out, "Access console login") {
		t.Fatalf("expected fallback to the login surface, got:\n%s", out)
	}
	if store.Authenticated() {
		t.Fatalf("expected torn-down session")
	}
}

func TestScriptedIdleExpiryEndsSessionOnce(t *testing.T) {
	_, baseURL := newBackend(t)
	cfg := testConfig(t, baseURL)
	cfg.IdleTimeout = 50 * time.Millisecond
	store := session.NewStore(cfg.StateDir)

	reader, writer := io.Pipe()
	var out safeBuffer
	ui := New(cfg, store, reader, &out)

	done := make(chan error, 1)
	go func() { done <- ui.Run(context.Background()) }()

	_, _ = io.WriteString(writer, "alice\ncorrect\n")
	time.Sleep(300 * time.Millisecond)
	_, _ = io.WriteString(writer, "devices\n")
	writer.Close()

	if err := <-done; err != nil {
		t.Fatalf("console run error: %v", err)
	}
	if store.Authenticated() {
		t.Fatalf("expected idle expiry to end the session")
	}
	if got := strings.Count(out.String(), "Session ended after inactivity."); got != 1 {
		t.Fatalf("expected exactly one idle expiry notice, got %d in:\n%s", got, out.String())
	}
}

func TestScriptedWatchTeardownThenLoginSucceeds(t *testing.T) {
	_, baseURL := newBackend(t)
	cfg := testConfig(t, baseURL)
	store := session.NewStore(cfg.StateDir)
	if err := store.SetCredential("forged-or-expired"); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	reader, writer := io.Pipe()
	var out safeBuffer
	ui := New(cfg, store, reader, &out)

	done := make(chan error, 1)
	go func() { done <- ui.Run(context.Background()) }()

	// The first watch refresh gets rejected, tearing the session down; the
	// watch must end on its own and hand the next lines to the login prompt
	// untouched.
	if _, err := io.WriteString(writer, "watch logs\n"); err != nil {
		t.Fatalf("write script: %v", err)
	}
	waitForOutput(t, &out, "Username: ")

	if _, err := io.WriteString(writer, "alice\ncorrect\nquit\n"); err != nil {
		t.Fatalf("write script: %v", err)
	}
	writer.Close()

	if err := <-done; err != nil {
		t.Fatalf("console run error: %v", err)
	}
	if !strings.Contains(out.String(), "Session rejected by the server.") {
		t.Fatalf("expected server rejection notice, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Welcome, alice.") {
		t.Fatalf("expected the login after the watch to succeed, got:\n%s", out.String())
	}
	if !store.Authenticated() {
		t.Fatalf("expected an authenticated session after re-login")
	}
}

func TestScriptedDashboardRejectionIsNotReportedOffline(t *testing.T) {
	_, baseURL := newBackend(t)
	cfg := testConfig(t, baseURL)
	store := session.NewStore(cfg.StateDir)
	if err := store.SetCredential("forged-or-expired"); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	out := runScript(t, cfg, store, "dashboard\n")

	if !strings.Contains(out, "Session rejected by the server.") {
		t.Fatalf("expected server rejection notice, got:\n%s", out)
	}
	if strings.Contains(out, "backend: offline") {
		t.Fatalf("credential rejection must not read as backend downtime, got:\n%s", out)
	}
}

func TestScriptedUserListRendersUnknownDeviceIDs(t *testing.T) {
	backend, baseURL := newBackend(t)
	cfg := testConfig(t, baseURL)
	store := session.NewStore(cfg.StateDir)

	script := strings.Join([]string{
		"alice", "correct",
		"device add", "Door-1", "Lobby",
		"user add", "S001", "Bob", "", "", "1", // permission set {Door-1}
		"users",
	}, "\n") + "\n"
	out := runScript(t, cfg, store, script)
	if !strings.Contains(out, "Door-1") {
		t.Fatalf("expected resolved device name, got:\n%s", out)
	}

	// Model a backend that orphans the reference when the device goes away.
	backend.OrphanUserDevice(2, 99)

	store2 := session.NewStore(cfg.StateDir)
	out = runScript(t, cfg, store2, "alice\ncorrect\nusers\nquit\n")
	if !strings.Contains(out, "(unknown:99)") {
		t.Fatalf("expected unknown placeholder for orphaned id, got:\n%s", out)
	}
}
