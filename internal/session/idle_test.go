package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIdleMonitorExpiresOnce(t *testing.T) {
	var expirations int32
	monitor := NewIdleMonitor(30*time.Millisecond, func() {
		atomic.AddInt32(&expirations, 1)
	})

	monitor.Arm()
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&expirations); got != 1 {
		t.Fatalf("expected exactly one expiration, got %d", got)
	}

	// Activity after expiry must not resurrect the timer.
	monitor.Touch()
	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&expirations); got != 1 {
		t.Fatalf("expected no expiration after post-expiry touch, got %d", got)
	}
}

func TestIdleMonitorActivityKeepsSessionAlive(t *testing.T) {
	var expirations int32
	monitor := NewIdleMonitor(60*time.Millisecond, func() {
		atomic.AddInt32(&expirations, 1)
	})
	defer monitor.Disarm()

	monitor.Arm()
	for i := 0; i < 6; i++ {
		time.Sleep(20 * time.Millisecond)
		monitor.Touch()
	}
	if got := atomic.LoadInt32(&expirations); got != 0 {
		t.Fatalf("expected no expiration while active, got %d", got)
	}
}

func TestIdleMonitorDisarmCancelsPendingTimer(t *testing.T) {
	var expirations int32
	monitor := NewIdleMonitor(30*time.Millisecond, func() {
		atomic.AddInt32(&expirations, 1)
	})

	monitor.Arm()
	monitor.Disarm()
	time.Sleep(60 * time.Millisecond)

	if got := atomic.LoadInt32(&expirations); got != 0 {
		t.Fatalf("expected no expiration after disarm, got %d", got)
	}
}

func TestIdleMonitorTouchWhileDisarmedIsIgnored(t *testing.T) {
	var expirations int32
	monitor := NewIdleMonitor(20*time.Millisecond, func() {
		atomic.AddInt32(&expirations, 1)
	})

	monitor.Touch()
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&expirations); got != 0 {
		t.Fatalf("expected disarmed monitor to ignore activity, got %d", got)
	}
}

func TestIdleMonitorRearmRestartsWindow(t *testing.T) {
	var expirations int32
	monitor := NewIdleMonitor(40*time.Millisecond, func() {
		atomic.AddInt32(&expirations, 1)
	})

	monitor.Arm()
	time.Sleep(25 * time.Millisecond)
	monitor.Arm()
	time.Sleep(25 * time.Millisecond)
	if got := atomic.LoadInt32(&expirations); got != 0 {
		t.Fatalf("expected re-arm to restart the window, got %d", got)
	}
	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&expirations); got != 1 {
		t.Fatalf("expected single expiration after quiet period, got %d", got)
	}
}
