package session

import (
	"log"
	"sync"
	"time"
)

// IdleMonitor ends the session after a fixed window without operator
// activity. It is a two-state machine: Armed (authenticated, one timer
// pending) and Disarmed (no timer). At most one timer exists at any time;
// every Touch cancels the pending one before scheduling the next.
type IdleMonitor struct {
	mu       sync.Mutex
	window   time.Duration
	onExpire func()
	timer    *time.Timer
	armed    bool
}

// NewIdleMonitor builds a disarmed monitor. onExpire runs when the window
// elapses without activity; it is expected to log the session out and route
// the operator back to the login prompt.
func NewIdleMonitor(window time.Duration, onExpire func()) *IdleMonitor {
	return &IdleMonitor{window: window, onExpire: onExpire}
}

// Arm starts the inactivity window. Arming an armed monitor just restarts
// the window, the same as a Touch.
func (m *IdleMonitor) Arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = true
	m.reset()
}

// Disarm cancels any pending expiration. Called on logout, voluntary or
// not.
func (m *IdleMonitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Touch registers operator activity. A disarmed monitor ignores it, so
// activity after expiry never resurrects a session.
func (m *IdleMonitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed {
		return
	}
	m.reset()
}

func (m *IdleMonitor) reset() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.window, m.expire)
}

func (m *IdleMonitor) expire() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	m.timer = nil
	m.mu.Unlock()

	log.Printf("session: idle for %s, logging out", m.window)
	m.onExpire()
}
