// Package push fans role-appropriate payloads out to connected viewers over
// an abstract per-uid channel. Delivery is best effort: unreachable uids are
// skipped, failures are swallowed, there are no retries.
package push

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duelsync/internal/game"
	"github.com/vovakirdan/duelsync/internal/session"
)

// Sender is one viewer's outbound channel. Implementations must not block;
// the websocket adapter buffers and drops instead.
type Sender interface {
	Send(uid, event string, payload any) error
}

// Bundle selects a per-role payload. Both diff bundles and projection
// bundles satisfy it.
type Bundle interface {
	ForRole(r game.Role) any
}

// Dispatcher tracks connected senders by uid and delivers broadcasts.
type Dispatcher struct {
	mu     sync.RWMutex
	conns  map[string]Sender
	logger *log.Logger
}

// NewDispatcher creates a dispatcher. logger may not be nil.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		conns:  make(map[string]Sender),
		logger: logger,
	}
}

// Register attaches a sender for uid, replacing any previous one.
func (d *Dispatcher) Register(uid string, s Sender) {
	d.mu.Lock()
	d.conns[uid] = s
	d.mu.Unlock()
}

// Unregister detaches the sender for uid if sender still owns the slot, and
// reports whether it did. A false return means the uid already reconnected
// through a newer sender, which stays attached.
func (d *Dispatcher) Unregister(uid string, s Sender) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := d.conns[uid]
	if !ok || (s != nil && current != s) {
		return false
	}
	delete(d.conns, uid)
	return true
}

// Connected reports whether uid currently has a sender.
func (d *Dispatcher) Connected(uid string) bool {
	d.mu.RLock()
	_, ok := d.conns[uid]
	d.mu.RUnlock()
	return ok
}

// Broadcast delivers the bundle to every participant of the session,
// classifying each uid and selecting its variant. Roles whose variant is nil
// receive nothing.
func (d *Dispatcher) Broadcast(sess *session.Session, event string, b Bundle) {
	for _, uid := range sess.ViewerUIDs() {
		role := session.Classify(uid, sess)
		payload := b.ForRole(role)
		if payload == nil {
			continue
		}
		d.Send(uid, event, payload)
	}
}

// Send is the single-target delivery used for point messages (resync,
// rejoin, errors, typing).
func (d *Dispatcher) Send(uid, event string, payload any) {
	d.mu.RLock()
	sender, ok := d.conns[uid]
	d.mu.RUnlock()
	if !ok {
		return
	}
	if err := sender.Send(uid, event, payload); err != nil {
		d.logger.Debug("push failed", "uid", uid, "event", event, "error", err)
	}
}
