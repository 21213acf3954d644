package push

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duelsync/internal/game"
	"github.com/vovakirdan/duelsync/internal/session"
)

type recorded struct {
	event   string
	payload any
}

type fakeSender struct {
	mu   sync.Mutex
	got  []recorded
	fail bool
}

func (f *fakeSender) Send(_ string, event string, payload any) error {
	if f.fail {
		return errors.New("connection gone")
	}
	f.mu.Lock()
	f.got = append(f.got, recorded{event: event, payload: payload})
	f.mu.Unlock()
	return nil
}

// roleBundle hands out the role name itself, so tests can see which variant
// each viewer was given.
type roleBundle struct{}

func (roleBundle) ForRole(r game.Role) any {
	if r == game.RoleSpectator {
		// Variant deliberately absent for the generic tier.
		return nil
	}
	return r.String()
}

func testDispatcher() *Dispatcher {
	return NewDispatcher(log.New(io.Discard))
}

func testSession() *session.Session {
	s := session.New("S1", "duel", session.Player{UID: "alice", Side: game.SideA}, "", time.Now())
	if err := s.AddPlayer(session.Player{UID: "bob", Side: game.SideB}); err != nil {
		panic(err)
	}
	s.AddSpectator("carol", game.SideNone)
	s.AddSpectator("dave", game.SideB)
	return s
}

func TestBroadcastSelectsRoleVariant(t *testing.T) {
	d := testDispatcher()
	sess := testSession()

	conns := map[string]*fakeSender{}
	for _, uid := range []string{"alice", "bob", "carol", "dave"} {
		c := &fakeSender{}
		conns[uid] = c
		d.Register(uid, c)
	}

	d.Broadcast(sess, "diff", roleBundle{})

	want := map[string]string{
		"alice": game.RolePlayerA.String(),
		"bob":   game.RolePlayerB.String(),
		"dave":  game.RoleSpectatorB.String(),
	}
	for uid, variant := range want {
		got := conns[uid].got
		if len(got) != 1 {
			t.Fatalf("%s received %d messages, want 1", uid, len(got))
		}
		if got[0].payload != variant {
			t.Errorf("%s received variant %v, want %v", uid, got[0].payload, variant)
		}
	}
	// carol's variant is nil; she must receive nothing at all.
	if len(conns["carol"].got) != 0 {
		t.Errorf("Viewer with a nil variant received %d messages", len(conns["carol"].got))
	}
}

func TestBroadcastSkipsUnreachable(t *testing.T) {
	d := testDispatcher()
	sess := testSession()

	alice := &fakeSender{}
	d.Register("alice", alice)
	// bob has no sender, dave's sender fails on every write.
	d.Register("dave", &fakeSender{fail: true})

	d.Broadcast(sess, "diff", roleBundle{})

	if len(alice.got) != 1 {
		t.Errorf("Reachable viewer received %d messages, want 1", len(alice.got))
	}
}

func TestUnregisterOwnership(t *testing.T) {
	d := testDispatcher()
	first := &fakeSender{}
	second := &fakeSender{}

	d.Register("alice", first)
	d.Register("alice", second)

	// The stale connection's teardown must not detach the replacement.
	if d.Unregister("alice", first) {
		t.Error("Stale unregister claimed ownership")
	}
	if !d.Connected("alice") {
		t.Fatal("Replacement sender detached by a stale unregister")
	}

	if !d.Unregister("alice", second) {
		t.Error("Owner's unregister reported no detach")
	}
	if d.Connected("alice") {
		t.Error("Owner's unregister did not detach")
	}
	if d.Unregister("alice", second) {
		t.Error("Unregister of an absent uid reported a detach")
	}
}

func TestSendToUnknownUIDIsNoop(t *testing.T) {
	d := testDispatcher()
	d.Send("ghost", "state", map[string]any{})
	// Reaching here without panic is the assertion.
}
