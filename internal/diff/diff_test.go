package diff

import (
	"reflect"
	"testing"

	"github.com/vovakirdan/duelsync/internal/game"
	_ "github.com/vovakirdan/duelsync/internal/game/duel"
)

func newStates(t *testing.T) (game.Engine, game.State, game.State) {
	t.Helper()
	engine, err := game.New("duel")
	if err != nil {
		t.Fatalf("game.New() failed: %v", err)
	}
	seats := []game.Seat{
		{UID: "alice", Side: game.SideA, Deck: "aggro"},
		{UID: "bob", Side: game.SideB, Deck: "control"},
	}
	old, err := engine.Init(seats, 7)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	next := old.Clone()
	if err := engine.ApplyAction(next, "alice", game.SideA, "draw", map[string]any{"count": 2}); err != nil {
		t.Fatalf("ApplyAction() failed: %v", err)
	}
	return engine, old, next
}

func TestComputeShallowDelta(t *testing.T) {
	old := game.View{"a": 1, "b": "x", "gone": true}
	next := game.View{"a": 1, "b": "y", "new": 3}

	d := Compute(old, next)
	if !reflect.DeepEqual(d.Changed, game.View{"b": "y", "new": 3}) {
		t.Errorf("Changed = %v", d.Changed)
	}
	if !reflect.DeepEqual(d.Removed, []string{"gone"}) {
		t.Errorf("Removed = %v", d.Removed)
	}

	same := Compute(next, next)
	if !same.Empty() {
		t.Errorf("Delta of identical views not empty: %+v", same)
	}
}

func TestDiffPrivacy(t *testing.T) {
	_, old, next := newStates(t)
	b := Diff(old, next, true, true, true)

	// Alice drew cards; her own delta names them, nobody else's may.
	if _, ok := b.PlayerA.Changed["hand"]; !ok {
		t.Error("Acting side's diff is missing its own hand")
	}
	for name, d := range map[string]*Delta{
		"player-b":    b.PlayerB,
		"spectator":   b.Spectator,
		"spectator-b": b.SpectatorB,
	} {
		if _, ok := d.Changed["hand"]; ok {
			t.Errorf("%s diff leaks side A's hand contents", name)
		}
	}
	// The side-A privileged spectator is entitled to the hand.
	if _, ok := b.SpectatorA.Changed["hand"]; !ok {
		t.Error("Side-A privileged spectator diff is missing the hand it may see")
	}
	// Everyone still learns the count changed.
	if _, ok := b.Spectator.Changed["hand-counts"]; !ok {
		t.Error("Spectator diff is missing the public hand count change")
	}
}

func TestDiffSkipsAbsentAudiences(t *testing.T) {
	_, old, next := newStates(t)
	b := Diff(old, next, false, false, false)

	if b.PlayerA == nil || b.PlayerB == nil {
		t.Fatal("Player diffs must always be computed")
	}
	if b.Spectator != nil || b.SpectatorA != nil || b.SpectatorB != nil {
		t.Error("Spectator variants computed with no audience present")
	}
	if b.ForRole(game.RoleSpectator) != nil {
		t.Error("ForRole returned a payload for an uncomputed variant")
	}
}

func TestAllVariantsDeriveFromOneTransition(t *testing.T) {
	engine, old, mid := newStates(t)
	next := mid.Clone()
	if err := engine.ApplyNotification(next, "second step"); err != nil {
		t.Fatalf("ApplyNotification() failed: %v", err)
	}

	// Diffing (old, next) must reflect both steps in every variant,
	// proving no variant was computed against an intermediate state.
	b := Diff(old, next, true, false, false)
	for name, d := range map[string]*Delta{
		"player-a": b.PlayerA, "player-b": b.PlayerB, "spectator": b.Spectator,
	} {
		logVal, ok := d.Changed[game.LogField].([]string)
		if !ok {
			t.Fatalf("%s delta has no log change", name)
		}
		if logVal[len(logVal)-1] != "second step" {
			t.Errorf("%s delta missing the final transition", name)
		}
	}
}

func TestMessageDiffTouchesOnlyLog(t *testing.T) {
	engine, old, _ := newStates(t)
	next := old.Clone()
	if err := engine.ApplyNotification(next, "alice: hello"); err != nil {
		t.Fatalf("ApplyNotification() failed: %v", err)
	}

	b := MessageDiff(old, next)
	for name, d := range map[string]*Delta{
		"player-a": b.PlayerA, "player-b": b.PlayerB, "spectator": b.Spectator,
		"spectator-a": b.SpectatorA, "spectator-b": b.SpectatorB,
	} {
		if len(d.Changed) != 1 {
			t.Errorf("%s message diff touches %d fields, want 1", name, len(d.Changed))
		}
		if _, ok := d.Changed[game.LogField]; !ok {
			t.Errorf("%s message diff is missing the log field", name)
		}
		if len(d.Removed) != 0 {
			t.Errorf("%s message diff removed fields: %v", name, d.Removed)
		}
	}
}

func TestProjectPrivacy(t *testing.T) {
	_, _, state := newStates(t)
	p := Project(state)

	if _, ok := p.PlayerA["hand"]; !ok {
		t.Error("Side A's own projection is missing its hand")
	}
	if _, ok := p.Spectator["hand"]; ok {
		t.Error("Generic spectator projection exposes a hand")
	}
	if _, ok := p.SpectatorB["hand"]; !ok {
		t.Error("Side-B privileged projection is missing side B's hand")
	}
	if !reflect.DeepEqual(p.SpectatorA["hand"], p.PlayerA["hand"]) {
		t.Error("Side-A privileged spectator sees a different hand than side A")
	}
}

func TestProjectDeterministic(t *testing.T) {
	_, _, state := newStates(t)
	p1 := Project(state)
	p2 := Project(state)
	if !reflect.DeepEqual(p1, p2) {
		t.Error("Two projections of the same state differ")
	}
}

func TestHistoryDeltaIsSpectatorSafe(t *testing.T) {
	_, old, next := newStates(t)
	d := HistoryDelta(old, next)
	if _, ok := d.Changed["hand"]; ok {
		t.Error("History delta exposes private hand contents")
	}
	if d.Empty() {
		t.Error("History delta for a real transition is empty")
	}
}
