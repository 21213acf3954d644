// Package diff computes role-appropriate deltas and full projections of
// match state. All five role variants of a bundle derive from the same
// (old, new) state pair so no viewer ever observes a transition the others
// did not.
package diff

import (
	"reflect"
	"sort"

	"github.com/vovakirdan/duelsync/internal/game"
)

// Delta is the minimal change between two views of the same role: fields
// whose values changed or appeared, and fields that disappeared.
type Delta struct {
	Changed game.View `json:"changed,omitempty"`
	Removed []string  `json:"removed,omitempty"`
}

// Empty reports whether the delta carries no change at all.
func (d *Delta) Empty() bool {
	return d == nil || (len(d.Changed) == 0 && len(d.Removed) == 0)
}

// Compute returns the shallow field delta between two views.
func Compute(old, next game.View) *Delta {
	d := &Delta{}
	for key, val := range next {
		if prev, ok := old[key]; !ok || !reflect.DeepEqual(prev, val) {
			if d.Changed == nil {
				d.Changed = game.View{}
			}
			d.Changed[key] = val
		}
	}
	for key := range old {
		if _, ok := next[key]; !ok {
			d.Removed = append(d.Removed, key)
		}
	}
	sort.Strings(d.Removed)
	return d
}

// Bundle holds one delta per role. Spectator variants are nil when the diff
// was computed without that audience present.
type Bundle struct {
	PlayerA    *Delta
	PlayerB    *Delta
	Spectator  *Delta
	SpectatorA *Delta
	SpectatorB *Delta
}

// ForRole selects the variant a viewer with the given role receives.
// A nil return means there is nothing to deliver to that role.
func (b *Bundle) ForRole(r game.Role) any {
	var d *Delta
	switch r {
	case game.RolePlayerA:
		d = b.PlayerA
	case game.RolePlayerB:
		d = b.PlayerB
	case game.RoleSpectatorA:
		d = b.SpectatorA
	case game.RoleSpectatorB:
		d = b.SpectatorB
	case game.RoleSpectator:
		d = b.Spectator
	}
	if d == nil {
		return nil
	}
	return d
}

// Diff computes the per-role deltas for one committed state transition.
// The two player variants are always computed; spectator variants only when
// the corresponding audience exists, purely to avoid wasted work.
func Diff(old, next game.State, withSpectators, withSpectatorsA, withSpectatorsB bool) *Bundle {
	b := &Bundle{
		PlayerA: Compute(old.ViewFor(game.RolePlayerA), next.ViewFor(game.RolePlayerA)),
		PlayerB: Compute(old.ViewFor(game.RolePlayerB), next.ViewFor(game.RolePlayerB)),
	}
	if withSpectators {
		b.Spectator = Compute(old.ViewFor(game.RoleSpectator), next.ViewFor(game.RoleSpectator))
	}
	if withSpectatorsA {
		b.SpectatorA = Compute(old.ViewFor(game.RoleSpectatorA), next.ViewFor(game.RoleSpectatorA))
	}
	if withSpectatorsB {
		b.SpectatorB = Compute(old.ViewFor(game.RoleSpectatorB), next.ViewFor(game.RoleSpectatorB))
	}
	return b
}

// MessageDiff computes deltas touching only the shared log field, for chat
// and notification updates that change no game state.
func MessageDiff(old, next game.State) *Bundle {
	return &Bundle{
		PlayerA:    logDelta(old, next, game.RolePlayerA),
		PlayerB:    logDelta(old, next, game.RolePlayerB),
		Spectator:  logDelta(old, next, game.RoleSpectator),
		SpectatorA: logDelta(old, next, game.RoleSpectatorA),
		SpectatorB: logDelta(old, next, game.RoleSpectatorB),
	}
}

func logDelta(old, next game.State, r game.Role) *Delta {
	prev := old.ViewFor(r)[game.LogField]
	cur := next.ViewFor(r)[game.LogField]
	if reflect.DeepEqual(prev, cur) {
		return &Delta{}
	}
	return &Delta{Changed: game.View{game.LogField: cur}}
}

// HistoryDelta is the record appended to the session history for one
// mutation: the spectator-perspective delta, which by construction exposes
// neither side's hidden information.
func HistoryDelta(old, next game.State) *Delta {
	return Compute(old.ViewFor(game.RoleSpectator), next.ViewFor(game.RoleSpectator))
}

// Projection holds one full role-filtered snapshot per role, used for start,
// resync and rejoin deliveries.
type Projection struct {
	PlayerA    game.View
	PlayerB    game.View
	Spectator  game.View
	SpectatorA game.View
	SpectatorB game.View
}

// ForRole selects the snapshot a viewer with the given role receives.
func (p *Projection) ForRole(r game.Role) any {
	var v game.View
	switch r {
	case game.RolePlayerA:
		v = p.PlayerA
	case game.RolePlayerB:
		v = p.PlayerB
	case game.RoleSpectatorA:
		v = p.SpectatorA
	case game.RoleSpectatorB:
		v = p.SpectatorB
	case game.RoleSpectator:
		v = p.Spectator
	}
	if v == nil {
		return nil
	}
	return v
}

// Project produces all five full projections of a single state.
func Project(s game.State) *Projection {
	return &Projection{
		PlayerA:    s.ViewFor(game.RolePlayerA),
		PlayerB:    s.ViewFor(game.RolePlayerB),
		Spectator:  s.ViewFor(game.RoleSpectator),
		SpectatorA: s.ViewFor(game.RoleSpectatorA),
		SpectatorB: s.ViewFor(game.RoleSpectatorB),
	}
}
