// Package game defines the contract between the synchronization core and the
// rule sets it hosts: sides, viewer roles, role-filtered views and the opaque
// match state. Everything else in the module depends on this package; it
// depends on nothing.
package game

// Side identifies one of the two seats in a match.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// String returns a wire-stable name for the side.
func (s Side) String() string {
	switch s {
	case SideA:
		return "side-a"
	case SideB:
		return "side-b"
	default:
		return "none"
	}
}

// Opponent returns the other seat, or SideNone for SideNone.
func (s Side) Opponent() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

// ParseSide maps a wire name back to a Side. Unknown names (including the
// "any" sent by rejoining clients) come back as SideNone.
func ParseSide(name string) Side {
	switch name {
	case "side-a":
		return SideA
	case "side-b":
		return SideB
	default:
		return SideNone
	}
}

// Role classifies a viewer of a session and decides which view variant the
// viewer receives. RoleSpectatorA and RoleSpectatorB are spectators entitled
// to the named side's hidden information; RoleSpectator sees neither side's.
type Role int

const (
	RoleNone Role = iota
	RolePlayerA
	RolePlayerB
	RoleSpectatorA
	RoleSpectatorB
	RoleSpectator
)

// String returns a wire-stable name for the role.
func (r Role) String() string {
	switch r {
	case RolePlayerA:
		return "player-a"
	case RolePlayerB:
		return "player-b"
	case RoleSpectatorA:
		return "spectator-a"
	case RoleSpectatorB:
		return "spectator-b"
	case RoleSpectator:
		return "spectator"
	default:
		return "none"
	}
}

// Side returns the seat whose hidden information the role may see, or
// SideNone for generic spectators and non-viewers.
func (r Role) Side() Side {
	switch r {
	case RolePlayerA, RoleSpectatorA:
		return SideA
	case RolePlayerB, RoleSpectatorB:
		return SideB
	default:
		return SideNone
	}
}

// View is a role-filtered document of match state, keyed by field name.
// Engines build one View per role; a View must never contain information the
// role is not entitled to, because everything downstream (diffing, history,
// broadcast) trusts that filtering already happened here.
type View map[string]any

// LogField is the one field every View must carry: the shared message log.
// Chat and notifications diff only this field.
const LogField = "log"
