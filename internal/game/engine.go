package game

// Seat describes one player at match start.
type Seat struct {
	UID  string
	Side Side
	Deck string
}

// State is the opaque authoritative match state owned by a rules engine.
// The synchronization core never looks inside it; it only snapshots it for
// rollback and asks it for role-filtered views.
type State interface {
	// ViewFor returns the projection of the state appropriate for r.
	// Must be deterministic: two calls with no intervening mutation
	// return equal views.
	ViewFor(r Role) View

	// Clone returns a deep copy sharing no mutable data with the
	// receiver. Mutations are applied to a clone so that a failing
	// mutation leaves the original untouched.
	Clone() State
}

// Engine interprets game commands against a State. Mutating methods operate
// in place on the passed state (always a clone owned by the caller) and
// return an error to reject the mutation; on error the state is discarded,
// so engines are free to leave it half-modified.
type Engine interface {
	// Init creates the initial state for a started match.
	Init(seats []Seat, seed int64) (State, error)

	// ApplyAction interprets a game command issued by uid playing side.
	ApplyAction(s State, uid string, side Side, command string, args map[string]any) error

	// ApplyNotification appends a chat or system line to the shared log.
	ApplyNotification(s State, text string) error

	// ApplyConcession ends the match with side conceding.
	ApplyConcession(s State, uid string, side Side) error

	// ApplyRejoin records that uid re-entered a running match.
	ApplyRejoin(s State, uid string, side Side) error
}
