package match

import (
	"fmt"

	"github.com/vovakirdan/duelsync/internal/game"
	"github.com/vovakirdan/duelsync/internal/session"
)

// Kind classifies a mutation-path failure. Callers branch on the kind
// instead of unwinding; every failure is contained inside this package and
// never reaches another session's queues.
type Kind int

const (
	// KindValidation: the rules engine rejected the mutation; state was
	// rolled back to the pre-attempt snapshot.
	KindValidation Kind = iota
	// KindUnknown: the event referenced a session or sender that does not
	// exist or is not authorized.
	KindUnknown
	// KindAdmission: a watch request failed the password check.
	KindAdmission
	// KindNotFound: the session is absent or the sender ineligible.
	KindNotFound
	// KindUnexpected: the engine panicked; state was rolled back.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnknown:
		return "unknown-session-or-role"
	case KindAdmission:
		return "admission-denied"
	case KindNotFound:
		return "not-found"
	default:
		return "unexpected"
	}
}

// Failure carries the diagnostic context of a rejected or failed mutation:
// who did what to which session, and who was present at the time.
type Failure struct {
	Kind       Kind
	SessionID  string
	UID        string
	Side       game.Side
	Command    string
	Args       map[string]any
	Players    []string
	Spectators []string
	Stack      []byte
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("match: %s failure in session %s (uid=%s command=%s): %v",
		f.Kind, f.SessionID, f.UID, f.Command, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func newFailure(k Kind, sess *session.Session, uid string, side game.Side, command string, args map[string]any, err error) *Failure {
	f := &Failure{
		Kind:    k,
		UID:     uid,
		Side:    side,
		Command: command,
		Args:    args,
		Err:     err,
	}
	if sess != nil {
		f.SessionID = sess.ID
		f.Players, f.Spectators = sess.Roster()
	}
	return f
}
