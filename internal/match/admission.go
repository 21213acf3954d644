package match

import (
	"crypto/subtle"

	"github.com/vovakirdan/duelsync/internal/session"
)

// AdmissionPolicy decides whether a watch request may enter a session.
// Authentication proper lives outside this service; this is only the
// per-session gate.
type AdmissionPolicy interface {
	Allowed(sess *session.Session, uid, password string) bool
}

// PasswordPolicy is the default policy: open sessions admit everyone,
// protected ones require the exact password.
type PasswordPolicy struct{}

// Allowed reports whether uid may watch sess.
func (PasswordPolicy) Allowed(sess *session.Session, uid, password string) bool {
	if sess.Password == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(sess.Password), []byte(password)) == 1
}
