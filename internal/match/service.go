// Package match routes inbound events through the per-session execution
// domains, applies rules-engine mutations under snapshot/rollback, keeps the
// history log and drives broadcast.
package match

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duelsync/internal/game"
	"github.com/vovakirdan/duelsync/internal/push"
	"github.com/vovakirdan/duelsync/internal/serial"
	"github.com/vovakirdan/duelsync/internal/session"
)

// Outbound event names.
const (
	EventState  = "state"  // full role projection (start, resync, rejoin)
	EventDiff   = "diff"   // per-role delta for one committed mutation
	EventError  = "error"  // mutation rejected, sent to the actor only
	EventTyping = "typing" // forwarded typing indicator
	EventLobby  = "lobby"  // membership summary
)

// Watch admission codes.
const (
	CodeOK        = 200
	CodeForbidden = 403
	CodeNotFound  = 404
)

// Recorder is the persistence hook. Calls are fire-and-forget; a nil
// Recorder disables recording.
type Recorder interface {
	RecordMatchStarted(sessionID, gameID, sideAUID, sideBUID string, startedAt time.Time) error
	RecordMatchResult(sessionID, winnerUID, endReason string, endedAt time.Time) error
}

// Service is the synchronization core: one instance serves every session in
// the process.
type Service struct {
	registry   *session.Registry
	serializer *serial.Serializer
	dispatcher *push.Dispatcher
	admission  AdmissionPolicy
	recorder   Recorder
	logger     *log.Logger

	clock func() time.Time
	seed  func() int64
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the persistence hook.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithAdmission replaces the default password policy.
func WithAdmission(p AdmissionPolicy) Option {
	return func(s *Service) { s.admission = p }
}

// WithClock replaces the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithSeed replaces the engine seed source, for tests.
func WithSeed(seed func() int64) Option {
	return func(s *Service) { s.seed = seed }
}

// NewService wires the core together.
func NewService(reg *session.Registry, ser *serial.Serializer, disp *push.Dispatcher, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		registry:   reg,
		serializer: ser,
		dispatcher: disp,
		admission:  PasswordPolicy{},
		logger:     logger,
		clock:      time.Now,
		seed:       func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	ser.OnPanic = func(r any) {
		logger.Error("task panic", "recovered", r)
	}
	return s
}

// Registry exposes the session registry (read paths and tests).
func (s *Service) Registry() *session.Registry { return s.registry }

// Drain waits for both domains of a session to go idle. Shutdown and tests.
func (s *Service) Drain(sessionID string) {
	<-s.serializer.Barrier(sessionID, serial.Membership)
	<-s.serializer.Barrier(sessionID, serial.Match)
}

// Summary is the lobby digest broadcast after membership changes.
type Summary struct {
	ID         string   `json:"id"`
	GameID     string   `json:"game_id"`
	Players    []string `json:"players"`
	Spectators int      `json:"spectators"`
	Started    bool     `json:"started"`
	Protected  bool     `json:"protected"`
	Muted      bool     `json:"muted"`
}

func summarize(sess *session.Session) Summary {
	players, spectators := sess.Roster()
	if players == nil {
		players = []string{}
	}
	return Summary{
		ID:         sess.ID,
		GameID:     sess.GameID,
		Players:    players,
		Spectators: len(spectators),
		Started:    sess.Started(),
		Protected:  sess.Password != "",
		Muted:      sess.Muted(),
	}
}

func (s *Service) broadcastSummary(sess *session.Session) {
	summary := summarize(sess)
	for _, uid := range sess.ViewerUIDs() {
		s.dispatcher.Send(uid, EventLobby, summary)
	}
}

// reportUnknown logs the structured diagnostic for an event referencing a
// session or sender that cannot act. No state change, no broadcast.
func (s *Service) reportUnknown(sess *session.Session, sid, uid, command string, args map[string]any) {
	f := newFailure(KindUnknown, sess, uid, game.SideNone, command, args, fmt.Errorf("no such session or role"))
	if f.SessionID == "" {
		f.SessionID = sid
	}
	s.logger.Warn("unknown session or role",
		"session", f.SessionID, "uid", uid, "command", command,
		"players", f.Players, "spectators", f.Spectators)
}
