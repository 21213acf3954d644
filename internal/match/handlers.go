package match

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/duelsync/internal/diff"
	"github.com/vovakirdan/duelsync/internal/game"
	"github.com/vovakirdan/duelsync/internal/serial"
	"github.com/vovakirdan/duelsync/internal/session"
)

// Create opens a pending session with uid as its host and returns the new
// session id. Unlike the queued handlers it is synchronous: the session is
// not reachable by any queue until the registry insert makes it visible.
func (s *Service) Create(uid, gameID, deck, password string, side game.Side) (string, error) {
	if _, err := game.New(gameID); err != nil {
		return "", err
	}
	id := s.registry.NewID()
	sess := session.New(id, gameID, session.Player{UID: uid, Side: side, Deck: deck}, password, s.clock())
	if !s.registry.Insert(sess) {
		return "", fmt.Errorf("match: session id collision for %s", id)
	}
	s.logger.Info("session created", "session", id, "game", gameID, "host", uid)
	s.dispatcher.Send(uid, EventLobby, summarize(sess))
	return id, nil
}

// Join seats uid as the second player of a pending session. reply receives
// an admission code; it may be nil.
func (s *Service) Join(uid, sid, deck string, side game.Side, reply func(code int)) {
	s.serializer.Enqueue(sid, serial.Membership, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			replyCode(reply, CodeNotFound)
			return
		}
		if sess.Started() {
			replyCode(reply, CodeForbidden)
			return
		}
		if err := sess.AddPlayer(session.Player{UID: uid, Side: side, Deck: deck}); err != nil {
			s.logger.Warn("join refused", "session", sid, "uid", uid, "error", err)
			replyCode(reply, CodeForbidden)
			return
		}
		sess.Touched(s.clock())
		replyCode(reply, CodeOK)
		s.broadcastSummary(sess)
	})
}

// Start transitions a pending session to started: fixes the original
// players, initializes state through the rules engine, commits through the
// registry and pushes a full projection to everyone.
func (s *Service) Start(uid, sid string) {
	s.serializer.Enqueue(sid, serial.Membership, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			s.reportUnknown(nil, sid, uid, "start", nil)
			return
		}
		starter, ok := sess.Starter()
		if !ok || starter.UID != uid {
			s.reportUnknown(sess, sid, uid, "start", nil)
			return
		}
		if sess.Started() {
			return
		}
		seats := sess.Seats()
		if len(seats) != 2 {
			s.dispatcher.Send(uid, EventError, map[string]any{
				"command": "start", "error": "both seats must be taken",
			})
			return
		}

		engine, err := game.New(sess.GameID)
		if err != nil {
			s.dispatcher.Send(uid, EventError, map[string]any{"command": "start", "error": err.Error()})
			return
		}
		state, err := engine.Init(seats, s.seed())
		if err != nil {
			s.logger.Error("engine init failed", "session", sid, "game", sess.GameID, "error", err)
			s.dispatcher.Send(uid, EventError, map[string]any{"command": "start", "error": err.Error()})
			return
		}

		now := s.clock()
		sess.MarkStarted(now)
		s.registry.Touch(sid, now)

		if s.recorder != nil {
			sideA, sideB := seatUIDs(seats)
			go func() {
				_ = s.recorder.RecordMatchStarted(sid, sess.GameID, sideA, sideB, now)
			}()
		}

		s.logger.Info("match started", "session", sid, "game", sess.GameID)
		s.broadcastSummary(sess)

		// The opaque state belongs to the match domain; commit and announce
		// it there so no match task ever sees a half-started session.
		s.serializer.Enqueue(sid, serial.Match, func() {
			sess, ok := s.registry.Get(sid)
			if !ok {
				return
			}
			sess.Engine = engine
			sess.State = state
			s.dispatcher.Broadcast(sess, EventState, diff.Project(state))
		})
	})
}

// Leave removes uid from the session. Explicit leaves and disconnects both
// land here; when the last participant goes the session is torn down.
func (s *Service) Leave(uid, sid string) {
	s.serializer.Enqueue(sid, serial.Membership, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			return
		}
		if !sess.Remove(uid) {
			return
		}
		sess.Touched(s.clock())

		if sess.Empty() {
			s.teardown(sess, "abandoned")
			return
		}
		if sess.Started() {
			s.notify(sid, fmt.Sprintf("%s has left the game", uid))
		}
		s.broadcastSummary(sess)
	})
}

// Rejoin re-admits a uid that was seated at start time, as long as fewer
// than two other players currently hold seats. The viewer receives a full
// projection before the rejoin mutation replays through the match domain.
func (s *Service) Rejoin(uid, sid string) {
	s.serializer.Enqueue(sid, serial.Membership, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			s.reportUnknown(nil, sid, uid, "rejoin", nil)
			return
		}
		if !sess.CanRejoin(uid) {
			s.reportUnknown(sess, sid, uid, "rejoin", nil)
			s.dispatcher.Send(uid, EventError, map[string]any{
				"command": "rejoin", "error": "not eligible to rejoin",
			})
			return
		}

		// A rejoining player stops being a spectator of any tier.
		sess.ClearSpectator(uid)

		if _, seated := sess.PlayerByUID(uid); !seated {
			p := session.Player{UID: uid, Side: sess.OriginalSide(uid)}
			for _, op := range sess.OriginalPlayers() {
				if op.UID == uid {
					p.Deck = op.Deck
				}
			}
			if err := sess.AddPlayer(p); err != nil {
				// Original side occupied by a stale seat; take the free one.
				p.Side = game.SideNone
				if err := sess.AddPlayer(p); err != nil {
					s.reportUnknown(sess, sid, uid, "rejoin", nil)
					return
				}
			}
		}
		sess.Touched(s.clock())
		s.broadcastSummary(sess)

		s.serializer.Enqueue(sid, serial.Match, func() {
			sess, ok := s.registry.Get(sid)
			if !ok || sess.State == nil {
				return
			}
			role := session.Classify(uid, sess)
			if role == game.RoleNone {
				return
			}
			s.dispatcher.Send(uid, EventState, sess.State.ViewFor(role))

			p, _ := sess.PlayerByUID(uid)
			s.mutate(sess, uid, p.Side, "rejoin", nil, false, func(st game.State) error {
				return sess.Engine.ApplyRejoin(st, uid, p.Side)
			})
		})
	})
}

// Concede ends the match with the acting player conceding.
func (s *Service) Concede(uid, sid string) {
	s.serializer.Enqueue(sid, serial.Match, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			s.reportUnknown(nil, sid, uid, "concede", nil)
			return
		}
		p, seated := sess.PlayerByUID(uid)
		if !seated {
			s.reportUnknown(sess, sid, uid, "concede", nil)
			return
		}
		f := s.mutate(sess, uid, p.Side, "concede", nil, false, func(st game.State) error {
			return sess.Engine.ApplyConcession(st, uid, p.Side)
		})
		if f == nil && s.recorder != nil {
			winner := ""
			for _, other := range sess.SeatedPlayers() {
				if other.UID != uid {
					winner = other.UID
				}
			}
			now := s.clock()
			go func() {
				_ = s.recorder.RecordMatchResult(sid, winner, "concession", now)
			}()
		}
	})
}

// Action routes an in-match command to the rules engine under rollback.
// Non-players may only issue "toast".
func (s *Service) Action(uid, sid, command string, args map[string]any) {
	s.serializer.Enqueue(sid, serial.Match, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			s.reportUnknown(nil, sid, uid, command, args)
			return
		}
		role := session.Classify(uid, sess)
		side := game.SideNone
		if p, seated := sess.PlayerByUID(uid); seated {
			side = p.Side
		} else {
			if role == game.RoleNone || command != "toast" {
				s.reportUnknown(sess, sid, uid, command, args)
				s.dispatcher.Send(uid, EventError, map[string]any{
					"command": command, "error": "not allowed",
				})
				return
			}
		}
		s.mutate(sess, uid, side, command, args, false, func(st game.State) error {
			return sess.Engine.ApplyAction(st, uid, side, command, args)
		})
	})
}

// Resync pushes a fresh full projection to the requesting viewer only.
func (s *Service) Resync(uid, sid string) {
	s.serializer.Enqueue(sid, serial.Match, func() {
		sess, ok := s.registry.Get(sid)
		if !ok || sess.State == nil {
			return
		}
		role := session.Classify(uid, sess)
		if role == game.RoleNone {
			return
		}
		s.dispatcher.Send(uid, EventState, sess.State.ViewFor(role))
	})
}

// Watch admits uid as a spectator, optionally into a privileged perspective,
// subject to the admission policy. reply receives 200, 403 or 404.
func (s *Service) Watch(uid, sid, password string, perspective game.Side, reply func(code int)) {
	s.serializer.Enqueue(sid, serial.Membership, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			replyCode(reply, CodeNotFound)
			return
		}
		if _, seated := sess.PlayerByUID(uid); seated {
			replyCode(reply, CodeNotFound)
			return
		}
		if !s.admission.Allowed(sess, uid, password) {
			f := newFailure(KindAdmission, sess, uid, game.SideNone, "watch", nil,
				fmt.Errorf("admission denied"))
			s.logger.Warn("watch refused", "session", sid, "uid", uid, "kind", f.Kind.String())
			replyCode(reply, CodeForbidden)
			return
		}

		sess.AddSpectator(uid, perspective)
		sess.Touched(s.clock())
		replyCode(reply, CodeOK)
		s.broadcastSummary(sess)

		if sess.Started() {
			s.notify(sid, fmt.Sprintf("%s is watching", uid))
			s.serializer.Enqueue(sid, serial.Match, func() {
				sess, ok := s.registry.Get(sid)
				if !ok || sess.State == nil {
					return
				}
				role := session.Classify(uid, sess)
				if role == game.RoleNone {
					return
				}
				s.dispatcher.Send(uid, EventState, sess.State.ViewFor(role))
			})
		}
	})
}

// MuteSpectators toggles whether spectator chat reaches the match log.
func (s *Service) MuteSpectators(uid, sid string) {
	s.serializer.Enqueue(sid, serial.Membership, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			return
		}
		if _, seated := sess.PlayerByUID(uid); !seated {
			s.reportUnknown(sess, sid, uid, "mute-spectators", nil)
			return
		}
		muted := sess.ToggleMuted()
		sess.Touched(s.clock())

		verb := "unmutes"
		if muted {
			verb = "mutes"
		}
		if sess.Started() {
			s.notify(sid, fmt.Sprintf("%s %s spectators", uid, verb))
		}
		s.broadcastSummary(sess)
	})
}

// Say handles chat. A leading slash makes it a game command (full diff);
// anything else is a log-only message diff. Chat from muted spectators is
// kept out of the match entirely, except for the sender's own echo.
func (s *Service) Say(uid, sid, message string) {
	s.serializer.Enqueue(sid, serial.Match, func() {
		sess, ok := s.registry.Get(sid)
		if !ok || sess.State == nil {
			return
		}
		role := session.Classify(uid, sess)
		if role == game.RoleNone {
			s.reportUnknown(sess, sid, uid, "say", nil)
			return
		}
		p, seated := sess.PlayerByUID(uid)

		if !seated && sess.Muted() {
			s.echoMuted(sess, uid, role, message)
			return
		}

		if seated && strings.HasPrefix(message, "/") {
			command, args := parseChatCommand(message)
			s.mutate(sess, uid, p.Side, command, args, false, func(st game.State) error {
				return sess.Engine.ApplyAction(st, uid, p.Side, command, args)
			})
			return
		}

		line := fmt.Sprintf("%s: %s", uid, message)
		s.mutate(sess, uid, p.Side, "say", nil, true, func(st game.State) error {
			return sess.Engine.ApplyNotification(st, line)
		})
	})
}

// echoMuted shows a muted spectator its own chat line without committing
// anything to the shared state or history.
func (s *Service) echoMuted(sess *session.Session, uid string, role game.Role, message string) {
	preview := sess.State.Clone()
	line := fmt.Sprintf("%s: %s", uid, message)
	if err := sess.Engine.ApplyNotification(preview, line); err != nil {
		return
	}
	bundle := diff.MessageDiff(sess.State, preview)
	if payload := bundle.ForRole(role); payload != nil {
		s.dispatcher.Send(uid, EventDiff, payload)
	}
}

// Typing forwards a typing indicator to the other player. No mutation.
func (s *Service) Typing(uid, sid string, typing bool) {
	s.serializer.Enqueue(sid, serial.Match, func() {
		sess, ok := s.registry.Get(sid)
		if !ok {
			return
		}
		if _, seated := sess.PlayerByUID(uid); !seated {
			return
		}
		for _, p := range sess.SeatedPlayers() {
			if p.UID != uid {
				s.dispatcher.Send(p.UID, EventTyping, map[string]any{
					"uid": uid, "typing": typing,
				})
			}
		}
	})
}

// ConnectionClosed treats a dropped connection as a leave from every session
// the uid participates in.
func (s *Service) ConnectionClosed(uid string) {
	for sid, sess := range s.registry.Snapshot() {
		if session.Classify(uid, sess) != game.RoleNone {
			s.Leave(uid, sid)
		}
	}
}

// notify replays a system line through the match domain as a log-only diff.
func (s *Service) notify(sid, text string) {
	s.serializer.Enqueue(sid, serial.Match, func() {
		sess, ok := s.registry.Get(sid)
		if !ok || sess.State == nil {
			return
		}
		s.mutate(sess, "", game.SideNone, "notify", nil, true, func(st game.State) error {
			return sess.Engine.ApplyNotification(st, text)
		})
	})
}

// teardown removes an empty session from the registry. Ended is terminal.
func (s *Service) teardown(sess *session.Session, reason string) {
	s.registry.Remove(sess.ID)
	s.logger.Info("session ended", "session", sess.ID, "reason", reason)
	if sess.Started() && s.recorder != nil {
		now := s.clock()
		go func() {
			_ = s.recorder.RecordMatchResult(sess.ID, "", reason, now)
		}()
	}
}

func seatUIDs(seats []game.Seat) (sideA, sideB string) {
	for _, p := range seats {
		if p.Side == game.SideA {
			sideA = p.UID
		} else {
			sideB = p.UID
		}
	}
	return sideA, sideB
}

func replyCode(reply func(int), code int) {
	if reply != nil {
		reply(code)
	}
}

// parseChatCommand splits "/draw 2" into the command name and a raw args map
// the engine can interpret.
func parseChatCommand(message string) (string, map[string]any) {
	fields := strings.Fields(strings.TrimPrefix(message, "/"))
	if len(fields) == 0 {
		return "", nil
	}
	args := map[string]any{}
	if len(fields) > 1 {
		args["raw"] = strings.Join(fields[1:], " ")
	}
	return fields[0], args
}
