// Package session holds the per-match container (players, spectators, state,
// history) and the registry of all live sessions.
//
// A session is touched by both of its execution domains at once: membership
// tasks mutate the roster while match tasks classify viewers and broadcast to
// them. The roster fields are therefore unexported and guarded by a mutex,
// reachable only through methods. State, Engine and History belong to the
// match domain exclusively (every access runs on the session's match queue)
// and need no lock.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/vovakirdan/duelsync/internal/diff"
	"github.com/vovakirdan/duelsync/internal/game"
)

var (
	ErrFull      = errors.New("session: both seats are taken")
	ErrSideTaken = errors.New("session: side already seated")
	ErrPresent   = errors.New("session: uid already in session")
)

// Player is one seated participant.
type Player struct {
	UID  string
	Side game.Side
	Deck string
}

// HistoryEntry is one committed match-domain mutation.
type HistoryEntry struct {
	Seq     int
	Command string
	Delta   *diff.Delta
	At      time.Time
}

// Session is one match's container. The zero value is not usable; create
// sessions with New.
type Session struct {
	ID       string
	GameID   string
	Password string // immutable after New

	mu          sync.RWMutex
	players     []Player
	spectators  map[string]struct{}
	spectatorsA map[string]struct{} // subset of spectators seeing side A's hidden info
	spectatorsB map[string]struct{} // subset of spectators seeing side B's hidden info
	mute        bool
	started     bool
	original    []Player
	startedAt   time.Time
	lastUpdate  time.Time

	// Match-domain fields, see the package comment.
	Engine  game.Engine
	State   game.State
	History []HistoryEntry
}

// New creates a pending session with its first (host) player seated.
func New(id, gameID string, host Player, password string, now time.Time) *Session {
	if host.Side == game.SideNone {
		host.Side = game.SideA
	}
	return &Session{
		ID:          id,
		GameID:      gameID,
		Password:    password,
		players:     []Player{host},
		spectators:  make(map[string]struct{}),
		spectatorsA: make(map[string]struct{}),
		spectatorsB: make(map[string]struct{}),
		lastUpdate:  now,
	}
}

func (s *Session) playerByUID(uid string) (Player, bool) {
	for _, p := range s.players {
		if p.UID == uid {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerByUID returns the seated player with the given uid.
func (s *Session) PlayerByUID(uid string) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerByUID(uid)
}

// Starter returns the player allowed to issue start: the first-seated one.
func (s *Session) Starter() (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.players) == 0 {
		return Player{}, false
	}
	return s.players[0], true
}

// SeatedPlayers returns a copy of the current seating.
func (s *Session) SeatedPlayers() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Player(nil), s.players...)
}

// AddPlayer seats a player in the free seat. A requested SideNone takes
// whichever side is open.
func (s *Session) AddPlayer(p Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playerByUID(p.UID); ok {
		return ErrPresent
	}
	if len(s.players) >= 2 {
		return ErrFull
	}
	taken := game.SideNone
	if len(s.players) == 1 {
		taken = s.players[0].Side
	}
	if p.Side == game.SideNone {
		if taken == game.SideA {
			p.Side = game.SideB
		} else {
			p.Side = game.SideA
		}
	}
	if p.Side == taken {
		return ErrSideTaken
	}
	s.players = append(s.players, p)
	return nil
}

// AddSpectator admits uid as a spectator, optionally into the privileged
// subset for the requested perspective.
func (s *Session) AddSpectator(uid string, perspective game.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spectators[uid] = struct{}{}
	switch perspective {
	case game.SideA:
		s.spectatorsA[uid] = struct{}{}
	case game.SideB:
		s.spectatorsB[uid] = struct{}{}
	}
}

// ClearSpectator removes uid from every spectator tier without touching a
// seat it may hold. Used when a spectator is promoted back to player.
func (s *Session) ClearSpectator(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spectators, uid)
	delete(s.spectatorsA, uid)
	delete(s.spectatorsB, uid)
}

// Remove takes uid out of the session, whatever it currently is.
// Returns false if the uid was not a participant.
func (s *Session) Remove(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.players {
		if p.UID == uid {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return true
		}
	}
	if _, ok := s.spectators[uid]; ok {
		delete(s.spectators, uid)
		delete(s.spectatorsA, uid)
		delete(s.spectatorsB, uid)
		return true
	}
	return false
}

// Empty reports whether nobody is left in the session.
func (s *Session) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players) == 0 && len(s.spectators) == 0
}

// ViewerUIDs returns every participant uid, players first.
func (s *Session) ViewerUIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uids := make([]string, 0, len(s.players)+len(s.spectators))
	for _, p := range s.players {
		uids = append(uids, p.UID)
	}
	for uid := range s.spectators {
		uids = append(uids, uid)
	}
	return uids
}

// Roster returns the player and spectator uids as separate lists, for
// diagnostics.
func (s *Session) Roster() (players, spectators []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		players = append(players, p.UID)
	}
	for uid := range s.spectators {
		spectators = append(spectators, uid)
	}
	return players, spectators
}

// Seats returns the seating passed to the rules engine at start.
func (s *Session) Seats() []game.Seat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seats := make([]game.Seat, 0, len(s.players))
	for _, p := range s.players {
		seats = append(seats, game.Seat{UID: p.UID, Side: p.Side, Deck: p.Deck})
	}
	return seats
}

// MarkStarted transitions the session to started and fixes the original
// players from the current seating.
func (s *Session) MarkStarted(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.startedAt = now
	s.original = append([]Player(nil), s.players...)
	s.lastUpdate = now
}

// Started reports whether the session has left the pending state.
func (s *Session) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// StartedAt returns when the session started, zero while pending.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// ToggleMuted flips the spectator-chat mute flag and returns the new value.
func (s *Session) ToggleMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mute = !s.mute
	return s.mute
}

// Muted reports whether spectator chat is currently suppressed.
func (s *Session) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mute
}

// CanRejoin reports whether uid may rejoin: the session is running, uid was
// seated when it started, and fewer than two of the currently seated players
// are someone else (a seat is open or still held by a stale entry for uid).
func (s *Session) CanRejoin(uid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false
	}
	original := false
	for _, p := range s.original {
		if p.UID == uid {
			original = true
			break
		}
	}
	if !original {
		return false
	}
	others := 0
	for _, p := range s.players {
		if p.UID != uid {
			others++
		}
	}
	return others < 2
}

// OriginalSide returns the side uid held when the match started.
func (s *Session) OriginalSide(uid string) game.Side {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.original {
		if p.UID == uid {
			return p.Side
		}
	}
	return game.SideNone
}

// OriginalPlayers returns a copy of the seating fixed at start.
func (s *Session) OriginalPlayers() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Player(nil), s.original...)
}

// Touched refreshes the session's last-update time.
func (s *Session) Touched(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = now
}

// AppendHistory records one committed mutation. Match domain only.
func (s *Session) AppendHistory(command string, d *diff.Delta, at time.Time) {
	s.History = append(s.History, HistoryEntry{
		Seq:     len(s.History) + 1,
		Command: command,
		Delta:   d,
		At:      at,
	})
}

// Audience reports which spectator tiers currently have viewers, used to
// skip computing diff variants nobody would receive.
func (s *Session) Audience() (spectators, spectatorsA, spectatorsB bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spectators) > 0, len(s.spectatorsA) > 0, len(s.spectatorsB) > 0
}
