package session

import "github.com/vovakirdan/duelsync/internal/game"

// Classify resolves the role uid holds in the session. Deterministic and
// side-effect free; diffing and broadcast both go through here so one viewer
// always gets one projection. Safe to call from either execution domain.
//
// Precedence: seated player, then own-side privileged spectator, then
// generic spectator. A uid that appears both seated and in a spectator set
// (stale membership) resolves to the player role.
func Classify(uid string, s *Session) game.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.playerByUID(uid); ok {
		if p.Side == game.SideB {
			return game.RolePlayerB
		}
		return game.RolePlayerA
	}
	if _, ok := s.spectatorsA[uid]; ok {
		return game.RoleSpectatorA
	}
	if _, ok := s.spectatorsB[uid]; ok {
		return game.RoleSpectatorB
	}
	if _, ok := s.spectators[uid]; ok {
		return game.RoleSpectator
	}
	return game.RoleNone
}
