package match

import (
	"fmt"
	"runtime/debug"

	"github.com/vovakirdan/duelsync/internal/diff"
	"github.com/vovakirdan/duelsync/internal/game"
	"github.com/vovakirdan/duelsync/internal/session"
)

// mutate applies one rules-engine mutation to the session's state under the
// snapshot/rollback contract. It must only run inside the session's match
// domain, which guarantees no two mutations of one session overlap.
//
// fn receives a clone of the current state; on success the clone is
// committed, a diff bundle is computed against the old state, a history
// record is appended and the bundle is broadcast. On failure the original
// state stands untouched, nothing is appended or broadcast to observers, and
// the actor alone receives an error event.
func (s *Service) mutate(sess *session.Session, uid string, side game.Side, command string, args map[string]any, messageOnly bool, fn func(game.State) error) *Failure {
	if sess.State == nil {
		return newFailure(KindNotFound, sess, uid, side, command, args, fmt.Errorf("match not started"))
	}

	snapshot := sess.State.Clone()
	err, stack := runGuarded(fn, snapshot)
	if err != nil {
		kind := KindValidation
		if stack != nil {
			kind = KindUnexpected
		}
		f := newFailure(kind, sess, uid, side, command, args, err)
		f.Stack = stack

		if kind == KindUnexpected {
			s.logger.Error("mutation panic",
				"session", sess.ID, "uid", uid, "command", command, "args", args,
				"players", f.Players, "spectators", f.Spectators, "stack", string(stack))
		} else {
			s.logger.Warn("mutation rejected",
				"session", sess.ID, "uid", uid, "side", side, "command", command,
				"args", args, "error", err)
		}
		s.dispatcher.Send(uid, EventError, map[string]any{
			"command": command,
			"kind":    f.Kind.String(),
			"error":   err.Error(),
		})
		return f
	}

	old := sess.State
	sess.State = snapshot

	var bundle *diff.Bundle
	if messageOnly {
		bundle = diff.MessageDiff(old, snapshot)
	} else {
		spect, spectA, spectB := sess.Audience()
		bundle = diff.Diff(old, snapshot, spect, spectA, spectB)
	}

	now := s.clock()
	sess.AppendHistory(command, diff.HistoryDelta(old, snapshot), now)
	sess.Touched(now)

	s.dispatcher.Broadcast(sess, EventDiff, bundle)
	return nil
}

// runGuarded invokes fn and converts a panic into an error plus stack, so a
// broken engine cannot take the session's queue down with it.
func runGuarded(fn func(game.State) error, st game.State) (err error, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
			stack = debug.Stack()
		}
	}()
	err = fn(st)
	return err, nil
}
