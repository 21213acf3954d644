// Package duel is a small built-in rule set used to exercise the
// synchronization core end to end: each side holds a private hand drawn from
// a private deck, plays cards for points, and shares a public log. Opponents
// and generic spectators see hand and deck sizes only.
package duel

import (
	"fmt"
	"math/rand"

	"github.com/vovakirdan/duelsync/internal/game"
)

const handSize = 5
const deckSize = 20

func init() {
	game.Register("duel", func() game.Engine { return &engine{} })
}

type engine struct{}

type state struct {
	hands  map[game.Side][]string
	decks  map[game.Side][]string
	scores map[game.Side]int
	turn   game.Side
	winner game.Side
	log    []string
}

func (e *engine) Init(seats []game.Seat, seed int64) (game.State, error) {
	if len(seats) != 2 {
		return nil, fmt.Errorf("duel: need exactly 2 seats, got %d", len(seats))
	}

	rng := rand.New(rand.NewSource(seed))
	s := &state{
		hands:  make(map[game.Side][]string, 2),
		decks:  make(map[game.Side][]string, 2),
		scores: map[game.Side]int{game.SideA: 0, game.SideB: 0},
		turn:   game.SideA,
	}
	for _, seat := range seats {
		deck := buildDeck(seat.Deck, rng)
		s.hands[seat.Side] = deck[:handSize]
		s.decks[seat.Side] = deck[handSize:]
	}
	s.log = append(s.log, "match started")
	return s, nil
}

func buildDeck(name string, rng *rand.Rand) []string {
	if name == "" {
		name = "card"
	}
	deck := make([]string, deckSize)
	for i := range deck {
		deck[i] = fmt.Sprintf("%s-%02d", name, i+1)
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

func (e *engine) ApplyAction(gs game.State, uid string, side game.Side, command string, args map[string]any) error {
	s, err := cast(gs)
	if err != nil {
		return err
	}

	switch command {
	case "toast":
		// The one command open to non-players.
		text, _ := args["msg"].(string)
		s.log = append(s.log, text)
		return nil
	case "draw":
		return s.draw(side, intArg(args, "count", 1))
	case "play":
		return s.play(uid, side, intArg(args, "index", 0))
	case "pass":
		s.turn = s.turn.Opponent()
		s.log = append(s.log, fmt.Sprintf("%s passes", uid))
		return nil
	default:
		return fmt.Errorf("duel: unknown command %q", command)
	}
}

func (s *state) draw(side game.Side, count int) error {
	if count <= 0 {
		return fmt.Errorf("duel: draw count must be positive, got %d", count)
	}
	if count > len(s.decks[side]) {
		return fmt.Errorf("duel: cannot draw %d, only %d left", count, len(s.decks[side]))
	}
	s.hands[side] = append(s.hands[side], s.decks[side][:count]...)
	s.decks[side] = s.decks[side][count:]
	s.log = append(s.log, fmt.Sprintf("%s draws %d", side, count))
	return nil
}

func (s *state) play(uid string, side game.Side, index int) error {
	hand := s.hands[side]
	if index < 0 || index >= len(hand) {
		return fmt.Errorf("duel: no card at index %d", index)
	}
	card := hand[index]
	s.hands[side] = append(hand[:index:index], hand[index+1:]...)
	s.scores[side]++
	s.turn = side.Opponent()
	s.log = append(s.log, fmt.Sprintf("%s plays %s", uid, card))
	return nil
}

func (e *engine) ApplyNotification(gs game.State, text string) error {
	s, err := cast(gs)
	if err != nil {
		return err
	}
	s.log = append(s.log, text)
	return nil
}

func (e *engine) ApplyConcession(gs game.State, uid string, side game.Side) error {
	s, err := cast(gs)
	if err != nil {
		return err
	}
	s.winner = side.Opponent()
	s.log = append(s.log, fmt.Sprintf("%s concedes", uid))
	return nil
}

func (e *engine) ApplyRejoin(gs game.State, uid string, side game.Side) error {
	s, err := cast(gs)
	if err != nil {
		return err
	}
	s.log = append(s.log, fmt.Sprintf("%s rejoined the match", uid))
	return nil
}

// ViewFor filters the state for one role. Hand and deck contents appear only
// in views whose role is entitled to that side; everyone else gets counts.
func (s *state) ViewFor(r game.Role) game.View {
	v := game.View{
		"scores": map[string]int{
			game.SideA.String(): s.scores[game.SideA],
			game.SideB.String(): s.scores[game.SideB],
		},
		"turn":        s.turn.String(),
		game.LogField: append([]string(nil), s.log...),
		"hand-counts": map[string]int{game.SideA.String(): len(s.hands[game.SideA]), game.SideB.String(): len(s.hands[game.SideB])},
		"deck-counts": map[string]int{game.SideA.String(): len(s.decks[game.SideA]), game.SideB.String(): len(s.decks[game.SideB])},
	}
	if s.winner != game.SideNone {
		v["winner"] = s.winner.String()
	}
	if own := r.Side(); own != game.SideNone {
		v["hand"] = append([]string(nil), s.hands[own]...)
	}
	return v
}

func (s *state) Clone() game.State {
	c := &state{
		hands:  make(map[game.Side][]string, len(s.hands)),
		decks:  make(map[game.Side][]string, len(s.decks)),
		scores: make(map[game.Side]int, len(s.scores)),
		turn:   s.turn,
		winner: s.winner,
		log:    append([]string(nil), s.log...),
	}
	for side, hand := range s.hands {
		c.hands[side] = append([]string(nil), hand...)
	}
	for side, deck := range s.decks {
		c.decks[side] = append([]string(nil), deck...)
	}
	for side, score := range s.scores {
		c.scores[side] = score
	}
	return c
}

func cast(gs game.State) (*state, error) {
	s, ok := gs.(*state)
	if !ok {
		return nil, fmt.Errorf("duel: foreign state %T", gs)
	}
	return s, nil
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		// JSON numbers decode as float64.
		return int(v)
	default:
		return fallback
	}
}
