// Package game holds the per-room aggregate: roster, piles, turn cursor and phase.
// It is not safe for concurrent use; callers serialize access per game.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/park285/ek-server/internal/card"
)

// Status is the game phase.
type Status int

const (
	Waiting Status = iota
	Playing
)

func (s Status) String() string {
	if s == Playing {
		return "Playing"
	}
	return "Waiting"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrInvalidStart   = errors.New("game cannot start")
	ErrGameFull       = errors.New("game is full")
	ErrAlreadyJoined  = errors.New("player already in game")
	ErrGameInProgress = errors.New("game in progress")
	ErrPlayerNotFound = errors.New("player not found")
)

// Settings are fixed at room creation.
type Settings struct {
	MinPlayers int
	MaxPlayers int
	NopeTime   time.Duration
}

func DefaultSettings() Settings {
	return Settings{MinPlayers: 2, MaxPlayers: 8, NopeTime: 5 * time.Second}
}

type Game struct {
	ID           string
	Title        string
	Status       Status
	Players      []*Player
	DrawPile     []card.Card // top = index 0
	DiscardPile  []*CardSet  // append = most recent
	CurrentIndex int
	Direction    int
	Settings

	rng     *rand.Rand
	created int
}

func New(id, title string, s Settings, rng *rand.Rand) *Game {
	if s.MinPlayers < 2 {
		s.MinPlayers = 2
	}
	if s.MaxPlayers < s.MinPlayers {
		s.MaxPlayers = s.MinPlayers
	}
	return &Game{ID: id, Title: title, Status: Waiting, Direction: 1, Settings: s, rng: rng}
}

// Rand exposes the injected generator to effect resolution.
func (g *Game) Rand() *rand.Rand { return g.rng }

func (g *Game) IndexOf(userID string) int {
	return slices.IndexFunc(g.Players, func(p *Player) bool { return p.UserID == userID })
}

// Player returns nil for a non-member.
func (g *Game) Player(userID string) *Player {
	if i := g.IndexOf(userID); i >= 0 {
		return g.Players[i]
	}
	return nil
}

// Host is always the first seat.
func (g *Game) Host() *Player {
	if len(g.Players) == 0 {
		return nil
	}
	return g.Players[0]
}

func (g *Game) Current() *Player {
	if g.CurrentIndex < 0 || g.CurrentIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentIndex]
}

func (g *Game) IsCurrent(userID string) bool {
	cur := g.Current()
	return cur != nil && cur.UserID == userID
}

func (g *Game) AddPlayer(userID, name string) (*Player, error) {
	if g.Status == Playing {
		return nil, ErrGameInProgress
	}
	if g.IndexOf(userID) >= 0 {
		return nil, ErrAlreadyJoined
	}
	if len(g.Players)+1 > g.MaxPlayers {
		return nil, ErrGameFull
	}
	p := NewPlayer(userID, name)
	g.Players = append(g.Players, p)
	return p, nil
}

func (g *Game) AliveCount() int {
	n := 0
	for _, p := range g.Players {
		if p.Alive {
			n++
		}
	}
	return n
}

// AnyAliveHolds reports whether a living player has a card of type t.
func (g *Game) AnyAliveHolds(t card.Type) bool {
	for _, p := range g.Players {
		if p.Alive && p.HasType(t) {
			return true
		}
	}
	return false
}

func (g *Game) ToggleReady(userID string) (bool, error) {
	p := g.Player(userID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	p.Ready = !p.Ready
	return p.Ready, nil
}

func (g *Game) CanStart() bool {
	if g.Status != Waiting || len(g.Players) < g.MinPlayers {
		return false
	}
	for _, p := range g.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// Start deals a fresh deck. Every player must be ready.
func (g *Game) Start() error {
	if g.Status == Playing {
		return fmt.Errorf("%w: already playing", ErrInvalidStart)
	}
	if len(g.Players) < g.MinPlayers {
		return fmt.Errorf("%w: need %d players, have %d", ErrInvalidStart, g.MinPlayers, len(g.Players))
	}
	if !g.CanStart() {
		return fmt.Errorf("%w: not everyone is ready", ErrInvalidStart)
	}

	g.Reset()
	g.Status = Playing

	n := len(g.Players)
	g.DrawPile = card.BuildDeck(n, g.rng)
	g.created = len(g.DrawPile)
	for _, p := range g.Players {
		p.Add(card.StarterDefuse())
		g.created++
		g.Draw(p, 4)
	}
	extra := card.StartCards(n)
	g.created += len(extra)
	g.DrawPile = append(g.DrawPile, extra...)
	card.ShufflePile(g.DrawPile, g.rng)
	return nil
}

// Stop resets to Waiting once fewer than two players are alive or the
// roster dropped below the minimum.
func (g *Game) Stop() bool {
	if g.Status != Playing {
		return false
	}
	if g.AliveCount() >= 2 && len(g.Players) >= g.MinPlayers {
		return false
	}
	g.Reset()
	return true
}

func (g *Game) Reset() {
	g.Status = Waiting
	g.DrawPile = nil
	g.DiscardPile = nil
	g.CurrentIndex = 0
	g.Direction = 1
	g.created = 0
	for _, p := range g.Players {
		p.Reset()
	}
}

// Increment steps index one seat in the current direction, wrapping.
func (g *Game) Increment(index int) int {
	n := len(g.Players)
	if n == 0 {
		return 0
	}
	return ((index+g.Direction)%n + n) % n
}

// NextAliveIndex is the next living seat after start. With one or no
// players alive it returns the plain increment.
func (g *Game) NextAliveIndex(start int) int {
	next := g.Increment(start)
	for i := 0; i < len(g.Players) && g.AliveCount() > 1 && !g.Players[next].Alive; i++ {
		next = g.Increment(next)
	}
	return next
}

func (g *Game) NextAlive(start int) *Player {
	if len(g.Players) == 0 {
		return nil
	}
	return g.Players[g.NextAliveIndex(start)]
}

// Draw moves up to n cards from the top of the pile into p's hand.
func (g *Game) Draw(p *Player, n int) []card.Card {
	if n <= 0 || len(g.DrawPile) == 0 {
		return nil
	}
	n = min(n, len(g.DrawPile))
	drawn := slices.Clone(g.DrawPile[:n])
	g.DrawPile = slices.Delete(g.DrawPile, 0, n)
	p.Add(drawn...)
	return drawn
}

// Peek returns up to n cards from the top without moving them.
func (g *Game) Peek(n int) []card.Card {
	n = min(n, len(g.DrawPile))
	return slices.Clone(g.DrawPile[:n])
}

func (g *Game) ShuffleDrawPile() { card.ShufflePile(g.DrawPile, g.rng) }

func (g *Game) Reverse() { g.Direction = -g.Direction }

// Discard appends a set as the most recent play.
func (g *Game) Discard(s *CardSet) { g.DiscardPile = append(g.DiscardPile, s) }

// DiscardCards flattens the pile, most recent play first.
func (g *Game) DiscardCards() []card.Card {
	var out []card.Card
	for i := len(g.DiscardPile) - 1; i >= 0; i-- {
		out = append(out, g.DiscardPile[i].Cards...)
	}
	return out
}

// DiscardSet finds a set by id.
func (g *Game) DiscardSet(id string) *CardSet {
	for _, s := range g.DiscardPile {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// EffectsPlayed is false while one of p's own plays still awaits its effect.
// Lone Nopes never gate, whoever played them.
func (g *Game) EffectsPlayed(p *Player) bool {
	for i := len(g.DiscardPile) - 1; i >= 0; i-- {
		s := g.DiscardPile[i]
		if s.Owner == p && !s.EffectPlayed && !s.IsLoneNope() {
			return false
		}
	}
	return true
}

// TakeFromDiscard removes a card from whichever set holds it and prunes
// the set if that empties it.
func (g *Game) TakeFromDiscard(id string) (card.Card, error) {
	for i, s := range g.DiscardPile {
		c, ok := s.RemoveByID(id)
		if !ok {
			continue
		}
		if s.IsEmpty() {
			g.DiscardPile = slices.Delete(g.DiscardPile, i, i+1)
		}
		return c, nil
	}
	return card.Card{}, ErrCardNotFound
}

// CardCount totals every card across piles and hands.
func (g *Game) CardCount() int {
	n := len(g.DrawPile)
	for _, s := range g.DiscardPile {
		n += len(s.Cards)
	}
	for _, p := range g.Players {
		n += p.HandSize()
	}
	return n
}

// CreatedCards is the number of cards dealt into this round.
func (g *Game) CreatedCards() int { return g.created }
