package game

import (
	"errors"
	"math/rand/v2"
	"slices"

	"github.com/park285/ek-server/internal/card"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrEmptyHand    = errors.New("hand is empty")
)

// Player is one user's seat in a game.
type Player struct {
	UserID     string
	Name       string
	Alive      bool
	Ready      bool
	DrawAmount int
	hand       []card.Card
}

func NewPlayer(userID, name string) *Player {
	p := &Player{UserID: userID, Name: name}
	p.Reset()
	return p
}

// Reset restores the between-games state.
func (p *Player) Reset() {
	p.Alive = true
	p.Ready = false
	p.DrawAmount = 1
	p.hand = nil
}

// Hand returns a copy of the hand.
func (p *Player) Hand() []card.Card { return slices.Clone(p.hand) }

func (p *Player) HandSize() int { return len(p.hand) }

func (p *Player) indexOf(id string) int {
	return slices.IndexFunc(p.hand, func(c card.Card) bool { return c.ID == id })
}

// Card looks a card up by id.
func (p *Player) Card(id string) (card.Card, bool) {
	i := p.indexOf(id)
	if i < 0 {
		return card.Card{}, false
	}
	return p.hand[i], true
}

// FirstOfType returns the first card of t in hand order.
func (p *Player) FirstOfType(t card.Type) (card.Card, bool) {
	i := slices.IndexFunc(p.hand, func(c card.Card) bool { return c.Type == t })
	if i < 0 {
		return card.Card{}, false
	}
	return p.hand[i], true
}

func (p *Player) HasType(t card.Type) bool {
	_, ok := p.FirstOfType(t)
	return ok
}

// HasCards reports whether every id is in hand. Repeated ids never match.
func (p *Player) HasCards(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
		if p.indexOf(id) < 0 {
			return false
		}
	}
	return true
}

func (p *Player) Add(cards ...card.Card) {
	p.hand = append(p.hand, cards...)
}

func (p *Player) RemoveByID(id string) (card.Card, error) {
	i := p.indexOf(id)
	if i < 0 {
		return card.Card{}, ErrCardNotFound
	}
	c := p.hand[i]
	p.hand = slices.Delete(p.hand, i, i+1)
	return c, nil
}

// RemoveType removes the first card of t.
func (p *Player) RemoveType(t card.Type) (card.Card, error) {
	c, ok := p.FirstOfType(t)
	if !ok {
		return card.Card{}, ErrCardNotFound
	}
	return p.RemoveByID(c.ID)
}

// RandomCard picks uniformly over the whole hand without removing it.
func (p *Player) RandomCard(rng *rand.Rand) (card.Card, error) {
	if len(p.hand) == 0 {
		return card.Card{}, ErrEmptyHand
	}
	return p.hand[rng.IntN(len(p.hand))], nil
}

// TakeRandom removes and returns a uniformly random card.
func (p *Player) TakeRandom(rng *rand.Rand) (card.Card, error) {
	c, err := p.RandomCard(rng)
	if err != nil {
		return card.Card{}, err
	}
	return p.RemoveByID(c.ID)
}

// takeAll empties the hand.
func (p *Player) takeAll() []card.Card {
	h := p.hand
	p.hand = nil
	return h
}
