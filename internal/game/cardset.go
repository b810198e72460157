package game

import (
	"slices"

	"github.com/google/uuid"

	"github.com/park285/ek-server/internal/card"
)

// Combo is the steal a multi-card set performs.
type Combo int

const (
	ComboInvalid Combo = iota
	ComboBlindSteal
	ComboNamedSteal
	ComboDiscardSteal
)

var comboStr = [...]string{"invalidSteal", "blindSteal", "namedSteal", "discardSteal"}

func (c Combo) String() string {
	if c < 0 || int(c) >= len(comboStr) {
		return comboStr[ComboInvalid]
	}
	return comboStr[c]
}

func (c Combo) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// CardSet is a group of cards played together as one action.
type CardSet struct {
	ID           string
	Owner        *Player
	Cards        []card.Card
	EffectPlayed bool
	NopePlayed   bool
	NopeAmount   int
}

// NewCardSet copies cards; later removals never touch the caller's slice.
func NewCardSet(owner *Player, cards []card.Card) *CardSet {
	return &CardSet{ID: uuid.NewString(), Owner: owner, Cards: slices.Clone(cards)}
}

// resolvedSet is a set that never enters the nope window.
func resolvedSet(owner *Player, cards ...card.Card) *CardSet {
	s := NewCardSet(owner, cards)
	s.EffectPlayed = true
	return s
}

func (s *CardSet) IsEmpty() bool { return len(s.Cards) == 0 }

func (s *CardSet) IndexOf(id string) int {
	return slices.IndexFunc(s.Cards, func(c card.Card) bool { return c.ID == id })
}

func (s *CardSet) Has(id string) bool { return s.IndexOf(id) >= 0 }

func (s *CardSet) HasType(t card.Type) bool {
	return slices.ContainsFunc(s.Cards, func(c card.Card) bool { return c.Type == t })
}

// RemoveByID takes a card out of the set.
func (s *CardSet) RemoveByID(id string) (card.Card, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return card.Card{}, false
	}
	c := s.Cards[i]
	s.Cards = slices.Delete(s.Cards, i, i+1)
	return c, true
}

// IsLoneNope reports a single-Nope set, which never counts as the last action.
func (s *CardSet) IsLoneNope() bool {
	return len(s.Cards) == 1 && s.Cards[0].Type == card.Nope
}

// Classify decides the steal a set can perform from size and matching alone.
func (s *CardSet) Classify() Combo {
	switch len(s.Cards) {
	case 2:
		if s.allMatching() {
			return ComboBlindSteal
		}
	case 3:
		if s.allMatching() {
			return ComboNamedSteal
		}
	case 5:
		if s.allDistinct() {
			return ComboDiscardSteal
		}
	}
	return ComboInvalid
}

func (s *CardSet) allMatching() bool {
	if len(s.Cards) == 0 {
		return false
	}
	first := s.Cards[0]
	for _, c := range s.Cards[1:] {
		if !first.Matches(c) {
			return false
		}
	}
	return true
}

func (s *CardSet) allDistinct() bool {
	for i := range s.Cards {
		for j := i + 1; j < len(s.Cards); j++ {
			if s.Cards[i].Matches(s.Cards[j]) {
				return false
			}
		}
	}
	return true
}
