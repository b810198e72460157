// Package card models the fixed deck: card types, the deck recipe and shuffling.
package card

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Type is the closed set of card kinds.
type Type int

const (
	Attack Type = iota
	Nope
	Defuse
	Explode
	Skip
	Future
	Favor
	Shuffle
	Regular
	Reverse
	numTypes // must stay last
)

var typeStr = [...]string{
	"Attack",
	"Nope",
	"Defuse",
	"Explode",
	"Skip",
	"Future",
	"Favor",
	"Shuffle",
	"Regular",
	"Reverse",
}

var ErrUnknownType = errors.New("unknown card type")

// String implements Stringer.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeStr[t]
}

func (t Type) Valid() bool { return t >= 0 && t < numTypes }

// ParseType accepts the display name, case-insensitively.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for i, name := range typeStr {
		if strings.EqualFold(name, s) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(typeStr[t]), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// PlayableAlone reports whether a single card of this type carries an effect.
func (t Type) PlayableAlone() bool {
	switch t {
	case Attack, Skip, Favor, Future, Shuffle, Reverse:
		return true
	case Nope, Defuse, Explode, Regular:
		return false
	}
	return false
}

// Card is an immutable value; ownership moves between hands and piles.
type Card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type Type   `json:"type"`
	Icon int    `json:"icon"`
}

// New creates a card with a fresh unique id.
func New(name string, t Type, icon int) Card {
	return Card{ID: uuid.NewString(), Name: name, Type: t, Icon: icon}
}

// Matches reports whether two cards count as the same for combos.
func (c Card) Matches(o Card) bool {
	return c.Name == o.Name && c.Type == o.Type
}

func (c Card) String() string { return c.Name + "#" + c.ID }
