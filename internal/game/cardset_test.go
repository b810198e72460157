package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/ek-server/internal/card"
)

func cards(names ...string) []card.Card {
	out := make([]card.Card, 0, len(names))
	for _, s := range names {
		t := card.Regular
		switch s {
		case "Attack":
			t = card.Attack
		case "Skip":
			t = card.Skip
		case "Favor":
			t = card.Favor
		case "Nope":
			t = card.Nope
		case "Defuse":
			t = card.Defuse
		case "Explode":
			t = card.Explode
		case "Future":
			t = card.Future
		case "Shuffle":
			t = card.Shuffle
		case "Reverse":
			t = card.Reverse
		}
		out = append(out, card.New(s, t, 0))
	}
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		cards []card.Card
		want  Combo
	}{
		{"single", cards("Potato"), ComboInvalid},
		{"pair matching", cards("Potato", "Potato"), ComboBlindSteal},
		{"pair mixed", cards("Potato", "Beard"), ComboInvalid},
		{"pair same name other type", []card.Card{card.New("X", card.Skip, 0), card.New("X", card.Attack, 0)}, ComboInvalid},
		{"triple matching", cards("Attack", "Attack", "Attack"), ComboNamedSteal},
		{"triple mixed", cards("Attack", "Attack", "Skip"), ComboInvalid},
		{"four matching", cards("Beard", "Beard", "Beard", "Beard"), ComboInvalid},
		{"five distinct", cards("Potato", "Beard", "Tacocat", "Rainbow", "Skip"), ComboDiscardSteal},
		{"five with duplicate", cards("Potato", "Beard", "Tacocat", "Potato", "Skip"), ComboInvalid},
		{"six distinct", cards("Potato", "Beard", "Tacocat", "Rainbow", "Skip", "Attack"), ComboInvalid},
		{"empty", nil, ComboInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewCardSet(nil, tc.cards)
			assert.Equal(t, tc.want, s.Classify())
		})
	}
}

func TestComboString(t *testing.T) {
	assert.Equal(t, "blindSteal", ComboBlindSteal.String())
	assert.Equal(t, "discardSteal", ComboDiscardSteal.String())
	assert.Equal(t, "invalidSteal", Combo(99).String())
}

func TestCardSetRemoveByID(t *testing.T) {
	cs := cards("Potato", "Beard")
	s := NewCardSet(nil, cs)

	got, ok := s.RemoveByID(cs[1].ID)
	require.True(t, ok)
	assert.Equal(t, cs[1], got)
	assert.False(t, s.Has(cs[1].ID))
	assert.Equal(t, "Beard", cs[1].Name, "caller slice must stay intact")

	_, ok = s.RemoveByID("missing")
	assert.False(t, ok)

	_, ok = s.RemoveByID(cs[0].ID)
	require.True(t, ok)
	assert.True(t, s.IsEmpty())
}

func TestIsLoneNope(t *testing.T) {
	assert.True(t, NewCardSet(nil, cards("Nope")).IsLoneNope())
	assert.False(t, NewCardSet(nil, cards("Nope", "Nope")).IsLoneNope())
	assert.False(t, NewCardSet(nil, cards("Skip")).IsLoneNope())
	assert.True(t, NewCardSet(nil, cards("Skip", "Nope")).HasType(card.Nope))
}
