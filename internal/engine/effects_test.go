package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/ek-server/internal/card"
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/pkg/ekdto"
)

func potatoes(n int) []card.Card {
	out := make([]card.Card, n)
	for i := range out {
		out[i] = mk(card.Regular)
	}
	return out
}

func lastSteal(t *testing.T, rec *recorder) ekdto.StealEvent {
	t.Helper()
	steals := rec.named(ekdto.EventSteal)
	require.NotEmpty(t, steals)
	return steals[len(steals)-1].ev.Payload.(ekdto.StealEvent)
}

func pileIDs(g *game.Game) []string { return ids(g.DrawPile...) }

func TestNamedStealTakesRequestedType(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben")
	ann, ben := r.g.Players[0], r.g.Players[1]
	trio := potatoes(3)
	wanted := mk(card.Future)
	setHand(ann, trio...)
	setHand(ben, mk(card.Skip), wanted)

	require.NoError(t, e.PlayCards("ann", ekdto.PlayCardsRequest{
		GameID: r.g.ID, Cards: ids(trio...), To: "ben", CardType: "future",
	}))

	_, ok := ann.Card(wanted.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, ben.HandSize())
	ev := lastSteal(t, rec)
	assert.True(t, ev.Success)
	assert.Equal(t, "namedSteal", ev.Type)
	assert.Equal(t, "ben", ev.From)
	require.NotNil(t, ev.Card)
	assert.Equal(t, wanted.ID, ev.Card.ID)
	assert.True(t, r.g.EffectsPlayed(ann))
}

func TestNamedStealMissingTypeBroadcastsFailure(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben")
	ann, ben := r.g.Players[0], r.g.Players[1]
	trio := potatoes(3)
	setHand(ann, trio...)
	setHand(ben, mk(card.Skip))

	require.NoError(t, e.PlayCards("ann", ekdto.PlayCardsRequest{
		GameID: r.g.ID, Cards: ids(trio...), To: "ben", CardType: "Attack",
	}))

	assert.Zero(t, ann.HandSize())
	assert.Equal(t, 1, ben.HandSize())
	ev := lastSteal(t, rec)
	assert.False(t, ev.Success)
	assert.Nil(t, ev.Card)
	assert.Equal(t, "Attack", ev.CardType)
	assert.Empty(t, rec.errors())
	assert.True(t, r.g.EffectsPlayed(ann))
}

func TestDiscardStealTransfersAndPrunes(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben")
	ann, ben := r.g.Players[0], r.g.Players[1]
	five := []card.Card{mk(card.Attack), mk(card.Skip), mk(card.Future), mk(card.Favor), mk(card.Regular)}
	setHand(ann, five...)
	setHand(ben, mk(card.Skip))

	loot := mk(card.Defuse)
	old := game.NewCardSet(ben, []card.Card{loot})
	old.EffectPlayed = true
	r.g.Discard(old)
	total := r.g.CardCount()

	require.NoError(t, e.PlayCards("ann", ekdto.PlayCardsRequest{
		GameID: r.g.ID, Cards: ids(five...), CardID: loot.ID,
	}))

	_, ok := ann.Card(loot.ID)
	assert.True(t, ok)
	assert.Nil(t, r.g.DiscardSet(old.ID), "emptied set is pruned")
	require.Len(t, r.g.DiscardPile, 1)
	assert.Len(t, r.g.DiscardPile[0].Cards, 5)
	assert.Equal(t, total, r.g.CardCount())

	ev := lastSteal(t, rec)
	assert.True(t, ev.Success)
	assert.Equal(t, "discard", ev.From)
	assert.Equal(t, "Defuse", ev.CardType)
}

func TestDiscardStealMissingCardBroadcastsFailure(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben")
	ann, ben := r.g.Players[0], r.g.Players[1]
	five := []card.Card{mk(card.Attack), mk(card.Skip), mk(card.Future), mk(card.Favor), mk(card.Regular)}
	setHand(ann, five...)
	setHand(ben, mk(card.Skip))

	require.NoError(t, e.PlayCards("ann", ekdto.PlayCardsRequest{
		GameID: r.g.ID, Cards: ids(five...), CardID: "missing",
	}))

	assert.Zero(t, ann.HandSize())
	ev := lastSteal(t, rec)
	assert.False(t, ev.Success)
	assert.Nil(t, ev.Card)
	assert.True(t, r.g.EffectsPlayed(ann))
}

func TestSkipSpendsOneDrawAndForcesEndAtZero(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben", "cat")
	ben := r.g.Players[1]
	first, second := mk(card.Skip), mk(card.Skip)
	setHand(r.g.Players[0], mk(card.Regular))
	setHand(ben, first, second)
	setHand(r.g.Players[2], mk(card.Regular))
	r.g.CurrentIndex = 1
	ben.DrawAmount = 2
	pile := len(r.g.DrawPile)

	require.NoError(t, e.PlayCards("ben", ekdto.PlayCardsRequest{GameID: r.g.ID, Cards: ids(first)}))
	assert.Equal(t, 1, ben.DrawAmount)
	assert.True(t, r.g.IsCurrent("ben"))
	assert.Empty(t, rec.named(ekdto.EventEndTurn))

	require.NoError(t, e.PlayCards("ben", ekdto.PlayCardsRequest{GameID: r.g.ID, Cards: ids(second)}))
	assert.True(t, r.g.IsCurrent("cat"))
	assert.Len(t, r.g.DrawPile, pile, "a skipped turn draws nothing")
	assert.Zero(t, ben.HandSize())
	assert.Equal(t, 1, ben.DrawAmount)

	var forced int
	for _, d := range rec.named(ekdto.EventEndTurn) {
		if d.ev.Payload.(ekdto.EndTurnEvent).Force {
			forced++
			assert.Equal(t, []string{"ben"}, d.to)
		}
	}
	assert.Equal(t, 1, forced)
}

func TestFutureShowsTopThreeToActorOnly(t *testing.T) {
	e, rec, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben")
	ann := r.g.Players[0]
	future := mk(card.Future)
	setHand(ann, future)
	setHand(r.g.Players[1], mk(card.Skip))
	before := pileIDs(r.g)

	require.NoError(t, e.PlayCards("ann", ekdto.PlayCardsRequest{GameID: r.g.ID, Cards: ids(future)}))

	seen := rec.named(ekdto.EventFuture)
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"ann"}, seen[0].to)
	var got []string
	for _, c := range seen[0].ev.Payload.(ekdto.FutureEvent).Cards {
		got = append(got, c.ID)
	}
	assert.Equal(t, before[:3], got)
	assert.Equal(t, before, pileIDs(r.g))
	assert.True(t, r.g.IsCurrent("ann"))
}

func TestShuffleReordersDrawPile(t *testing.T) {
	e, _, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben")
	shuffle := mk(card.Shuffle)
	setHand(r.g.Players[0], shuffle)
	setHand(r.g.Players[1], mk(card.Skip))
	before := pileIDs(r.g)

	require.NoError(t, e.PlayCards("ann", ekdto.PlayCardsRequest{GameID: r.g.ID, Cards: ids(shuffle)}))

	after := pileIDs(r.g)
	assert.ElementsMatch(t, before, after)
	assert.NotEqual(t, before, after)
	assert.True(t, r.g.IsCurrent("ann"))
}

func TestConcurrentNopesAcceptOne(t *testing.T) {
	e, _, _ := newTestEngine(t)
	r := startedRoom(t, e, "ann", "ben", "cat", "dan")
	reverse := mk(card.Reverse)
	setHand(r.g.Players[0], reverse)
	for _, p := range r.g.Players[1:] {
		setHand(p, mk(card.Nope))
	}
	require.NoError(t, e.PlayCards("ann", ekdto.PlayCardsRequest{GameID: r.g.ID, Cards: ids(reverse)}))
	set := r.g.DiscardPile[0]

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, n := range []string{"ben", "cat", "dan"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			errs <- e.Nope(name, ekdto.NopeRequest{GameID: r.g.ID, SetID: set.ID})
		}(n)
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrNotNopeable)
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, set.NopeAmount)
}
