package engine

import "errors"

// Kind classifies a rejected action.
type Kind int

const (
	// Validation errors are reported to the actor only.
	Validation Kind = iota
	// Gating errors mean the actor's previous play is still unresolved.
	Gating
	NotFound
	// State errors (wrong phase) are dropped at the boundary.
	State
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Gating:
		return "gating"
	case NotFound:
		return "not_found"
	case State:
		return "state"
	}
	return "unknown"
}

// Error is a sentinel carrying its kind and message-catalog key.
type Error struct {
	Kind Kind
	Key  string
	msg  string
}

func (e *Error) Error() string { return e.msg }

var registry []*Error

func newErr(kind Kind, key, msg string) *Error {
	e := &Error{Kind: kind, Key: "errors." + key, msg: msg}
	registry = append(registry, e)
	return e
}

var (
	ErrNotConnected     = newErr(NotFound, "not_connected", "user not connected")
	ErrInvalidName      = newErr(Validation, "invalid_name", "invalid name")
	ErrNameTaken        = newErr(Validation, "name_taken", "name already in use")
	ErrAlreadyConnected = newErr(Validation, "already_connected", "session already connected")
	ErrNameLength       = newErr(Validation, "name_length", "name length out of range")

	ErrBadTitle      = newErr(Validation, "bad_title", "bad title")
	ErrTitleTaken    = newErr(Validation, "title_taken", "title already in use")
	ErrInAnotherGame = newErr(Validation, "in_another_game", "user already in a game")
	ErrInvalidGame   = newErr(NotFound, "invalid_game", "unknown game")
	ErrNotInGame     = newErr(NotFound, "not_in_game", "user not in game")
	ErrJoinFailed    = newErr(Validation, "join_failed", "cannot join game")
	ErrNotHost       = newErr(Validation, "not_host", "only the host can start")
	ErrStartFailed   = newErr(Validation, "start_failed", "cannot start game")
	ErrWrongPhase    = newErr(State, "wrong_phase", "action not allowed in this phase")

	ErrNotYourTurn       = newErr(Validation, "not_your_turn", "not your turn")
	ErrNoCardsSelected   = newErr(Validation, "no_cards_selected", "no cards selected")
	ErrCannotPlay        = newErr(Validation, "cannot_play", "player cannot play")
	ErrWaitingForEffect  = newErr(Gating, "waiting_for_effect", "waiting for card effect")
	ErrMissingCards      = newErr(Validation, "missing_cards", "cards not in hand")
	ErrUnplayableAlone   = newErr(Validation, "unplayable_alone", "card cannot be played alone")
	ErrCannotPlayExplode = newErr(Validation, "cannot_play_explode", "explode cannot be played")
	ErrInvalidTarget     = newErr(Validation, "invalid_target", "invalid target")
	ErrTargetEmptyHand   = newErr(NotFound, "target_empty_hand", "target has no cards")
	ErrInvalidCardType   = newErr(Validation, "invalid_card_type", "invalid card type")
	ErrInvalidCardID     = newErr(Validation, "invalid_card_id", "invalid card id")
	ErrInvalidCombo      = newErr(Validation, "invalid_combo", "invalid combo")

	ErrNotNopeable = newErr(Validation, "not_nopeable", "set cannot be noped")
	ErrNoNopeCard  = newErr(Validation, "no_nope_card", "no nope card")

	ErrInvalidPlayer = newErr(NotFound, "invalid_player", "invalid player")
	ErrInvalidCard   = newErr(Validation, "invalid_card", "invalid card")
	ErrFavorRejected = newErr(Validation, "favor_rejected", "favor not expected")
)

// KindOf reports the kind of an engine error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// MessageKey returns the catalog key for err, or "errors.internal".
func MessageKey(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Key
	}
	return "errors.internal"
}

// MessageKeys lists the catalog key of every engine error.
func MessageKeys() []string {
	keys := make([]string, 0, len(registry)+1)
	keys = append(keys, "errors.internal")
	for _, e := range registry {
		keys = append(keys, e.Key)
	}
	return keys
}
