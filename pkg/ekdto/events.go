package ekdto

import "encoding/json"

// Request events. Replies reuse the request name.
const (
	EventConnect     = "connected"
	EventCreateGame  = "createGame"
	EventJoinGame    = "joinGame"
	EventLeaveGame   = "leaveGame"
	EventStartGame   = "startGame"
	EventStopGame    = "stopGame"
	EventReady       = "playerReady"
	EventHand        = "playerHand"
	EventDiscardPile = "discardPile"
	EventEndTurn     = "playerEndTurn"
	EventPlayCards   = "playerPlayCard"
	EventNope        = "playerNope"
	EventFavor       = "playerFavor"
)

// Server-originated events.
const (
	EventUserConnected      = "userConnected"
	EventUserDisconnected   = "userDisconnected"
	EventGameCreated        = "gameCreated"
	EventGameStarted        = "gameStarted"
	EventGameStopped        = "gameStopped"
	EventGameRemoved        = "gameRemoved"
	EventGameUpdate         = "updateGame"
	EventPlayerConnected    = "playerConnected"
	EventPlayerDisconnected = "playerDisconnected"
	EventDraw               = "playerDraw"
	EventSteal              = "playerSteal"
	EventFuture             = "playerFuture"
	EventWin                = "winGame"
	EventError              = "error"
)

// Envelope is one websocket frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is an outbound message before encoding.
type Event struct {
	Name    string
	Payload any
}

func NewEvent(name string, payload any) Event { return Event{Name: name, Payload: payload} }

// Encode renders the frame.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name, Data: data})
}
