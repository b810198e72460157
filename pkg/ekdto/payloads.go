package ekdto

// ErrorReply is sent on the request event when an action is rejected.
type ErrorReply struct {
	Error string `json:"error"`
}

type ConnectReply struct {
	Success        string `json:"success"`
	User           User   `json:"user"`
	ConnectedUsers []User `json:"connectedUsers"`
	GameList       []Game `json:"gameList"`
}

type GameReply struct {
	Success string `json:"success,omitempty"`
	Game    *Game  `json:"game,omitempty"`
}

type SuccessReply struct {
	Success string `json:"success"`
}

type UserEvent struct {
	User User `json:"user"`
}

type GameEvent struct {
	Game Game `json:"game"`
}

type GameRemovedEvent struct {
	ID string `json:"id"`
}

type PlayerEvent struct {
	Player Player `json:"player"`
	Game   *Game  `json:"game,omitempty"`
}

type HandReply struct {
	Player Player `json:"player"`
	Hand   []Card `json:"hand"`
}

type DiscardPileReply struct {
	Cards []Card `json:"cards"`
}

// DrawEvent carries cards and hand only in the drawer's private copy.
type DrawEvent struct {
	Game   Game    `json:"game"`
	Player *Player `json:"player,omitempty"`
	Cards  []Card  `json:"cards,omitempty"`
	Hand   []Card  `json:"hand,omitempty"`
}

type EndTurnEvent struct {
	Player Player `json:"player"`
	State  string `json:"state,omitempty"`
	Game   *Game  `json:"game,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

type PlayEvent struct {
	Game   Game     `json:"game"`
	Player Player   `json:"player"`
	Cards  []Card   `json:"cards"`
	Set    *CardSet `json:"set"`
	To     string   `json:"to,omitempty"`
}

type NopeEvent struct {
	Player  *Player `json:"player,omitempty"`
	Cards   []Card  `json:"cards,omitempty"`
	Game    *Game   `json:"game,omitempty"`
	Set     CardSet `json:"set"`
	CanNope bool    `json:"canNope"`
}

type FavorEvent struct {
	Success bool  `json:"success,omitempty"`
	Force   bool  `json:"force,omitempty"`
	From    User  `json:"from"`
	To      User  `json:"to"`
	Card    *Card `json:"card,omitempty"`
}

type StealEvent struct {
	Success  bool   `json:"success"`
	Type     string `json:"type"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	CardType string `json:"cardType,omitempty"`
	Card     *Card  `json:"card,omitempty"`
}

type FutureEvent struct {
	Cards []Card `json:"cards"`
}

type WinEvent struct {
	User User `json:"user"`
}
