package ekdto

type ConnectRequest struct {
	Nickname string `json:"nickname"`
}

type CreateGameRequest struct {
	Title string `json:"title"`
}

// GameRequest carries only the target game.
type GameRequest struct {
	GameID string `json:"gameId"`
}

type PlayCardsRequest struct {
	GameID   string   `json:"gameId"`
	Cards    []string `json:"cards"`
	To       string   `json:"to,omitempty"`
	CardType string   `json:"cardType,omitempty"`
	CardID   string   `json:"cardId,omitempty"`
}

type NopeRequest struct {
	GameID string `json:"gameId"`
	SetID  string `json:"setId"`
}

type FavorRequest struct {
	GameID string `json:"gameId"`
	To     string `json:"to"`
	Card   string `json:"card"`
}
