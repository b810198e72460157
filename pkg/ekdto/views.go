package ekdto

import "time"

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Icon int    `json:"icon"`
}

// Player never carries the hand itself.
type Player struct {
	User       User `json:"user"`
	Ready      bool `json:"ready"`
	Alive      bool `json:"alive"`
	DrawAmount int  `json:"drawAmount"`
	CardCount  int  `json:"cardCount"`
}

type Game struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Status             string   `json:"status"`
	Players            []Player `json:"players"`
	CurrentPlayerIndex int      `json:"currentPlayerIndex"`
	Direction          int      `json:"direction"`
	DrawPileLength     int      `json:"drawPileLength"`
	NopeTime           int64    `json:"nopeTime"`
}

type CardSet struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	Cards        []Card `json:"cards"`
	EffectPlayed bool   `json:"effectPlayed"`
	NopePlayed   bool   `json:"nopePlayed"`
	NopeAmount   int    `json:"nopeAmount"`
}

// GameSummary is the lobby directory entry.
type GameSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Host       string    `json:"host"`
	Players    int       `json:"players"`
	MaxPlayers int       `json:"maxPlayers"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GameResult is the archived outcome of a finished game.
type GameResult struct {
	GameID     string
	Title      string
	WinnerID   string
	WinnerName string
	Players    []User
	Eliminated []User
	TotalCards int
	StartedAt  time.Time
	EndedAt    time.Time
}
