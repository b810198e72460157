// Package engine drives games from player actions: lobby membership, turns,
// the nope window and card effects. Each game is serialized by its own lock.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/card"
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/nope"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

const (
	minNameLen  = 2
	maxNameLen  = 12
	maxTitleLen = 29

	storeTimeout = 2 * time.Second
)

// Notifier delivers events to connected users.
type Notifier interface {
	Send(userID string, ev ekdto.Event)
	Broadcast(userIDs []string, ev ekdto.Event)
	BroadcastAll(ev ekdto.Event, except ...string)
	SendError(userID, event string, err error)
}

// Directory mirrors lobby-visible game summaries.
type Directory interface {
	Publish(ctx context.Context, s ekdto.GameSummary) error
	Remove(ctx context.Context, gameID string) error
}

// ResultSink archives finished games.
type ResultSink interface {
	SaveResult(ctx context.Context, r ekdto.GameResult) error
}

type Options struct {
	Settings  game.Settings
	Seed      uint64
	Clock     nope.Clock
	Notifier  Notifier
	Directory Directory
	Results   ResultSink
}

// User is a connected lobby member.
type User struct {
	ID     string
	Name   string
	GameID string
}

func (u *User) view() ekdto.User { return ekdto.User{ID: u.ID, Name: u.Name} }

type Engine struct {
	mu     sync.RWMutex
	users  map[string]*User
	names  map[string]string // lower(name) -> user id
	rooms  map[string]*room
	titles map[string]string // title -> game id
	rng    *rand.Rand

	settings game.Settings
	clock    nope.Clock
	notify   atomic.Pointer[notifierRef]
	mirror   *mirror
	results  ResultSink
	archive  sync.WaitGroup
}

func New(opts Options) (*Engine, error) {
	rng, err := card.NewRand(opts.Seed)
	if err != nil {
		return nil, err
	}
	s := opts.Settings
	if s.MinPlayers == 0 && s.MaxPlayers == 0 && s.NopeTime == 0 {
		s = game.DefaultSettings()
	}
	if s.NopeTime <= 0 {
		s.NopeTime = game.DefaultSettings().NopeTime
	}
	e := &Engine{
		users:    make(map[string]*User),
		names:    make(map[string]string),
		rooms:    make(map[string]*room),
		titles:   make(map[string]string),
		rng:      rng,
		settings: s,
		clock:    opts.Clock,
		mirror:   newMirror(opts.Directory),
		results:  opts.Results,
	}
	if e.clock == nil {
		e.clock = nope.RealClock{}
	}
	e.SetNotifier(opts.Notifier)
	return e, nil
}

// SetNotifier installs the transport once it exists.
func (e *Engine) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	e.notify.Store(&notifierRef{n})
}

func (e *Engine) notifier() Notifier { return e.notify.Load().Notifier }

// Wait blocks until background directory and archive writes finish.
func (e *Engine) Wait() {
	e.mirror.wait()
	e.archive.Wait()
}

// Connect registers a session in the lobby under a nickname.
func (e *Engine) Connect(userID, nickname string) (ekdto.ConnectReply, error) {
	nickname = strings.TrimSpace(nickname)
	if userID == "" || nickname == "" {
		return ekdto.ConnectReply{}, ErrInvalidName
	}

	e.mu.Lock()
	if _, taken := e.names[strings.ToLower(nickname)]; taken {
		e.mu.Unlock()
		return ekdto.ConnectReply{}, ErrNameTaken
	}
	if _, ok := e.users[userID]; ok {
		e.mu.Unlock()
		return ekdto.ConnectReply{}, ErrAlreadyConnected
	}
	if n := utf8.RuneCountInString(nickname); n < minNameLen || n > maxNameLen {
		e.mu.Unlock()
		return ekdto.ConnectReply{}, ErrNameLength
	}
	u := &User{ID: userID, Name: nickname}
	e.users[userID] = u
	e.names[strings.ToLower(nickname)] = userID
	others := e.userViewsLocked()
	rooms := e.roomsLocked()
	e.mu.Unlock()

	e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventUserConnected, ekdto.UserEvent{User: u.view()}), userID)
	obslog.L().Info("user_connected", obslog.UserID(userID), zap.String("name", nickname))

	games := make([]ekdto.Game, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		games = append(games, gameView(r.g))
		r.mu.Unlock()
	}
	return ekdto.ConnectReply{
		Success:        "Successfully connected",
		User:           u.view(),
		ConnectedUsers: others,
		GameList:       games,
	}, nil
}

// Disconnect removes a session, leaving its game first.
func (e *Engine) Disconnect(userID string) {
	e.mu.Lock()
	u, ok := e.users[userID]
	if !ok {
		e.mu.Unlock()
		return
	}
	e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventUserDisconnected, ekdto.UserEvent{User: u.view()}))
	if r, ok := e.rooms[u.GameID]; ok {
		e.leaveLocked(u, r)
	}
	delete(e.users, userID)
	delete(e.names, strings.ToLower(u.Name))
	e.mu.Unlock()
	obslog.L().Info("user_disconnected", obslog.UserID(userID))
}

// CreateGame opens a room with the caller as host.
func (e *Engine) CreateGame(userID, title string) (ekdto.GameReply, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
		return ekdto.GameReply{}, ErrBadTitle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[userID]
	if !ok {
		return ekdto.GameReply{}, ErrNotConnected
	}
	if _, taken := e.titles[title]; taken {
		return ekdto.GameReply{}, ErrTitleTaken
	}
	if u.GameID != "" {
		return ekdto.GameReply{}, ErrInAnotherGame
	}

	id := ulid.Make().String()
	rng := rand.New(rand.NewPCG(e.rng.Uint64(), e.rng.Uint64()))
	r := newRoom(e, game.New(id, title, e.settings, rng))
	if _, err := r.g.AddPlayer(u.ID, u.Name); err != nil {
		return ekdto.GameReply{}, fmt.Errorf("%w: %v", ErrJoinFailed, err)
	}
	u.GameID = id
	e.rooms[id] = r
	e.titles[title] = id

	view := gameView(r.g)
	e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventGameCreated, ekdto.GameEvent{Game: view}))
	r.publish()
	obslog.L().Info("game_created", obslog.GameID(id), zap.String("title", title), zap.String("host", userID))
	return ekdto.GameReply{Success: "Game created", Game: &view}, nil
}

// JoinGame seats the caller in a waiting room.
func (e *Engine) JoinGame(userID, gameID string) (ekdto.GameReply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[userID]
	if !ok {
		return ekdto.GameReply{}, ErrNotConnected
	}
	r, ok := e.rooms[gameID]
	if !ok {
		return ekdto.GameReply{}, ErrInvalidGame
	}
	if u.GameID != "" && u.GameID != gameID {
		return ekdto.GameReply{}, ErrInAnotherGame
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.g.AddPlayer(u.ID, u.Name)
	if err != nil {
		return ekdto.GameReply{}, fmt.Errorf("%w: %v", ErrJoinFailed, err)
	}
	u.GameID = gameID

	view := gameView(r.g)
	r.broadcastExcept(userID, ekdto.NewEvent(ekdto.EventPlayerConnected, ekdto.PlayerEvent{Player: playerView(p), Game: &view}))
	e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventGameUpdate, ekdto.GameEvent{Game: view}))
	r.publish()
	obslog.L().Info("game_joined", obslog.GameID(gameID), obslog.UserID(userID))
	return ekdto.GameReply{Success: "Successfully joined game!", Game: &view}, nil
}

// LeaveGame removes the caller from a room, handing on the turn if needed.
func (e *Engine) LeaveGame(userID, gameID string) (ekdto.SuccessReply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.users[userID]
	if !ok {
		return ekdto.SuccessReply{}, ErrNotConnected
	}
	r, ok := e.rooms[gameID]
	if !ok {
		return ekdto.SuccessReply{}, ErrInvalidGame
	}
	if u.GameID != gameID {
		return ekdto.SuccessReply{}, ErrNotInGame
	}
	e.leaveLocked(u, r)
	return ekdto.SuccessReply{Success: "Left game"}, nil
}

// leaveLocked runs with e.mu held.
func (e *Engine) leaveLocked(u *User, r *room) {
	r.mu.Lock()
	empty := r.removePlayer(u.ID)
	if empty {
		r.close()
	}
	r.mu.Unlock()
	u.GameID = ""

	if !empty {
		return
	}
	delete(e.rooms, r.g.ID)
	delete(e.titles, r.g.Title)
	e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventGameRemoved, ekdto.GameRemovedEvent{ID: r.g.ID}))
	e.mirror.remove(r.g.ID)
	obslog.L().Info("game_removed", obslog.GameID(r.g.ID))
}

// ListGames returns every live game, oldest first.
func (e *Engine) ListGames() []ekdto.Game {
	e.mu.RLock()
	rooms := e.roomsLocked()
	e.mu.RUnlock()
	out := make([]ekdto.Game, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		out = append(out, gameView(r.g))
		r.mu.Unlock()
	}
	return out
}

// GameIDs lists live game ids.
func (e *Engine) GameIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.rooms))
	for id := range e.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary returns the directory entry for a live game.
func (e *Engine) Summary(gameID string) (ekdto.GameSummary, bool) {
	r, err := e.room(gameID)
	if err != nil {
		return ekdto.GameSummary{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return summaryOf(r.g), true
}

// Users lists connected users by name.
func (e *Engine) Users() []ekdto.User {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userViewsLocked()
}

func (e *Engine) userViewsLocked() []ekdto.User {
	out := make([]ekdto.User, 0, len(e.users))
	for _, u := range e.users {
		out = append(out, u.view())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Engine) roomsLocked() []*room {
	ids := make([]string, 0, len(e.rooms))
	for id := range e.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*room, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.rooms[id])
	}
	return out
}

// room resolves a game id for single-room actions.
func (e *Engine) room(gameID string) (*room, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rooms[gameID]
	if !ok {
		return nil, ErrInvalidGame
	}
	return r, nil
}

// lockMember locks the room and checks the caller is seated in it.
// The caller must unlock r.mu when err is nil.
func (e *Engine) lockMember(userID, gameID string) (*room, *game.Player, error) {
	r, err := e.room(gameID)
	if err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrInvalidGame
	}
	p := r.g.Player(userID)
	if p == nil {
		r.mu.Unlock()
		return nil, nil, ErrNotInGame
	}
	return r, p, nil
}

type nopNotifier struct{}

func (nopNotifier) Send(string, ekdto.Event)            {}
func (nopNotifier) Broadcast([]string, ekdto.Event)     {}
func (nopNotifier) BroadcastAll(ekdto.Event, ...string) {}
func (nopNotifier) SendError(string, string, error)     {}

// notifierRef lets the notifier be swapped without taking e.mu, which
// room code must never acquire.
type notifierRef struct{ Notifier }
