package transport

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/engine"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

// Engine is the game surface the router drives.
type Engine interface {
	Connect(userID, nickname string) (ekdto.ConnectReply, error)
	Disconnect(userID string)
	CreateGame(userID, title string) (ekdto.GameReply, error)
	JoinGame(userID, gameID string) (ekdto.GameReply, error)
	LeaveGame(userID, gameID string) (ekdto.SuccessReply, error)
	StartGame(userID, gameID string) error
	StopGame(userID, gameID string) error
	ToggleReady(userID, gameID string) error
	Hand(userID, gameID string) (ekdto.HandReply, error)
	DiscardPile(userID, gameID string) (ekdto.DiscardPileReply, error)
	EndTurn(userID, gameID string) error
	PlayCards(userID string, req ekdto.PlayCardsRequest) error
	Nope(userID string, req ekdto.NopeRequest) error
	Favor(userID string, req ekdto.FavorRequest) error
}

var _ Engine = (*engine.Engine)(nil)

type handler func(sess *session, data json.RawMessage) (any, error)

type router struct {
	s        *Server
	handlers map[string]handler
}

func newRouter(s *Server) *router {
	e := s.eng
	rt := &router{s: s}
	rt.handlers = map[string]handler{
		ekdto.EventConnect: func(sess *session, data json.RawMessage) (any, error) {
			var req ekdto.ConnectRequest
			if err := decode(data, &req); err != nil {
				return nil, err
			}
			reply, err := e.Connect(sess.id, req.Nickname)
			if err != nil {
				return nil, err
			}
			sess.connected.Store(true)
			return reply, nil
		},
		ekdto.EventCreateGame: func(sess *session, data json.RawMessage) (any, error) {
			var req ekdto.CreateGameRequest
			if err := decode(data, &req); err != nil {
				return nil, err
			}
			return e.CreateGame(sess.id, req.Title)
		},
		ekdto.EventPlayCards: func(sess *session, data json.RawMessage) (any, error) {
			var req ekdto.PlayCardsRequest
			if err := decode(data, &req); err != nil {
				return nil, err
			}
			return nil, e.PlayCards(sess.id, req)
		},
		ekdto.EventNope: func(sess *session, data json.RawMessage) (any, error) {
			var req ekdto.NopeRequest
			if err := decode(data, &req); err != nil {
				return nil, err
			}
			return nil, e.Nope(sess.id, req)
		},
		ekdto.EventFavor: func(sess *session, data json.RawMessage) (any, error) {
			var req ekdto.FavorRequest
			if err := decode(data, &req); err != nil {
				return nil, err
			}
			return nil, e.Favor(sess.id, req)
		},
	}
	rt.handlers[ekdto.EventJoinGame] = withGame(e.JoinGame)
	rt.handlers[ekdto.EventLeaveGame] = withGame(e.LeaveGame)
	rt.handlers[ekdto.EventHand] = withGame(e.Hand)
	rt.handlers[ekdto.EventDiscardPile] = withGame(e.DiscardPile)
	rt.handlers[ekdto.EventStartGame] = quiet(e.StartGame)
	rt.handlers[ekdto.EventStopGame] = quiet(e.StopGame)
	rt.handlers[ekdto.EventReady] = quiet(e.ToggleReady)
	rt.handlers[ekdto.EventEndTurn] = quiet(e.EndTurn)
	return rt
}

// withGame adapts an operation that answers the caller.
func withGame[T any](op func(userID, gameID string) (T, error)) handler {
	return func(sess *session, data json.RawMessage) (any, error) {
		var req ekdto.GameRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return op(sess.id, req.GameID)
	}
}

// quiet adapts an operation whose outcome is delivered by broadcast.
func quiet(op func(userID, gameID string) error) handler {
	return func(sess *session, data json.RawMessage) (any, error) {
		var req ekdto.GameRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, op(sess.id, req.GameID)
	}
}

type badRequest struct{ err error }

func (b badRequest) Error() string { return "bad request: " + b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return badRequest{err}
	}
	return nil
}

func (rt *router) dispatch(sess *session, env ekdto.Envelope) {
	h, ok := rt.handlers[env.Event]
	if !ok {
		rt.s.replyError(sess.id, ekdto.EventError, "errors.unknown_event", map[string]string{"Event": env.Event}, nil)
		obslog.L().Debug("unknown_event", zap.String("session", sess.id), zap.String("event", env.Event))
		return
	}
	if env.Event != ekdto.EventConnect && !sess.isConnected() {
		rt.s.SendError(sess.id, env.Event, engine.ErrNotConnected)
		return
	}

	reply, err := h(sess, env.Data)
	if err != nil {
		var bad badRequest
		if errors.As(err, &bad) {
			rt.s.replyError(sess.id, env.Event, "errors.bad_request", nil, err)
			return
		}
		rt.s.SendError(sess.id, env.Event, err)
		return
	}
	if reply != nil {
		rt.s.Send(sess.id, ekdto.NewEvent(env.Event, reply))
	}
}
