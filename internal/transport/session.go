package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/park285/ek-server/internal/obslog"
)

type session struct {
	id      string
	conn    *websocket.Conn
	limiter *rate.Limiter

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
	connected atomic.Bool
}

func newSession(id string, conn *websocket.Conn, limiter *rate.Limiter) *session {
	return &session{
		id:      id,
		conn:    conn,
		limiter: limiter,
		out:     make(chan []byte, outboxSize),
		done:    make(chan struct{}),
	}
}

func (s *session) isConnected() bool { return s.connected.Load() }

// enqueue never blocks; a session that cannot keep up is closed.
func (s *session) enqueue(b []byte) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- b:
	default:
		obslog.L().Warn("ws_outbox_full", zap.String("session", s.id))
		s.stop()
	}
}

func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case b := <-s.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_failed", zap.String("session", s.id), zap.Error(err))
				return
			}
		}
	}
}

// stop ends the session loops without touching the socket. Safe under
// engine locks.
func (s *session) stop() {
	s.closeOnce.Do(func() { close(s.done) })
}

// close stops the loops and performs the close handshake.
func (s *session) close(code websocket.StatusCode, reason string) {
	s.stop()
	_ = s.conn.Close(code, reason)
}
