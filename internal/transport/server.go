// Package transport speaks the JSON event protocol over websockets and
// delivers engine events to sessions.
package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/ek-server/internal/engine"
	"github.com/park285/ek-server/internal/msgcat"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

const (
	outboxSize   = 256
	readLimit    = 64 << 10
	writeTimeout = 5 * time.Second

	DefaultActionRate  = 20
	DefaultActionBurst = 40
)

type Options struct {
	ActionRate     float64
	ActionBurst    int
	PingInterval   time.Duration
	OriginPatterns []string
}

// Server accepts websocket sessions and implements engine.Notifier.
type Server struct {
	eng    Engine
	cat    *msgcat.Catalog
	router *router
	opts   Options

	mu       sync.RWMutex
	sessions map[string]*session

	wg sync.WaitGroup
}

var _ engine.Notifier = (*Server)(nil)

func New(eng Engine, cat *msgcat.Catalog, opts Options) *Server {
	if opts.ActionRate <= 0 {
		opts.ActionRate = DefaultActionRate
	}
	if opts.ActionBurst <= 0 {
		opts.ActionBurst = DefaultActionBurst
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	s := &Server{eng: eng, cat: cat, opts: opts, sessions: make(map[string]*session)}
	s.router = newRouter(s)
	return s
}

// ServeHTTP upgrades the request and runs the session until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.opts.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Debug("ws_accept_failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)
	s.wg.Add(1)
	defer s.wg.Done()

	sess := newSession(uuid.NewString(), conn, rate.NewLimiter(rate.Limit(s.opts.ActionRate), s.opts.ActionBurst))
	s.register(sess)
	obslog.L().Debug("ws_session_opened", zap.String("session", sess.id), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		sess.writeLoop(ctx)
		cancel()
	}()
	go func() {
		defer s.wg.Done()
		s.pingLoop(ctx, sess)
	}()

	s.readLoop(ctx, sess)

	s.unregister(sess)
	if sess.isConnected() {
		s.eng.Disconnect(sess.id)
	}
	sess.close(websocket.StatusNormalClosure, "bye")
	obslog.L().Debug("ws_session_closed", zap.String("session", sess.id))
}

func (s *Server) readLoop(ctx context.Context, sess *session) {
	for {
		var env ekdto.Envelope
		if err := wsjson.Read(ctx, sess.conn, &env); err != nil {
			if st := websocket.CloseStatus(err); st == -1 && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_failed", zap.String("session", sess.id), zap.Error(err))
			}
			return
		}
		if !sess.limiter.Allow() {
			s.replyError(sess.id, env.Event, "errors.rate_limited", nil, nil)
			continue
		}
		s.router.dispatch(sess, env)
	}
}

func (s *Server) pingLoop(ctx context.Context, sess *session) {
	t := time.NewTicker(s.opts.PingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := sess.conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				sess.close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) unregister(sess *session) {
	s.mu.Lock()
	if s.sessions[sess.id] == sess {
		delete(s.sessions, sess.id)
	}
	s.mu.Unlock()
}

func (s *Server) lookup(id string) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Sessions counts open connections.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close ends every session and waits for their loops.
func (s *Server) Close(ctx context.Context) error {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()
	for _, sess := range all {
		sess.stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func encode(ev ekdto.Event) ([]byte, bool) {
	b, err := ev.Encode()
	if err != nil {
		obslog.L().Error("event_encode_failed", zap.String("event", ev.Name), zap.Error(err))
		return nil, false
	}
	return b, true
}

func (s *Server) Send(userID string, ev ekdto.Event) {
	sess := s.lookup(userID)
	if sess == nil {
		return
	}
	if b, ok := encode(ev); ok {
		sess.enqueue(b)
	}
}

func (s *Server) Broadcast(userIDs []string, ev ekdto.Event) {
	if len(userIDs) == 0 {
		return
	}
	b, ok := encode(ev)
	if !ok {
		return
	}
	for _, id := range userIDs {
		if sess := s.lookup(id); sess != nil {
			sess.enqueue(b)
		}
	}
}

// BroadcastAll reaches every session that has connected with a nickname.
func (s *Server) BroadcastAll(ev ekdto.Event, except ...string) {
	b, ok := encode(ev)
	if !ok {
		return
	}
	skip := make(map[string]struct{}, len(except))
	for _, id := range except {
		skip[id] = struct{}{}
	}
	s.mu.RLock()
	targets := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if _, ok := skip[id]; ok || !sess.isConnected() {
			continue
		}
		targets = append(targets, sess)
	}
	s.mu.RUnlock()
	for _, sess := range targets {
		sess.enqueue(b)
	}
}

// SendError reports a rejected action on its request event. State errors
// are dropped.
func (s *Server) SendError(userID, event string, err error) {
	if kind, ok := engine.KindOf(err); ok && kind == engine.State {
		obslog.L().Debug("action_ignored", zap.String("session", userID), zap.String("event", event), zap.Error(err))
		return
	}
	s.replyError(userID, event, engine.MessageKey(err), nil, err)
}

func (s *Server) replyError(userID, event, key string, data any, err error) {
	fallback := "Something went wrong"
	if err != nil {
		fallback = err.Error()
	}
	text := s.cat.Text(key, data, fallback)
	s.Send(userID, ekdto.NewEvent(event, ekdto.ErrorReply{Error: text}))
}
