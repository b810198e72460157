// Package adminapi serves read-only operational endpoints over fasthttp.
package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/lobby"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

const requestTimeout = 3 * time.Second

// Live is the engine view the admin endpoints read.
type Live interface {
	ListGames() []ekdto.Game
	Users() []ekdto.User
}

// Results lists archived games.
type Results interface {
	Recent(ctx context.Context, limit int) ([]ekdto.GameResult, error)
}

// Sessions counts open websocket connections.
type Sessions interface {
	Sessions() int
}

type Server struct {
	live     Live
	dir      lobby.Directory
	results  Results
	sessions Sessions
	started  time.Time
	srv      *fasthttp.Server
}

type Option func(*Server)

func WithResults(r Results) Option { return func(s *Server) { s.results = r } }

func WithSessions(n Sessions) Option { return func(s *Server) { s.sessions = n } }

func New(live Live, dir lobby.Directory, opts ...Option) *Server {
	s := &Server{live: live, dir: dir, started: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "ek-admin",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Serve blocks until the listener is closed.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handle routes one request.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := strings.TrimRight(string(ctx.Path()), "/")
	switch {
	case path == "/healthz":
		s.health(ctx)
	case path == "/games":
		s.games(ctx)
	case strings.HasPrefix(path, "/games/"):
		s.game(ctx, strings.TrimPrefix(path, "/games/"))
	case path == "/users":
		writeJSON(ctx, fasthttp.StatusOK, s.live.Users())
	case path == "/results":
		s.recent(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

// Health is the /healthz body.
type Health struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Games    int    `json:"games"`
	Users    int    `json:"users"`
	Sessions int    `json:"sessions"`
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	h := Health{
		Status: "ok",
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
		Games:  len(s.live.ListGames()),
		Users:  len(s.live.Users()),
	}
	if s.sessions != nil {
		h.Sessions = s.sessions.Sessions()
	}
	writeJSON(ctx, fasthttp.StatusOK, h)
}

// games lists the lobby directory, falling back to the live engine.
func (s *Server) games(ctx *fasthttp.RequestCtx) {
	if s.dir != nil {
		c, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := s.dir.List(c)
		if err == nil {
			writeJSON(ctx, fasthttp.StatusOK, list)
			return
		}
		obslog.L().Warn("admin_directory_list_failed", zap.Error(err))
	}
	writeJSON(ctx, fasthttp.StatusOK, s.live.ListGames())
}

func (s *Server) game(ctx *fasthttp.RequestCtx, id string) {
	if s.dir == nil || id == "" {
		writeError(ctx, fasthttp.StatusNotFound, "not found")
		return
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	g, err := s.dir.Get(c, id)
	switch {
	case errors.Is(err, lobby.ErrNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "game not found")
	case err != nil:
		obslog.L().Warn("admin_directory_get_failed", obslog.GameID(id), zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, "directory unavailable")
	default:
		writeJSON(ctx, fasthttp.StatusOK, g)
	}
}

func (s *Server) recent(ctx *fasthttp.RequestCtx) {
	if s.results == nil {
		writeJSON(ctx, fasthttp.StatusOK, []ekdto.GameResult{})
		return
	}
	limit, err := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	list, err := s.results.Recent(c, limit)
	if err != nil {
		obslog.L().Warn("admin_results_failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, "results unavailable")
		return
	}
	if list == nil {
		list = []ekdto.GameResult{}
	}
	writeJSON(ctx, fasthttp.StatusOK, list)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.Error("encode failed", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}
