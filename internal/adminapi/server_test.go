package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/ek-server/internal/lobby"
	"github.com/park285/ek-server/pkg/ekdto"
)

type fakeLive struct {
	games []ekdto.Game
	users []ekdto.User
}

func (f fakeLive) ListGames() []ekdto.Game { return f.games }
func (f fakeLive) Users() []ekdto.User     { return f.users }

type fakeResults struct {
	got int
	err error
}

func (f *fakeResults) Recent(_ context.Context, limit int) ([]ekdto.GameResult, error) {
	f.got = limit
	return []ekdto.GameResult{{GameID: "g1"}}, f.err
}

type fixedSessions int

func (n fixedSessions) Sessions() int { return int(n) }

func serve(t *testing.T, s *Server) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
}

func get(t *testing.T, c *fasthttp.Client, path string, out any) int {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.SetRequestURI("http://admin" + path)
	require.NoError(t, c.DoTimeout(req, resp, 2*time.Second))
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Body(), out))
	}
	return resp.StatusCode()
}

func TestHealth(t *testing.T) {
	live := fakeLive{games: []ekdto.Game{{ID: "g"}}, users: []ekdto.User{{ID: "u"}, {ID: "v"}}}
	c := serve(t, New(live, nil, WithSessions(fixedSessions(3))))

	var h Health
	assert.Equal(t, fasthttp.StatusOK, get(t, c, "/healthz", &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 1, h.Games)
	assert.Equal(t, 2, h.Users)
	assert.Equal(t, 3, h.Sessions)
}

func TestGamesFromDirectory(t *testing.T) {
	dir := lobby.NewMemoryDirectory()
	require.NoError(t, dir.Publish(context.Background(), ekdto.GameSummary{ID: "g1", Title: "table", UpdatedAt: time.Now()}))
	c := serve(t, New(fakeLive{}, dir))

	var list []ekdto.GameSummary
	assert.Equal(t, fasthttp.StatusOK, get(t, c, "/games", &list))
	require.Len(t, list, 1)
	assert.Equal(t, "table", list[0].Title)

	var one ekdto.GameSummary
	assert.Equal(t, fasthttp.StatusOK, get(t, c, "/games/g1", &one))
	assert.Equal(t, "g1", one.ID)
	assert.Equal(t, fasthttp.StatusNotFound, get(t, c, "/games/zzz", nil))
}

func TestGamesFallBackToEngine(t *testing.T) {
	c := serve(t, New(fakeLive{games: []ekdto.Game{{ID: "live"}}}, nil))
	var list []ekdto.Game
	assert.Equal(t, fasthttp.StatusOK, get(t, c, "/games", &list))
	require.Len(t, list, 1)
	assert.Equal(t, "live", list[0].ID)
	assert.Equal(t, fasthttp.StatusNotFound, get(t, c, "/games/live", nil))
}

func TestResults(t *testing.T) {
	res := &fakeResults{}
	c := serve(t, New(fakeLive{}, nil, WithResults(res)))

	var list []ekdto.GameResult
	assert.Equal(t, fasthttp.StatusOK, get(t, c, "/results?limit=5", &list))
	assert.Equal(t, 5, res.got)
	require.Len(t, list, 1)

	get(t, c, "/results?limit=500", nil)
	assert.Equal(t, 20, res.got)

	res.err = errors.New("db down")
	assert.Equal(t, fasthttp.StatusBadGateway, get(t, c, "/results", nil))
}

func TestRouting(t *testing.T) {
	s := New(fakeLive{}, nil)
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/healthz")
	s.Handle(&ctx)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())

	ctx.Request.Reset()
	ctx.Response.Reset()
	ctx.Request.SetRequestURI("/missing")
	s.Handle(&ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}
