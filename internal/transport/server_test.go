package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/ek-server/internal/engine"
	"github.com/park285/ek-server/internal/msgcat"
	"github.com/park285/ek-server/pkg/ekdto"
)

type harness struct {
	eng *engine.Engine
	srv *Server
	url string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	eng, err := engine.New(engine.Options{Seed: 1})
	require.NoError(t, err)
	cat, err := msgcat.New("")
	require.NoError(t, err)
	srv := New(eng, cat, opts)
	eng.SetNotifier(srv)

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Close(ctx)
		ts.Close()
	})
	return &harness{eng: eng, srv: srv, url: "ws" + strings.TrimPrefix(ts.URL, "http")}
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (h *harness) dial(t *testing.T) *client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return &client{t: t, conn: conn}
}

func (c *client) send(event string, payload any) {
	c.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(c.t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(c.t, wsjson.Write(ctx, c.conn, ekdto.Envelope{Event: event, Data: data}))
}

func (c *client) read() ekdto.Envelope {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var env ekdto.Envelope
	require.NoError(c.t, wsjson.Read(ctx, c.conn, &env))
	return env
}

// expect skips frames until one named event arrives.
func (c *client) expect(event string) ekdto.Envelope {
	c.t.Helper()
	for i := 0; i < 20; i++ {
		if env := c.read(); env.Event == event {
			return env
		}
	}
	c.t.Fatalf("event %q not received", event)
	return ekdto.Envelope{}
}

func errorText(t *testing.T, env ekdto.Envelope) string {
	t.Helper()
	var reply ekdto.ErrorReply
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	return reply.Error
}

func TestConnectAndBroadcast(t *testing.T) {
	h := newHarness(t, Options{})
	ann := h.dial(t)
	ann.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "ann"})

	var reply ekdto.ConnectReply
	require.NoError(t, json.Unmarshal(ann.expect(ekdto.EventConnect).Data, &reply))
	assert.Equal(t, "ann", reply.User.Name)

	ben := h.dial(t)
	ben.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "ben"})
	ben.expect(ekdto.EventConnect)

	var joined ekdto.UserEvent
	require.NoError(t, json.Unmarshal(ann.expect(ekdto.EventUserConnected).Data, &joined))
	assert.Equal(t, "ben", joined.User.Name)

	ben.send(ekdto.EventCreateGame, ekdto.CreateGameRequest{Title: "table"})
	var created ekdto.GameReply
	require.NoError(t, json.Unmarshal(ben.expect(ekdto.EventCreateGame).Data, &created))
	require.NotNil(t, created.Game)

	var listed ekdto.GameEvent
	require.NoError(t, json.Unmarshal(ann.expect(ekdto.EventGameCreated).Data, &listed))
	assert.Equal(t, created.Game.ID, listed.Game.ID)
}

func TestErrorsAreRendered(t *testing.T) {
	h := newHarness(t, Options{})
	ann := h.dial(t)

	ann.send(ekdto.EventCreateGame, ekdto.CreateGameRequest{Title: "early"})
	assert.Equal(t, "User is not connected", errorText(t, ann.expect(ekdto.EventCreateGame)))

	ann.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "a"})
	assert.Equal(t, "Name has to be between 2 and 12 characters!", errorText(t, ann.expect(ekdto.EventConnect)))

	ann.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "ann"})
	ann.expect(ekdto.EventConnect)

	ben := h.dial(t)
	ben.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "Ann"})
	assert.Equal(t, "User is already connected with that name!", errorText(t, ben.expect(ekdto.EventConnect)))

	ann.send("dance", map[string]string{})
	assert.Equal(t, "Unknown event dance", errorText(t, ann.expect(ekdto.EventError)))

	ann.send(ekdto.EventJoinGame, ekdto.GameRequest{GameID: "missing"})
	assert.Equal(t, "Invalid game", errorText(t, ann.expect(ekdto.EventJoinGame)))
}

func TestStateErrorsAreDropped(t *testing.T) {
	h := newHarness(t, Options{})
	ann := h.dial(t)
	ann.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "ann"})
	ann.expect(ekdto.EventConnect)
	ann.send(ekdto.EventCreateGame, ekdto.CreateGameRequest{Title: "table"})
	var created ekdto.GameReply
	require.NoError(t, json.Unmarshal(ann.expect(ekdto.EventCreateGame).Data, &created))
	require.NotNil(t, created.Game)

	// Ending a turn while waiting is ignored; the hand request after it is
	// likewise a state error, so the next frame is the invalid-game reply.
	ann.send(ekdto.EventEndTurn, ekdto.GameRequest{GameID: created.Game.ID})
	ann.send(ekdto.EventHand, ekdto.GameRequest{GameID: created.Game.ID})
	ann.send(ekdto.EventLeaveGame, ekdto.GameRequest{GameID: "missing"})

	env := ann.read()
	for env.Event == ekdto.EventGameUpdate || env.Event == ekdto.EventGameCreated {
		env = ann.read()
	}
	assert.Equal(t, ekdto.EventLeaveGame, env.Event)
	assert.Equal(t, "Invalid game", errorText(t, env))
}

func TestNewAppliesActionDefaults(t *testing.T) {
	eng, err := engine.New(engine.Options{Seed: 1})
	require.NoError(t, err)
	s := New(eng, nil, Options{})
	assert.Equal(t, float64(DefaultActionRate), s.opts.ActionRate)
	assert.Equal(t, DefaultActionBurst, s.opts.ActionBurst)
	assert.Equal(t, 30*time.Second, s.opts.PingInterval)
}

func TestDefaultBurstAllowsQuickFrames(t *testing.T) {
	h := newHarness(t, Options{})
	ann := h.dial(t)
	ann.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "ann"})
	for i := 0; i < 5; i++ {
		ann.send(ekdto.EventLeaveGame, ekdto.GameRequest{GameID: "missing"})
	}
	ann.expect(ekdto.EventConnect)
	for i := 0; i < 5; i++ {
		assert.Equal(t, "Invalid game", errorText(t, ann.expect(ekdto.EventLeaveGame)))
	}
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, Options{ActionRate: 0.001, ActionBurst: 1})
	ann := h.dial(t)
	ann.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "ann"})
	ann.expect(ekdto.EventConnect)

	ann.send(ekdto.EventCreateGame, ekdto.CreateGameRequest{Title: "table"})
	assert.Equal(t, "Slow down!", errorText(t, ann.expect(ekdto.EventCreateGame)))
}

func TestDisconnectLeavesEngine(t *testing.T) {
	h := newHarness(t, Options{})
	ann := h.dial(t)
	ann.send(ekdto.EventConnect, ekdto.ConnectRequest{Nickname: "ann"})
	ann.expect(ekdto.EventConnect)
	require.Len(t, h.eng.Users(), 1)

	require.NoError(t, ann.conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return len(h.eng.Users()) == 0 && h.srv.Sessions() == 0 },
		2*time.Second, 10*time.Millisecond)
}
