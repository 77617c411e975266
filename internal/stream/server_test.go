package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/traffic-sim/internal/drawable"
	"github.com/cxd309/traffic-sim/internal/engine"
)

type fakeSource struct {
	tick atomic.Uint64
}

func (f *fakeSource) Snapshot() engine.Snapshot {
	t := f.tick.Load()
	return engine.Snapshot{
		Tick:      t,
		Drawables: []drawable.Drawable{drawable.Circle(1, 2, drawable.Yellow, 5)},
		Stats:     engine.Stats{Tick: t, Live: 1},
	}
}

func (f *fakeSource) Stats() engine.Stats {
	return engine.Stats{Tick: f.tick.Load(), Spawned: 4, Live: 1}
}

type fakeExecutor struct {
	lines []string
}

func (f *fakeExecutor) Execute(line string) ([]string, error) {
	f.lines = append(f.lines, line)
	if line == "BAD" {
		return []string{"Unknown Command: BAD"}, errors.New("unknown command")
	}
	return []string{"Executing command: " + line}, nil
}

func newTestServer(t *testing.T, exec Executor) (*Server, *fakeSource, *httptest.Server) {
	t.Helper()
	src := &fakeSource{}
	s := New(src, exec, Config{FrameInterval: 5 * time.Millisecond, Logger: zerolog.Nop()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, src, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestWebSocketPushesFrames(t *testing.T) {
	s, src, ts := newTestServer(t, nil)
	src.tick.Store(3)
	conn := dial(t, ts)

	msg := readMessage(t, conn)
	assert.JSONEq(t, `"frame"`, string(msg["type"]))
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(msg["snapshot"], &snap))
	assert.Equal(t, uint64(3), snap.Tick)
	require.Len(t, snap.Drawables, 1)
	assert.Equal(t, drawable.KindCircle, snap.Drawables[0].Kind)
	assert.Equal(t, int64(1), s.Clients())

	src.tick.Store(4)
	msg = readMessage(t, conn)
	require.NoError(t, json.Unmarshal(msg["snapshot"], &snap))
	assert.Equal(t, uint64(4), snap.Tick, "unchanged ticks are not resent")
}

func TestWebSocketCommands(t *testing.T) {
	exec := &fakeExecutor{}
	_, _, ts := newTestServer(t, exec)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("CLEARCARS")))
	for {
		msg := readMessage(t, conn)
		if string(msg["type"]) != `"control"` {
			continue
		}
		var reply ControlReply
		require.NoError(t, json.Unmarshal(mustMarshal(t, msg), &reply))
		assert.Equal(t, []string{"Executing command: CLEARCARS"}, reply.Lines)
		assert.Empty(t, reply.Error)
		break
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestSnapshotAndStatsEndpoints(t *testing.T) {
	_, src, ts := newTestServer(t, nil)
	src.tick.Store(9)

	resp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var snap engine.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, uint64(9), snap.Tick)

	resp2, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var stats engine.Stats
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&stats))
	assert.Equal(t, 4, stats.Spawned)
}

func TestControlEndpoint(t *testing.T) {
	exec := &fakeExecutor{}
	_, _, ts := newTestServer(t, exec)

	resp, err := http.Post(ts.URL+"/control", "text/plain", strings.NewReader("  YELLOWLIGHTS\n"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var reply ControlReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, []string{"Executing command: YELLOWLIGHTS"}, reply.Lines)
	assert.Equal(t, []string{"YELLOWLIGHTS"}, exec.lines)

	resp2, err := http.Post(ts.URL+"/control", "text/plain", strings.NewReader("BAD"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&reply))
	assert.NotEmpty(t, reply.Error)

	resp3, err := http.Get(ts.URL + "/control")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}

func TestControlDisabledWithoutExecutor(t *testing.T) {
	_, _, ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/control", "text/plain", strings.NewReader("CLEARCARS"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := New(&fakeSource{}, nil, Config{Addr: addr, Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/stats")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
