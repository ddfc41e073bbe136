package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-highway/entity"
	"github.com/tsinghua-fib-lab/agentsociety-highway/server"
)

type fakeEngine struct {
	mu       sync.Mutex
	commands []entity.Command
	accept   bool
}

func (e *fakeEngine) Apply(cmd entity.Command) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, cmd)
	return e.accept
}

func (e *fakeEngine) Snapshot() entity.Snapshot {
	return entity.Snapshot{
		Version:  3,
		Time:     0.6,
		Vehicles: []entity.VehicleState{{ID: 1, S: 12, Velocity: 20}},
		Signals:  []entity.SignalState{},
	}
}

func (e *fakeEngine) received() []entity.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]entity.Command(nil), e.commands...)
}

type rawEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startServer(t *testing.T) (*fakeEngine, *server.Hub, *httptest.Server) {
	engine := &fakeEngine{accept: true}
	metrics := server.NewMetrics()
	hub := server.NewHub(engine, metrics)
	srv := httptest.NewServer(server.NewRouter(hub, metrics))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)
	return engine, hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sim"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) rawEnvelope {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env rawEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestClientReceivesSnapshotOnConnect(t *testing.T) {
	_, _, srv := startServer(t)
	conn := dial(t, srv)
	env := read(t, conn)
	assert.Equal(t, server.TypeSnapshot, env.Type)
	var snap entity.Snapshot
	require.NoError(t, json.Unmarshal(env.Payload, &snap))
	assert.Equal(t, uint64(3), snap.Version)
	require.Len(t, snap.Vehicles, 1)
	assert.Equal(t, int64(1), snap.Vehicles[0].ID)
}

func TestBroadcast(t *testing.T) {
	_, hub, srv := startServer(t)
	conn := dial(t, srv)
	read(t, conn)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.PublishDelta(entity.Delta{BaseVersion: 3, Version: 4, Removes: []int64{1}})
	env := read(t, conn)
	assert.Equal(t, server.TypeDelta, env.Type)
	var d entity.Delta
	require.NoError(t, json.Unmarshal(env.Payload, &d))
	assert.Equal(t, []int64{1}, d.Removes)

	hub.PublishStats(entity.StatsSnapshot{Time: 1, ThroughputVehPerHour: 1200})
	env = read(t, conn)
	assert.Equal(t, server.TypeStats, env.Type)
}

func TestCommandsReachEngine(t *testing.T) {
	engine, _, srv := startServer(t)
	conn := dial(t, srv)
	read(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"setTimeScale","scale":4}`)))
	require.Eventually(t, func() bool { return len(engine.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, entity.SetTimeScale{Scale: 4}, engine.received()[0])
}

func TestDisconnectRemovesClient(t *testing.T) {
	_, hub, srv := startServer(t)
	conn := dial(t, srv)
	read(t, conn)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHTTPRoutes(t *testing.T) {
	_, _, srv := startServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(srv.URL + "/nowhere")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "highway_ws_clients")
}
