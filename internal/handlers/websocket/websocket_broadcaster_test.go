package websocket_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/handlers/websocket"
)

func dial(t *testing.T, srv *httptest.Server, query string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcaster_DeliversAndFilters(t *testing.T) {
	b := websocket.NewWebSocketBroadcaster(nil)
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	all := dial(t, srv, "")
	onlyB := dial(t, srv, "?project=B")
	require.Eventually(t, func() bool { return b.Clients() == 2 }, time.Second, 10*time.Millisecond)

	b.BroadcastRealTimeStats(&model.RealTimeStats{ProjectID: "A", RetiredLast24h: decimal.NewFromInt(5)})
	b.BroadcastRealTimeStats(&model.RealTimeStats{ProjectID: "B", EventsLast24h: 3})
	b.BroadcastRealTimeStats(nil)

	read := func(c *gws.Conn) (string, model.RealTimeStats) {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := c.ReadMessage()
		require.NoError(t, err)
		var env struct {
			Type string              `json:"type"`
			Data model.RealTimeStats `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &env))
		return env.Type, env.Data
	}

	typ, first := read(all)
	assert.Equal(t, "real-time-stats", typ)
	assert.Equal(t, "A", first.ProjectID)
	assert.True(t, first.RetiredLast24h.Equal(decimal.NewFromInt(5)))
	_, second := read(all)
	assert.Equal(t, "B", second.ProjectID)

	_, filtered := read(onlyB)
	assert.Equal(t, "B", filtered.ProjectID)
	assert.Equal(t, 3, filtered.EventsLast24h)
}

func TestBroadcaster_DropsDisconnected(t *testing.T) {
	b := websocket.NewWebSocketBroadcaster(nil)
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return b.Clients() == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return b.Clients() == 0 }, time.Second, 10*time.Millisecond)

	dial(t, srv, "")
	require.Eventually(t, func() bool { return b.Clients() == 1 }, time.Second, 10*time.Millisecond)
	b.Close()
	assert.Zero(t, b.Clients())
}
