package realtime

import (
	"OurSpace/internal/pkg/consts"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_RoundTripAndCleanup(t *testing.T) {
	f := newDispatcherFixture()
	cfg := testWSConfig()
	cfg.PingInterval = time.Second
	cfg.PongWait = 5 * time.Second
	cfg.WriteWait = time.Second
	cfg.MaxMessageSize = 1 << 20

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(r.Context(), conn, f.d.Connect(0), f.d, cfg)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	frame, err := Encode(consts.EventNewUser, map[string]any{"userId": 7, "userName": "bob"})
	require.NoError(t, err)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, frame))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, consts.EventNewUserResponse, env.Event)
	var list []PresenceEntry
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, uint64(7), list[0].UserID)

	require.NoError(t, client.Close())

	assert.Eventually(t, func() bool {
		return f.reg.Count() == 0 && f.presence.Len() == 0 && len(f.router.Members("7")) == 0
	}, 3*time.Second, 10*time.Millisecond)
}
