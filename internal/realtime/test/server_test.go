package realtime_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/binhbb2204/litverse/internal/realtime"
	"github.com/binhbb2204/litverse/pkg/utils"
	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-characters!!"

func startServer(t *testing.T) (*realtime.Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub()
	srv := realtime.NewServer(hub, nil, testSecret)
	r := gin.New()
	r.GET("/ws", srv.HandleWebSocket)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return hub, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url, userID string) *ws.Conn {
	t.Helper()
	token, err := utils.GenerateJWT(userID, userID, testSecret)
	require.NoError(t, err)
	conn, _, err := ws.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *ws.Conn) realtime.ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f realtime.ServerFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_RejectsMissingAndInvalidToken(t *testing.T) {
	_, url := startServer(t)

	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = ws.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_ServerSidePublishReachesSocket(t *testing.T) {
	hub, url := startServer(t)
	conn := dial(t, url, "alice")
	waitFor(t, func() bool { return hub.RoomCount(realtime.UserRoom("alice")) == 1 })

	hub.PublishToUser("alice", realtime.EventNewAchievement, map[string]string{"badge": "First Book"})

	f := readFrame(t, conn)
	assert.Equal(t, realtime.EventNewAchievement, f.Event)
	assert.False(t, f.Timestamp.IsZero())
}

func TestServer_ClubMessageRoundTrip(t *testing.T) {
	hub, url := startServer(t)
	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	for _, c := range []*ws.Conn{alice, bob} {
		require.NoError(t, c.WriteJSON(map[string]interface{}{"event": realtime.EventJoinBookClub, "data": "c1"}))
	}
	waitFor(t, func() bool { return hub.RoomCount(realtime.ClubRoom("c1")) == 2 })

	require.NoError(t, alice.WriteJSON(map[string]interface{}{
		"event": realtime.EventBookClubMessage,
		"data":  map[string]string{"clubId": "c1", "message": "hello club"},
	}))

	f := readFrame(t, bob)
	assert.Equal(t, realtime.EventNewBookClubMessage, f.Event)
	data := f.Data.(map[string]interface{})
	assert.Equal(t, "hello club", data["message"])
	assert.Equal(t, "alice", data["username"])
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	hub, url := startServer(t)
	conn := dial(t, url, "alice")
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}
