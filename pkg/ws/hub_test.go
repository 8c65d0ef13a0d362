package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recvMessage(t *testing.T, ch chan []byte) Message {
	t.Helper()
	select {
	case raw := <-ch:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_SendsInitDataOnRegister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.SetInitDataProvider(func() interface{} {
		return map[string]int{"total_events": 42}
	})
	go hub.Run()

	client := NewClient(hub, nil)
	client.Register()

	// 新连接收到的第一条消息是初始数据
	msg := recvMessage(t, client.send)
	assert.Equal(t, MsgTypeInit, msg.Type)

	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), data["total_events"])
}

func TestHub_NoInitWithoutProvider(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	client := NewClient(hub, nil)
	client.Register()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case raw := <-client.send:
		t.Fatalf("unexpected message without provider: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_NilInitDataSkipped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.SetInitDataProvider(func() interface{} { return nil })
	go hub.Run()

	client := NewClient(hub, nil)
	client.Register()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case raw := <-client.send:
		t.Fatalf("unexpected message for nil init data: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	a := NewClient(hub, nil)
	b := NewClient(hub, nil)
	a.Register()
	b.Register()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastReportUpdate(map[string]int{"imported": 3})

	for _, c := range []*Client{a, b} {
		msg := recvMessage(t, c.send)
		assert.Equal(t, MsgTypeReportUpdate, msg.Type)
	}
}

func TestHub_WebSocketRoundTrip(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.SetInitDataProvider(func() interface{} {
		return map[string]string{"status": "ready"}
	})
	go hub.Run()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(hub, conn)
		client.Register()
		go client.ReadPump()
		go client.WritePump()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initMsg Message
	require.NoError(t, conn.ReadJSON(&initMsg))
	assert.Equal(t, MsgTypeInit, initMsg.Type)

	// 客户端的 Pong 不会中断后续推送
	require.NoError(t, conn.WriteMessage(websocket.PongMessage, nil))

	hub.BroadcastLetterProgress(map[string]int{"done": 1})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var progressMsg Message
	require.NoError(t, conn.ReadJSON(&progressMsg))
	assert.Equal(t, MsgTypeLetterProgress, progressMsg.Type)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
