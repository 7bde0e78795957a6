package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/storebuddy/internal/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func readText(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestChatHandler_Echo(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := NewManager()
	turns := TurnFunc(func(ctx context.Context, s *session.Session, text string) string {
		return "recibido: " + text
	})
	server := httptest.NewServer(NewChatHandler(m, turns, nil, nil))
	defer server.Close()

	ws := dial(t, server)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hola")))
	assert.Equal(t, "Bot: recibido: hola", readText(t, ws))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("otra")))
	assert.Equal(t, "Bot: recibido: otra", readText(t, ws))

	require.Eventually(t, func() bool { return m.Count() == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, m.Broadcast("Aviso"))
	assert.Equal(t, "Bot: Aviso", readText(t, ws))

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestChatHandler_TurnsAreSequential(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := NewManager()
	active := make(chan struct{}, 1)
	turns := TurnFunc(func(ctx context.Context, s *session.Session, text string) string {
		select {
		case active <- struct{}{}:
		default:
			t.Error("two turns ran concurrently in one session")
		}
		time.Sleep(10 * time.Millisecond)
		<-active
		return text
	})
	server := httptest.NewServer(NewChatHandler(m, turns, nil, nil))
	defer server.Close()

	ws := dial(t, server)
	for _, msg := range []string{"1", "2", "3"} {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(msg)))
	}
	for _, want := range []string{"1", "2", "3"} {
		assert.Equal(t, "Bot: "+want, readText(t, ws))
	}

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestChatHandler_DisconnectIsolated(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := NewManager()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	releaseB := make(chan struct{})

	turns := TurnFunc(func(ctx context.Context, s *session.Session, text string) string {
		switch text {
		case "a":
			close(started)
			<-ctx.Done()
			close(cancelled)
			return "tarde"
		case "b":
			<-releaseB
			return "respuesta b"
		}
		return text
	})
	server := httptest.NewServer(NewChatHandler(m, turns, nil, nil))
	defer server.Close()

	wsA := dial(t, server)
	wsB := dial(t, server)

	require.NoError(t, wsB.WriteMessage(websocket.TextMessage, []byte("b")))
	require.NoError(t, wsA.WriteMessage(websocket.TextMessage, []byte("a")))
	<-started

	// A disconnects mid-turn; only A's turn is cancelled
	require.NoError(t, wsA.Close())
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("session A turn was not cancelled")
	}

	close(releaseB)
	assert.Equal(t, "Bot: respuesta b", readText(t, wsB))

	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, wsB.Close())
	require.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestChatHandler_OriginRejected(t *testing.T) {
	m := NewManager()
	h := NewChatHandler(m, TurnFunc(func(context.Context, *session.Session, string) string { return "" }),
		func(origin string) bool { return origin == "http://localhost:3000" }, nil)
	server := httptest.NewServer(h)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
	assert.Equal(t, 0, m.Count())
}

func TestChatHandler_FullBufferDropsOnlyThatReply(t *testing.T) {
	m := NewManager()
	conn := &fakeConn{failNext: []error{ErrSendBufferFull}}
	id := m.Register(conn)
	sess, ok := m.Session(id)
	require.True(t, ok)

	var handled []string
	h := NewChatHandler(m, TurnFunc(func(ctx context.Context, s *session.Session, text string) string {
		handled = append(handled, text)
		return "re: " + text
	}), nil, nil)

	inbound := make(chan string, 2)
	inbound <- "uno"
	inbound <- "dos"
	close(inbound)
	h.runTurns(id, sess, inbound, zap.NewNop())

	assert.Equal(t, []string{"uno", "dos"}, handled)
	assert.Equal(t, []string{"Bot: re: dos"}, conn.messages())
	assert.Equal(t, 1, m.Count())
}

func TestChatHandler_ClosedConnStopsTurns(t *testing.T) {
	m := NewManager()
	conn := &fakeConn{sendErr: ErrConnClosed}
	id := m.Register(conn)
	sess, ok := m.Session(id)
	require.True(t, ok)

	calls := 0
	h := NewChatHandler(m, TurnFunc(func(ctx context.Context, s *session.Session, text string) string {
		calls++
		return text
	}), nil, nil)

	inbound := make(chan string, 2)
	inbound <- "uno"
	inbound <- "dos"
	close(inbound)
	h.runTurns(id, sess, inbound, zap.NewNop())

	assert.Equal(t, 1, calls)
}
