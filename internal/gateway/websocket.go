package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/storebuddy/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
	inboundBuffer  = 8
)

// TurnHandler answers one inbound message for a session.
type TurnHandler interface {
	HandleTurn(ctx context.Context, s *session.Session, text string) string
}

// TurnFunc adapts a function to TurnHandler.
type TurnFunc func(ctx context.Context, s *session.Session, text string) string

func (f TurnFunc) HandleTurn(ctx context.Context, s *session.Session, text string) string {
	return f(ctx, s, text)
}

// ChatHandler upgrades requests to WebSocket chat sessions.
type ChatHandler struct {
	manager  *Manager
	turns    TurnHandler
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewChatHandler accepts cross-origin upgrades when allowOrigin is nil.
func NewChatHandler(manager *Manager, turns TurnHandler, allowOrigin func(origin string) bool, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		manager: manager,
		turns:   turns,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowOrigin == nil {
					return true
				}
				return allowOrigin(r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newWSConn(ws)
	id := h.manager.Register(conn)
	defer h.manager.Unregister(id)

	sess, ok := h.manager.Session(id)
	if !ok {
		return
	}
	logger := h.logger.With(zap.String("session_id", id))

	go conn.writeLoop(logger)
	inbound := make(chan string, inboundBuffer)
	go conn.readLoop(sess, inbound, logger)

	h.runTurns(id, sess, inbound, logger)
}

// runTurns answers inbound messages one at a time until the channel closes
// or the connection is gone. A full send buffer drops that reply only.
func (h *ChatHandler) runTurns(id string, sess *session.Session, inbound <-chan string, logger *zap.Logger) {
	for text := range inbound {
		reply := h.turns.HandleTurn(sess.Context(), sess, text)
		if !sess.Alive() {
			return
		}
		err := h.manager.Send(id, reply)
		switch {
		case err == nil:
		case errors.Is(err, ErrSendBufferFull):
			logger.Warn("send buffer full, reply dropped", zap.Error(err))
		default:
			logger.Warn("failed to deliver reply", zap.Error(err))
			return
		}
	}
}

// wsConn serializes writes to one socket through a buffered channel.
type wsConn struct {
	ws   *websocket.Conn
	out  chan string
	done chan struct{}
	once sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:   ws,
		out:  make(chan string, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(text string) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- text:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *wsConn) writeLoop(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case text := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// readLoop feeds inbound text to the turn loop and closes the session when
// the peer goes away, cancelling only this session's in-flight turn.
func (c *wsConn) readLoop(sess *session.Session, inbound chan<- string, logger *zap.Logger) {
	defer close(inbound)
	defer sess.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		select {
		case inbound <- text:
		case <-sess.Context().Done():
			return
		}
	}
}
