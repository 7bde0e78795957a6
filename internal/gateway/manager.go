// Package gateway tracks live chat connections and their sessions.
package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/avvvet/storebuddy/internal/metrics"
	"github.com/avvvet/storebuddy/internal/prompts"
	"github.com/avvvet/storebuddy/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReplyPrefix marks server-originated messages on the chat channel.
const ReplyPrefix = "Bot: "

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConnClosed      = errors.New("connection closed")
	ErrSendBufferFull  = errors.New("send buffer full")
)

// Conn is a transport-level connection the manager can write to.
type Conn interface {
	Send(text string) error
	Close() error
}

type client struct {
	conn    Conn
	session *session.Session
}

// Manager is the registry of live sessions. All methods are safe for
// concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*client

	seed    string
	window  int
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type Option func(*Manager)

// WithSeed sets the system message every new session starts with.
func WithSeed(seed string) Option {
	return func(m *Manager) { m.seed = seed }
}

func WithHistoryWindow(n int) Option {
	return func(m *Manager) { m.window = n }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clients: make(map[string]*client),
		seed:    prompts.SeedPrompt,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates a session for conn and returns its id.
func (m *Manager) Register(conn Conn) string {
	id := uuid.NewString()
	sess := session.New(context.Background(), id, m.seed, session.WithWindow(m.window))

	m.mu.Lock()
	m.clients[id] = &client{conn: conn, session: sess}
	count := len(m.clients)
	m.mu.Unlock()

	m.metrics.SessionOpened()
	m.logger.Info("session registered", zap.String("session_id", id), zap.Int("sessions", count))
	return id
}

// Unregister removes the session, cancels its pending work and closes its
// connection. Unknown ids are ignored.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	c, ok := m.clients[id]
	delete(m.clients, id)
	count := len(m.clients)
	m.mu.Unlock()

	if !ok {
		return
	}
	c.session.Close()
	if err := c.conn.Close(); err != nil {
		m.logger.Debug("failed to close connection", zap.String("session_id", id), zap.Error(err))
	}
	m.metrics.SessionClosed()
	m.logger.Info("session unregistered", zap.String("session_id", id), zap.Int("sessions", count))
}

// Send delivers text to exactly one session.
func (m *Manager) Send(id, text string) error {
	m.mu.RLock()
	c, ok := m.clients[id]
	m.mu.RUnlock()

	if !ok {
		return ErrSessionNotFound
	}
	return c.conn.Send(ReplyPrefix + text)
}

// Broadcast delivers text to the sessions registered at call time and
// returns how many deliveries succeeded. Failures are logged and skipped.
func (m *Manager) Broadcast(text string) int {
	m.mu.RLock()
	targets := make(map[string]Conn, len(m.clients))
	for id, c := range m.clients {
		targets[id] = c.conn
	}
	m.mu.RUnlock()

	delivered := 0
	for id, conn := range targets {
		if err := conn.Send(ReplyPrefix + text); err != nil {
			m.logger.Warn("broadcast delivery failed", zap.String("session_id", id), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// Session returns the live session registered under id.
func (m *Manager) Session(id string) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, false
	}
	return c.session, true
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CloseAll unregisters every session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Unregister(id)
	}
}
