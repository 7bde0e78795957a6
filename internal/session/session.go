package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/avvvet/storebuddy/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

// ErrInvalidRole is returned when appending a message with an unknown role.
var ErrInvalidRole = errors.New("invalid message role")

// Session owns one connection's transcript and lifecycle. The transcript
// grows without bound; Window only limits what is handed to the classifier.
type Session struct {
	id     string
	window int

	mu      sync.Mutex
	history *memory.ChatMessageHistory

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithWindow limits Window to the seed message plus the last n messages.
// Zero means unbounded.
func WithWindow(n int) Option {
	return func(s *Session) { s.window = n }
}

// New creates a live session whose transcript starts with the seed system message.
func New(parent context.Context, id, seed string, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:      id,
		history: memory.NewChatMessageHistory(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	// in-memory history never fails
	_ = s.history.AddMessage(ctx, llms.SystemChatMessage{Content: seed})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context { return s.ctx }

// Alive reports whether the session has not been closed.
func (s *Session) Alive() bool { return s.ctx.Err() == nil }

// Close marks the session dead and cancels its in-flight work. Idempotent.
func (s *Session) Close() { s.cancel() }

// Append adds one message to the transcript.
func (s *Session) Append(role, text string) error {
	var msg llms.ChatMessage
	switch role {
	case models.RoleUser:
		msg = llms.HumanChatMessage{Content: text}
	case models.RoleAssistant:
		msg = llms.AIChatMessage{Content: text}
	case models.RoleSystem:
		msg = llms.SystemChatMessage{Content: text}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.AddMessage(context.Background(), msg)
}

// History returns a copy of the whole transcript in append order.
func (s *Session) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, _ := s.history.Messages(context.Background())
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.Message{Role: roleOf(m.GetType()), Content: m.GetContent()})
	}
	return out
}

// Window returns the transcript as handed to the classifier: the seed
// message followed by at most the configured number of latest messages.
func (s *Session) Window() []models.Message {
	all := s.History()
	if s.window <= 0 || len(all) <= s.window+1 {
		return all
	}
	out := make([]models.Message, 0, s.window+1)
	out = append(out, all[0])
	return append(out, all[len(all)-s.window:]...)
}

// Len returns the number of transcript entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, _ := s.history.Messages(context.Background())
	return len(msgs)
}

func roleOf(t llms.ChatMessageType) string {
	switch t {
	case llms.ChatMessageTypeHuman:
		return models.RoleUser
	case llms.ChatMessageTypeAI:
		return models.RoleAssistant
	default:
		return models.RoleSystem
	}
}
