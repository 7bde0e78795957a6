package dialogue

import (
	"context"
	"time"

	"github.com/avvvet/storebuddy/internal/metrics"
	"github.com/avvvet/storebuddy/internal/models"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Publisher receives a stock event after every successful order.
type Publisher interface {
	Publish(ctx context.Context, event models.StockEvent) error
}

type settings struct {
	timeout   time.Duration
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures the Engine, Resolver and Orders.
type Option func(*settings)

// WithTimeout bounds every classifier call.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *settings) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func newSettings(opts []Option) settings {
	s := settings{
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
