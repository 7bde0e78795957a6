package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/storebuddy/internal/dialogue"
	"github.com/avvvet/storebuddy/internal/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EventConn is the part of *nats.Conn used for stock events.
type EventConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Events publishes stock changes and fans them in from every gateway
// sharing the subject.
type Events struct {
	conn    EventConn
	subject string
	logger  *zap.Logger
	sub     *nats.Subscription
}

func NewEvents(conn EventConn, subject string, logger *zap.Logger) *Events {
	return &Events{conn: conn, subject: subject, logger: logger}
}

func (e *Events) Publish(ctx context.Context, event models.StockEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stock event: %w", err)
	}
	if err := e.conn.Publish(e.subject, data); err != nil {
		return fmt.Errorf("failed to publish stock event: %w", err)
	}
	return nil
}

// Subscribe delivers every decoded event to fn.
func (e *Events) Subscribe(fn func(models.StockEvent)) error {
	sub, err := e.conn.Subscribe(e.subject, func(msg *nats.Msg) {
		var event models.StockEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			e.logger.Warn("dropping malformed stock event", zap.Error(err))
			return
		}
		fn(event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", e.subject, err)
	}
	e.sub = sub
	e.logger.Info("Subscribed to subject", zap.String("subject", e.subject))
	return nil
}

func (e *Events) Close() error {
	if e.sub == nil {
		return nil
	}
	return e.sub.Unsubscribe()
}

// LocalPublisher hands events straight to a callback when there is no broker.
type LocalPublisher func(models.StockEvent)

func (f LocalPublisher) Publish(ctx context.Context, event models.StockEvent) error {
	f(event)
	return nil
}

// Broadcaster delivers text to every live session.
type Broadcaster interface {
	Broadcast(text string) int
}

// SoldOutAlerts broadcasts a notice whenever a product reaches zero stock.
func SoldOutAlerts(b Broadcaster, logger *zap.Logger) func(models.StockEvent) {
	return func(event models.StockEvent) {
		if event.Quantity > 0 {
			return
		}
		n := b.Broadcast(dialogue.SoldOutNotice(event.Name))
		logger.Info("sold-out notice broadcast",
			zap.Int("product_id", event.ProductID),
			zap.String("name", event.Name),
			zap.Int("sessions", n))
	}
}
