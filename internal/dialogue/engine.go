// Package dialogue turns one inbound chat message into one reply.
package dialogue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/storebuddy/internal/catalog"
	"github.com/avvvet/storebuddy/internal/classifier"
	"github.com/avvvet/storebuddy/internal/models"
	"github.com/avvvet/storebuddy/internal/session"
	"go.uber.org/zap"
)

const orderLabel = "create_order"

// Engine runs turns: classify, dispatch, record.
type Engine struct {
	classifier classifier.Classifier
	store      *catalog.Store
	resolver   *Resolver
	orders     *Orders
	settings
}

func NewEngine(cls classifier.Classifier, store *catalog.Store, opts ...Option) *Engine {
	return &Engine{
		classifier: cls,
		store:      store,
		resolver:   NewResolver(cls, store, opts...),
		orders:     NewOrders(store, opts...),
		settings:   newSettings(opts),
	}
}

// HandleTurn appends text and the reply to the session history and returns
// the reply. Classifier failures degrade to the unknown intent.
func (e *Engine) HandleTurn(ctx context.Context, s *session.Session, text string) string {
	start := time.Now()
	ctx = classifier.WithSessionID(ctx, s.ID())
	logger := e.logger.With(zap.String("session_id", s.ID()))

	history := s.Window()
	if err := s.Append(models.RoleUser, text); err != nil {
		logger.Error("failed to append user message", zap.Error(err))
	}

	result := e.classify(ctx, logger, text, history)

	var reply, label string
	if call := result.Call; call != nil && call.Name == classifier.CreateOrderFunction {
		label = orderLabel
		reply = e.createOrder(ctx, logger, s.ID(), call)
	} else {
		label = string(result.Intent)
		reply = e.resolver.Resolve(ctx, result.Intent, Turn{
			Message:  text,
			Entities: result.Entities,
			History:  history,
		})
	}

	if err := s.Append(models.RoleAssistant, reply); err != nil {
		logger.Error("failed to append reply", zap.Error(err))
	}

	elapsed := time.Since(start)
	e.metrics.ObserveTurn(label, elapsed)
	logger.Debug("turn resolved", zap.String("intent", label), zap.Duration("elapsed", elapsed))
	return reply
}

func (e *Engine) classify(ctx context.Context, logger *zap.Logger, text string, history []models.Message) models.Classification {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.classifier.Classify(ctx, text, history, e.store.All())
	if err != nil {
		logger.Warn("classification failed, treating as unknown", zap.Error(err))
		e.metrics.ClassifierFailure(failureReason(err))
		return models.Unclassified()
	}
	return result
}

func (e *Engine) createOrder(ctx context.Context, logger *zap.Logger, sessionID string, call *models.FunctionCall) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		logger.Warn("invalid create_order arguments", zap.String("arguments", call.Arguments), zap.Error(err))
		return msgOrderFailed
	}
	req, err := models.DecodeOrderRequest(args)
	if err != nil {
		logger.Warn("invalid create_order arguments", zap.String("arguments", call.Arguments), zap.Error(err))
		return msgOrderFailed
	}
	if req.CustomerID == "" {
		req.CustomerID = sessionID
	}

	receipt, err := e.orders.Create(ctx, req)
	if err != nil {
		logger.Info("order rejected", zap.Int("product_id", req.ProductID), zap.Int("quantity", req.Quantity), zap.Error(err))
	}
	return orderReply(receipt, err)
}
