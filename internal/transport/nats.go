package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/storebuddy/internal/config"
	"github.com/avvvet/storebuddy/internal/handlers"
	"github.com/avvvet/storebuddy/internal/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// workerQueue load-balances requests across intent workers.
const workerQueue = "intent-workers"

// Connect dials NATS with infinite reconnects.
func Connect(cfg *config.Config, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS server", zap.String("url", cfg.NatsURL))
	return conn, nil
}

// NATSTransport serves classifier tasks over NATS request/reply.
type NATSTransport struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	handler *handlers.IntentHandler
	logger  *zap.Logger
	sub     *nats.Subscription
}

func NewNATSTransport(conn *nats.Conn, cfg *config.Config, handler *handlers.IntentHandler, logger *zap.Logger) *NATSTransport {
	return &NATSTransport{
		conn:    conn,
		subject: cfg.NatsRequestSubject,
		timeout: cfg.ClassifierTimeout,
		handler: handler,
		logger:  logger,
	}
}

func (nt *NATSTransport) Start() error {
	// Subscribe to intent analysis requests
	sub, err := nt.conn.QueueSubscribe(nt.subject, workerQueue, nt.handleIntentRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.subject, err)
	}
	nt.sub = sub

	nt.logger.Info("Subscribed to subject", zap.String("subject", nt.subject), zap.String("queue", workerQueue))
	return nil
}

func (nt *NATSTransport) handleIntentRequest(msg *nats.Msg) {
	response := nt.serve(msg.Data)
	if err := nt.sendResponse(msg, response); err != nil {
		nt.logger.Error("Error sending response", zap.String("session_id", response.SessionID), zap.Error(err))
	}
}

// serve decodes one request and runs it through the handler.
func (nt *NATSTransport) serve(data []byte) *models.IntentResponse {
	var request models.IntentRequest
	if err := json.Unmarshal(data, &request); err != nil {
		nt.logger.Warn("Error parsing request", zap.Error(err))
		return errorResponse(&request, models.ErrorParseError, "Invalid request format")
	}

	nt.logger.Debug("Processing intent request",
		zap.String("session_id", request.SessionID),
		zap.String("task", request.Task))

	ctx, cancel := context.WithTimeout(context.Background(), nt.timeout)
	defer cancel()

	response, err := nt.handler.ProcessIntent(ctx, &request)
	if err != nil {
		nt.logger.Error("Error processing intent", zap.Error(err))
		return errorResponse(&request, models.ErrorLLMFailed, err.Error())
	}
	return response
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response *models.IntentResponse) error {
	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := msg.Respond(responseData); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

func errorResponse(request *models.IntentRequest, errorCode, errorMessage string) *models.IntentResponse {
	return &models.IntentResponse{
		SessionID:    request.SessionID,
		Status:       models.StatusError,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}

// Close drains the subscription so in-flight requests are answered.
func (nt *NATSTransport) Close() error {
	if nt.sub == nil {
		return nil
	}
	if err := nt.sub.Drain(); err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}
	nt.logger.Info("NATS subscription drained", zap.String("subject", nt.subject))
	return nil
}
