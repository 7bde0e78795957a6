package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avvvet/storebuddy/internal/classifier"
	"github.com/avvvet/storebuddy/internal/models"
	"go.uber.org/zap"
)

var errUnknownTask = errors.New("unknown task")

// IntentHandler runs classifier tasks on behalf of remote gateways.
type IntentHandler struct {
	classifier classifier.Classifier
	logger     *zap.Logger
}

func NewIntentHandler(cls classifier.Classifier, logger *zap.Logger) *IntentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentHandler{
		classifier: cls,
		logger:     logger,
	}
}

// ProcessIntent never returns a nil response; failures are reported in the
// response status and error code.
func (h *IntentHandler) ProcessIntent(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error) {
	// Validate request
	if err := h.validateRequest(request); err != nil {
		code := models.ErrorParseError
		if errors.Is(err, errUnknownTask) {
			code = models.ErrorUnknownIntent
		}
		return h.createErrorResponse(request, code, err.Error()), nil
	}

	ctx = classifier.WithSessionID(ctx, request.SessionID)
	history := models.FromConversation(request.ConversationHistory)
	response := &models.IntentResponse{
		SessionID: request.SessionID,
		Status:    models.StatusReady,
	}

	var err error
	switch request.Task {
	case models.TaskClassify:
		var result models.Classification
		result, err = h.classifier.Classify(ctx, request.UserMessage, history, request.Catalog)
		if err == nil {
			intent := string(result.Intent)
			response.Intent = &intent
			response.Call = result.Call
			response.Entities, err = entitiesMap(result.Entities)
		}
	case models.TaskAnswer:
		response.Text, err = h.classifier.Answer(ctx, request.UserMessage, history, request.Catalog)
	case models.TaskRedirect:
		response.Text, err = h.classifier.Redirect(ctx, request.UserMessage, history, request.Catalog)
	case models.TaskSuggest:
		response.Text, err = h.classifier.PickSuggestion(ctx, request.UserMessage, request.Candidates)
	case models.TaskCompleteName:
		response.Text, err = h.classifier.CompleteName(ctx, request.UserMessage, request.Candidates)
	case models.TaskLastMentioned:
		response.Text, err = h.classifier.LastMentioned(ctx, history)
	}
	if err != nil {
		h.logger.Warn("task failed",
			zap.String("session_id", request.SessionID),
			zap.String("task", request.Task),
			zap.Error(err))
		return h.createErrorResponse(request, errorCode(ctx, err), err.Error()), nil
	}

	h.logger.Info("task processed",
		zap.String("session_id", request.SessionID),
		zap.String("task", request.Task),
		zap.String("status", response.Status))
	return response, nil
}

func (h *IntentHandler) validateRequest(request *models.IntentRequest) error {
	if request.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	switch request.Task {
	case models.TaskLastMentioned:
		return nil
	case models.TaskClassify, models.TaskAnswer, models.TaskRedirect, models.TaskSuggest, models.TaskCompleteName:
	case "":
		return fmt.Errorf("task is required")
	default:
		return fmt.Errorf("%w: %q", errUnknownTask, request.Task)
	}
	if request.UserMessage == "" {
		return fmt.Errorf("user_message is required")
	}
	return nil
}

func errorCode(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.ErrorLLMTimeout
	case errors.Is(err, classifier.ErrMalformedOutput):
		return models.ErrorParseError
	default:
		return models.ErrorLLMFailed
	}
}

// entitiesMap renders entities in their wire form, dropping absent keys.
func entitiesMap(e models.Entities) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entities: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
	}
	return out, nil
}

func (h *IntentHandler) createErrorResponse(request *models.IntentRequest, errorCode, errorMessage string) *models.IntentResponse {
	return &models.IntentResponse{
		SessionID:    request.SessionID,
		Status:       models.StatusError,
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}
