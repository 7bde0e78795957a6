package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/storebuddy/internal/models"
	"github.com/nats-io/nats.go"
)

// Requester is the part of *nats.Conn the remote classifier needs.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Remote implements Classifier by forwarding every task to an intent
// worker over NATS request/reply.
type Remote struct {
	conn    Requester
	subject string
}

func NewRemote(conn Requester, subject string) *Remote {
	return &Remote{conn: conn, subject: subject}
}

func (r *Remote) Classify(ctx context.Context, message string, history []models.Message, catalog []models.Product) (models.Classification, error) {
	resp, err := r.request(ctx, &models.IntentRequest{
		Task:                models.TaskClassify,
		UserMessage:         message,
		ConversationHistory: models.ToConversation(history),
		Catalog:             catalog,
	})
	if err != nil {
		return models.Unclassified(), err
	}

	result := models.Classification{Intent: models.IntentUnknown, Call: resp.Call}
	if resp.Intent != nil {
		result.Intent = models.ParseIntent(*resp.Intent)
	}
	// the worker already sends coerced entities
	result.Entities, _ = models.DecodeEntities(resp.Entities)
	return result, nil
}

func (r *Remote) Answer(ctx context.Context, message string, history []models.Message, catalog []models.Product) (string, error) {
	return r.text(ctx, &models.IntentRequest{
		Task:                models.TaskAnswer,
		UserMessage:         message,
		ConversationHistory: models.ToConversation(history),
		Catalog:             catalog,
	})
}

func (r *Remote) Redirect(ctx context.Context, message string, history []models.Message, catalog []models.Product) (string, error) {
	return r.text(ctx, &models.IntentRequest{
		Task:                models.TaskRedirect,
		UserMessage:         message,
		ConversationHistory: models.ToConversation(history),
		Catalog:             catalog,
	})
}

func (r *Remote) PickSuggestion(ctx context.Context, request string, candidates []string) (string, error) {
	return r.text(ctx, &models.IntentRequest{
		Task:        models.TaskSuggest,
		UserMessage: request,
		Candidates:  candidates,
	})
}

func (r *Remote) CompleteName(ctx context.Context, fuzzy string, names []string) (string, error) {
	return r.text(ctx, &models.IntentRequest{
		Task:        models.TaskCompleteName,
		UserMessage: fuzzy,
		Candidates:  names,
	})
}

func (r *Remote) LastMentioned(ctx context.Context, history []models.Message) (string, error) {
	resp, err := r.request(ctx, &models.IntentRequest{
		Task:                models.TaskLastMentioned,
		ConversationHistory: models.ToConversation(history),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (r *Remote) text(ctx context.Context, request *models.IntentRequest) (string, error) {
	resp, err := r.request(ctx, request)
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}
	return resp.Text, nil
}

func (r *Remote) request(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error) {
	request.SessionID = SessionIDFrom(ctx)
	if request.SessionID == "" {
		request.SessionID = "anonymous"
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	msg, err := r.conn.RequestWithContext(ctx, r.subject, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var response models.IntentResponse
	if err := json.Unmarshal(msg.Data, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if response.Status == models.StatusError {
		return nil, responseError(&response)
	}
	return &response, nil
}

func responseError(response *models.IntentResponse) error {
	code, detail := "", ""
	if response.ErrorCode != nil {
		code = *response.ErrorCode
	}
	if response.ErrorMessage != nil {
		detail = *response.ErrorMessage
	}
	if code == models.ErrorParseError {
		return fmt.Errorf("%w: %s", ErrMalformedOutput, detail)
	}
	return fmt.Errorf("%w: %s: %s", ErrUnavailable, code, detail)
}
