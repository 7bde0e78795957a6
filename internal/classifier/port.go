// Package classifier is the boundary to the external language model: intent
// and entity extraction plus the generation sub-calls the dialogue needs.
package classifier

import (
	"context"
	"errors"

	"github.com/avvvet/storebuddy/internal/models"
)

var (
	// ErrUnavailable covers transport failures and timeouts.
	ErrUnavailable = errors.New("classifier unavailable")

	// ErrMalformedOutput is returned when a reply does not have the expected shape.
	ErrMalformedOutput = errors.New("classifier output malformed")
)

// CreateOrderFunction is the structured call that creates an order.
const CreateOrderFunction = "create_order"

// Classifier is consumed by the dialogue engine. Implementations must be
// safe for concurrent use by many sessions.
type Classifier interface {
	// Classify extracts the intent and entities of message.
	Classify(ctx context.Context, message string, history []models.Message, catalog []models.Product) (models.Classification, error)

	// Answer generates a conversational reply that promotes the catalog.
	Answer(ctx context.Context, message string, history []models.Message, catalog []models.Product) (string, error)

	// Redirect steers an off-topic message back to the catalog.
	Redirect(ctx context.Context, message string, history []models.Message, catalog []models.Product) (string, error)

	// PickSuggestion returns the single best candidate name for request.
	PickSuggestion(ctx context.Context, request string, candidates []string) (string, error)

	// CompleteName resolves a fuzzy product name against names.
	CompleteName(ctx context.Context, fuzzy string, names []string) (string, error)

	// LastMentioned returns the last product the assistant mentioned, or "".
	LastMentioned(ctx context.Context, history []models.Message) (string, error)
}

type sessionKey struct{}

// WithSessionID tags ctx with the session the call is made for.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionIDFrom returns the session tagged on ctx, if any.
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// OrderTool returns the JSON schema of the create_order function.
func OrderTool() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"product_id":  map[string]any{"type": "integer", "description": "catalog id of the product"},
			"quantity":    map[string]any{"type": "integer", "description": "units to buy"},
			"unit_price":  map[string]any{"type": "number", "description": "price per unit"},
			"customer_id": map[string]any{"type": "string", "description": "customer identifier"},
		},
		"required": []string{"product_id", "quantity", "customer_id"},
	}
}
