package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/storebuddy/internal/catalog"
	"github.com/avvvet/storebuddy/internal/classifier"
	"github.com/avvvet/storebuddy/internal/models"
	"go.uber.org/zap"
)

const sampleSize = 5

// Turn is everything a strategy needs to answer one message.
type Turn struct {
	Message  string
	Entities models.Entities
	History  []models.Message
}

type strategy func(ctx context.Context, turn Turn) string

// Resolver maps a classified turn to a reply. It keeps no state between
// turns; the only side effects are catalog reads and classifier sub-calls.
type Resolver struct {
	store      *catalog.Store
	classifier classifier.Classifier
	settings

	strategies map[models.Intent]strategy
}

func NewResolver(cls classifier.Classifier, store *catalog.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:      store,
		classifier: cls,
		settings:   newSettings(opts),
	}
	r.strategies = map[models.Intent]strategy{
		models.IntentInventoryQuery:     r.inventoryQuery,
		models.IntentGeneralQuery:       r.generalQuery,
		models.IntentSuggestionRequest:  r.suggestion,
		models.IntentDescriptionRequest: r.description,
		models.IntentPurchase:           r.purchase,
		models.IntentUnknown:            r.unknown,
	}
	return r
}

// Resolve always returns a user-visible reply.
func (r *Resolver) Resolve(ctx context.Context, intent models.Intent, turn Turn) string {
	s, ok := r.strategies[intent]
	if !ok {
		s = r.strategies[models.IntentUnknown]
	}
	return s(ctx, turn)
}

func (r *Resolver) inventoryQuery(ctx context.Context, turn Turn) string {
	e := turn.Entities
	if e.Category == "" {
		categories := r.store.Categories()
		if len(categories) == 0 {
			return msgNothingInStock
		}
		return fmt.Sprintf(msgNoCategory, strings.Join(categories, ", "))
	}

	brand := strings.ToLower(e.Brand)
	matches := r.store.Filter(func(p models.Product) bool {
		if p.Category != e.Category {
			return false
		}
		if brand != "" && !strings.Contains(strings.ToLower(p.Name), brand) {
			return false
		}
		if e.MaxPrice != nil && (p.Price == nil || *p.Price > *e.MaxPrice) {
			return false
		}
		return true
	})
	if len(matches) == 0 {
		return msgNoneFound
	}
	return listProducts(msgMatchesHeader, matches)
}

func (r *Resolver) generalQuery(ctx context.Context, turn Turn) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.classifier.Answer(ctx, turn.Message, turn.History, r.store.All())
	if err != nil {
		r.subCallFailed("answer", err)
		return apologize(r.store.InStock())
	}
	return reply
}

func (r *Resolver) suggestion(ctx context.Context, turn Turn) string {
	inStock := r.store.InStock()
	if len(inStock) == 0 {
		return msgNothingInStock
	}

	names := make([]string, len(inStock))
	for i, p := range inStock {
		names[i] = p.Name
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pick, err := r.classifier.PickSuggestion(ctx, turn.Message, names)
	if err != nil {
		r.subCallFailed("suggest", err)
		return apologize(inStock)
	}
	for _, p := range inStock {
		if strings.EqualFold(p.Name, pick) {
			return fmt.Sprintf(msgSuggestion, p.Name)
		}
	}
	r.logger.Warn("suggestion is not an in-stock product", zap.String("pick", pick))
	return apologize(inStock)
}

func (r *Resolver) description(ctx context.Context, turn Turn) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	name, err := r.classifier.LastMentioned(ctx, turn.History)
	if err != nil {
		r.subCallFailed("last_mentioned", err)
		if errors.Is(err, classifier.ErrMalformedOutput) {
			return msgDescriptionError
		}
		return apologize(r.store.InStock())
	}
	if name == "" {
		return msgNoDescription
	}

	p, err := r.store.FindByName(name)
	if err != nil {
		return msgNoDescription
	}
	return fmt.Sprintf(msgDescription, p.Name, p.Description)
}

// purchase only reports a cart addition. Stock is checked and deducted
// by the order path alone.
func (r *Resolver) purchase(ctx context.Context, turn Turn) string {
	fuzzy := strings.TrimSpace(turn.Entities.ProductName)
	if fuzzy == "" {
		return msgAskProduct
	}

	all := r.store.All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	name, err := r.classifier.CompleteName(ctx, fuzzy, names)
	if err != nil {
		r.subCallFailed("complete_name", err)
		name = fuzzy
	}

	p, err := r.store.FindByNameSubstring(name)
	if err != nil {
		return fmt.Sprintf(msgProductNotFound, fuzzy)
	}

	quantity := 1
	if q := turn.Entities.Quantity; q != nil && *q > 0 {
		quantity = *q
	}
	return fmt.Sprintf(msgAddedToCart, quantity, p.Name)
}

func (r *Resolver) unknown(ctx context.Context, turn Turn) string {
	inStock := r.store.InStock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.classifier.Redirect(ctx, turn.Message, turn.History, r.store.All())
	if err != nil {
		r.subCallFailed("redirect", err)
		return apologize(inStock)
	}
	if len(inStock) == 0 {
		return reply
	}

	sample := inStock
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	return reply + "\n\n" + listProducts(msgSampleHeader, sample)
}

func (r *Resolver) subCallFailed(task string, err error) {
	r.logger.Warn("classifier sub-call failed", zap.String("task", task), zap.Error(err))
	r.metrics.ClassifierFailure(failureReason(err))
}

func failureReason(err error) string {
	if errors.Is(err, classifier.ErrMalformedOutput) {
		return "malformed"
	}
	return "unavailable"
}
