package models

import (
	"strconv"
	"strings"
)

// Product is a single catalog record as stored in the snapshot
type Product struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Quantity      int      `json:"quantity"`
	Category      string   `json:"category"`
	Price         *float64 `json:"price,omitempty"`
	PriceCategory string   `json:"price_category,omitempty"`
	Brand         string   `json:"brand"`
	Description   string   `json:"description"`
}

// Price tier labels
const (
	TierBudget   = "budget"
	TierMidRange = "mid-range"
	TierPremium  = "premium"
	TierUnknown  = "unknown"
)

// PriceTier derives the price-tier label from a price.
func PriceTier(price *float64) string {
	switch {
	case price == nil:
		return TierUnknown
	case *price < 500:
		return TierBudget
	case *price < 1500:
		return TierMidRange
	default:
		return TierPremium
	}
}

// UnitPrice returns the price or zero when the snapshot has none.
func (p Product) UnitPrice() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// FormatPrice renders a price without trailing zeros, e.g. 500 or 19.99.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Float64Ptr is a helper for optional prices.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one immutable entry of a conversation transcript
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Intent is the coarse category of what the user wants in one turn
type Intent string

const (
	IntentInventoryQuery     Intent = "inventory_query"
	IntentGeneralQuery       Intent = "general_query"
	IntentPurchase           Intent = "purchase"
	IntentSuggestionRequest  Intent = "suggestion_request"
	IntentDescriptionRequest Intent = "description_request"
	IntentUnknown            Intent = "unknown"
)

// ParseIntent maps a free-form tag onto the intent enum. Anything not
// recognized is IntentUnknown.
func ParseIntent(tag string) Intent {
	switch i := Intent(strings.ToLower(strings.TrimSpace(tag))); i {
	case IntentInventoryQuery, IntentGeneralQuery, IntentPurchase,
		IntentSuggestionRequest, IntentDescriptionRequest:
		return i
	default:
		return IntentUnknown
	}
}

// FunctionCall is a structured call requested by the model
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Classification is the result of one classify call
type Classification struct {
	Intent   Intent        `json:"intent"`
	Entities Entities      `json:"entities"`
	Call     *FunctionCall `json:"call,omitempty"`
}

// Unclassified is the degraded result used whenever classification fails.
func Unclassified() Classification {
	return Classification{Intent: IntentUnknown}
}

// OrderRequest carries the create_order function arguments
type OrderRequest struct {
	ProductID  int     `json:"product_id" mapstructure:"product_id"`
	Quantity   int     `json:"quantity" mapstructure:"quantity"`
	UnitPrice  float64 `json:"unit_price" mapstructure:"unit_price"`
	CustomerID string  `json:"customer_id" mapstructure:"customer_id"`
}

// StockEvent is published after every successful stock decrement
type StockEvent struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}
