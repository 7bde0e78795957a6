package models

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Entities are the structured values extracted from a user message.
// Every field is optional.
type Entities struct {
	Category    string   `json:"category,omitempty" mapstructure:"category"`
	Brand       string   `json:"brand,omitempty" mapstructure:"brand"`
	MaxPrice    *float64 `json:"max_price,omitempty" mapstructure:"max_price"`
	ProductName string   `json:"product_name,omitempty" mapstructure:"product_name"`
	Quantity    *int     `json:"quantity,omitempty" mapstructure:"quantity"`
}

// DecodeEntities converts a loosely typed entity map into Entities.
// Numbers given as strings are coerced, null values are skipped and
// "product" is accepted as an alias of "product_name". Each key is decoded
// on its own; keys whose value cannot be coerced are left absent and
// returned in dropped.
func DecodeEntities(raw map[string]any) (out Entities, dropped []string) {
	if len(raw) == 0 {
		return out, nil
	}

	clean := make(map[string]any, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		clean[k] = v
	}
	if _, ok := clean["product_name"]; !ok {
		if v, ok := clean["product"]; ok {
			clean["product_name"] = v
		}
	}
	delete(clean, "product")

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := decodeWeak(map[string]any{k: clean[k]}, &out); err != nil {
			dropped = append(dropped, k)
		}
	}
	return out, dropped
}

// decodeWeak decodes input into result with string/number coercion. Fields
// not named in input are left untouched.
func decodeWeak(input map[string]any, result any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// DecodeOrderRequest converts create_order arguments into an OrderRequest.
func DecodeOrderRequest(raw map[string]any) (OrderRequest, error) {
	var out OrderRequest
	if err := decodeWeak(raw, &out); err != nil {
		return OrderRequest{}, fmt.Errorf("failed to decode order arguments: %w", err)
	}
	return out, nil
}
