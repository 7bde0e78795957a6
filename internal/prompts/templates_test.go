package prompts

import (
	"testing"

	"github.com/avvvet/storebuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	got, dropped, err := ParseClassification("Sure! ```json\n{\"intent\": \"inventory_query\", \"entities\": {\"category\": \"laptop\", \"max_price\": \"900\"}}\n```")
	require.NoError(t, err)
	assert.Empty(t, dropped)

	assert.Equal(t, models.IntentInventoryQuery, got.Intent)
	assert.Equal(t, "laptop", got.Entities.Category)
	require.NotNil(t, got.Entities.MaxPrice)
	assert.Equal(t, 900.0, *got.Entities.MaxPrice)
}

func TestParseClassification_BadEntityKeepsIntent(t *testing.T) {
	got, dropped, err := ParseClassification(`{"intent": "inventory_query", "entities": {"category": "laptop", "max_price": "1000 dolares"}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"max_price"}, dropped)
	assert.Equal(t, models.IntentInventoryQuery, got.Intent)
	assert.Equal(t, "laptop", got.Entities.Category)
	assert.Nil(t, got.Entities.MaxPrice)

	got, dropped, err = ParseClassification(`{"intent": "purchase", "entities": {"product_name": "Dell XPS 13", "quantity": "dos"}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"quantity"}, dropped)
	assert.Equal(t, models.IntentPurchase, got.Intent)
	assert.Equal(t, "Dell XPS 13", got.Entities.ProductName)
	assert.Nil(t, got.Entities.Quantity)
}

func TestParseClassification_Failures(t *testing.T) {
	for name, content := range map[string]string{
		"plain text":     "I think the customer wants a laptop",
		"broken json":    `{"intent": "purchase", "entities": {`,
		"reversed":       "} nope {",
		"entities array": `{"intent": "purchase", "entities": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			got, _, err := ParseClassification(content)
			assert.Error(t, err)
			assert.Equal(t, models.IntentUnknown, got.Intent)
		})
	}
}

func TestParseClassification_UnknownTag(t *testing.T) {
	got, _, err := ParseClassification(`{"intent": "book_flight"}`)
	require.NoError(t, err)
	assert.Equal(t, models.IntentUnknown, got.Intent)
}

func TestParseLastMentioned(t *testing.T) {
	name, err := ParseLastMentioned(`{"product_name": " Dell XPS 13 "}`)
	require.NoError(t, err)
	assert.Equal(t, "Dell XPS 13", name)

	name, err = ParseLastMentioned(`{"product_name": null}`)
	require.NoError(t, err)
	assert.Empty(t, name)

	_, err = ParseLastMentioned("Dell XPS 13")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Dell XPS 13", CleanName("\"Dell XPS 13\"\n"))
	assert.Equal(t, "HP Spectre", CleanName("- HP Spectre.\nBecause it is light"))
	assert.Equal(t, "Logitech MX", CleanName("**Logitech MX**"))
}

func TestBuildClassifyPrompt(t *testing.T) {
	price := 500.0
	prompt := BuildClassifyPrompt("tienen laptops?",
		[]models.Message{
			{Role: models.RoleSystem, Content: SeedPrompt},
			{Role: models.RoleUser, Content: "hola"},
			{Role: models.RoleAssistant, Content: "¡Hola!"},
		},
		[]models.Product{{ID: 1, Name: "Laptop A", Category: "laptop", Quantity: 3, Price: &price}})

	assert.Contains(t, prompt, "- [1] Laptop A | category: laptop | brand:  | price: $500 | stock: 3")
	assert.Contains(t, prompt, "User: hola\nAssistant: ¡Hola!\nUser: tienen laptops?\n")
	assert.NotContains(t, prompt, SeedPrompt)
}
