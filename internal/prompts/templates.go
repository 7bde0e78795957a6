package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/storebuddy/internal/models"
)

// ErrNoJSON is returned when a model reply carries no JSON object.
var ErrNoJSON = errors.New("no valid JSON found in response")

// SeedPrompt is the system message every session transcript starts with.
const SeedPrompt = `Eres un asistente de ventas de una tienda de tecnología. Ayudas a los clientes a consultar el inventario, elegir productos y comprarlos. Responde siempre en español.`

const ClassifySystemPrompt = `You classify messages sent to the sales assistant of an electronics store. Your job is to determine what the customer wants in their latest message.

RESPONSE FORMAT:
You must respond with a valid JSON object in this exact format:
{
  "intent": "inventory_query | general_query | purchase | suggestion_request | description_request | unknown",
  "entities": {
    "category": "exact category from the catalog or null",
    "brand": "brand or null",
    "max_price": number or null,
    "product_name": "product the customer refers to or null",
    "quantity": integer or null
  }
}

RULES:
1. Use inventory_query when the customer asks what is available, by category, brand or price
2. Use purchase when the customer wants to add a product to the cart
3. Use suggestion_request when the customer asks for a recommendation
4. Use description_request when the customer asks for details about the product you just mentioned
5. Use general_query for other questions about the store or technology
6. Use unknown for anything else
7. When the customer explicitly confirms an order and gives a customer id, call the create_order function instead of answering`

const AnswerSystemPrompt = `Eres un asistente de ventas amable de una tienda de tecnología. Responde la pregunta del cliente de forma breve y, cuando tenga sentido, recomienda productos del catálogo disponible. Nunca inventes productos que no estén en el catálogo.`

const RedirectSystemPrompt = `Eres un asistente de ventas de una tienda de tecnología. El mensaje del cliente no tiene relación con la tienda. Responde con cortesía en una o dos frases y redirige la conversación hacia nuestro catálogo de productos.`

const SuggestSystemPrompt = `You pick the single product that best matches a customer request. Reply with the exact product name from the list and nothing else.`

const CompleteNameSystemPrompt = `You resolve partial or misspelled product names. Reply with the exact matching product name from the list and nothing else. If nothing matches, reply with the text you were given.`

const LastMentionedSystemPrompt = `You read a conversation between a customer and a sales assistant. Find the last product the assistant itself mentioned.

RESPONSE FORMAT:
You must respond with a valid JSON object in this exact format:
{"product_name": "exact product name or null"}`

// BuildClassifyPrompt renders catalog context, history and the latest message.
func BuildClassifyPrompt(message string, history []models.Message, catalog []models.Product) string {
	return fmt.Sprintf("Catalog:\n%s\nCurrent Conversation:\n%s\nAnalyze the latest customer message and respond with the JSON format above.",
		buildCatalogSection(catalog),
		buildConversationSection(history, message))
}

// BuildAnswerPrompt is used for both the general answer and the redirect sub-calls.
func BuildAnswerPrompt(message string, history []models.Message, catalog []models.Product) string {
	return fmt.Sprintf("Catálogo disponible:\n%s\nConversación:\n%s",
		buildCatalogSection(catalog),
		buildConversationSection(history, message))
}

// BuildSuggestPrompt asks for the best product among candidates.
func BuildSuggestPrompt(request string, candidates []string) string {
	return fmt.Sprintf("Products:\n%s\nCustomer request: %s", buildNameList(candidates), request)
}

// BuildCompleteNamePrompt asks to resolve a fuzzy product name.
func BuildCompleteNamePrompt(fuzzy string, names []string) string {
	return fmt.Sprintf("Products:\n%s\nName to resolve: %s", buildNameList(names), fuzzy)
}

// BuildLastMentionedPrompt renders the conversation for the description sub-call.
func BuildLastMentionedPrompt(history []models.Message) string {
	return fmt.Sprintf("Conversation:\n%s", buildConversationSection(history, ""))
}

func buildCatalogSection(catalog []models.Product) string {
	if len(catalog) == 0 {
		return "(empty)\n"
	}
	var builder strings.Builder
	for _, p := range catalog {
		price := "n/a"
		if p.Price != nil {
			price = "$" + models.FormatPrice(*p.Price)
		}
		builder.WriteString(fmt.Sprintf("- [%d] %s | category: %s | brand: %s | price: %s | stock: %d\n",
			p.ID, p.Name, p.Category, p.Brand, price, p.Quantity))
	}
	return builder.String()
}

func buildConversationSection(history []models.Message, currentMessage string) string {
	var builder strings.Builder

	for _, msg := range history {
		if msg.Role == models.RoleSystem {
			continue
		}
		builder.WriteString(fmt.Sprintf("%s: %s\n", roleLabel(msg.Role), msg.Content))
	}

	if currentMessage != "" {
		builder.WriteString(fmt.Sprintf("User: %s\n", currentMessage))
	}

	return builder.String()
}

func buildNameList(names []string) string {
	var builder strings.Builder
	for _, n := range names {
		builder.WriteString("- ")
		builder.WriteString(n)
		builder.WriteString("\n")
	}
	return builder.String()
}

func roleLabel(role string) string {
	switch role {
	case models.RoleUser:
		return "User"
	case models.RoleAssistant:
		return "Assistant"
	default:
		return role
	}
}

type classificationReply struct {
	Intent   string         `json:"intent"`
	Entities map[string]any `json:"entities"`
}

// ParseClassification decodes {"intent": ..., "entities": {...}} from a model
// reply. Entity keys that cannot be coerced are returned in dropped and do not
// affect the intent.
func ParseClassification(content string) (result models.Classification, dropped []string, err error) {
	jsonContent := extractJSON(content)
	if jsonContent == "" {
		return models.Unclassified(), nil, ErrNoJSON
	}

	var reply classificationReply
	if err := json.Unmarshal([]byte(jsonContent), &reply); err != nil {
		return models.Unclassified(), nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	entities, dropped := models.DecodeEntities(reply.Entities)
	return models.Classification{
		Intent:   models.ParseIntent(reply.Intent),
		Entities: entities,
	}, dropped, nil
}

// ParseLastMentioned decodes {"product_name": ...}; a null name yields "".
func ParseLastMentioned(content string) (string, error) {
	jsonContent := extractJSON(content)
	if jsonContent == "" {
		return "", ErrNoJSON
	}

	var reply struct {
		ProductName *string `json:"product_name"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &reply); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}
	if reply.ProductName == nil {
		return "", nil
	}
	return strings.TrimSpace(*reply.ProductName), nil
}

// CleanName strips the quoting and list markers models like to add around a bare name.
func CleanName(content string) string {
	name := strings.TrimSpace(content)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "- ")
	return strings.Trim(strings.TrimSpace(name), "\"'`*.")
}

func extractJSON(content string) string {
	// Look for JSON object in the content
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}
