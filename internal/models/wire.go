package models

// Task names understood by the intent worker
const (
	TaskClassify      = "classify"
	TaskAnswer        = "answer"
	TaskRedirect      = "redirect"
	TaskSuggest       = "suggest"
	TaskCompleteName  = "complete_name"
	TaskLastMentioned = "last_mentioned"
)

// NATS Request from the gateway
type IntentRequest struct {
	SessionID           string                `json:"session_id"`
	Task                string                `json:"task"`
	UserMessage         string                `json:"user_message"`
	ConversationHistory []ConversationMessage `json:"conversation_history"`
	Catalog             []Product             `json:"catalog,omitempty"`
	Candidates          []string              `json:"candidates,omitempty"`
}

type ConversationMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Message string `json:"message"`
}

// NATS Response to the gateway
type IntentResponse struct {
	SessionID    string         `json:"session_id"`
	Status       string         `json:"status"` // "READY", "ERROR"
	Intent       *string        `json:"intent,omitempty"`
	Entities     map[string]any `json:"entities,omitempty"`
	Call         *FunctionCall  `json:"call,omitempty"`
	Text         string         `json:"text,omitempty"`
	ErrorCode    *string        `json:"error_code,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

// Status constants
const (
	StatusReady = "READY"
	StatusError = "ERROR"
)

// Error codes
const (
	ErrorLLMTimeout    = "LLM_API_TIMEOUT"
	ErrorLLMFailed     = "LLM_API_FAILED"
	ErrorParseError    = "PARSE_ERROR"
	ErrorUnknownIntent = "UNKNOWN_INTENT"
)

// ToConversation converts transcript messages into the wire form.
func ToConversation(history []Message) []ConversationMessage {
	out := make([]ConversationMessage, 0, len(history))
	for _, m := range history {
		out = append(out, ConversationMessage{Role: m.Role, Message: m.Content})
	}
	return out
}

// FromConversation converts wire messages back into transcript messages.
func FromConversation(history []ConversationMessage) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		out = append(out, Message{Role: m.Role, Content: m.Message})
	}
	return out
}
