package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/avvvet/storebuddy/internal/classifier"
	"github.com/avvvet/storebuddy/internal/config"
	"github.com/avvvet/storebuddy/internal/handlers"
	"github.com/avvvet/storebuddy/internal/llm"
	"github.com/avvvet/storebuddy/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedProvider struct {
	content string
}

func (p *scriptedProvider) Generate(ctx context.Context, request *llm.LLMRequest) (*llm.LLMResponse, error) {
	return &llm.LLMResponse{Content: p.content}, nil
}

// loopback answers requests in-process through the transport.
type loopback struct {
	nt *NATSTransport
}

func (l *loopback) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	body, err := json.Marshal(l.nt.serve(data))
	if err != nil {
		return nil, err
	}
	return &nats.Msg{Subject: subj, Data: body}, nil
}

func newTransport(content string) *NATSTransport {
	cfg := &config.Config{NatsRequestSubject: "intent.analyze", ClassifierTimeout: time.Second}
	handler := handlers.NewIntentHandler(classifier.NewLLM(&scriptedProvider{content: content}), zap.NewNop())
	return NewNATSTransport(nil, cfg, handler, zap.NewNop())
}

func TestRoundTrip_Classify(t *testing.T) {
	nt := newTransport(`{"intent": "purchase", "entities": {"product": "dell", "quantity": "2"}}`)
	remote := classifier.NewRemote(&loopback{nt: nt}, "intent.analyze")

	ctx := classifier.WithSessionID(context.Background(), "s1")
	got, err := remote.Classify(ctx, "quiero 2 dell", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.IntentPurchase, got.Intent)
	assert.Equal(t, "dell", got.Entities.ProductName)
	require.NotNil(t, got.Entities.Quantity)
	assert.Equal(t, 2, *got.Entities.Quantity)
}

func TestRoundTrip_MalformedOutput(t *testing.T) {
	nt := newTransport("no tengo idea")
	remote := classifier.NewRemote(&loopback{nt: nt}, "intent.analyze")

	got, err := remote.Classify(context.Background(), "hola", nil, nil)
	assert.ErrorIs(t, err, classifier.ErrMalformedOutput)
	assert.Equal(t, models.IntentUnknown, got.Intent)

	_, err = remote.LastMentioned(context.Background(), nil)
	assert.ErrorIs(t, err, classifier.ErrMalformedOutput)
}

func TestRoundTrip_Text(t *testing.T) {
	nt := newTransport("HP Spectre")
	remote := classifier.NewRemote(&loopback{nt: nt}, "intent.analyze")

	name, err := remote.CompleteName(context.Background(), "spectr", []string{"HP Spectre"})
	require.NoError(t, err)
	assert.Equal(t, "HP Spectre", name)
}

func TestServe_InvalidRequest(t *testing.T) {
	resp := newTransport("").serve([]byte("{"))
	assert.Equal(t, models.StatusError, resp.Status)
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorParseError, *resp.ErrorCode)
}
