package eventbus

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/escalateai/api/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishGenerated_NoConnection(t *testing.T) {
	var b *Bus
	err := b.PublishGenerated(context.Background(), models.GenerationEvent{RequestID: "r1"})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)

	b = NewBus(nil, "complaint.generated", zap.NewNop())
	assert.ErrorIs(t, b.PublishGenerated(context.Background(), models.GenerationEvent{}), nats.ErrConnectionClosed)
	assert.ErrorIs(t, b.Ping(context.Background()), nats.ErrConnectionClosed)
	b.Close()
}

// Requires a running server, e.g. NATS_TEST_URL=nats://localhost:4222
func TestPublishGenerated_RoundTrip(t *testing.T) {
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set")
	}

	bus, err := Connect(url, "complaint.generated.test", zap.NewNop())
	require.NoError(t, err)
	defer bus.Close()

	sub, err := bus.conn.SubscribeSync(bus.Subject())
	require.NoError(t, err)
	defer sub.Unsubscribe()

	evt := models.GenerationEvent{
		RequestID: "b3f1c9b0-1d7e-4a55-9f0e-2c7f8c1a9e11",
		Category:  models.CategoryEcommerceRefund,
		Tone:      models.ToneFirm,
		Backend:   "primary",
		Model:     "openai/gpt-4o-mini",
		Attempts:  1,
	}
	require.NoError(t, bus.PublishGenerated(context.Background(), evt))
	require.NoError(t, bus.Ping(context.Background()))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, evt.RequestID, msg.Header.Get(nats.MsgIdHdr))

	var got models.GenerationEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, evt.Category, got.Category)
	assert.Equal(t, evt.Model, got.Model)
}
