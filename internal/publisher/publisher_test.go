package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/cardlock/pkg/model"
)

// --- mock types ---

type mockJetStream struct {
	published []*nats.Msg
	opts      [][]nats.PubOpt
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error) {
	m.opts = append(m.opts, opts)
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "ACCESS_EVENTS"}, nil
}

func TestPublishAccessEvent(t *testing.T) {
	js := &mockJetStream{}
	p := newPublisher(js, "evt.access.decision.v1", "cardlock", zap.NewNop())

	ev := model.AccessEvent{
		ID:        uuid.New(),
		UID:       "5474E900",
		Granted:   true,
		Reason:    "authorized",
		LockID:    "lock-5f1a",
		DecidedAt: time.Now().UTC(),
	}
	require.NoError(t, p.PublishAccessEvent(context.Background(), ev))

	require.Len(t, js.published, 1)
	require.Len(t, js.opts, 1)
	assert.Len(t, js.opts[0], 1, "publish must carry the caller context")
	msg := js.published[0]
	assert.Equal(t, "evt.access.decision.v1", msg.Subject)
	assert.Equal(t, EventTypeAccessDecision, msg.Header.Get("event_type"))
	assert.Equal(t, "cardlock", msg.Header.Get("service"))

	var env model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, env.ID.String(), msg.Header.Get("event_id"))

	var got model.AccessEvent
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "5474E900", got.UID)
	assert.True(t, got.Granted)
}

func TestPublishAccessEvent_Failure(t *testing.T) {
	js := &mockJetStream{fail: true}
	p := newPublisher(js, "evt.access.decision.v1", "cardlock", nil)

	err := p.PublishAccessEvent(context.Background(), model.AccessEvent{ID: uuid.New()})

	assert.ErrorContains(t, err, "mock publish error")
	assert.Empty(t, js.published)
}
