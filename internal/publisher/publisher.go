package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/cardlock/internal/metrics"
	"github.com/Checker-Finance/cardlock/pkg/model"
)

// EventTypeAccessDecision is the event_type header of access events.
const EventTypeAccessDecision = "access.decision"

// msgPublisher is the part of nats.JetStreamContext the publisher needs.
type msgPublisher interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher publishes access events to NATS JetStream.
type Publisher struct {
	js      msgPublisher
	subject string
	service string
	logger  *zap.Logger
}

// New creates a Publisher on the JetStream context of nc.
func New(nc *nats.Conn, subject, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return newPublisher(js, subject, service, logger), nil
}

func newPublisher(js msgPublisher, subject, service string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{js: js, subject: subject, service: service, logger: logger}
}

// PublishAccessEvent wraps ev in an envelope and publishes it.
func (p *Publisher) PublishAccessEvent(ctx context.Context, ev model.AccessEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	env := &model.Envelope{
		ID:        uuid.New(),
		Topic:     p.subject,
		EventType: EventTypeAccessDecision,
		Version:   "1.0.0",
		Source:    p.service,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	return p.PublishEnvelope(ctx, env)
}

// PublishEnvelope serializes and publishes env on the configured subject.
// The publish ack wait is bound to ctx.
func (p *Publisher) PublishEnvelope(ctx context.Context, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":   []string{env.EventType},
			"event_id":     []string{env.ID.String()},
			"service":      []string{p.service},
			"content_type": []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", p.subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncNATSMessage(p.subject, "error")
		return err
	}

	p.logger.Debug("publisher.publish_success",
		zap.String("subject", p.subject),
		zap.String("event_type", env.EventType))
	metrics.IncNATSMessage(p.subject, "ok")
	return nil
}
