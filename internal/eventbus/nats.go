// Package eventbus publishes generation metadata events over NATS
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/escalateai/api/internal/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Bus is a NATS connection used for fire-and-forget event publishing
type Bus struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// Connect dials url and returns a Bus publishing on subject
func Connect(url, subject string, logger *zap.Logger) (*Bus, error) {
	logger = logger.Named("eventbus")
	nc, err := nats.Connect(url,
		nats.Name("escalateai-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewBus(nc, subject, logger), nil
}

// NewBus wraps an existing connection
func NewBus(nc *nats.Conn, subject string, logger *zap.Logger) *Bus {
	return &Bus{conn: nc, subject: subject, logger: logger}
}

// Subject returns the subject events are published on
func (b *Bus) Subject() string {
	return b.subject
}

// PublishGenerated implements generation.EventPublisher
func (b *Bus) PublishGenerated(ctx context.Context, evt models.GenerationEvent) error {
	if b == nil || b.conn == nil || b.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(b.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, evt.RequestID)
	if err := b.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", b.subject, err)
	}
	return nil
}

// Ping round-trips to the server
func (b *Bus) Ping(ctx context.Context) error {
	if b.conn == nil || b.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	return b.conn.FlushWithContext(ctx)
}

// Close drains pending messages and closes the connection
func (b *Bus) Close() {
	if b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.logger.Warn("nats drain failed", zap.Error(err))
		b.conn.Close()
	}
}
