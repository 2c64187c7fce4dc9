package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
)

const consumerName = "notification-mailer"

// Mailer sends the outbound side of a notification event.
type Mailer interface {
	Send(ctx context.Context, event Event) error
}

// LogMailer is the default mailer: it only logs what would have been sent.
type LogMailer struct {
	logg *logger.Logger
}

// NewLogMailer returns a mailer that writes events to the log.
func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, event Event) error {
	ctx = m.logg.WithFields(ctx, map[string]any{
		"kind":  event.Kind.String(),
		"title": event.Title,
	})
	m.logg.Info(ctx, "notification email dispatched")
	return nil
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type dedupeStore interface {
	MarkProcessed(ctx context.Context, consumer, id string, ttl time.Duration) (bool, error)
	ClearProcessed(ctx context.Context, consumer, id string) error
}

// Consumer drains the notification subscription and hands events to the
// mailer. Pub/Sub redelivers at least once, so a redis marker keyed by
// message id keeps each email single-send within the dedupe window.
type Consumer struct {
	sub       subscriber
	dedupe    dedupeStore
	mailer    Mailer
	dedupeTTL time.Duration
	logg      *logger.Logger
}

// NewConsumer wires the consumer dependencies.
func NewConsumer(sub subscriber, dedupe dedupeStore, mailer Mailer, dedupeTTL time.Duration, logg *logger.Logger) (*Consumer, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if dedupeTTL <= 0 {
		dedupeTTL = 720 * time.Hour
	}
	return &Consumer{sub: sub, dedupe: dedupe, mailer: mailer, dedupeTTL: dedupeTTL, logg: logg}, nil
}

// Run blocks until the context is cancelled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	c.logg.Info(ctx, "notification consumer started")
	return c.sub.Receive(ctx, c.handle)
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) {
	ctx = c.logg.WithField(ctx, "message_id", msg.ID)

	seen, err := c.dedupe.MarkProcessed(ctx, consumerName, msg.ID, c.dedupeTTL)
	if err != nil {
		c.logg.Error(ctx, "dedupe check failed", err)
		msg.Nack()
		return
	}
	if seen {
		msg.Ack()
		return
	}

	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// a poison payload never becomes valid, drop it
		c.logg.Error(ctx, "decode notification event failed", err)
		msg.Ack()
		return
	}

	if err := c.mailer.Send(ctx, event); err != nil {
		c.logg.Error(ctx, "send notification failed", err)
		// clear the marker so the redelivery is not treated as a duplicate
		if clearErr := c.dedupe.ClearProcessed(ctx, consumerName, msg.ID); clearErr != nil {
			c.logg.Error(ctx, "clear dedupe marker failed", clearErr)
		}
		msg.Nack()
		return
	}
	msg.Ack()
}
