// Package consumer reads appointment events off Kafka and hands deduplicated
// messages to a handler. Used here to keep each instance's cache in step with
// writes made by its peers.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/plicometria/agenda/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Dedupe suppresses redeliveries. The claim must be scoped to this
// consumer's group: other groups see the same event as fresh.
// *inbox.Repository is the production implementation.
type Dedupe interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	dedupe  Dedupe
	handler Handler
}

func New(logger *slog.Logger, dedupe Dedupe, cfg Config, handler Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  kafkax.SplitBrokers(cfg.Brokers),
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger:  logger,
		dedupe:  dedupe,
		handler: handler,
	}
}

// Run consumes until the context is cancelled. Read errors back off and
// retry; handler errors are logged and the message is skipped rather than
// blocking the partition.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctx = kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otel.Tracer("kafka").Start(ctx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	fresh, err := c.dedupe.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err)
		span.RecordError(err)
		return
	}
	if !fresh {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("event handler failed", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
	}
}
