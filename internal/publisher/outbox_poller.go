package publisher

import (
	"context"
	"time"

	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/repository"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic = "orders-outbox"
	batchSize    = 100
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes committed outbox events to Kafka. Events are marked
// processed only after the broker acknowledged them, so delivery is at least once.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      repository.OutboxRepository
	writer    messageWriter
}

func NewOutboxPoller(repo repository.OutboxRepository, topic string, tick time.Duration, brokers ...string) *OutboxPoller {
	if topic == "" {
		topic = DefaultTopic
	}
	if tick <= 0 {
		tick = time.Second
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: tick,
		repo:      repo,
		writer:    w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		logger.Error(err, "Failed to fetch outbox events", nil)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			logger.Error(err, "Failed to publish outbox event", map[string]interface{}{
				"event_id":     event.ID,
				"aggregate_id": event.AggregateID,
			})
			// keep order per aggregate: retry the rest on the next tick
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			logger.Error(err, "Failed to mark outbox event as processed", map[string]interface{}{
				"event_id": event.ID,
			})
			continue
		}

		logger.Debug("Outbox event published", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.EventType,
		})
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps events of one order together
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}
