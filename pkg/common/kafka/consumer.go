package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/clinic-console/pkg/common/config"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Retry delays for a failing handler or broker: doubled per attempt, capped.
const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

type Consumer struct {
	reader     messageReader
	minBackoff time.Duration
	maxBackoff time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(topic string, groupID string) *Consumer {
	cfg := config.Load()
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}
	if topic == "" {
		topic = cfg.KafkaTopic
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, minBackoff: defaultMinBackoff, maxBackoff: defaultMaxBackoff}
}

func DecodeMessage(message kafka.Message) (models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return models.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

// Consume runs until ctx is cancelled. Undecodable messages are committed and
// skipped. A message whose handler fails is retried in place with backoff and
// only committed once handled, so the partition never moves past it.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	fetchFailures := 0
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			if err := c.sleep(ctx, fetchFailures); err != nil {
				return err
			}
			fetchFailures++
			continue
		}
		fetchFailures = 0

		event, err := DecodeMessage(message)
		if err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Dropping malformed event")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			return err
		}
		c.commit(ctx, message)
	}
}

// handle calls handler until it succeeds. It only returns ctx's error.
func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	for attempt := 0; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"attempt":    attempt + 1,
		}).Error("Failed to process event, retrying")
		if err := c.sleep(ctx, attempt); err != nil {
			return err
		}
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to commit message")
	}
}

func (c *Consumer) sleep(ctx context.Context, attempt int) error {
	delay := c.minBackoff
	for i := 0; i < attempt && delay < c.maxBackoff; i++ {
		delay *= 2
	}
	if c.maxBackoff > 0 && delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
