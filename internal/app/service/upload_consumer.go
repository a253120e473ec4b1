package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
	"github.com/FoldlyDev/foldly-server/internal/app/repository"
)

// UploadConsumer consumes upload events from JetStream and folds them into
// the denormalized link stats, recording a batch row per event.
type UploadConsumer struct {
	js      nats.JetStreamContext
	logger  *zap.Logger
	links   repository.LinkRepository
	batches repository.BatchRepository
}

// NewUploadConsumer creates a new upload event consumer.
func NewUploadConsumer(js nats.JetStreamContext, logger *zap.Logger, links repository.LinkRepository, batches repository.BatchRepository) *UploadConsumer {
	return &UploadConsumer{js: js, logger: logger, links: links, batches: batches}
}

// Start ensures the stream and durable consumer exist and begins consuming.
func (c *UploadConsumer) Start() error {
	_, err := c.js.StreamInfo(model.UploadStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.UploadStreamName,
			Subjects: []string{model.UploadStreamSubject},
			MaxBytes: model.UploadStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.UploadStreamName, model.UploadConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.UploadStreamName, &nats.ConsumerConfig{
			Durable:   model.UploadConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.UploadStreamSubject, model.UploadConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *UploadConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch upload events", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.UploadEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal upload event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.apply(ctx, &event); err != nil {
				// A vanished link is terminal for the event; anything else
				// gets redelivered.
				if errors.Is(err, repository.ErrLinkNotFound) {
					c.logger.Warn("upload event for missing link dropped",
						zap.String("id", event.ID),
						zap.String("link_id", event.LinkID))
					msg.Ack()
					continue
				}
				c.logger.Error("failed to apply upload event",
					zap.String("id", event.ID),
					zap.String("link_id", event.LinkID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("upload event applied",
				zap.String("id", event.ID),
				zap.String("link_id", event.LinkID),
				zap.Int("files", event.FileCount),
				zap.Int64("bytes", event.TotalBytes),
			)

			msg.Ack()
		}
	}
}

func (c *UploadConsumer) apply(ctx context.Context, event *model.UploadEvent) error {
	if err := c.links.ApplyUploadStats(ctx, event.LinkID, event.FileCount, event.TotalBytes, event.Timestamp); err != nil {
		return err
	}

	batch := &model.Batch{
		ID:            event.ID,
		LinkID:        event.LinkID,
		UploaderEmail: event.UploaderEmail,
		FileCount:     event.FileCount,
		TotalSize:     event.TotalBytes,
		CreatedAt:     event.Timestamp,
	}
	return c.batches.Create(ctx, batch)
}
