package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type assetDeleter interface {
	Delete(ctx context.Context, fileID string) error
}

type eventDeduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	EventKey(source, id string) string
}

type processResult struct {
	ack  bool
	nack bool
}

const dedupeTTL = 24 * time.Hour

// Consumer watches the cleanup subscription and removes orphaned media
// library assets. Deletes are idempotent upstream, so redelivery after a
// partial failure is safe.
type Consumer struct {
	subscription *pubsub.Subscriber
	storage      assetDeleter
	dedupe       eventDeduper
	logg         *logger.Logger
}

// NewConsumer wires the dependencies required for asset cleanup.
func NewConsumer(subscription *pubsub.Subscriber, storage assetDeleter, dedupe eventDeduper, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("cleanup subscription is required")
	}
	if storage == nil {
		return nil, errors.New("asset storage is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		storage:      storage,
		dedupe:       dedupe,
		logg:         logg,
	}, nil
}

// Run processes cleanup events until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	var event AssetCleanupEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode cleanup event", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id": event.EventID,
		"job_id":   event.JobID,
	})

	if len(event.FileIDs) == 0 {
		c.logg.Info(logCtx, "cleanup event carries no file ids")
		return processResult{ack: true}
	}

	if c.dedupe != nil && event.EventID != "" {
		first, err := c.dedupe.SetNX(ctx, c.dedupe.EventKey("cleanup", event.EventID), "1", dedupeTTL)
		if err != nil {
			c.logg.Error(logCtx, "cleanup dedupe check failed", err)
			return processResult{nack: true}
		}
		if !first {
			c.logg.Info(logCtx, "cleanup event already processed")
			return processResult{ack: true}
		}
	}

	for _, fileID := range event.FileIDs {
		if fileID == "" {
			continue
		}
		if err := c.storage.Delete(ctx, fileID); err != nil {
			c.logg.Error(logCtx, "failed to delete orphaned asset", err)
			return processResult{nack: true}
		}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{"files_deleted": len(event.FileIDs)})
	c.logg.Info(logCtx, "processed asset cleanup event")
	return processResult{ack: true}
}
