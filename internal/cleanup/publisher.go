package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type messagePublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Publisher emits asset cleanup events to the cleanup topic.
type Publisher struct {
	topic messagePublisher
	logg  *logger.Logger
	now   func() time.Time
}

// NewPublisher wires the cleanup publisher.
func NewPublisher(topic *pubsub.Publisher, logg *logger.Logger) (*Publisher, error) {
	if topic == nil {
		return nil, errors.New("cleanup topic publisher is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Publisher{topic: topic, logg: logg, now: time.Now}, nil
}

// PublishOrphanedAssets enqueues deletion of the given media library file ids.
// Events without file ids are dropped silently.
func (p *Publisher) PublishOrphanedAssets(ctx context.Context, jobID, reason string, fileIDs []string) error {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	event := AssetCleanupEvent{
		EventID:    uuid.NewString(),
		JobID:      jobID,
		FileIDs:    ids,
		Reason:     reason,
		OccurredAt: p.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cleanup event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event_id": event.EventID},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish cleanup event: %w", err)
	}

	logCtx := p.logg.WithFields(ctx, map[string]any{
		"event_id": event.EventID,
		"job_id":   jobID,
		"file_ids": len(ids),
	})
	p.logg.Info(logCtx, "published asset cleanup event")
	return nil
}
