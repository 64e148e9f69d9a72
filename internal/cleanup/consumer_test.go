package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type fakeDeleter struct {
	deleted []string
	fail    map[string]error
}

func (f *fakeDeleter) Delete(ctx context.Context, fileID string) error {
	if err, ok := f.fail[fileID]; ok {
		return err
	}
	f.deleted = append(f.deleted, fileID)
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (f *fakeDeduper) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDeduper) EventKey(source, id string) string {
	return "adspark:event:" + source + ":" + id
}

func newTestConsumer(storage assetDeleter, dedupe eventDeduper) *Consumer {
	return &Consumer{
		storage: storage,
		dedupe:  dedupe,
		logg:    logger.New(logger.Options{ServiceName: "cleanup-test"}),
	}
}

func eventMessage(t *testing.T, event AssetCleanupEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &pubsub.Message{Data: data}
}

func TestProcessDeletesFiles(t *testing.T) {
	deleter := &fakeDeleter{}
	consumer := newTestConsumer(deleter, &fakeDeduper{})

	result := consumer.process(context.Background(), eventMessage(t, AssetCleanupEvent{
		EventID: "evt-1",
		JobID:   "1700000000001",
		FileIDs: []string{"file-a", "file-b"},
	}))

	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(deleter.deleted) != 2 {
		t.Fatalf("expected 2 deletes, got %v", deleter.deleted)
	}
}

func TestProcessNacksOnDeleteFailure(t *testing.T) {
	deleter := &fakeDeleter{fail: map[string]error{"file-b": errors.New("boom")}}
	consumer := newTestConsumer(deleter, &fakeDeduper{})

	result := consumer.process(context.Background(), eventMessage(t, AssetCleanupEvent{
		EventID: "evt-1",
		FileIDs: []string{"file-a", "file-b"},
	}))

	if !result.nack {
		t.Fatal("expected nack so the event is redelivered")
	}
}

func TestProcessAcksDuplicateEvent(t *testing.T) {
	deleter := &fakeDeleter{}
	dedupe := &fakeDeduper{}
	consumer := newTestConsumer(deleter, dedupe)

	msg := AssetCleanupEvent{EventID: "evt-1", FileIDs: []string{"file-a"}}
	first := consumer.process(context.Background(), eventMessage(t, msg))
	second := consumer.process(context.Background(), eventMessage(t, msg))

	if !first.ack || !second.ack {
		t.Fatal("expected both deliveries to ack")
	}
	if len(deleter.deleted) != 1 {
		t.Fatalf("expected a single delete, got %v", deleter.deleted)
	}
}

func TestProcessAcksMalformedPayload(t *testing.T) {
	consumer := newTestConsumer(&fakeDeleter{}, &fakeDeduper{})

	result := consumer.process(context.Background(), &pubsub.Message{Data: []byte("not json")})
	if !result.ack {
		t.Fatal("malformed payloads must not be redelivered")
	}
}

func TestProcessAcksEmptyFileList(t *testing.T) {
	deleter := &fakeDeleter{}
	consumer := newTestConsumer(deleter, &fakeDeduper{})

	result := consumer.process(context.Background(), eventMessage(t, AssetCleanupEvent{EventID: "evt-1"}))
	if !result.ack {
		t.Fatal("expected ack for empty events")
	}
	if len(deleter.deleted) != 0 {
		t.Fatalf("expected no deletes, got %v", deleter.deleted)
	}
}
