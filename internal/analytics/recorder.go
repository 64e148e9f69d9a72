package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adsparkhq/adspark-backend/pkg/logger"
)

type rowInserter interface {
	Insert(ctx context.Context, row GenerationEventRow) error
}

// Recorder is the fire-and-forget analytics facade used by the pipelines.
// A nil Recorder is a valid no-op, and insert failures are logged rather
// than surfaced so analytics can never fail a generation.
type Recorder struct {
	writer rowInserter
	logg   *logger.Logger
	now    func() time.Time
}

// NewRecorder wraps a writer. Pass a nil writer to disable analytics.
func NewRecorder(writer *BigQueryWriter, logg *logger.Logger) *Recorder {
	if writer == nil {
		return nil
	}
	return &Recorder{writer: writer, logg: logg, now: time.Now}
}

// JobCreated records a new generation job.
func (r *Recorder) JobCreated(ctx context.Context, jobID, userEmail, kind string) {
	r.record(ctx, GenerationEventRow{
		EventType: EventJobCreated,
		JobID:     ptr(jobID),
		UserEmail: ptr(userEmail),
		Kind:      ptr(kind),
	})
}

// JobCompleted records a finished image stage.
func (r *Recorder) JobCompleted(ctx context.Context, jobID, userEmail, kind string) {
	r.record(ctx, GenerationEventRow{
		EventType: EventJobCompleted,
		JobID:     ptr(jobID),
		UserEmail: ptr(userEmail),
		Kind:      ptr(kind),
	})
}

// JobFailed records a pipeline failure and the stage it failed at.
func (r *Recorder) JobFailed(ctx context.Context, jobID, userEmail, kind, stage string) {
	r.record(ctx, GenerationEventRow{
		EventType: EventJobFailed,
		JobID:     ptr(jobID),
		UserEmail: ptr(userEmail),
		Kind:      ptr(kind),
		Stage:     ptr(stage),
	})
}

// VideoCompleted records a finished video stage.
func (r *Recorder) VideoCompleted(ctx context.Context, jobID, userEmail string) {
	r.record(ctx, GenerationEventRow{
		EventType: EventVideoCompleted,
		JobID:     ptr(jobID),
		UserEmail: ptr(userEmail),
	})
}

// CreditsDebited records a balance decrease tied to a job.
func (r *Recorder) CreditsDebited(ctx context.Context, jobID, userEmail, kind string, amount int) {
	delta := -int64(amount)
	r.record(ctx, GenerationEventRow{
		EventType:    EventCreditsDebited,
		JobID:        ptr(jobID),
		UserEmail:    ptr(userEmail),
		Kind:         ptr(kind),
		CreditsDelta: &delta,
	})
}

// CreditsGranted records a balance increase.
func (r *Recorder) CreditsGranted(ctx context.Context, userEmail, reason string, amount int) {
	delta := int64(amount)
	r.record(ctx, GenerationEventRow{
		EventType:    EventCreditsGranted,
		UserEmail:    ptr(userEmail),
		Stage:        ptr(reason),
		CreditsDelta: &delta,
	})
}

func (r *Recorder) record(ctx context.Context, row GenerationEventRow) {
	if r == nil || r.writer == nil {
		return
	}
	row.EventID = uuid.NewString()
	row.OccurredAt = r.now().UTC()
	if err := r.writer.Insert(ctx, row); err != nil && r.logg != nil {
		r.logg.Warn(ctx, "analytics insert failed: "+row.EventType)
	}
}

func ptr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
