package analytics

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// Generation event types written to the warehouse.
const (
	EventJobCreated     = "job_created"
	EventJobCompleted   = "job_completed"
	EventJobFailed      = "job_failed"
	EventVideoCompleted = "video_completed"
	EventCreditsDebited = "credits_debited"
	EventCreditsGranted = "credits_granted"
)

// GenerationEventRow mirrors the generation_events BigQuery schema.
type GenerationEventRow struct {
	EventID      string             `bigquery:"event_id"`
	EventType    string             `bigquery:"event_type"`
	OccurredAt   time.Time          `bigquery:"occurred_at"`
	JobID        *string            `bigquery:"job_id"`
	UserEmail    *string            `bigquery:"user_email"`
	Kind         *string            `bigquery:"kind"`
	Stage        *string            `bigquery:"stage"`
	CreditsDelta *int64             `bigquery:"credits_delta"`
	Payload      cbigquery.NullJSON `bigquery:"payload"`
}
