package cleanup

import "time"

// AssetCleanupEvent asks the cleanup worker to remove stored assets that
// belong to a generation attempt which did not survive. Published when a
// pipeline fails after uploading to the media library.
type AssetCleanupEvent struct {
	EventID    string    `json:"event_id"`
	JobID      string    `json:"job_id"`
	FileIDs    []string  `json:"file_ids"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
