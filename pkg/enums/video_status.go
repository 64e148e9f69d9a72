package enums

import "fmt"

// VideoStatus describes the optional image-to-video stage of an ad job.
// A job with no video stage has a NULL status in storage.
type VideoStatus string

const (
	VideoStatusPending   VideoStatus = "pending"
	VideoStatusCompleted VideoStatus = "completed"
)

var validVideoStatuses = []VideoStatus{
	VideoStatusPending,
	VideoStatusCompleted,
}

// String returns the literal string for the status.
func (s VideoStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s VideoStatus) IsValid() bool {
	for _, candidate := range validVideoStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVideoStatus converts raw input into a VideoStatus.
func ParseVideoStatus(value string) (VideoStatus, error) {
	for _, candidate := range validVideoStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video status %q", value)
}
