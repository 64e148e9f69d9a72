package enums

import "fmt"

// AdStatus describes the image stage lifecycle of an ad job.
type AdStatus string

const (
	AdStatusPending   AdStatus = "pending"
	AdStatusCompleted AdStatus = "completed"
)

var validAdStatuses = []AdStatus{
	AdStatusPending,
	AdStatusCompleted,
}

// String returns the literal string for the status.
func (s AdStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s AdStatus) IsValid() bool {
	for _, candidate := range validAdStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAdStatus converts raw input into an AdStatus.
func ParseAdStatus(value string) (AdStatus, error) {
	for _, candidate := range validAdStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ad status %q", value)
}
