package enums

import "fmt"

// PlanStatus describes whether a billing plan can be purchased.
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusRetired  PlanStatus = "retired"
	PlanStatusInternal PlanStatus = "internal"
)

var validPlanStatuses = []PlanStatus{
	PlanStatusActive,
	PlanStatusRetired,
	PlanStatusInternal,
}

// IsValid reports whether the status is known.
func (s PlanStatus) IsValid() bool {
	for _, candidate := range validPlanStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePlanStatus converts raw input into a PlanStatus.
func ParsePlanStatus(value string) (PlanStatus, error) {
	for _, candidate := range validPlanStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan status %q", value)
}
