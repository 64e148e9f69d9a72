package enums

import "fmt"

// CreditEventType maps to the credit_event_type enum in Postgres.
type CreditEventType string

const (
	CreditEventTypeSignupGrant   CreditEventType = "signup_grant"
	CreditEventTypePurchaseGrant CreditEventType = "purchase_grant"
	CreditEventTypeImageDebit    CreditEventType = "image_debit"
	CreditEventTypeVideoDebit    CreditEventType = "video_debit"
)

var validCreditEventTypes = []CreditEventType{
	CreditEventTypeSignupGrant,
	CreditEventTypePurchaseGrant,
	CreditEventTypeImageDebit,
	CreditEventTypeVideoDebit,
}

// IsValid reports whether the value matches the canonical credit event enum.
func (t CreditEventType) IsValid() bool {
	for _, candidate := range validCreditEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsGrant reports whether the event type increases the balance.
func (t CreditEventType) IsGrant() bool {
	return t == CreditEventTypeSignupGrant || t == CreditEventTypePurchaseGrant
}

// ParseCreditEventType converts raw input into CreditEventType.
func ParseCreditEventType(value string) (CreditEventType, error) {
	for _, candidate := range validCreditEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit event type %q", value)
}
