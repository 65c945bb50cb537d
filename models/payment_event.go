package models

import "time"

type PaymentEvent struct {
	Type      string    `json:"type"` // "payment_initiated", "payment_verified", "payment_declined"
	IntentID  string    `json:"intent_id"`
	MemberID  string    `json:"member_id"`
	Direction string    `json:"direction"`
	Amount    int       `json:"amount"` // whole KES
	Receipt   string    `json:"receipt,omitempty"`
	Timestamp time.Time `json:"timestamp"` // UTC event time
}
