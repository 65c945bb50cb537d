package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"

	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusDeclined = "declined"
)

// PaymentIntent is one attempted deposit or withdrawal. The row is inserted
// in pending state before the gateway is called and transitioned exactly once
// by the callback reconciler; it is never deleted.
type PaymentIntent struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	MemberID          uuid.UUID `json:"member_id" gorm:"type:uuid;index;not null"`
	Direction         string    `json:"direction" gorm:"type:varchar(10);not null"`
	Amount            int       `json:"amount" gorm:"not null"` // whole KES
	Status            string    `json:"status" gorm:"type:varchar(20);index;not null"`
	CheckoutRequestID *string   `json:"checkout_request_id,omitempty" gorm:"uniqueIndex"`
	MpesaReceipt      *string   `json:"mpesa_receipt,omitempty" gorm:"type:varchar(30)"`
	ResultDesc        *string   `json:"result_desc,omitempty" gorm:"type:varchar(255)"`
	OccurredAt        time.Time `json:"occurred_at"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
