package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeDepositVerified    = "deposit_verified"
	TypeDepositDeclined    = "deposit_declined"
	TypeWithdrawalVerified = "withdrawal_verified"
	TypeWithdrawalDeclined = "withdrawal_declined"
)

type NotificationLog struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	MemberID  uuid.UUID  `json:"member_id" gorm:"type:uuid;index;not null"`
	Type      string     `json:"type" gorm:"type:varchar(40);not null"`
	Message   string     `json:"message" gorm:"type:varchar(255);not null"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

type NotificationFilter struct {
	MemberID uuid.UUID
	Unread   bool
	Page     int
	PageSize int
}
