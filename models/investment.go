package models

import (
	"time"

	"github.com/google/uuid"
)

type Investment struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProposerID  uuid.UUID `json:"proposer_id" gorm:"type:uuid;index;not null"`
	Title       string    `json:"title" gorm:"type:varchar(150);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Amount      int       `json:"amount" gorm:"not null"` // whole KES
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	VotesFor     int64 `json:"votes_for" gorm:"-"`
	VotesAgainst int64 `json:"votes_against" gorm:"-"`
}

// InvestmentVote is one member's vote on a proposal. A member has at most one
// row per investment; casting again overwrites the previous choice.
type InvestmentVote struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	InvestmentID uuid.UUID `json:"investment_id" gorm:"type:uuid;uniqueIndex:idx_vote_member;not null"`
	MemberID     uuid.UUID `json:"member_id" gorm:"type:uuid;uniqueIndex:idx_vote_member;not null"`
	InFavor      bool      `json:"in_favor" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
