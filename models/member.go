package models

import (
	"time"

	"github.com/google/uuid"
)

type Member struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(15)"` // normalized 254XXXXXXXXX
	Role      string    `json:"role" gorm:"type:varchar(20);default:member"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
