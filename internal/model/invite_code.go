package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InviteCode is a single-use admission token. Used and UsedByUserID flip together.
type InviteCode struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	Code         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Used         bool       `gorm:"not null;default:false" json:"used"`
	UsedByUserID *uuid.UUID `gorm:"type:char(36);index" json:"used_by_user_id,omitempty"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`

	UsedBy *User `gorm:"foreignKey:UsedByUserID" json:"-"`
}

func (InviteCode) TableName() string { return "invite_codes" }

func (c *InviteCode) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
