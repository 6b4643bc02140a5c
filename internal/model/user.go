package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local account for an identity-provider subject.
type User struct {
	ID                  uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Subject             string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"subject"`
	Email               *string   `gorm:"type:varchar(320);index" json:"email"`
	EmailVerified       bool      `gorm:"not null;default:false" json:"email_verified"`
	OnboardingCompleted bool      `gorm:"not null;default:false" json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// BeforeCreate assigns the ID in Go so both postgres and mysql behave the same.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NeedsOnboarding is what clients branch on after sign-in.
func (u *User) NeedsOnboarding() bool {
	return !u.OnboardingCompleted
}
