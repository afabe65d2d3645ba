package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleOwner = "owner"
	RoleVet   = "vet"
)

// Profile is keyed by the auth provider's user id (the JWT subject).
type Profile struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Role       string    `json:"role" gorm:"type:varchar(16);not null;default:'owner'"`
	Email      string    `json:"email" gorm:"type:varchar(255)"`
	FullName   *string   `json:"full_name,omitempty" gorm:"type:varchar(255)"`
	AvatarPath *string   `json:"avatar_path,omitempty" gorm:"type:varchar(512)"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
