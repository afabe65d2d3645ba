package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Animal struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID    uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Owner      Profile   `json:"-" gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Species    string    `json:"species" gorm:"type:varchar(64);not null"`
	Breed      string    `json:"breed" gorm:"type:varchar(128);default:''"`
	BirthYear  *int      `json:"birth_year,omitempty"`
	AvatarPath *string   `json:"avatar_path,omitempty" gorm:"type:varchar(512)"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Animal) TableName() string {
	return "animals"
}

func (a *Animal) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AnimalSynthesizedData is the LLM-derived health profile of one animal.
type AnimalSynthesizedData struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	AnimalID  uuid.UUID      `json:"animal_id" gorm:"type:uuid;not null;uniqueIndex"`
	Animal    Animal         `json:"-" gorm:"foreignKey:AnimalID;references:ID;constraint:OnDelete:CASCADE"`
	Data      datatypes.JSON `json:"data" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (AnimalSynthesizedData) TableName() string {
	return "animal_synthesized_data"
}

func (d *AnimalSynthesizedData) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
