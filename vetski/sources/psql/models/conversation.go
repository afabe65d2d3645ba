package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ConversationChat         = "chat"
	ConversationConsultation = "consultation"
)

type Conversation struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	AnimalID  *uuid.UUID `json:"animal_id,omitempty" gorm:"type:uuid;index"`
	Kind      string     `json:"kind" gorm:"type:varchar(16);not null;default:'chat'"`
	Title     string     `json:"title" gorm:"type:varchar(255);default:''"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ConversationMessage is append-only. Hidden messages are sent to the model
// but not rendered to the user (injected transcript context).
type ConversationMessage struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID      `json:"conversation_id" gorm:"type:uuid;not null;index"`
	Conversation   Conversation   `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
	Role           string         `json:"role" gorm:"type:varchar(16);not null"`
	Content        string         `json:"content" gorm:"type:text;not null"`
	Attachments    datatypes.JSON `json:"attachments,omitempty" gorm:"type:jsonb"`
	Hidden         bool           `json:"hidden" gorm:"not null;default:false"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AttachmentPaths decodes the stored attachment list; malformed data yields nil.
func (m ConversationMessage) AttachmentPaths() []string {
	if len(m.Attachments) == 0 {
		return nil
	}
	var paths []string
	if err := json.Unmarshal(m.Attachments, &paths); err != nil {
		return nil
	}
	return paths
}
