package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Consultation struct {
	ID             uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID    `json:"owner_id" gorm:"type:uuid;not null;index"`
	AnimalID       *uuid.UUID   `json:"animal_id,omitempty" gorm:"type:uuid;index"`
	ConversationID uuid.UUID    `json:"conversation_id" gorm:"type:uuid;not null"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
	Title          string       `json:"title" gorm:"type:varchar(255);default:''"`
	ConsentAt      *time.Time   `json:"consent_at,omitempty"`

	// Newest transcription job merged into the chat, by completion sequence
	// and id. Whether a given job is merged is recorded on the job itself.
	TranscriptSyncedJobID string `json:"transcript_synced_job_id" gorm:"type:varchar(128);default:''"`
	TranscriptSyncedSeq   int64  `json:"transcript_synced_seq" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Consultation) TableName() string {
	return "consultations"
}

func (c *Consultation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

const (
	JobPending    = "pending"
	JobStarting   = "starting"
	JobProcessing = "processing"
	JobSucceeded  = "succeeded"
	JobFailed     = "failed"
	JobCanceled   = "canceled"
)

// IsTerminalStatus reports whether a provider status is final.
func IsTerminalStatus(status string) bool {
	switch status {
	case JobSucceeded, JobFailed, JobCanceled:
		return true
	}
	return false
}

// Segment is one speaker-attributed piece of transcript, times in seconds.
type Segment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// TranscriptionJob is keyed by the id the provider issued for the chunk.
type TranscriptionJob struct {
	ID             string         `json:"id" gorm:"type:varchar(128);primaryKey"`
	ConsultationID uuid.UUID      `json:"consultation_id" gorm:"type:uuid;not null;index"`
	AnimalID       *uuid.UUID     `json:"animal_id,omitempty" gorm:"type:uuid"`
	Status         string         `json:"status" gorm:"type:varchar(16);not null;index"`
	Output         datatypes.JSON `json:"output,omitempty" gorm:"type:jsonb"`
	Error          string         `json:"error,omitempty" gorm:"type:text;default:''"`
	Model          string         `json:"model" gorm:"type:varchar(255);default:''"`
	ChunkKey       string         `json:"chunk_key" gorm:"type:varchar(512);default:''"`
	CompletedSeq   int64          `json:"completed_seq" gorm:"not null;default:0;index"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	SyncedAt       *time.Time     `json:"synced_at,omitempty" gorm:"index"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (TranscriptionJob) TableName() string {
	return "transcription_jobs"
}

// Segments decodes Output; malformed output yields nil.
func (j TranscriptionJob) Segments() []Segment {
	if len(j.Output) == 0 {
		return nil
	}
	var segs []Segment
	if err := json.Unmarshal(j.Output, &segs); err != nil {
		return nil
	}
	return segs
}
