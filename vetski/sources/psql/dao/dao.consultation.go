package dao

import (
	"context"
	"errors"
	"time"
	"vetski/vetski/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsultationDAO struct {
	DB *gorm.DB
}

func NewConsultationDAO(db *gorm.DB) *ConsultationDAO {
	return &ConsultationDAO{DB: db}
}

// CreateConsultation creates the consultation together with its conversation.
func (dao *ConsultationDAO) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := models.Conversation{
			OwnerID:  c.OwnerID,
			AnimalID: c.AnimalID,
			Kind:     models.ConversationConsultation,
			Title:    c.Title,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		c.ConversationID = conv.ID
		return tx.Omit("Conversation").Create(c).Error
	})
}

func (dao *ConsultationDAO) GetConsultationByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	var c models.Consultation
	err := dao.DB.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (dao *ConsultationDAO) ListConsultations(ctx context.Context, ownerID uuid.UUID) ([]models.Consultation, error) {
	var list []models.Consultation
	err := dao.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at desc").Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (dao *ConsultationDAO) UpdateConsultation(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return dao.DB.WithContext(ctx).Model(&models.Consultation{}).Where("id = ?", id).Updates(updates).Error
}

// AdvanceWatermark moves the sync watermark forward to (seq, jobID). It never
// moves it backward; the return value reports whether the row changed.
func (dao *ConsultationDAO) AdvanceWatermark(ctx context.Context, id uuid.UUID, seq int64, jobID string) (bool, error) {
	res := dao.DB.WithContext(ctx).Model(&models.Consultation{}).
		Where("id = ?", id).
		Where("transcript_synced_seq < ? OR (transcript_synced_seq = ? AND transcript_synced_job_id < ?)", seq, seq, jobID).
		Updates(map[string]interface{}{
			"transcript_synced_seq":    seq,
			"transcript_synced_job_id": jobID,
			"updated_at":               time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
