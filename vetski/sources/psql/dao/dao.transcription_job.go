package dao

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"vetski/vetski/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TranscriptionJobDAO struct {
	DB *gorm.DB
}

func NewTranscriptionJobDAO(db *gorm.DB) *TranscriptionJobDAO {
	return &TranscriptionJobDAO{DB: db}
}

// CreatePendingJob records a submitted chunk. When the provider callback has
// already created the row, the existing row is kept.
func (dao *TranscriptionJobDAO) CreatePendingJob(ctx context.Context, job *models.TranscriptionJob) error {
	if job.Status == "" {
		job.Status = models.JobPending
	}
	return dao.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"chunk_key", "animal_id"}),
		}).
		Create(job).Error
}

func (dao *TranscriptionJobDAO) GetJobByID(ctx context.Context, id string) (*models.TranscriptionJob, error) {
	var job models.TranscriptionJob
	err := dao.DB.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobsByConsultation returns jobs in storage (creation) order.
func (dao *TranscriptionJobDAO) GetJobsByConsultation(ctx context.Context, consultationID uuid.UUID) ([]models.TranscriptionJob, error) {
	var jobs []models.TranscriptionJob
	err := dao.DB.WithContext(ctx).
		Where("consultation_id = ?", consultationID).
		Order("created_at asc").Order("id asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimForSync marks the given jobs as merged into chat and returns the ids
// this call marked. Jobs already marked by a concurrent run are skipped.
func (dao *TranscriptionJobDAO) ClaimForSync(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	claimed := make([]string, 0, len(ids))
	for _, id := range ids {
		res := dao.DB.WithContext(ctx).Model(&models.TranscriptionJob{}).
			Where("id = ? AND synced_at IS NULL", id).
			Update("synced_at", at)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			claimed = append(claimed, id)
		}
	}
	return claimed, nil
}

// JobResult is what a provider callback carries for one job.
type JobResult struct {
	ID             string
	ConsultationID uuid.UUID
	Status         string
	Segments       []models.Segment
	Error          string
	Model          string
}

// CompleteJob stores a provider callback. A job that already reached a
// terminal status is left untouched and applied is false. Segments are only
// stored for succeeded jobs.
func (dao *TranscriptionJobDAO) CompleteJob(ctx context.Context, res JobResult) (job *models.TranscriptionJob, applied bool, err error) {
	err = dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TranscriptionJob
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", res.ID).Error
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}
		found := findErr == nil
		if found && models.IsTerminalStatus(existing.Status) {
			job = &existing
			return nil
		}

		now := time.Now().UTC()
		row := existing
		if !found {
			row = models.TranscriptionJob{ID: res.ID, ConsultationID: res.ConsultationID}
		}
		row.Status = res.Status
		row.Error = res.Error
		if res.Model != "" {
			row.Model = res.Model
		}
		if models.IsTerminalStatus(res.Status) {
			row.CompletedAt = &now
			row.CompletedSeq = now.UnixNano()
		}
		if res.Status == models.JobSucceeded {
			segs := res.Segments
			if segs == nil {
				segs = []models.Segment{}
			}
			raw, mErr := json.Marshal(segs)
			if mErr != nil {
				return mErr
			}
			row.Output = datatypes.JSON(raw)
		}

		if found {
			if uErr := tx.Save(&row).Error; uErr != nil {
				return uErr
			}
		} else if cErr := tx.Create(&row).Error; cErr != nil {
			return cErr
		}
		job = &row
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return job, applied, nil
}
