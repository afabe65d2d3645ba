package dao

import (
	"context"
	"errors"
	"vetski/vetski/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileDAO struct {
	DB *gorm.DB
}

func NewProfileDAO(db *gorm.DB) *ProfileDAO {
	return &ProfileDAO{DB: db}
}

func (dao *ProfileDAO) GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := dao.DB.WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// EnsureProfile inserts a bare owner profile for id unless one exists.
func (dao *ProfileDAO) EnsureProfile(ctx context.Context, id uuid.UUID, email string) error {
	profile := models.Profile{ID: id, Role: models.RoleOwner, Email: email}
	return dao.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&profile).Error
}

// UpdateProfile applies the non-empty updates and returns the fresh row.
func (dao *ProfileDAO) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Profile, error) {
	if len(updates) > 0 {
		err := dao.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates).Error
		if err != nil {
			return nil, err
		}
	}
	return dao.GetProfileByID(ctx, id)
}
