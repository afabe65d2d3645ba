package dao

import (
	"context"
	"errors"
	"time"
	"vetski/vetski/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnimalDAO struct {
	DB *gorm.DB
}

func NewAnimalDAO(db *gorm.DB) *AnimalDAO {
	return &AnimalDAO{DB: db}
}

func (dao *AnimalDAO) CreateAnimal(ctx context.Context, animal *models.Animal) error {
	return dao.DB.WithContext(ctx).Create(animal).Error
}

func (dao *AnimalDAO) GetAnimalByID(ctx context.Context, id uuid.UUID) (*models.Animal, error) {
	var animal models.Animal
	err := dao.DB.WithContext(ctx).First(&animal, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &animal, nil
}

func (dao *AnimalDAO) GetAllAnimalsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Animal, error) {
	var animals []models.Animal
	err := dao.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at asc").Find(&animals).Error
	if err != nil {
		return nil, err
	}
	return animals, nil
}

func (dao *AnimalDAO) UpdateAnimal(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return dao.DB.WithContext(ctx).Model(&models.Animal{}).Where("id = ?", id).Updates(updates).Error
}

func (dao *AnimalDAO) DeleteAnimal(ctx context.Context, id uuid.UUID) error {
	return dao.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Animal{}).Error
}

func (dao *AnimalDAO) GetSynthesizedData(ctx context.Context, animalID uuid.UUID) (*models.AnimalSynthesizedData, error) {
	var data models.AnimalSynthesizedData
	err := dao.DB.WithContext(ctx).First(&data, "animal_id = ?", animalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// UpsertSynthesizedData replaces the blob for animalID, keeping one row per animal.
func (dao *AnimalDAO) UpsertSynthesizedData(ctx context.Context, animalID uuid.UUID, blob []byte) (*models.AnimalSynthesizedData, error) {
	row := models.AnimalSynthesizedData{
		AnimalID:  animalID,
		Data:      datatypes.JSON(blob),
		UpdatedAt: time.Now().UTC(),
	}
	err := dao.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "animal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return dao.GetSynthesizedData(ctx, animalID)
}
