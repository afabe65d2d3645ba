package psql

import (
	"context"
	"fmt"
	"vetski/vetski/config"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/logging"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(ctx context.Context, cfg config.Config) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var currentDB string
	_ = db.WithContext(ctx).Raw("SELECT current_database()").Scan(&currentDB).Error
	logging.AppLogger.Info("Connected to DB", zap.String("database", currentDB), zap.String("host", cfg.DBHost))

	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	return &Database{DB: db}, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&models.Profile{},
		&models.Animal{},
		&models.AnimalSynthesizedData{},
		&models.Conversation{},
		&models.ConversationMessage{},
		&models.Consultation{},
		&models.TranscriptionJob{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

func (db *Database) Close() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
