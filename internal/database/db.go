package database

import (
	"fmt"
	"time"

	"github.com/Baaaki/chapterhub/internal/config"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig is shared by the server and the test databases. TranslateError
// turns driver constraint errors into gorm sentinels the chat store classifies.
func GormConfig(isDevelopment bool) *gorm.Config {
	level := gormlogger.Warn
	if isDevelopment {
		level = gormlogger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), GormConfig(!cfg.IsProduction()))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	logger.Log.Info("Database connected",
		zap.Int("max_open_conns", cfg.DBMaxOpenConns),
	)
	return db, nil
}

// Migrate creates the tables owned by the rest of the application. The chat
// message tables are provisioned lazily by repository.SchemaProvisioner.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Chapter{},
		&models.SecretGroup{},
		&models.ChapterMember{},
		&models.GroupMember{},
		&models.Event{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Log.Info("Database migration completed")
	return nil
}
