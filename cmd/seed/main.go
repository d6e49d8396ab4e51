package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/Baaaki/chapterhub/internal/config"
	"github.com/Baaaki/chapterhub/internal/database"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/Baaaki/chapterhub/internal/service"
	"github.com/Baaaki/chapterhub/internal/utils"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// seed creates an administrator plus a demo chapter and secret group. Running
// it again reuses whatever already exists.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(!cfg.IsProduction())
	defer logger.Sync()

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminUsername == "" || adminEmail == "" || adminPassword == "" {
		logger.Log.Fatal("Missing environment variables: ADMIN_USERNAME, ADMIN_EMAIL, ADMIN_PASSWORD")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	admin, err := ensureAdmin(ctx, repository.NewUserRepository(db), adminUsername, adminEmail, adminPassword)
	if err != nil {
		logger.Log.Fatal("Failed to seed admin", zap.Error(err))
	}

	rooms := service.NewRoomService(
		repository.NewRoomRepository(db),
		repository.NewChapterMembershipRepository(db),
		repository.NewGroupMembershipRepository(db),
	)
	if err := seedRooms(ctx, db, rooms, admin); err != nil {
		logger.Log.Fatal("Failed to seed rooms", zap.Error(err))
	}

	// Create the message tables up front so the first request does no DDL.
	schema := repository.NewSchemaProvisioner(db)
	for _, table := range []repository.MessageTable{repository.ChapterMessages, repository.GroupMessages} {
		if err := schema.EnsureSchema(ctx, table); err != nil {
			logger.Log.Fatal("Failed to provision message table", zap.String("table", table.Name), zap.Error(err))
		}
	}

	logger.Log.Info("Seed completed", zap.String("admin", admin.Username))
}

func ensureAdmin(ctx context.Context, users *repository.UserRepository, username, email, password string) (*models.User, error) {
	existing, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Log.Info("Admin user already exists", zap.String("username", existing.Username))
		return existing, nil
	}

	passwordHash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return nil, err
	}

	logger.Log.Info("Admin user created", zap.String("username", admin.Username), zap.String("email", admin.Email))
	return admin, nil
}

func seedRooms(ctx context.Context, db *gorm.DB, rooms *service.RoomService, admin *models.User) error {
	var chapter models.Chapter
	err := db.WithContext(ctx).Where("name = ?", "Demo Chapter").First(&chapter).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := rooms.CreateChapter(ctx, "Demo Chapter", "Istanbul", "A place to try the chat", admin.ID)
		if err != nil {
			return err
		}
		logger.Log.Info("Demo chapter created", zap.String("chapter_id", created.ID.String()))
	case err != nil:
		return err
	}

	var group models.SecretGroup
	err = db.WithContext(ctx).Where("name = ?", "Demo Group").First(&group).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := rooms.CreateGroup(ctx, "Demo Group", "Invite only", admin.ID)
		if err != nil {
			return err
		}
		logger.Log.Info("Demo group created",
			zap.String("group_id", created.ID.String()),
			zap.String("invite_code", created.InviteCode),
		)
	case err != nil:
		return err
	}
	return nil
}
