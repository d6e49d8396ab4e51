// Package server wires repositories, services and handlers into the HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Baaaki/chapterhub/internal/config"
	"github.com/Baaaki/chapterhub/internal/handler"
	"github.com/Baaaki/chapterhub/internal/middleware"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/Baaaki/chapterhub/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NewRouter builds the complete API on top of db and redisClient.
func NewRouter(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *gin.Engine {
	handler.RegisterValidators()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	eventRepo := repository.NewEventRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	chapterMembers := repository.NewChapterMembershipRepository(db)
	groupMembers := repository.NewGroupMembershipRepository(db)
	schema := repository.NewSchemaProvisioner(db)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry, cfg.Environment)
	roomService := service.NewRoomService(roomRepo, chapterMembers, groupMembers)
	eventService := service.NewEventService(eventRepo)
	chapterChat := service.NewChatService(service.ChapterRoom(chapterMembers), messageRepo, schema, userRepo)
	groupChat := service.NewChatService(service.GroupRoom(groupMembers), messageRepo, schema, userRepo)

	limiter := middleware.NewRateLimiter(redisClient, middleware.RateLimiterConfig{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
		BlockTime:   cfg.RateLimitBlockTime,
	})

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cfg.JWTExpiry)
	roomHandler := handler.NewRoomHandler(roomService)
	chapterMessages := handler.NewMessageHandler(chapterChat, cfg.DefaultPageSize)
	groupMessages := handler.NewMessageHandler(groupChat, cfg.DefaultPageSize)
	adminHandler := handler.NewAdminHandler(authService, roomService, eventService, chapterChat, groupChat, limiter)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.AccessLogMiddleware(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.SecurityHeadersMiddleware(),
		middleware.HSTSMiddleware(cfg.IsProduction()),
		middleware.TimeoutMiddleware(cfg.RequestTimeout),
	)

	router.GET("/healthz", healthHandler(db, redisClient))

	// Public routes, limited per IP
	auth := router.Group("/api/auth", limiter.Middleware())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
	}

	// Protected routes, limited per user
	api := router.Group("/api", middleware.AuthMiddleware(cfg.JWTSecret), limiter.Middleware())
	{
		api.GET("/me", authHandler.Me)
		api.PATCH("/me", authHandler.UpdateMe)
		api.GET("/me/rooms", roomHandler.MyRooms)

		chapters := api.Group("/chapters")
		chapterMessages.Register(chapters)
		chapters.POST("/:roomId/join", roomHandler.JoinChapter)
		chapters.DELETE("/:roomId/membership", roomHandler.Leave(models.RoomKindChapter))

		groups := api.Group("/groups")
		groupMessages.Register(groups)
		groups.POST("/join", roomHandler.JoinGroup)
		groups.DELETE("/:roomId/membership", roomHandler.Leave(models.RoomKindGroup))
	}

	admin := api.Group("/admin", middleware.AdminMiddleware())
	{
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.GET("/users/:userId/activity", adminHandler.UserActivity)

		admin.POST("/chapters", adminHandler.CreateChapter)
		admin.POST("/groups", adminHandler.CreateGroup)
		admin.POST("/chapters/:roomId/events", adminHandler.CreateEvent)

		for path, kind := range map[string]models.RoomKind{
			"/chapters": models.RoomKindChapter,
			"/groups":   models.RoomKindGroup,
		} {
			admin.DELETE(path+"/:roomId", adminHandler.DeleteRoom(kind))
			admin.POST(path+"/:roomId/members", adminHandler.AddMember(kind))
			admin.DELETE(path+"/:roomId/members/:userId", adminHandler.RemoveMember(kind))
		}

		admin.POST("/bans", adminHandler.BanIP)
		admin.DELETE("/bans/:ip", adminHandler.UnbanIP)
	}

	return router
}

func healthHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		code := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		// Redis only backs rate limiting and the publisher lease, both of
		// which fail open, so it degrades instead of failing the check.
		if err := redisClient.Ping(ctx).Err(); err != nil {
			status["redis"] = "degraded"
		}

		c.JSON(code, status)
	}
}
