package main

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jointrip/companion-service/internal/cache"
	"github.com/jointrip/companion-service/internal/config"
	"github.com/jointrip/companion-service/internal/database"
	"github.com/jointrip/companion-service/internal/domain"
	"github.com/jointrip/companion-service/internal/events"
	"github.com/jointrip/companion-service/internal/handler"
	"github.com/jointrip/companion-service/internal/identity"
	applog "github.com/jointrip/companion-service/internal/log"
	"github.com/jointrip/companion-service/internal/middleware"
	"github.com/jointrip/companion-service/internal/repository"
	"github.com/jointrip/companion-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := applog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	applog.Init(applog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "companion-service",
	})
	logger := applog.L()

	// Connect to database using GORM
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db,
		&domain.RoomModel{},
		&domain.UserModel{},
		&domain.MembershipModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Initialize repositories
	roomRepo := repository.NewGormRoomRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	membershipRepo := repository.NewGormMembershipRepository(db)

	// Initialize cache store
	store, err := cache.NewStore(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer store.Close()
	logger.Info().Msg("cache store connected")

	// Initialize event publisher
	publisher, err := events.NewRedisPublisher(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	// Derive the machine tag once; one minter per process.
	machineTag, err := identity.HostMachineTag()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to derive machine tag")
	}
	minter := identity.NewMinter(machineTag)
	logger.Info().Str("machine_tag", fmt.Sprintf("%012x", machineTag)).Msg("identifier minter ready")

	mintWait := time.Duration(cfg.Room.MintWaitMillis) * time.Millisecond
	sessionTTL := time.Duration(cfg.Session.TTLMinutes) * time.Minute

	// Initialize services
	roomService := service.NewRoomService(roomRepo, userRepo, membershipRepo, store, minter, publisher, mintWait, cfg.Room.MaxMembersLimit)
	userService := service.NewUserService(userRepo, store, minter, sessionTTL, mintWait)

	// Initialize session middleware and HTTP handler
	session := middleware.NewSessionMiddleware(userService)
	httpHandler := handler.NewHandler(roomService, userService, session)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(applog.GinMiddleware(logger))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Register routes
	httpHandler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("companion-service starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
