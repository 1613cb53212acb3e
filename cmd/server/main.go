package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Babadzakkkich/project-manager/internal/cascade"
	"github.com/Babadzakkkich/project-manager/internal/config"
	"github.com/Babadzakkkich/project-manager/internal/handler"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/Babadzakkkich/project-manager/internal/notify"
	"github.com/Babadzakkkich/project-manager/internal/router"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/Babadzakkkich/project-manager/internal/sse"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// Load config
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMembership{},
		&model.Project{},
		&model.ProjectGroup{},
		&model.Task{},
		&model.TaskAssignment{},
		&model.TaskHistory{},
		&model.RefreshToken{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Core components
	sseHub := sse.NewHub(rdb)
	coordinator := cascade.New()

	// Notifier
	var notifier notify.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	} else {
		notifier = notify.NoopNotifier{}
	}

	// Services
	membershipService := service.NewMembershipService(db)
	authService := service.NewAuthService(db, cfg.JWT.Secret, cfg.JWT.AccessExpireMins, cfg.JWT.RefreshExpireDays)
	userService := service.NewUserService(db, membershipService, coordinator)
	groupService := service.NewGroupService(db, membershipService, coordinator)
	projectService := service.NewProjectService(db, membershipService, coordinator)
	taskService := service.NewTaskService(db, membershipService, coordinator)
	dashboardService := service.NewDashboardService(db)

	taskService.SetNotifier(notifier)
	taskService.SetHub(sseHub)

	// Periodically drop refresh tokens past their expiry.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := authService.CleanupExpiredTokens(); err != nil {
				log.Printf("cleanup expired tokens: %v", err)
			}
		}
	}()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, userService)
	userHandler := handler.NewUserHandler(userService)
	groupHandler := handler.NewGroupHandler(groupService, membershipService, notifier)
	projectHandler := handler.NewProjectHandler(projectService)
	taskHandler := handler.NewTaskHandler(taskService, membershipService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	eventsHandler := handler.NewEventsHandler(sseHub, membershipService)

	// Gin engine
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Setup routes
	router.Setup(r, router.Deps{
		DB:             db,
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Auth:           authHandler,
		User:           userHandler,
		Group:          groupHandler,
		Project:        projectHandler,
		Task:           taskHandler,
		Dashboard:      dashboardHandler,
		Events:         eventsHandler,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server run: %v", err)
	}
}
