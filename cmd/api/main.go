package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bolso/internal/config"
	"bolso/internal/database"
	"bolso/internal/handlers"
	"bolso/internal/logger"
	"bolso/internal/middleware"
	"bolso/internal/schedule"
	"bolso/internal/services"
	"bolso/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "bolso/internal/docs" // Import swagger docs
)

// @title           Bolso API
// @version         1.0
// @description     Bolso is an envelope-budgeting backend: income split into category envelopes, recurring transactions, savings goals and notifications.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	scheduler, err := schedule.New(appConfig.ScheduleTZ)
	if err != nil {
		return fmt.Errorf("failed to load schedule timezone: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	notificationService, err := services.NewNotificationService(db, services.NewLogPushSender(), services.NewLogEmailSender())
	if err != nil {
		return fmt.Errorf("failed to create notification service: %w", err)
	}
	budgetService := services.NewBudgetService(db, notificationService)
	recurringService := services.NewRecurringService(db, scheduler, notificationService)
	goalService := services.NewGoalService(db, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	recurringHandler := handlers.NewRecurringHandler(recurringService, auditService)
	goalHandler := handlers.NewGoalHandler(goalService, auditService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Budget routes
	budget := protected.Group("/budget")
	budget.GET("", budgetHandler.GetBudget)
	budget.POST("/setup", budgetHandler.Setup)
	budget.GET("/setup/status", budgetHandler.GetSetupStatus)
	budget.GET("/categories", budgetHandler.GetCategories)
	budget.GET("/incomes", budgetHandler.GetIncomes)
	budget.POST("/expense", budgetHandler.RecordExpense)
	budget.POST("/transfer", budgetHandler.Transfer)
	budget.GET("/transactions", budgetHandler.GetTransactions)

	// Recurring transaction routes
	recurring := protected.Group("/recurring")
	recurring.POST("", recurringHandler.Create)
	recurring.GET("", recurringHandler.List)
	recurring.GET("/:id", recurringHandler.Get)
	recurring.PUT("/:id", recurringHandler.Update)
	recurring.DELETE("/:id", recurringHandler.Delete)
	recurring.GET("/:id/logs", recurringHandler.GetLogs)
	recurring.POST("/:id/execute", recurringHandler.Execute)

	// Goal routes
	goals := protected.Group("/goals")
	goals.POST("", goalHandler.Create)
	goals.GET("", goalHandler.List)
	goals.GET("/statistics", goalHandler.Statistics)
	goals.GET("/:id", goalHandler.Get)
	goals.PUT("/:id", goalHandler.Update)
	goals.DELETE("/:id", goalHandler.Delete)
	goals.POST("/:id/transactions", goalHandler.Transaction)
	goals.GET("/:id/transactions", goalHandler.GetTransactions)
	goals.POST("/:id/complete", goalHandler.Complete)

	// Notification routes
	notifications := protected.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)
	notifications.POST("/read-all", notificationHandler.MarkAllRead)
	notifications.GET("/settings", notificationHandler.GetSettings)
	notifications.PUT("/settings", notificationHandler.UpdateSettings)
	notifications.POST("/device-tokens", notificationHandler.RegisterDeviceToken)

	// Daily recurring batch
	runner := services.NewProcessorRunner(recurringService, scheduler, appConfig.RecurringHour)
	runner.Start(context.Background())
	defer runner.Stop()

	srv := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting Bolso backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
