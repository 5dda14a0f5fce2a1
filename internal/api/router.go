package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/KHABI-TEQ/console-admin/internal/api/handlers"
	"github.com/KHABI-TEQ/console-admin/internal/api/middleware"
	"github.com/KHABI-TEQ/console-admin/internal/cache"
	"github.com/KHABI-TEQ/console-admin/internal/captcha"
	"github.com/KHABI-TEQ/console-admin/internal/config"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient *asynq.Client, settingsService services.ISettingsService) *gin.Engine {
	queryCache := cache.NewQueryCache(rdb, cfg.ListCacheTTL)

	notificationService := services.NewNotificationService(db)
	inspectionService := services.NewInspectionService(db, cfg, queryCache, notificationService)
	propertyService := services.NewPropertyService(db, cfg, queryCache)
	userService := services.NewUserService(db, cfg)
	adminService := services.NewAdminService(db)
	contactService := services.NewContactService(db, cfg)
	dashboardService := services.NewDashboardService(db, queryCache)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	captchaVerifier := captcha.NewTurnstileVerifier(cfg)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(rateLimiter.Limit())

	inspectionHandler := handlers.NewInspectionHandler(inspectionService, taskClient)
	propertyHandler := handlers.NewPropertyHandler(propertyService, s3StorageService, taskClient)
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(cfg, adminService, settingsService, captchaVerifier)
	contactHandler := handlers.NewContactHandler(contactService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, notificationService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		v1.POST("/auth/login", adminHandler.Login)
		v1.GET("/settings", adminHandler.GetPublicSettings)

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg))
		{
			admin.POST("/logout", adminHandler.Logout)
			admin.GET("/profile", adminHandler.Profile)
			admin.PUT("/profile", adminHandler.UpdateProfile)

			admin.GET("/dashboard", dashboardHandler.GetSummary)
			admin.GET("/notifications", dashboardHandler.ListNotifications)
			admin.POST("/notifications/read-all", dashboardHandler.MarkAllNotificationsRead)
			admin.POST("/notifications/:id/read", dashboardHandler.MarkNotificationRead)

			admin.GET("/inspections", inspectionHandler.ListInspections)
			admin.GET("/inspections/status-model", inspectionHandler.GetStatusModel)
			admin.GET("/inspections/:id", inspectionHandler.GetInspection)
			admin.POST("/inspections/:id/approve", inspectionHandler.ApproveInspection)
			admin.POST("/inspections/:id/reject", inspectionHandler.RejectInspection)
			admin.POST("/inspections/:id/action", inspectionHandler.RecordAction)

			admin.GET("/properties", propertyHandler.ListProperties)
			admin.GET("/properties/:id", propertyHandler.GetProperty)
			admin.POST("/properties/:id/state", propertyHandler.SetPropertyState)
			admin.POST("/properties/:id/images", propertyHandler.RequestUploadURL)
			admin.DELETE("/properties/:id", propertyHandler.DeleteProperty)

			admin.GET("/users", userHandler.ListUsers)
			admin.GET("/users/:id", userHandler.GetUser)
			admin.POST("/users/:id/onboard", userHandler.SetOnboarded)
			admin.POST("/users/:id/flag", userHandler.SetFlagged)
			admin.DELETE("/users/:id", userHandler.DeleteUser)

			admin.GET("/contacts", contactHandler.ListContacts)
			admin.GET("/contacts/:id", contactHandler.GetContact)
			admin.POST("/contacts", contactHandler.CreateContact)
			admin.POST("/contacts/:id/notes", contactHandler.AddNote)
			admin.DELETE("/contacts/:id", contactHandler.DeleteContact)

			admin.GET("/settings", adminHandler.GetSettings)

			super := admin.Group("/")
			super.Use(middleware.SuperAdminMiddleware())
			{
				super.GET("/admins", adminHandler.ListAdmins)
				super.POST("/admins", adminHandler.CreateAdmin)
				super.DELETE("/admins/:id", adminHandler.DeleteAdmin)
				super.PUT("/settings", adminHandler.SetSetting)
			}
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service control engine.
// Requires Redis for the getTestEmail endpoint used by integration tests.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			kind := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, kind)

			var emailJsonData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				emailJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJsonData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
