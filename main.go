package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hibiken/asynq"

	"github.com/KHABI-TEQ/console-admin/internal/api"
	"github.com/KHABI-TEQ/console-admin/internal/cache"
	"github.com/KHABI-TEQ/console-admin/internal/config"
	"github.com/KHABI-TEQ/console-admin/internal/db"
	"github.com/KHABI-TEQ/console-admin/internal/email"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	switch *runMode {
	case "api", "bg", "img", "all":
	default:
		log.Fatalf("Invalid run mode %q. Must be one of: api, bg, img, all", *runMode)
	}

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AwsRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKeyID, cfg.AwsSecretAccessKey, ""),
		),
	)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	var emailSender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		log.Println("MOCK_SERVICES enabled: using Redis mock email sender")
		emailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		emailSender = email.NewSMTPSender(cfg)
	}
	finalEmailSender := email.NewCompositeEmailSender(emailSender)
	if logPath := os.Getenv("LOG_EMAILS"); logPath != "" {
		fileSender, err := email.NewFileEmailSender(logPath, cfg)
		if err != nil {
			log.Fatalf("Failed to create file email sender: %v", err)
		}
		finalEmailSender.AddSender(fileSender)
	}

	queryCache := cache.NewQueryCache(redisClient, cfg.ListCacheTTL)
	notificationService := services.NewNotificationService(mongoDb)
	inspectionService := services.NewInspectionService(mongoDb, cfg, queryCache, notificationService)
	propertyService := services.NewPropertyService(mongoDb, cfg, queryCache)
	settingsService := services.NewSettingsService(mongoDb, redisClient)
	defer settingsService.Close()

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	taskProcessor := tasks.NewTaskProcessor(cfg, finalEmailSender, inspectionService, propertyService, s3Client)

	shutdownChan := make(chan struct{})
	var wg sync.WaitGroup

	// The service control API runs in every mode.
	serviceRouter := api.SetupServiceRouter(cfg, redisClient, shutdownChan)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on port %s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API server error: %v", err)
		}
	}()

	apiMode := *runMode == "api" || *runMode == "all"
	bgMode := *runMode == "bg" || *runMode == "all"
	imgMode := *runMode == "img" || *runMode == "all"

	var mainApiSrv *http.Server
	if apiMode {
		router := api.SetupRouter(cfg, mongoDb, redisClient, taskClient, settingsService)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Admin API listening on port %s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Admin API server error: %v", err)
			}
		}()
	}

	var taskSrv *asynq.Server
	var scheduler *asynq.Scheduler
	if bgMode || imgMode {
		taskSrv = tasks.SetupServer(redisClient, taskProcessor, imgMode, bgMode)
	}
	if bgMode {
		scheduler = tasks.SetupScheduler(redisClient, cfg)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down", sig)
	case <-shutdownChan:
		log.Println("Shutdown requested via service API")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Admin API shutdown error: %v", err)
		}
	}
	if err := serviceSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Service API shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Shutdown complete")
}
