package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/taskbox/taskbox/internal/cache"
	"github.com/taskbox/taskbox/internal/config"
	"github.com/taskbox/taskbox/internal/handlers"
	"github.com/taskbox/taskbox/internal/middleware"
	"github.com/taskbox/taskbox/internal/repository"
	"github.com/taskbox/taskbox/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.DynamoDB.Region),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load AWS config")
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDB.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
		}
	})
	logger.Info("DynamoDB client initialized")

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Attachments.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Attachments.Endpoint)
			o.UsePathStyle = true
		}
	})
	presigner := s3.NewPresignClient(s3Client)
	logger.Info("S3 client initialized")

	todoRepo := repository.NewTodoRepository(
		dynamoClient,
		presigner,
		cfg.DynamoDB.TableName,
		cfg.DynamoDB.CreatedAtIndex,
		cfg.Attachments.BucketName,
		cfg.Attachments.UploadURLExpiry,
		logger,
	)

	var listCache service.ListCache
	if cfg.Redis.Endpoint != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Endpoint,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		listCache = cache.NewTodoCache(redisClient, cfg.Redis.CacheTTL, logger)
		logger.Info("Redis list cache enabled")
	}

	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize JWT service")
	}

	todoService := service.NewTodoService(todoRepo, listCache, logger)
	todoHandlers := handlers.NewTodoHandlers(todoService, logger)
	authMiddleware := middleware.NewAuthMiddleware(jwtService, logger)

	router := setupRouter(todoHandlers, authMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func setupRouter(
	todoHandlers *handlers.TodoHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.RequireAuth)

	api.HandleFunc("/todos", todoHandlers.ListTodos).Methods("GET", "OPTIONS")
	api.HandleFunc("/todos", todoHandlers.CreateTodo).Methods("POST", "OPTIONS")
	api.HandleFunc("/todos/{todoId}", todoHandlers.GetTodo).Methods("GET", "OPTIONS")
	api.HandleFunc("/todos/{todoId}", todoHandlers.UpdateTodo).Methods("PUT", "OPTIONS")
	api.HandleFunc("/todos/{todoId}", todoHandlers.DeleteTodo).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/todos/{todoId}/attachment", todoHandlers.GenerateUploadURL).Methods("POST", "OPTIONS")

	return router
}
