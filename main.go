package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-server/internal/auth"
	"chat-server/internal/cleanup"
	"chat-server/internal/db"
	"chat-server/internal/handlers"
	"chat-server/internal/middleware"
	"chat-server/internal/observability"
	"chat-server/internal/presence"
	"chat-server/internal/repositories"
	"chat-server/internal/services"
	"chat-server/internal/storage"
	"chat-server/internal/telemetry"
	"chat-server/internal/ws"
)

const serviceName = "chat-server"

func main() {
	ctx := context.Background()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		publisher, err := observability.DialRabbit(amqpURL, getEnv("AMQP_EXCHANGE", "chat.events"))
		if err != nil {
			log.Printf("amqp unavailable, events disabled: %v", err)
		} else {
			observability.UseBus(publisher)
			defer publisher.Close()
		}
	}

	var blobs storage.BlobStore
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  endpoint,
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "chat-uploads"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		})
		if err != nil {
			log.Fatalf("failed to connect to object storage: %v", err)
		}
		blobs = store
	} else {
		log.Printf("MINIO_ENDPOINT not set, file uploads disabled")
	}

	userRepo := repositories.NewUserRepo(database)
	convRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	activityRepo := repositories.NewActivityLogRepo(database)

	registry := presence.NewRegistry()
	hub := ws.NewHub()
	emitter := ws.NewEmitter(hub, registry)

	membershipSvc := services.NewMembershipService(convRepo, userRepo, messageRepo, blobs)
	deliverySvc := services.NewDeliveryService(convRepo, messageRepo, registry, blobs)
	notifierSvc := services.NewNotifierService(convRepo, messageRepo, userRepo)

	recorder := telemetry.NewActivityRecorder(activityRepo, observability.RouteAudit, serviceName, getEnv("ENVIRONMENT", "development"))

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "72h"))
	if err != nil {
		log.Fatalf("invalid TOKEN_TTL: %v", err)
	}
	jwtManager := auth.NewJWTManager(getEnv("JWT_SECRET", "dev-secret-change-me"), tokenTTL)

	sweeper := cleanup.NewSweeper(userRepo)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("failed to start retention sweeper: %v", err)
	}
	defer sweeper.Stop()

	authHandler := handlers.NewAuthHandler(userRepo, jwtManager)
	userHandler := handlers.NewUserHandler(userRepo, blobs)
	convHandler := handlers.NewConversationHandler(membershipSvc, notifierSvc, emitter)
	messageHandler := handlers.NewMessageHandler(deliverySvc, notifierSvc, blobs, emitter)
	adminUserHandler := handlers.NewAdminUserHandler(userRepo, recorder)
	adminConvHandler := handlers.NewAdminConversationHandler(convRepo, messageRepo)
	moderationHandler := handlers.NewModerationHandler(deliverySvc, userRepo, recorder, emitter)
	activityHandler := handlers.NewActivityLogHandler(activityRepo)

	gateway := ws.NewGateway(hub, registry, emitter, jwtManager, userRepo, membershipSvc, deliverySvc, notifierSvc)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	router.POST("/auth/signup", authHandler.Signup)
	router.POST("/auth/login", authHandler.Login)

	authMW := middleware.AuthMiddleware(jwtManager)

	api := router.Group("/", authMW)
	{
		api.GET("/users", userHandler.ListUsers)
		api.GET("/users/me", userHandler.Me)
		api.PUT("/users/me", userHandler.UpdateMe)

		api.GET("/conversations", convHandler.List)
		api.POST("/conversations/one-to-one", convHandler.StartOneToOne)
		api.POST("/conversations/group", convHandler.CreateGroup)
		api.GET("/conversations/:conversation_id", convHandler.Get)
		api.PATCH("/conversations/:conversation_id/name", convHandler.Rename)
		api.PUT("/conversations/:conversation_id/picture", convHandler.SetPicture)
		api.POST("/conversations/:conversation_id/members", convHandler.AddMember)
		api.DELETE("/conversations/:conversation_id/members/:user_id", convHandler.RemoveMember)
		api.POST("/conversations/:conversation_id/leave", convHandler.Leave)
		api.POST("/conversations/:conversation_id/admins", convHandler.Promote)
		api.DELETE("/conversations/:conversation_id/admins/:user_id", convHandler.Demote)
		api.POST("/conversations/:conversation_id/read", convHandler.MarkRead)

		api.GET("/conversations/:conversation_id/messages", messageHandler.History)
		api.GET("/conversations/:conversation_id/messages/search", messageHandler.Search)
		api.POST("/conversations/:conversation_id/messages", messageHandler.Send)
		api.PUT("/messages/:message_id", messageHandler.Edit)
		api.DELETE("/messages/:message_id", messageHandler.Delete)
		api.POST("/messages/:message_id/reactions", messageHandler.React)
		api.POST("/uploads", messageHandler.UploadFile)
	}

	admin := router.Group("/admin", authMW, middleware.RequireAdmin())
	{
		admin.GET("/users", adminUserHandler.ListUsers)
		admin.GET("/users/banned", adminUserHandler.ListBanned)
		admin.GET("/users/deleted", adminUserHandler.ListDeleted)
		admin.GET("/users/export", adminUserHandler.Export)
		admin.POST("/users", adminUserHandler.CreateUser)
		admin.PUT("/users/:user_id", adminUserHandler.EditUser)
		admin.DELETE("/users/:user_id", adminUserHandler.Deactivate)
		admin.POST("/users/:user_id/restore", adminUserHandler.Restore)
		admin.DELETE("/users/:user_id/permanent", adminUserHandler.HardDelete)
		admin.POST("/users/:user_id/ban", adminUserHandler.Ban)
		admin.DELETE("/users/:user_id/ban", adminUserHandler.Unban)

		admin.GET("/conversations", adminConvHandler.ListConversations)
		admin.GET("/conversations/:conversation_id/messages", adminConvHandler.ListMessages)
		admin.DELETE("/messages/:message_id", moderationHandler.DeleteMessage)

		admin.GET("/activity-logs", activityHandler.List)
		admin.GET("/activity-logs/recent", activityHandler.Recent)
	}

	router.GET("/ws", gateway.Handle)

	port := getEnv("PORT", "8080")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
