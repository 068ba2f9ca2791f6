package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"group-service/internal/auth"
	"group-service/internal/chat"
	"group-service/internal/config"
	"group-service/internal/db"
	"group-service/internal/handlers"
	"group-service/internal/middleware"
	"group-service/internal/observability"
	"group-service/internal/rabbitmq"
	"group-service/internal/registry"
	"group-service/internal/repositories"
	"group-service/internal/telemetry"
	"group-service/internal/ws"
)

const serviceName = "group-service"

func main() {
	cfg := config.Load()

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Printf("tracer init failed, continuing without tracing: %v", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Printf("tracer shutdown failed: %v", err)
			}
		}()
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))

	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRouting, serviceName, cfg.Environment)

	if cfg.AMQPURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.EventExchange)
		if err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	participationRepo := repositories.NewParticipationRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)

	hub := ws.NewHub()
	reg := registry.New(participationRepo, groupRepo, hub)
	chatService := chat.NewService(reg, messageRepo, userRepo, hub)

	verifier := auth.NewVerifier(cfg.JWTSecret)

	participationHandler := handlers.NewParticipationHandler(participationRepo, reg, auditEmitter)
	groupHandler := handlers.NewGroupHandler(reg, auditEmitter)
	chatHandler := handlers.NewChatHandler(chatService, hub, auditEmitter)
	socketHandler := ws.NewSocketHandler(hub, reg, chatService, verifier)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	authMiddleware := middleware.AuthMiddleware(verifier, userRepo)

	router.GET("/is-an-user-event", authMiddleware, participationHandler.IsUserEvent)
	router.POST("/user-events", authMiddleware, participationHandler.JoinEvent)
	router.DELETE("/user-events", authMiddleware, participationHandler.LeaveEvent)

	router.GET("/is-user-in-group", authMiddleware, groupHandler.IsUserInGroup)
	router.GET("/event-groups", authMiddleware, groupHandler.ListEventGroups)
	router.GET("/event-group", authMiddleware, groupHandler.GetGroup)
	router.POST("/event-groups", authMiddleware, groupHandler.CreateGroup)
	router.PUT("/event-groups", authMiddleware, groupHandler.UpdateGroup)
	router.DELETE("/event-groups", authMiddleware, groupHandler.DeleteGroup)
	router.POST("/join-group", authMiddleware, groupHandler.JoinGroup)
	router.POST("/leave-group", authMiddleware, groupHandler.LeaveGroup)
	router.POST("/kick-user", authMiddleware, groupHandler.KickUser)
	router.POST("/ban-user", authMiddleware, groupHandler.BanUser)
	router.GET("/created-group-chat", authMiddleware, groupHandler.ListCreatedGroups)
	router.GET("/joined-group-chat", authMiddleware, groupHandler.ListJoinedGroups)

	router.GET("/group-messages", authMiddleware, chatHandler.GetGroupMessages)
	router.POST("/is-user-online", authMiddleware, chatHandler.IsUserOnline)

	router.GET("/socket", socketHandler.Handle)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
