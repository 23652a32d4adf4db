package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-backend/internal/auth"
	"chat-backend/internal/config"
	"chat-backend/internal/db"
	grpcserver "chat-backend/internal/grpc"
	"chat-backend/internal/handlers"
	"chat-backend/internal/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/observability"
	"chat-backend/internal/rabbitmq"
	"chat-backend/internal/repositories"
	"chat-backend/internal/service"
	"chat-backend/internal/telemetry"
	"chat-backend/internal/tracing"
	"chat-backend/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP, websocket and gRPC health servers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func dbOptions(cfg *config.Config) db.Options {
	return db.Options{
		DSN:          cfg.DatabaseDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnLifetime: cfg.DBConnLifetime,
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(ctx, dbOptions(cfg))
	if err != nil {
		return err
	}
	defer database.Close()
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, database, log); err != nil {
			return err
		}
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.WithFields(logrus.Fields{
		"mode":   rabbitmq.PublisherMode(publisher),
		"reason": rabbitmq.PublisherNoopReason(publisher),
	}).Info("event publisher ready")
	emitter := telemetry.NewAuditEmitter(publisher, cfg.ServiceName, cfg.Environment, log)

	registry := ws.NewRegistry()
	router := newRouter(cfg, log, database, registry, emitter)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := grpcserver.NewHealthServer(database, cfg.DBPingInterval, log)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go health.Watch(ctx)

	errCh := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.WithField("addr", cfg.GRPCAddr).Info("grpc health server listening")
		if err := health.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		log.WithError(err).Error("server failed")
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	health.Stop()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("http shutdown")
	}
	// Shutdown does not track hijacked websocket connections.
	log.WithField("count", registry.CloseAll()).Info("realtime connections closed")
	return err
}

func newRouter(cfg *config.Config, log *logrus.Logger, database *sqlx.DB, registry *ws.Registry, emitter *telemetry.AuditEmitter) *gin.Engine {
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)
	friendRepo := repositories.NewFriendRepo(database)

	dispatcher := ws.NewDispatcher(registry, log)
	authorizer := service.NewAuthorizer(chatRepo, userRepo)
	chatService := service.NewChatService(authorizer, chatRepo)
	messageService := service.NewMessageService(authorizer, chatRepo, messageRepo, dispatcher, log)
	friendService := service.NewFriendService(friendRepo, userRepo)

	chatHandler := handlers.NewChatHandler(authorizer, chatService, messageService, emitter, log)
	friendHandler := handlers.NewFriendHandler(friendService, emitter, log)

	jwtAuth := auth.NewJWTAuth(cfg.JWTSecret, cfg.JWTIssuer)
	wsHandler := ws.NewHandler(registry, jwtAuth, log, cfg.WSSendBuffer)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", handlers.Health(database, registry))
	router.GET("/ws", wsHandler.Handle)

	api := router.Group("/", middleware.AuthMiddleware(jwtAuth))
	api.GET("/chats", chatHandler.ListChats)
	api.POST("/chats", chatHandler.StartChat)
	api.PATCH("/chats/:chat_id", chatHandler.UpdateTitle)
	api.DELETE("/chats/:chat_id", chatHandler.LeaveChat)
	api.GET("/chats/:chat_id/messages", chatHandler.GetChatMessages)
	api.POST("/chats/:chat_id/messages", chatHandler.PostChatMessage)
	api.DELETE("/messages/:message_id", chatHandler.DeleteMessage)

	api.GET("/friends", friendHandler.ListFriends)
	api.POST("/friends", friendHandler.AddFriend)
	api.DELETE("/friends/:user_id", friendHandler.RemoveFriend)
	api.GET("/users/:user_id", friendHandler.GetUser)
	api.PATCH("/users", friendHandler.UpdateProfile)

	handlers.RegisterDebugRoutes(api, emitter, registry, cfg.DebugRoutes)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.Envelope{Message: "route not found"})
	})
	return router
}
