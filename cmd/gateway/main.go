package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/hub"
	"github.com/parley-chat/parley/internal/kafka"
	"github.com/parley-chat/parley/internal/membership"
	"github.com/parley-chat/parley/internal/presence"
	"github.com/parley-chat/parley/internal/repository"
	"github.com/parley-chat/parley/pkg/database"
	"github.com/parley-chat/parley/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		ServiceName: "gateway",
		InstanceID:  cfg.Instance.ID,
	})
	logger := log.L()

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("starting gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.RoomModel{},
		&domain.RoomMemberModel{},
		&domain.MessageModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis, shared by the presence registry and the membership cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	registry := presence.NewRedisRegistry(redisClient, cfg.Presence.TTL)
	cache := membership.NewRedisCache(redisClient, cfg.Membership.CacheTTL)

	// Repositories and membership service
	rooms := repository.NewGormRoomRepository(db)
	members := repository.NewGormMemberRepository(db)
	messages := repository.NewGormMessageRepository(db)
	membershipSvc := membership.NewService(rooms, members, cache)

	// Kafka producer for intake events
	producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Partitions,
		domain.TopicMessages, domain.TopicMessagesPersisted)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Kafka producer")
	}
	defer producer.Close()

	// Hub and connection-side service
	wsHub := hub.NewHub()
	go wsHub.Run()

	gatewaySvc := gateway.NewService(wsHub, membershipSvc, registry, producer,
		cfg.Instance.ID, cfg.Kafka.PublishTimeout)

	verifier := auth.NewVerifier(cfg.JWT.Secret)
	wsHandler := gateway.NewWSHandler(wsHub, gatewaySvc, verifier, hub.PumpConfig{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongWait:       cfg.WebSocket.PongWait,
		WriteWait:      cfg.WebSocket.WriteWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	})

	// Broadcast consumer: a per-instance group so every gateway process
	// receives the full persisted stream and fans out to its own sockets.
	broadcaster := gateway.NewBroadcaster(wsHub)
	broadcastConsumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		Topic:           domain.TopicMessagesPersisted,
		GroupID:         fmt.Sprintf("%s-%s", domain.GroupBroadcastPrefix, cfg.Instance.ID),
		AutoOffsetReset: "latest",
		RetryBackoff:    cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create broadcast consumer")
	}

	// HTTP router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	httpHandler := gateway.NewHTTPHandler(membershipSvc, messages, registry, auth.NewMiddleware(verifier))
	httpHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return broadcastConsumer.Run(gctx, broadcaster.Handle)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("gateway exited with error")
	}

	broadcastConsumer.Close()
	logger.Info().Msg("gateway stopped")
}
