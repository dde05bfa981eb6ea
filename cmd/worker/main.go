package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/kafka"
	"github.com/parley-chat/parley/internal/repository"
	"github.com/parley-chat/parley/internal/worker"
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
		ServiceName: "worker",
		InstanceID:  cfg.Instance.ID,
	})
	logger := log.L()

	logger.Info().Msg("starting persistence worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Partitions,
		domain.TopicMessages, domain.TopicMessagesPersisted)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Kafka producer")
	}
	defer producer.Close()

	messages := repository.NewGormMessageRepository(db)
	persistor := worker.NewPersistor(messages, producer, cfg.Kafka.PublishTimeout)

	// One shared group across all worker replicas: partitions are
	// divided, per-room order is preserved by room-keyed records.
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		Topic:           domain.TopicMessages,
		GroupID:         domain.GroupPersistor,
		AutoOffsetReset: "earliest",
		RetryBackoff:    cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create intake consumer")
	}

	// Health endpoint for liveness probes.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return consumer.Run(gctx, persistor.Handle)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down worker")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("worker exited with error")
	}

	consumer.Close()
	logger.Info().Msg("worker stopped")
}
