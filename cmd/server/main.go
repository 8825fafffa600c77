package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zaederex/prattle/internal/api"
	"github.com/zaederex/prattle/internal/auth"
	"github.com/zaederex/prattle/internal/blob"
	"github.com/zaederex/prattle/internal/chat"
	"github.com/zaederex/prattle/internal/config"
	"github.com/zaederex/prattle/internal/events"
	"github.com/zaederex/prattle/internal/history"
	"github.com/zaederex/prattle/internal/logger"
	"github.com/zaederex/prattle/internal/presence"
	"github.com/zaederex/prattle/internal/store"
	"github.com/zaederex/prattle/internal/store/memory"
	mongostore "github.com/zaederex/prattle/internal/store/mongo"
	pgstore "github.com/zaederex/prattle/internal/store/postgres"
	"github.com/zaederex/prattle/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	backend, cleanup, err := openBackend(ctx, cfg)
	if err != nil {
		zlog.Fatalw("store init failed", "driver", cfg.Store.Driver, "err", err)
	}
	defer cleanup()

	registry := chat.NewRegistry()
	var fanout chat.Fanout = registry
	var pres chat.Presence

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pres = presence.NewStore(rdb, cfg.Redis.Prefix)
		bridge := transport.NewRedisBridge(registry, rdb, zlog)
		bridge.Start()
		defer bridge.Stop()
		fanout = bridge
	}

	var publisher chat.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent, zlog)
		defer producer.Close()
		publisher = producer
	}

	var uploader chat.Uploader
	if cfg.S3.Bucket != "" {
		s3store, err := blob.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicRead)
		if err != nil {
			zlog.Fatalw("blob store init failed", "err", err)
		}
		uploader = s3store
	}

	recipientFilter := chat.NewRecipientFilter(backend)
	router := chat.NewRouter(fanout, backend, backend, recipientFilter,
		chat.NewHashtagExtractor(backend), chat.NewGroupResolver(backend),
		uploader, publisher, zlog)
	stash := chat.NewStashDeliverer(backend, recipientFilter, fanout, zlog)
	endpoint := chat.NewEndpoint(backend, fanout, router, stash, pres, chat.EndpointConfig{
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
	}, zlog)

	hist := history.NewService(backend, backend, backend)
	verifier := auth.NewVerifier(cfg.JWT.Secret)
	app := api.NewServer(cfg, endpoint, hist, backend, backend, verifier, zlog)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	go func() {
		zlog.Infow("server starting", "addr", addr, "store", cfg.Store.Driver)
		if err := app.Listen(addr); err != nil {
			zlog.Fatalw("server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	zlog.Info("server stopped")
}

func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		st, err := mongostore.NewStore(ctx, client.Database(cfg.Mongo.Database))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		return st, cleanup, nil
	case "postgres":
		db, err := pgstore.Open(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		st := pgstore.NewStore(db)
		if err := st.Migrate(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return st, func() { _ = db.Close() }, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
