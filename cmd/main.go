package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zn4editz-pixel/z-app-sub003/internal/alerts"
	"github.com/zn4editz-pixel/z-app-sub003/internal/api/handler"
	"github.com/zn4editz-pixel/z-app-sub003/internal/chathub"
	"github.com/zn4editz-pixel/z-app-sub003/internal/config"
	"github.com/zn4editz-pixel/z-app-sub003/internal/events"
	"github.com/zn4editz-pixel/z-app-sub003/internal/models"
	"github.com/zn4editz-pixel/z-app-sub003/internal/moderation"
	"github.com/zn4editz-pixel/z-app-sub003/internal/presence"
	"github.com/zn4editz-pixel/z-app-sub003/internal/registry"
	"github.com/zn4editz-pixel/z-app-sub003/internal/relay"
	"github.com/zn4editz-pixel/z-app-sub003/internal/storage"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect PostgreSQL")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect Redis")
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Friendship{},
		&models.DirectMessage{},
		&models.SessionRecord{},
		&models.Report{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	log.Info().Msg("database and redis connections established, migrations complete")
	return db, rdb
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file loaded")
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, rdb := setupDependencies(cfg)
	store := storage.NewService(db, rdb)

	// The waiting queue is in-memory and empty after a restart; drop
	// whatever the previous process mirrored into Redis.
	if err := store.ResetWaiting(); err != nil {
		log.Warn().Err(err).Msg("failed to reset waiting gauge")
	}

	var analytics chathub.Analytics
	if cfg.AMQPURL != "" {
		pub := events.NewPublisher(cfg.AMQPURL)
		defer pub.Close()
		analytics = pub
		go events.StartSessionLogConsumer(cfg.AMQPURL)
	}

	reg := registry.New()
	hub := chathub.NewHub(reg, store, store, store, analytics)

	pub := presence.NewPublisher(store, hub, store)
	reg.SetPresenceSink(pub)

	var alerter moderation.Alerter
	if cfg.TelegramToken != "" {
		notifier, err := alerts.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("telegram alerts disabled")
		} else {
			alerter = notifier
		}
	}
	hub.SetReportSink(moderation.New(store, alerter))

	dmRelay := relay.New(store, reg, hub, config.MessagePollLimit)
	hub.SetDirectMessenger(dmRelay)

	go hub.Run()

	r := gin.Default()
	h := handler.NewHandler(hub, dmRelay, store, cfg.JWTSecret)

	r.GET("/api/auth/anon", h.GetAnonToken)
	r.GET("/ws", h.ServeWebSocket)

	authed := r.Group("/api", h.RequireUser)
	authed.GET("/messages", h.ListMessages)
	authed.POST("/messages", h.SendMessage)

	admin := r.Group("/api/admin", h.RequireAdmin)
	admin.GET("/online", h.AdminOnline)
	admin.GET("/stats", h.AdminStats)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Info().Str("addr", server.Addr).Msg("starting z-app backend")
	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
