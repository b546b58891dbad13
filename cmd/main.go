package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"orderchat/backend/internal/api/handler"
	"orderchat/backend/internal/auth"
	"orderchat/backend/internal/chathub"
	"orderchat/backend/internal/config"
	"orderchat/backend/internal/storage"
	"orderchat/backend/internal/telegram"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("INFO: Database and Redis connections established, migrations complete.")
	return db, rdb
}

func seedAdmin(ctx context.Context, cfg *config.Config, s storage.Storage) {
	if cfg.AdminEmail == "" {
		return
	}
	hash, err := auth.NewPasswordHasher().Hash(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}
	created, err := s.EnsureAdmin(ctx, cfg.AdminEmail, hash)
	if err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}
	if created {
		log.Printf("INFO: Admin account %s created", cfg.AdminEmail)
	}
}

func main() {
	log.Println("Starting order chat backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedAdmin(ctx, cfg, s)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	verifier := auth.NewVerifier(tokens, s)
	hub := chathub.NewManagerService(s, verifier, chathub.Options{
		HandshakeTimeout: cfg.HandshakeTimeout,
		StoreTimeout:     cfg.StoreTimeout,
	})

	if _, err := hub.WarmRoomIndex(ctx); err != nil {
		log.Printf("WARNING: Starting without a warm room index: %v", err)
	}
	if err := hub.StartPubSubListener(ctx, s); err != nil {
		log.Fatalf("Failed to subscribe to room notices: %v", err)
	}

	h := handler.NewHandler(hub, s, tokens, verifier)
	h.RequestTimeout = cfg.StoreTimeout
	if cfg.TelegramEnabled() {
		notifier, err := telegram.NewBotNotifier(cfg.TelegramBotToken, cfg.TelegramAdminChatID)
		if err != nil {
			log.Printf("WARNING: Telegram alerts disabled: %v", err)
		} else {
			h.Notifier = notifier
		}
	}

	r := gin.Default()
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
			"room-listener": func(ctx context.Context) error {
				cancel()
				return nil
			},
			"redis": func(ctx context.Context) error {
				return rdb.Close()
			},
			"postgres": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		},
	)

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}
