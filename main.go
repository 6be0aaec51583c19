package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LoneMagma/pacify-site/internal/auth"
	"github.com/LoneMagma/pacify-site/internal/config"
	"github.com/LoneMagma/pacify-site/internal/geo"
	"github.com/LoneMagma/pacify-site/internal/handlers"
	"github.com/LoneMagma/pacify-site/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect db", zap.Error(err))
	}

	eventStore := store.New(db)
	if err := eventStore.Migrate(); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	// One-time provisioning: create the schema and an initial admin account.
	if len(os.Args) > 1 && os.Args[1] == "create-admin" {
		createAdmin(eventStore, logger, os.Args[2:])
		return
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("failed to init token service", zap.Error(err))
	}

	resolver := geo.NewResolver(cfg.GeoAPIURL, time.Duration(cfg.GeoTimeoutSec)*time.Second, logger)

	r := handlers.NewRouter(gin.Default(), eventStore, tokens, resolver, cfg.AllowedOrigins)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// createAdmin provisions an administrator from two positional arguments.
// An existing username is logged and skipped rather than treated as an error.
func createAdmin(s *store.EventStore, logger *zap.Logger, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: pacify-site create-admin <username> <password>")
		os.Exit(2)
	}
	username, password := args[0], args[1]

	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}

	created, err := s.CreateAdminUser(context.Background(), username, hash)
	if err != nil {
		logger.Fatal("failed to create admin user", zap.Error(err))
	}
	if !created {
		logger.Info("admin user already exists, skipping", zap.String("username", username))
		return
	}
	logger.Info("admin user created", zap.String("username", username))
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
