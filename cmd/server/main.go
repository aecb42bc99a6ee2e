package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "blogapi/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"blogapi/internal/auth"
	"blogapi/internal/cache"
	"blogapi/internal/config"
	"blogapi/internal/db"
	"blogapi/internal/handler"
	"blogapi/internal/logger"
	"blogapi/internal/metrics"
	"blogapi/internal/repository"
	"blogapi/internal/router"
	"blogapi/internal/service"
	"blogapi/internal/storage"
	"blogapi/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// @title Blog API
// @version 1.0
// @description Blogging backend with registration, JWT login, profiles and ownership-checked posts.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logg := logger.New(os.Stdout, cfg.IsDev(), cfg.LogLevel)
	slog.SetDefault(logg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, logg)
	if err != nil {
		logg.Error("database init failed", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.ResetDB {
		logg.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		logg.Error("auto-migrate failed", slog.Any("error", err))
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logg.Warn("redis unreachable, login and token refresh will fail until it recovers",
			slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
	}

	objectStore, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		logg.Error("storage init failed", slog.Any("error", err))
		os.Exit(1)
	}
	var imageStore service.ImageStore
	if objectStore != nil {
		imageStore = objectStore
		logg.Info("image uploads enabled",
			slog.String("backend", cfg.Storage.Backend), slog.String("bucket", objectStore.Bucket()))
	} else {
		logg.Info("image uploads disabled, STORAGE_BACKEND is empty")
	}

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	profileRepo := repository.NewProfileRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)

	// Auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	validator := validation.New()
	m := metrics.New()
	media := service.NewMedia(imageStore, cfg.Storage.MaxUploadBytes, logg)

	// Services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, media, validator, m, logg)
	profileService := service.NewProfileService(profileRepo, media, validator, logg)
	postService := service.NewPostService(postRepo, media, validator, m, logg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, cfg, jwtService, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Profile: handler.NewProfileHandler(profileService),
		Post:    handler.NewPostHandler(postService),
		Media:   handler.NewMediaHandler(media),
	}, m, logg)

	logg.Info("swagger documentation available", slog.String("url", swaggerURL(cfg)))

	addr := ":" + cfg.ServerPort
	go func() {
		logg.Info("starting HTTP server", slog.String("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("HTTP server error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()
	logg.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Error("graceful shutdown failed", slog.Any("error", err))
	} else {
		logg.Info("HTTP server stopped")
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimSuffix(host, "/") + "/swagger/index.html"
}
