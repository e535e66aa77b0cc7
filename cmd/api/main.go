package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"campusfinder/internal/cache"
	"campusfinder/internal/config"
	"campusfinder/internal/database"
	"campusfinder/internal/modules/notification"
	"campusfinder/internal/pkg/jwt"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/observability"
	"campusfinder/internal/realtime"
	"campusfinder/internal/repository"
	"campusfinder/internal/server"
	"campusfinder/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.Telemetry.ServiceName, cfg.AppEnv, cfg.Log.Level)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	metrics, err := observability.InitMetrics()
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		log.Error().Msg("JWT_SECRET is not set; login and protected routes will answer 503")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	var list cache.ResourceList = cache.Noop{}
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; resource list is served from the database until it recovers")
		}
		list = cache.NewRedisResourceList(client, cfg.Redis.ResourceCacheTTL, metrics)
	}

	var mailer notification.Mailer
	if cfg.Mail.Configured() {
		mailer = notification.NewSMTPMailer(cfg.Mail)
	} else {
		log.Warn().Msg("EMAIL_USER/EMAIL_PASS not set; notifications will answer 503")
	}

	hub := realtime.NewHub(cfg.CORSAllowedOrigins)
	router := server.NewRouter(server.Deps{
		Config:  cfg,
		DB:      db,
		Store:   repository.NewStore(db, cfg.Auth.DefaultAvatarURL),
		Tokens:  jwt.New(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		Images:  storage.NewImages(objects, cfg.Storage.MaxImageBytes),
		Cache:   list,
		Hub:     hub,
		Mailer:  mailer,
		Metrics: metrics,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Close()
		return errors.Join(srv.Shutdown(shutdownCtx), shutdownTelemetry(shutdownCtx))
	})
	return g.Wait()
}
