package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"salesgenius/internal/config"
	"salesgenius/internal/infrastructure"
	"salesgenius/internal/interfaces"
	httpapi "salesgenius/internal/interfaces/http"
	"salesgenius/internal/repository"
	"salesgenius/internal/repository/memory"
	"salesgenius/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, infrastructure.NewLogger(cfg.LogLevel, cfg.LogFormat))
		},
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (interfaces.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}
	pg, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewStore(pg.Pool), pg.Close, nil
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer closeStore()

	publisher := infrastructure.NewPublisher(ctx, cfg, log)
	defer publisher.Close()

	ai := infrastructure.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	notifier := infrastructure.NewTelegramNotifier(cfg.TelegramBotToken, log)
	limiter := infrastructure.NewMessageRateLimiter(cfg.ChatRate, cfg.ChatBurst)
	defer limiter.Stop()

	events := usecases.NewBroadcaster(store, publisher, notifier, log)
	auth := usecases.NewAuthUsecase(store, usecases.AuthOptions{
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL(),
		BcryptCost:   cfg.BcryptCost,
		SuperAdmins:  cfg.SuperAdmins(),
		DefaultModel: cfg.GeminiModel,
	}, log)
	products := usecases.NewProductUsecase(store, ai, log)
	leads := usecases.NewLeadUsecase(store, events, log)

	svc := httpapi.Services{
		Auth:      auth,
		Knowledge: usecases.NewKnowledgeUsecase(store, infrastructure.NewHTMLFetcher(), infrastructure.PDFTextExtractor{}, events, log),
		Products:  products,
		Leads:     leads,
		Chat: usecases.NewMessageService(usecases.MessageServiceDeps{
			Store:        store,
			AI:           ai,
			Products:     products,
			Leads:        leads,
			Events:       events,
			Limiter:      limiter,
			Sessions:     infrastructure.NewSessionManager(),
			DefaultModel: cfg.GeminiModel,
		}, log),
		Widget:     usecases.NewWidgetUsecase(store, cfg.PublicBaseURL),
		Dashboard:  usecases.NewDashboardUsecase(store),
		Team:       usecases.NewTeamUsecase(store, log),
		Settings:   usecases.NewSettingsUsecase(store, cfg.GeminiModel, cfg.GeminiAPIKey != "", log),
		SuperAdmin: usecases.NewSuperAdminUsecase(store, log),
		Pricing:    usecases.NewPricingCalculator(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	mw := httpapi.NewMiddleware(auth, store, cfg.CORSOriginList(), log)
	httpapi.SetupRoutes(r, svc, mw, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
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
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
