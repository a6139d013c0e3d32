package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/maktabah-search-api/internal/config"
	"github.com/maktabah-search-api/internal/handlers"
	"github.com/maktabah-search-api/internal/logger"
	"github.com/maktabah-search-api/internal/metrics"
	"github.com/maktabah-search-api/internal/middleware"
	"github.com/maktabah-search-api/internal/repository/corpus"
	"github.com/maktabah-search-api/internal/services"
	"github.com/maktabah-search-api/internal/story"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	catalog, err := config.LoadCatalog(cfg.Stories.CatalogPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, closeCorpus, err := corpus.Open(ctx, cfg.Corpus)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCorpus(); err != nil {
			log.Warn("close corpus", zap.Error(err))
		}
	}()
	log.Info("corpus ready", zap.String("backend", cfg.Corpus.Backend))

	searchSvc := services.NewSearchService(repo, cfg.Search, cfg.Highlight, cfg.Corpus.Timeout, log)
	store := story.NewStore(cfg.Stories.Dir, catalog)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	handlers.NewHealthHandler(repo, cfg.Corpus.Backend).RegisterRoutes(api)
	handlers.NewSearchHandler(searchSvc, cfg.Search.DefaultPageSize).RegisterRoutes(api)
	handlers.NewStoriesHandler(store).RegisterRoutes(api)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server",
			zap.String("name", cfg.APITitle),
			zap.String("version", cfg.APIVersion),
			zap.String("addr", addr),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown server", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
