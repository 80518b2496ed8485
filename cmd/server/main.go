package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/mediasync/internal/app"
	"github.com/cesargomez89/mediasync/internal/catalog"
	"github.com/cesargomez89/mediasync/internal/config"
	"github.com/cesargomez89/mediasync/internal/domain"
	httpapp "github.com/cesargomez89/mediasync/internal/http"
	"github.com/cesargomez89/mediasync/internal/httpclient"
	"github.com/cesargomez89/mediasync/internal/logger"
	"github.com/cesargomez89/mediasync/internal/store"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if n, err := db.PurgeExpiredCache(); err != nil {
		appLogger.Warn("Failed to purge cache", "error", err)
	} else if n > 0 {
		appLogger.Info("Purged expired cache entries", "count", n)
	}

	manager := catalog.NewManager(catalog.NewStoreCache(db), cfg.CacheTTL, appLogger.WithComponent("catalog"))
	registerCatalogs(manager, cfg, appLogger)

	settingsRepo := store.NewSettingsRepo(db)

	syncService := app.NewSyncService(db, db, db, manager, appLogger)
	syncService.Recorder = settingsRepo
	syncService.Limit = cfg.FanoutLimit
	syncService.Timeout = cfg.SyncTimeout

	searchService := app.NewSearchService(manager, db, appLogger)
	searchService.Limit = cfg.FanoutLimit
	searchService.Timeout = cfg.SearchTimeout

	h := httpapp.NewHandler(
		syncService,
		searchService,
		app.NewStatsService(db, appLogger),
		app.NewListService(db, appLogger),
		app.NewProfileService(db, settingsRepo, appLogger),
		manager,
		db,
		appLogger,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.LogRequests)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	// Long enough for an in-flight sync to finish its current writes.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exiting")
}

func registerCatalogs(m *catalog.Manager, cfg *config.Config, appLogger *logger.Logger) {
	if cfg.MockCatalogs {
		appLogger.Warn("Serving mock catalogs")
		for _, mock := range catalog.MockCatalogs() {
			m.Register(mock)
		}
		return
	}

	client := func(p domain.Provider, policy *httpclient.RetryPolicy) *httpclient.Client {
		return httpclient.NewClient(httpclient.Options{
			Name:              string(p),
			Logger:            appLogger,
			Policy:            policy,
			RequestsPerSecond: cfg.ProviderRPS,
		})
	}

	// AniList queries are POSTed GraphQL reads, safe to retry.
	graphql := httpclient.DefaultRetryPolicy().WithMethods(http.MethodPost)

	m.Register(catalog.NewAniList(client(domain.ProviderAniList, &graphql), cfg.AniListURL))
	m.Register(catalog.NewMAL(client(domain.ProviderMAL, nil), cfg.MALURL))
	m.Register(catalog.NewTMDB(client(domain.ProviderTMDB, nil), cfg.TMDBURL, cfg.TMDBAPIKey))
	m.Register(catalog.NewSteam(client(domain.ProviderSteam, nil), cfg.SteamAPIURL, cfg.SteamStoreURL, cfg.SteamAPIKey))
	m.Register(catalog.NewRAWG(client(domain.ProviderRAWG, nil), cfg.RAWGURL, cfg.RAWGAPIKey))
	m.Register(catalog.NewGoogleBooks(client(domain.ProviderGoogleBooks, nil), cfg.GoogleBooksURL, cfg.GoogleBooksAPIKey))
}
