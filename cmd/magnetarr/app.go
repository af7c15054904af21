package main

import (
	"os"
	"time"

	"github.com/magnetarr/magnetarr/internal/cache"
	"github.com/magnetarr/magnetarr/internal/config"
	"github.com/magnetarr/magnetarr/internal/database"
	"github.com/magnetarr/magnetarr/internal/handlers"
	"github.com/magnetarr/magnetarr/internal/importer"
	"github.com/magnetarr/magnetarr/internal/movieinfo"
	"github.com/magnetarr/magnetarr/internal/providers"
	"github.com/magnetarr/magnetarr/internal/qbittorrent"
	"github.com/magnetarr/magnetarr/internal/search"
	"github.com/magnetarr/magnetarr/internal/tracker"
	"github.com/magnetarr/magnetarr/pkg/httputil"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

var (
	Cfg           *config.Config
	Logger        logger.Logger
	DB            database.Database
	metadataCache *cache.LRUCache
	trackingState *tracker.State
	movieTracker  *tracker.Tracker
	handler       *handlers.Handler
)

func InitializeConfig() {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "."
	}

	cfg, err := config.Load(dir)
	if err != nil {
		// The logger is not up yet.
		panic("failed to load configuration: " + err.Error())
	}
	Cfg = cfg
}

func InitializeLogger() {
	Logger = logger.NewWithLevel(logger.ParseLevel(Cfg.LogLevel))
}

func InitializeDatabase() {
	var err error

	DB, err = database.NewBolt(Cfg.CacheDB)
	if err != nil {
		Logger.Fatalf("failed to initialize database: %v", err)
	}

	Logger.Infof("[app] cache database opened at %s", Cfg.CacheDB)
}

func InitializeServices() {
	metadataCache = cache.New(2048, 6*time.Hour)

	movieClient := movieinfo.New(httputil.NewDefaultHTTPClient(), metadataCache, DB, Logger)
	registry := providers.NewRegistry(httputil.NewDefaultHTTPClient(), Logger)
	searchService := search.New(registry, movieClient, Logger)

	qbt := qbittorrent.New(Cfg.Qbittorrent.URL, Cfg.Qbittorrent.Username, Cfg.Qbittorrent.Password, Logger)

	subtitlePatterns, err := Cfg.SubtitlePatterns()
	if err != nil {
		Logger.Fatalf("failed to compile subtitle patterns: %v", err)
	}
	movieImporter := importer.New(qbt, movieClient, importer.Options{
		RemoteDownloadPath:  Cfg.RemoteDownloadPath,
		LocalDownloadPath:   Cfg.LocalDownloadPath,
		MoviesPath:          Cfg.MoviesPath,
		MaxDepth:            Cfg.ImportMovieMaxDepth,
		SubtitleLanguages:   subtitlePatterns,
		DeleteTorrent:       Cfg.DeleteTorrentAfterImport,
		DeleteFiles:         Cfg.DeleteTorrentFiles,
		CategoryAfterImport: Cfg.CategoryAfterImport,
	}, Logger)

	trackingState = tracker.NewState()
	movieTracker = tracker.New(qbt, movieImporter, trackingState, tracker.Options{
		Disabled:        Cfg.DisableMovieTracking,
		Category:        Cfg.Qbittorrent.Category,
		MinTimeout:      time.Duration(Cfg.MovieTrackingMinTimeout) * time.Second,
		MaxTimeout:      time.Duration(Cfg.MovieTrackingMaxTimeoutActive) * time.Second,
		InactiveTimeout: time.Duration(Cfg.MovieTrackingTimeoutInactive) * time.Second,
	}, Logger)

	handler, err = handlers.New(searchService, movieClient, qbt, trackingState, handlers.Options{
		Category:     Cfg.Qbittorrent.Category,
		DownloadPath: Cfg.RemoteDownloadPath,
		MovieFilters: Cfg.MovieFilters(),
	}, Logger)
	if err != nil {
		Logger.Fatalf("failed to build GraphQL schema: %v", err)
	}

	// The download client may not be up yet; category creation is retried on
	// every add.
	if err := qbt.EnsureCategory(Cfg.Qbittorrent.Category, Cfg.RemoteDownloadPath); err != nil {
		Logger.Warnf("[app] could not ensure download category %q: %v", Cfg.Qbittorrent.Category, err)
	}

	Logger.Infof("[app] services initialized successfully")
}
