package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvdeck/tvdeck/internal/cache"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/proxy"
	"github.com/tvdeck/tvdeck/internal/server"
	"github.com/tvdeck/tvdeck/internal/service"
	"github.com/tvdeck/tvdeck/internal/session"
	"github.com/tvdeck/tvdeck/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use environment variables")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	ctx := context.Background()

	// Pick the store: Postgres when DATABASE_URL is set, otherwise an
	// in-memory store that does not survive restarts.
	var appStore store.Store
	var pg *store.Postgres
	if cfg.DatabaseURL != "" {
		if err := store.WaitForDatabase(cfg.DatabaseURL, 10, 2*time.Second); err != nil {
			log.WithError(err).Fatal("database")
		}
		if err := store.RunMigrations(cfg.DatabaseURL, "file://"+migrationsDir()); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		pg, err = store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database")
		}
		defer pg.Close()
		appStore = pg
		log.Info("postgres connected")
	} else {
		appStore = store.NewMemory()
		log.Warn("DATABASE_URL not set; playlists are kept in memory only")
	}

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis")
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			log.WithError(err).Fatal("redis ping")
		}
		if pg != nil {
			appStore = store.NewCachedStore(pg, rds, log)
		}
		log.Info("redis connected (caching enabled)")
	} else {
		log.Info("redis disabled (REDIS_URL not set)")
	}

	guide := service.NewGuide(rds, cfg.UserAgent, cfg.Timeout, log)
	guide.Restore(ctx)

	rewriter := proxy.New(cfg.ProxyURL, log)
	sessions := session.New(session.NewSinkSurface(), session.Options{
		AutoPlay: cfg.AutoPlay,
		Muted:    cfg.Muted,
		Rewriter: rewriter,
		Logger:   log,
	})
	defer sessions.Destroy()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background workers: periodic guide refresh, and the Redis-backed
	// refresh job queue when Redis is available.
	go runGuideRefresher(ctx, cfg, appStore, guide, log)
	if rds != nil {
		go runRefreshWorker(ctx, rds, appStore, cfg, guide, log)
	}

	srv := server.New(appStore, cfg, guide, sessions, rds, log)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.WithError(err).Fatal("server")
	}
}

// migrationsDir resolves the migrations directory relative to the working
// directory, falling back to the executable's directory.
func migrationsDir() string {
	abs, err := filepath.Abs("migrations")
	if err != nil {
		return "migrations"
	}
	if _, err := os.Stat(abs); err != nil {
		if exe, e := os.Executable(); e == nil {
			return filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	return abs
}

// runGuideRefresher refreshes the program guide on an interval. The guide URL
// comes from the active playlist's x-tvg-url, with EPG_URL as fallback.
func runGuideRefresher(ctx context.Context, cfg *config.Config, s store.Store, guide *service.Guide, log logrus.FieldLogger) {
	ticker := time.NewTicker(cfg.EPGRefreshInterval)
	defer ticker.Stop()

	refresh := func() {
		url := cfg.EPGURL
		if active, err := s.ActivePlaylist(ctx); err == nil && active.EPGURL != "" {
			url = active.EPGURL
		}
		if url == "" {
			return
		}
		if err := guide.Refresh(ctx, url); err != nil {
			log.WithError(err).Warn("guide refresh failed")
		}
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// runRefreshWorker continuously dequeues refresh jobs from Redis and
// processes them. It stops when ctx is cancelled (graceful shutdown).
func runRefreshWorker(ctx context.Context, rds *cache.Redis, s store.Store, cfg *config.Config, guide *service.Guide, log logrus.FieldLogger) {
	log.Info("refresh worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("refresh worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.DefaultQueue, 5*time.Second)
		if err != nil {
			log.WithError(err).Error("refresh worker: dequeue")
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		jobLog := log.WithFields(logrus.Fields{
			"playlist_id": job.PlaylistID,
			"playlist":    job.Name,
		})
		jobLog.Info("refresh worker: processing job")

		if job.EPGOnly {
			if active, err := s.ActivePlaylist(ctx); err == nil && active.EPGURL != "" {
				if err := guide.Refresh(ctx, active.EPGURL); err != nil {
					jobLog.WithError(err).Error("refresh worker: guide refresh")
				}
			}
			continue
		}

		if _, err := service.RefreshPlaylist(ctx, s, job.PlaylistID, cfg.UserAgent, cfg.Timeout, jobLog); err != nil {
			jobLog.WithError(err).Error("refresh worker: playlist refresh")
		}
	}
}
