package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/config"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/database"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/handler"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/queue"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/repository"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/router"
	queue_publisher "github.com/DATAHOARDERS/UltimaScraperDB/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	rcfg := config.LoadReconcileConfig()
	ccfg := config.LoadMediaCacheConfig()

	registry := database.NewRegistry(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort)
	defer func() { _ = registry.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgmtDB, err := registry.Management(cfg.ManagementDB)
	if err != nil {
		log.Fatalf("management database: %v", err)
	}
	if err := database.ApplyManagementSchema(ctx, mgmtDB); err != nil {
		log.Fatalf("management schema: %v", err)
	}
	mgmt := repository.NewManagementStore(mgmtDB)
	if err := mgmt.EnsureDefaultSites(ctx); err != nil {
		log.Fatalf("seed sites: %v", err)
	}

	var redisClient *redis.Client
	if ccfg.Enabled {
		redisClient = config.NewRedisClient()
		if redisClient == nil {
			log.Printf("redis unavailable, media cache disabled")
		}
	}

	var files engine.FileScanner
	if cfg.DownloadRoot != "" {
		files = &engine.DirScanner{Root: cfg.DownloadRoot}
	}

	sites := handler.Sites{}
	for _, name := range cfg.Sites {
		site, err := mgmt.GetByDBName(ctx, name)
		if err != nil {
			log.Fatalf("site %s: %v", name, err)
		}
		if site == nil {
			log.Fatalf("site %s is not registered", name)
		}
		db, err := registry.Tenant(name)
		if err != nil {
			log.Fatalf("tenant %s: %v", name, err)
		}
		if err := database.ApplyTenantSchema(ctx, db); err != nil {
			log.Fatalf("tenant %s schema: %v", name, err)
		}
		store := repository.NewStore(db)
		notifier := engine.NewNotifier(store.Notifications(), &queue_publisher.NotificationPublisher{Site: name})
		reconciler := engine.NewReconciler(name, store, engine.NewClassifier(files), notifier, engine.Options{
			Fanout:            rcfg.Fanout,
			CheckpointRetries: rcfg.CheckpointRetries,
			// Media ids repeat across sites, so each tenant gets its own
			// key space in the shared Redis instance.
			Cache: engine.NewMediaCache(redisClient, ccfg.Prefix, name, ccfg.TTL),
		})
		sites[name] = &handler.SiteRuntime{
			SiteID:     site.ID,
			Name:       site.Name,
			Store:      store,
			Reconciler: reconciler,
			Scheduler:  engine.NewScheduler(store.Jobs()),
			Notifier:   notifier,
			Ledger:     reconciler.Ledger(),
		}
		log.Printf("site %s ready (id=%d)", name, site.ID)
	}

	// Background consumer mirrors published notification events into
	// logs/notifications.log.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterSites(e, sites)
	router.RegisterJobs(e, sites, mgmt)
	router.RegisterManagement(e, mgmt, cfg.BcryptCost)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
