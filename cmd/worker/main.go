package main // Background worker: periodic queue sweeps and registry upkeep

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/config"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/database"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/repository"
)

// site bundles what one sweep needs for a tenant.
type site struct {
	record    *model.Site
	store     *repository.Store
	media     *repository.MediaRepo
	scheduler *engine.Scheduler
	notifier  *engine.Notifier
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	rcfg := config.LoadReconcileConfig()

	registry := database.NewRegistry(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort)
	defer func() { _ = registry.Close() }()

	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgmtDB, err := registry.Management(cfg.ManagementDB)
	if err != nil {
		log.Fatalf("management database: %v", err)
	}
	mgmt := repository.NewManagementStore(mgmtDB)

	server, err := mgmt.GetServer(bootCtx, cfg.ServerName)
	if err != nil {
		log.Fatalf("server %s: %v", cfg.ServerName, err)
	}
	if server == nil {
		server = &model.Server{Name: cfg.ServerName, JobLimit: 1, Active: true}
		if err := mgmt.SaveServer(bootCtx, server); err != nil {
			log.Fatalf("register server %s: %v", cfg.ServerName, err)
		}
		log.Printf("registered server %s (id=%d)", server.Name, server.ID)
	}

	sites := map[string]*site{}
	for _, name := range cfg.Sites {
		record, err := mgmt.GetByDBName(bootCtx, name)
		if err != nil || record == nil {
			log.Fatalf("site %s: missing registration (%v)", name, err)
		}
		db, err := registry.Tenant(name)
		if err != nil {
			log.Fatalf("tenant %s: %v", name, err)
		}
		store := repository.NewStore(db)
		sites[name] = &site{
			record:    record,
			store:     store,
			media:     repository.NewMediaRepo(db),
			scheduler: engine.NewScheduler(store.Jobs()),
			notifier:  engine.NewNotifier(store.Notifications(), nil),
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(rcfg.WorkerSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), rcfg.ItemTimeout)
		defer cancel()
		for name, s := range sites {
			sweepJobs(ctx, name, s, server.ID)
			rollUpSize(ctx, name, s, mgmt)
		}
	}); err != nil {
		log.Fatalf("worker schedule %q: %v", rcfg.WorkerSchedule, err)
	}
	if _, err := c.AddFunc(rcfg.NotifySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		for name, s := range sites {
			reportPending(ctx, name, s)
		}
	}); err != nil {
		log.Fatalf("notify schedule %q: %v", rcfg.NotifySchedule, err)
	}

	log.Printf("worker running as server %s (jobs %s, notifications %s)",
		server.Name, rcfg.WorkerSchedule, rcfg.NotifySchedule)
	c.Run()
}

// sweepJobs logs the head of the site's queue for this server so operators
// can see what the scrape clients should pick up next.
func sweepJobs(ctx context.Context, name string, s *site, serverID int64) {
	jobs, err := s.scheduler.Queue(ctx, s.record.ID, engine.JobFilter{ServerID: serverID, Limit: 10})
	if err != nil {
		log.Printf("sweep %s: list jobs: %v", name, err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	next := jobs[0]
	log.Printf("sweep %s: %d active jobs, next %s for %s (id=%d, priority=%t)",
		name, len(jobs), next.Category, next.Username, next.UserID, next.Priority)
}

// rollUpSize refreshes the site's archived-byte total in the management
// registry from the tenant's media table.
func rollUpSize(ctx context.Context, name string, s *site, mgmt *repository.ManagementStore) {
	size, err := s.media.TotalSize(ctx)
	if err != nil {
		log.Printf("sweep %s: total size: %v", name, err)
		return
	}
	if size == s.record.Size {
		return
	}
	s.record.Size = size
	if err := mgmt.Save(ctx, s.record); err != nil {
		log.Printf("sweep %s: save site size: %v", name, err)
		return
	}
	log.Printf("sweep %s: archive size now %d bytes", name, size)
}

// reportPending logs undelivered notification counts per channel.
func reportPending(ctx context.Context, name string, s *site) {
	for _, channel := range []string{model.ChannelDiscord, model.ChannelTelegram} {
		rows, err := s.notifier.Pending(ctx, channel, 1)
		if err != nil {
			log.Printf("notify %s: pending %s: %v", name, channel, err)
			continue
		}
		if len(rows) > 0 {
			log.Printf("notify %s: %d undelivered on %s", name, len(rows), channel)
		}
	}
}
