// Command riptide runs scrape and download passes for the configured
// catalog sites. Sites and their scraper selectors come from a JSON
// definition file; everything else is environment-driven.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/riptidemedia/riptide/internal/config"
	"github.com/riptidemedia/riptide/internal/domain/catalog"
	"github.com/riptidemedia/riptide/internal/downloader"
	"github.com/riptidemedia/riptide/internal/events/nats"
	"github.com/riptidemedia/riptide/internal/hashindex"
	"github.com/riptidemedia/riptide/internal/orchestrator"
	"github.com/riptidemedia/riptide/internal/planner"
	"github.com/riptidemedia/riptide/internal/repository"
	"github.com/riptidemedia/riptide/internal/scraper"
	"github.com/riptidemedia/riptide/internal/scraper/static"
	"github.com/riptidemedia/riptide/internal/storage"
	"github.com/riptidemedia/riptide/pkg/events"
	"github.com/riptidemedia/riptide/pkg/interfaces"
	"github.com/riptidemedia/riptide/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New()
	log.Info("Starting riptide", interfaces.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := openRepository(cfg, log)

	bus := openEventBus(cfg, log)
	defer func() {
		if err := bus.Stop(); err != nil {
			log.Warn("Failed to stop event bus", interfaces.Error(err))
		}
	}()

	hashes := openHashIndex(cfg, log)
	plan := planner.New(hashes, nil)
	dl := downloader.New(cfg.Storage.Root, cfg.Run.MinFreeSpace, log)

	opts := []orchestrator.Option{orchestrator.WithHashIndex(hashes)}
	previews, err := storage.NewLocalStorage(cfg.Storage.PreviewRoot)
	if err != nil {
		log.Fatal("Failed to open preview storage", interfaces.Error(err))
	}
	opts = append(opts, orchestrator.WithPreviewStorage(previews))

	if cfg.Storage.S3Bucket != "" {
		mirror, err := storage.NewS3Storage(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.S3Endpoint)
		if err != nil {
			log.Fatal("Failed to open S3 mirror", interfaces.Error(err))
		}
		opts = append(opts, orchestrator.WithMirror(mirror))
	}

	registry := scraper.NewRegistry()
	sites, err := registerSites(ctx, cfg, repo, registry, log)
	if err != nil {
		log.Fatal("Failed to register sites", interfaces.Error(err))
	}

	orch := orchestrator.New(repo, registry, plan, dl, bus, log, cfg.Run, opts...)

	if err := runPasses(ctx, orch, sites, cfg.Pass, cfg.Run, log); err != nil {
		log.Fatal("Run failed", interfaces.Error(err))
	}
	log.Info("All passes finished")
}

// openRepository connects to Postgres and migrates the schema.
func openRepository(cfg *config.Config, log interfaces.Logger) *repository.GormRepository {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("Failed to connect to database", interfaces.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to access database pool", interfaces.Error(err))
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	repo := repository.NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", interfaces.Error(err))
	}
	return repo
}

// openEventBus picks NATS JetStream when configured, in-memory
// otherwise.
func openEventBus(cfg *config.Config, log interfaces.Logger) interfaces.EventBus {
	if !cfg.NATS.Enabled {
		return events.NewInMemoryEventBus(log)
	}

	bus, err := nats.NewEventBus(cfg.NATS.URL, cfg.NATS.Stream, log)
	if err != nil {
		log.Fatal("Failed to connect to NATS", interfaces.Error(err))
	}
	return bus
}

// openHashIndex picks Redis when configured so concurrent rippers on
// one host share hash history, in-memory otherwise.
func openHashIndex(cfg *config.Config, log interfaces.Logger) hashindex.Index {
	if !cfg.Redis.Enabled {
		return hashindex.NewMemoryIndex()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", interfaces.Error(err))
	}
	return hashindex.NewRedisIndex(client)
}

// registerSites loads the site definition file, ensures the database
// rows exist and binds a static scraper per site. Returns the short
// names this run covers, in file order.
func registerSites(ctx context.Context, cfg *config.Config, repo repository.Repository, registry *scraper.Registry, log interfaces.Logger) ([]string, error) {
	specs, err := loadSiteSpecs(cfg.SitesFile)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(cfg.Pass.Sites))
	for _, s := range cfg.Pass.Sites {
		requested[s] = true
	}

	var sites []string
	for _, spec := range specs {
		if len(requested) > 0 && !requested[spec.ShortName] {
			continue
		}
		if err := ensureSite(ctx, repo, spec); err != nil {
			return nil, err
		}
		registry.Register(spec.ShortName, static.New(spec.Selectors, spec.EphemeralURLs, log))
		sites = append(sites, spec.ShortName)
	}

	log.Info("Sites registered", interfaces.Int("count", len(sites)))
	return sites, nil
}

// runPasses runs the requested pass kinds for each site in turn. A
// failing site is logged and skipped; cancellation ends the run.
func runPasses(ctx context.Context, orch *orchestrator.Orchestrator, sites []string, pass config.PassConfig, run config.RunConfig, log interfaces.Logger) error {
	mode := catalog.ScrapeMode(pass.Mode)
	cond, err := buildConditions(pass, run)
	if err != nil {
		return err
	}

	for _, site := range sites {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if pass.Scrape {
			if _, err := orch.ScrapePass(ctx, site, mode); err != nil {
				if ctx.Err() != nil {
					return err
				}
				log.Error("Scrape pass failed",
					interfaces.String("site", site),
					interfaces.Error(err))
				continue
			}
		}

		if pass.Download {
			if _, err := orch.DownloadPass(ctx, site, cond); err != nil {
				if ctx.Err() != nil {
					return err
				}
				log.Error("Download pass failed",
					interfaces.String("site", site),
					interfaces.Error(err))
			}
		}
	}
	return nil
}

// buildConditions parses the string-typed pass filters.
func buildConditions(pass config.PassConfig, run config.RunConfig) (catalog.DownloadConditions, error) {
	cond := catalog.DownloadConditions{
		Performer:    pass.Performer,
		Quality:      catalog.QualityPolicy(pass.Quality),
		MaxDownloads: run.MaxDownloads,
	}

	const layout = "2006-01-02"
	if pass.From != "" {
		from, err := time.Parse(layout, pass.From)
		if err != nil {
			return cond, err
		}
		cond.From = from
	}
	if pass.To != "" {
		to, err := time.Parse(layout, pass.To)
		if err != nil {
			return cond, err
		}
		cond.To = to
	}
	return cond, nil
}
