package cmd

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/api"
	"github.com/JakeFAU/contact-crawler/internal/app"
	"github.com/JakeFAU/contact-crawler/internal/browser"
	"github.com/JakeFAU/contact-crawler/internal/clock/system"
	"github.com/JakeFAU/contact-crawler/internal/config"
	collyfetcher "github.com/JakeFAU/contact-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/contact-crawler/internal/hash/sha256"
	"github.com/JakeFAU/contact-crawler/internal/id/uuid"
	"github.com/JakeFAU/contact-crawler/internal/policy/hostblock"
	"github.com/JakeFAU/contact-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/contact-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/contact-crawler/internal/scraper"
	"github.com/JakeFAU/contact-crawler/internal/storage"
	"github.com/JakeFAU/contact-crawler/internal/storage/gcs"
	"github.com/JakeFAU/contact-crawler/internal/storage/local"
	"github.com/JakeFAU/contact-crawler/internal/storage/postgres"
	"github.com/JakeFAU/contact-crawler/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// services owns everything a run needs and how to release it.
type services struct {
	app     *app.App
	server  *api.Server
	closers []func() error
	logger  *zap.Logger
}

func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *services, err error) {
	svc := &services{logger: logger}
	defer func() {
		if err != nil {
			svc.Close(ctx)
		}
	}()

	scfg := cfg.ScraperSettings()
	factory := browser.NewFactory(cfg.BrowserSettings(), logger)
	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.RateLimit.DirectoryRPS,
		Burst: cfg.RateLimit.Burst,
		Hosts: directoryHosts(cfg),
	})

	var contact scraper.ContactFetcher
	if cfg.Scraper.ContactFetch == config.ContactFetchProbe {
		contact = collyfetcher.New(collyfetcher.Config{
			UserAgent:          cfg.Scraper.UserAgent,
			Timeout:            cfg.Scraper.ProbeTimeout,
			PromotionThreshold: cfg.Scraper.PromotionThresh,
		}, logger)
	}

	pipeline := scraper.NewPipeline(scfg, contact, limiter, logger)
	if skip := hostblock.New(cfg.Scraper.SkipWebsiteHosts); skip != nil {
		pipeline.SkipWebsites(skip)
	}

	opts := app.Options{
		Factory:           factory,
		Collector:         scraper.NewLinkCollector(scfg, limiter, logger),
		Unit:              pipeline.Process,
		Worker:            worker.Config{Workers: cfg.Scraper.Workers, Headless: cfg.Scraper.WorkerHeadless},
		CollectorHeadless: cfg.Scraper.CollectorHeadless,
		LinksPath:         cfg.LinksPath(),
		ContactsPath:      cfg.ContactsPath(),
		Clock:             system.New(),
		IDs:               uuid.New(),
		Logger:            logger,
	}

	blobs, err := svc.blobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if blobs != nil {
		opts.Archiver = storage.NewArchiver(blobs, sha256.New(), cfg.Storage.Prefix)
	}

	if cfg.DB.DSN != "" {
		store, err := postgres.NewContactStore(ctx, postgres.ContactStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, func() error { store.Close(); return nil })
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		opts.Store = store
	}

	if cfg.PubSub.ProjectID != "" {
		pub, err := pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, pub.Close)
		opts.Publisher = pub
	}

	svc.app, err = app.New(opts)
	if err != nil {
		return nil, err
	}

	if cfg.Server.Port > 0 {
		svc.server = api.NewServer(svc.app, logger)
		if _, err := svc.server.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// blobStore picks GCS over a local archive directory. Neither configured
// means datasets are not archived.
func (s *services) blobStore(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	switch {
	case cfg.Storage.GCSBucket != "":
		store, err := gcs.Dial(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	case cfg.Storage.LocalDir != "":
		store, err := local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

// Close stops the status server and releases clients in reverse order.
func (s *services) Close(ctx context.Context) {
	if s.server != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		if err := s.server.Shutdown(sctx); err != nil {
			s.logger.Warn("status server shutdown", zap.Error(err))
		}
		cancel()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close service", zap.Error(err))
		}
	}
	s.closers = nil
}

func directoryHosts(cfg config.Config) []string {
	var hosts []string
	for _, raw := range []string{cfg.Scraper.BaseURL, cfg.Scraper.StartURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts = append(hosts, u.Hostname())
	}
	return hosts
}
