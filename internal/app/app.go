// Package app runs the two crawl phases and the bookkeeping around them:
// link checkpointing, the contacts dataset, archiving, persistence and the
// completion notification.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/clock/system"
	"github.com/JakeFAU/contact-crawler/internal/id/uuid"
	"github.com/JakeFAU/contact-crawler/internal/logging"
	"github.com/JakeFAU/contact-crawler/internal/metrics"
	"github.com/JakeFAU/contact-crawler/internal/scraper"
	"github.com/JakeFAU/contact-crawler/internal/sink"
	"github.com/JakeFAU/contact-crawler/internal/storage"
	"github.com/JakeFAU/contact-crawler/internal/worker"
)

// EventRunCompleted is the event name published when a run finishes.
const EventRunCompleted = "run_completed"

const defaultFinishTimeout = 30 * time.Second

// LinkCollector gathers profile links with a single page.
type LinkCollector interface {
	Collect(ctx context.Context, page scraper.Page) ([]string, error)
}

// Archiver uploads finished datasets.
type Archiver interface {
	Archive(ctx context.Context, runID string, files ...string) ([]storage.Artifact, error)
}

// ContactStore persists contacts across runs.
type ContactStore interface {
	SaveContacts(ctx context.Context, runID string, records []scraper.CompanyRecord, seenAt time.Time) (int, error)
}

// Publisher announces run events.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) (string, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Options wires an App. Factory, Collector and Unit are required for the
// phases that use them; Archiver, Store and Publisher are optional.
type Options struct {
	Factory           scraper.SessionFactory
	Collector         LinkCollector
	Unit              worker.UnitFunc
	Worker            worker.Config
	CollectorHeadless bool

	LinksPath    string
	ContactsPath string

	Archiver  Archiver
	Store     ContactStore
	Publisher Publisher

	Clock         Clock
	IDs           IDGenerator
	FinishTimeout time.Duration
	Logger        *zap.Logger
}

// App executes runs and exposes the status of the current one.
type App struct {
	opts   Options
	logger *zap.Logger

	mu     sync.RWMutex
	status RunStatus
}

// New validates opts and fills defaults.
func New(opts Options) (*App, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if opts.LinksPath == "" || opts.ContactsPath == "" {
		return nil, fmt.Errorf("links and contacts paths are required")
	}
	if opts.Clock == nil {
		opts.Clock = system.New()
	}
	if opts.IDs == nil {
		opts.IDs = uuid.New()
	}
	if opts.FinishTimeout <= 0 {
		opts.FinishTimeout = defaultFinishTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		opts:   opts,
		logger: logger.Named("app"),
		status: RunStatus{Phase: PhaseIdle, Outcomes: map[string]int{}},
	}, nil
}

// Status returns a snapshot of the current or last run.
func (a *App) Status() RunStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status.clone()
}

// Run collects profile links, checkpoints them, resolves them into
// contacts and finishes the run.
func (a *App) Run(ctx context.Context) (RunStatus, error) {
	logger, err := a.begin()
	if err != nil {
		return a.Status(), err
	}
	links, err := a.collect(ctx, logger)
	if err != nil {
		return a.fail(err), err
	}
	if len(links) == 0 {
		logger.Warn("no profile links collected, leaving existing outputs untouched")
		return a.finish(ctx, logger, nil), nil
	}
	files := a.checkpoint(links, logger)
	files = append(files, a.resolve(ctx, links, logger)...)
	return a.finish(ctx, logger, files), nil
}

// Collect runs the link collection phase and writes the checkpoint only.
func (a *App) Collect(ctx context.Context) (RunStatus, error) {
	logger, err := a.begin()
	if err != nil {
		return a.Status(), err
	}
	links, err := a.collect(ctx, logger)
	if err != nil {
		return a.fail(err), err
	}
	if len(links) == 0 {
		logger.Warn("no profile links collected, leaving existing checkpoint untouched")
		return a.finish(ctx, logger, nil), nil
	}
	files := a.checkpoint(links, logger)
	return a.finish(ctx, logger, files), nil
}

// Resolve runs the resolution phase over previously collected links.
func (a *App) Resolve(ctx context.Context, links []string) (RunStatus, error) {
	logger, err := a.begin()
	if err != nil {
		return a.Status(), err
	}
	a.update(func(s *RunStatus) { s.LinksCollected = len(links) })
	files := a.resolve(ctx, links, logger)
	return a.finish(ctx, logger, files), nil
}

func (a *App) begin() (*zap.Logger, error) {
	runID, err := a.opts.IDs.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	a.mu.Lock()
	a.status = RunStatus{
		RunID:     runID,
		Phase:     PhaseCollecting,
		StartedAt: a.opts.Clock.Now(),
		Outcomes:  map[string]int{},
	}
	a.mu.Unlock()
	logger := logging.ForRun(a.logger, runID)
	logger.Info("run started")
	return logger, nil
}

// collect drives phase one in a single session. A directory that yields no
// subcategories, or cannot be loaded at all, ends the phase with no links.
func (a *App) collect(ctx context.Context, logger *zap.Logger) ([]string, error) {
	if a.opts.Collector == nil {
		return nil, fmt.Errorf("link collector is not configured")
	}
	a.setPhase(PhaseCollecting)

	session, err := a.opts.Factory.NewSession(ctx, a.opts.CollectorHeadless)
	if err != nil {
		metrics.ObserveSessionLaunchFailure()
		return nil, fmt.Errorf("start collector session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Debug("collector session close failed", zap.Error(cerr))
		}
	}()

	links, err := a.opts.Collector.Collect(ctx, session)
	switch {
	case errors.Is(err, scraper.ErrNoSubcategories):
		logger.Warn("directory has no subcategories")
		a.recordError(err)
		links = nil
	case err != nil:
		logger.Error("link collection failed", zap.Error(err))
		a.recordError(err)
		links = nil
	}
	a.update(func(s *RunStatus) { s.LinksCollected = len(links) })
	logger.Info("link collection finished", zap.Int("links", len(links)))
	return links, nil
}

// checkpoint writes the collected links. A write failure is logged and the
// run continues with the in-memory list.
func (a *App) checkpoint(links []string, logger *zap.Logger) []string {
	if err := sink.WriteLinks(a.opts.LinksPath, links); err != nil {
		logger.Error("write links checkpoint", zap.String("path", a.opts.LinksPath), zap.Error(err))
		a.recordError(err)
		return nil
	}
	logger.Info("links checkpoint written", zap.String("path", a.opts.LinksPath), zap.Int("links", len(links)))
	return []string{a.opts.LinksPath}
}

// resolve drives phase two and writes the contacts dataset. It returns the
// files it wrote.
func (a *App) resolve(ctx context.Context, links []string, logger *zap.Logger) []string {
	if a.opts.Unit == nil {
		a.recordError(fmt.Errorf("resolution unit is not configured"))
		return nil
	}
	a.setPhase(PhaseResolving)

	pool := worker.New(a.opts.Worker, a.opts.Factory, a.opts.Unit, logger)
	pool.OnResult(a.observe)
	results := pool.Run(ctx, links)

	records := make([]scraper.CompanyRecord, 0, len(results))
	for _, res := range results {
		if res.OK() {
			records = append(records, res.Record)
		}
	}
	unique := sink.DedupeByEmail(records)
	if len(unique) == 0 {
		logger.Warn("no contacts found, leaving existing contacts file untouched",
			zap.Int("processed", len(results)))
		return nil
	}

	var files []string
	written, err := sink.WriteContacts(a.opts.ContactsPath, unique)
	if err != nil {
		logger.Error("write contacts", zap.String("path", a.opts.ContactsPath), zap.Error(err))
		a.recordError(err)
	} else {
		files = append(files, a.opts.ContactsPath)
		metrics.SetContactsWritten(written)
		logger.Info("contacts written",
			zap.String("path", a.opts.ContactsPath),
			zap.Int("records", len(records)),
			zap.Int("unique", written),
		)
	}
	a.update(func(s *RunStatus) { s.ContactsWritten = written })

	a.persist(ctx, unique, logger)
	return files
}

func (a *App) persist(ctx context.Context, records []scraper.CompanyRecord, logger *zap.Logger) {
	if a.opts.Store == nil || len(records) == 0 {
		return
	}
	ctx, cancel := a.finishContext(ctx)
	defer cancel()

	runID := a.Status().RunID
	stored, err := a.opts.Store.SaveContacts(ctx, runID, records, a.opts.Clock.Now())
	if err != nil {
		logger.Error("persist contacts", zap.Error(err))
		a.recordError(err)
	}
	a.update(func(s *RunStatus) { s.ContactsStored = stored })
	logger.Info("contacts persisted", zap.Int("new", stored), zap.Int("offered", len(records)))
}

// finish archives files, publishes the summary and marks the run done.
// These steps still run after ctx is canceled so an interrupted run leaves
// its datasets behind.
func (a *App) finish(ctx context.Context, logger *zap.Logger, files []string) RunStatus {
	a.setPhase(PhaseFinishing)
	ctx, cancel := a.finishContext(ctx)
	defer cancel()

	runID := a.Status().RunID
	if a.opts.Archiver != nil && len(files) > 0 {
		artifacts, err := a.opts.Archiver.Archive(ctx, runID, files...)
		if err != nil {
			logger.Error("archive datasets", zap.Error(err))
			a.recordError(err)
		}
		a.update(func(s *RunStatus) { s.Artifacts = artifacts })
		for _, art := range artifacts {
			logger.Info("dataset archived", zap.String("name", art.Name), zap.String("uri", art.URI))
		}
	}

	a.update(func(s *RunStatus) {
		s.Phase = PhaseDone
		now := a.opts.Clock.Now()
		s.FinishedAt = &now
	})
	final := a.Status()

	if a.opts.Publisher != nil {
		id, err := a.opts.Publisher.Publish(ctx, EventRunCompleted, final)
		if err != nil {
			logger.Error("publish run summary", zap.Error(err))
		} else {
			logger.Info("run summary published", zap.String("message_id", id))
		}
	}

	logger.Info("run finished",
		zap.Int("links", final.LinksCollected),
		zap.Int("processed", final.Processed),
		zap.Int("contacts", final.ContactsWritten),
		zap.Duration("elapsed", final.FinishedAt.Sub(final.StartedAt)),
	)
	return final
}

func (a *App) fail(err error) RunStatus {
	a.update(func(s *RunStatus) {
		s.Phase = PhaseFailed
		s.Errors = append(s.Errors, err.Error())
		now := a.opts.Clock.Now()
		s.FinishedAt = &now
	})
	return a.Status()
}

func (a *App) finishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), a.opts.FinishTimeout)
}

func (a *App) observe(res worker.Result) {
	a.update(func(s *RunStatus) {
		s.Processed++
		s.Outcomes[res.Outcome()]++
	})
}

func (a *App) setPhase(p Phase) {
	a.update(func(s *RunStatus) { s.Phase = p })
}

func (a *App) recordError(err error) {
	a.update(func(s *RunStatus) { s.Errors = append(s.Errors, err.Error()) })
}

func (a *App) update(fn func(*RunStatus)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.status)
}
