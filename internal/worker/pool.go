// Package worker runs resolve-and-extract units across a fixed pool of
// browser-backed workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/metrics"
	"github.com/JakeFAU/contact-crawler/internal/scraper"
)

// ErrUnitPanic wraps a panic recovered at the unit boundary.
var ErrUnitPanic = errors.New("unit panicked")

// Outcome labels used for logs and metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeNoWebsite = "no_website"
	OutcomeNoEmail   = "no_email"
	OutcomeFailed    = "failed"
)

// Config controls pool behavior.
type Config struct {
	Workers  int
	Headless bool
}

// UnitFunc turns one profile link into a record using page.
type UnitFunc func(ctx context.Context, page scraper.Page, link string) (scraper.CompanyRecord, error)

// Result is what a unit produced for one link.
type Result struct {
	Link     string
	Record   scraper.CompanyRecord
	Err      error
	Duration time.Duration
}

// OK reports whether the unit produced a record.
func (r Result) OK() bool {
	return r.Err == nil
}

// Outcome classifies the result for logs and metrics.
func (r Result) Outcome() string {
	switch {
	case r.Err == nil:
		return OutcomeSuccess
	case errors.Is(r.Err, scraper.ErrNoWebsite):
		return OutcomeNoWebsite
	case errors.Is(r.Err, scraper.ErrNoEmail):
		return OutcomeNoEmail
	default:
		return OutcomeFailed
	}
}

// Pool fans links out to workers. Each unit runs in a browser session of its
// own that is closed when the unit ends, whatever the outcome.
type Pool struct {
	cfg      Config
	factory  scraper.SessionFactory
	unit     UnitFunc
	onResult func(Result)
	logger   *zap.Logger
}

// New constructs a Pool. Workers below one are raised to one.
func New(cfg Config, factory scraper.SessionFactory, unit UnitFunc, logger *zap.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{cfg: cfg, factory: factory, unit: unit, logger: logger.Named("pool")}
}

// OnResult registers fn to observe each result as it completes. fn runs on
// the goroutine that called Run.
func (p *Pool) OnResult(fn func(Result)) {
	p.onResult = fn
}

// Run processes links and returns every result in completion order. Once
// ctx is canceled no further links are dispatched; units in flight finish
// on their own timeouts.
func (p *Pool) Run(ctx context.Context, links []string) []Result {
	jobs := make(chan string)
	results := make(chan Result, p.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger := p.logger.With(zap.Int("worker", id))
			for link := range jobs {
				results <- p.runUnit(ctx, link, logger)
			}
		}(i + 1)
	}

	go func() {
		defer close(jobs)
		for _, link := range links {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- link:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, 0, len(links))
	for res := range results {
		out = append(out, res)
		if p.onResult != nil {
			p.onResult(res)
		}
	}
	if len(out) < len(links) {
		p.logger.Warn("pool stopped early", zap.Int("dispatched", len(out)), zap.Int("total", len(links)))
	}
	return out
}

func (p *Pool) runUnit(ctx context.Context, link string, logger *zap.Logger) Result {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := time.Now()
	res := Result{Link: link}
	res.Err = p.withSession(ctx, func(page scraper.Page) error {
		rec, err := p.unit(ctx, page, link)
		if err != nil {
			return err
		}
		res.Record = rec
		return nil
	})
	res.Duration = time.Since(start)
	outcome := res.Outcome()
	metrics.ObserveUnit(outcome, res.Duration)

	fields := []zap.Field{zap.String("link", link), zap.String("outcome", outcome), zap.Duration("duration", res.Duration)}
	switch outcome {
	case OutcomeSuccess:
		logger.Debug("unit finished", fields...)
	case OutcomeFailed:
		logger.Warn("unit failed", append(fields, zap.Error(res.Err))...)
	default:
		logger.Info("unit yielded no contact", append(fields, zap.Error(res.Err))...)
	}
	return res
}

// withSession scopes a browser session to fn. The session is closed on every
// exit path and a panic in the launch or in fn becomes ErrUnitPanic.
func (p *Pool) withSession(ctx context.Context, fn func(scraper.Page) error) (err error) {
	var session scraper.Session
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnitPanic, r)
		}
		if session == nil {
			return
		}
		if cerr := session.Close(); cerr != nil {
			p.logger.Debug("session close failed", zap.Error(cerr))
		}
	}()

	session, err = p.factory.NewSession(ctx, p.cfg.Headless)
	if err != nil {
		session = nil
		return fmt.Errorf("start session: %w", err)
	}
	return fn(session)
}
