package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/metrics"
)

// Dismisser clicks away blocking overlays such as cookie banners and age
// gates. Failing to dismiss is never fatal; callers only log the Outcome.
type Dismisser struct {
	kind   string
	xpaths []string
	settle time.Duration
	logger *zap.Logger
}

// NewDismisser builds a Dismisser for the given control XPaths. kind labels
// logs and metrics ("cookie", "age_gate"). settle is the pause after a
// successful click.
func NewDismisser(kind string, xpaths []string, settle time.Duration, logger *zap.Logger) *Dismisser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dismisser{
		kind:   kind,
		xpaths: append([]string(nil), xpaths...),
		settle: settle,
		logger: logger.With(zap.String("overlay", kind)),
	}
}

// Dismiss waits up to the page's wait timeout for any of the controls to
// become visible and clicks the first match. All variants share one wait.
func (d *Dismisser) Dismiss(ctx context.Context, page Page) Outcome {
	if len(d.xpaths) == 0 {
		return d.record(OutcomeNotFound)
	}
	union := strings.Join(d.xpaths, " | ")
	err := page.Click(ctx, union)
	switch {
	case err == nil:
		d.logger.Info("overlay dismissed")
		pause(ctx, d.settle)
		return d.record(OutcomeSucceeded)
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNotFound):
		d.logger.Info("overlay not found or already dismissed")
		return d.record(OutcomeNotFound)
	default:
		d.logger.Warn("overlay dismissal failed", zap.Error(err))
		return d.record(OutcomeFailed)
	}
}

// DismissImmediate checks each control in order without waiting and clicks
// the first one present. Probe errors are skipped.
func (d *Dismisser) DismissImmediate(ctx context.Context, page Page) Outcome {
	for _, xp := range d.xpaths {
		ok, err := page.Exists(ctx, xp)
		if err != nil {
			d.logger.Debug("overlay probe failed", zap.String("xpath", xp), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if err := page.Click(ctx, xp); err != nil {
			d.logger.Debug("overlay click failed", zap.String("xpath", xp), zap.Error(err))
			return d.record(OutcomeFailed)
		}
		pause(ctx, d.settle)
		return d.record(OutcomeSucceeded)
	}
	return d.record(OutcomeNotFound)
}

func (d *Dismisser) record(o Outcome) Outcome {
	metrics.ObserveDismissal(d.kind, o.String())
	return o
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
