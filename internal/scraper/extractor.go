package scraper

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/metrics"
)

// statusReporter is implemented by pages that know the HTTP status of the
// last navigated document.
type statusReporter interface {
	LastStatus() int
}

// BrowserContactFetcher renders the contact page in the unit's own session.
type BrowserContactFetcher struct{}

// FetchContact navigates page to url and returns its source. Error statuses
// are rejected so a 404 template does not contribute addresses.
func (BrowserContactFetcher) FetchContact(ctx context.Context, page Page, url string) (string, error) {
	if err := page.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("load contact page: %w", err)
	}
	if sr, ok := page.(statusReporter); ok {
		if code := sr.LastStatus(); code >= 400 {
			return "", fmt.Errorf("contact page returned status %d", code)
		}
	}
	src, err := page.Source(ctx)
	if err != nil {
		return "", fmt.Errorf("read contact page: %w", err)
	}
	metrics.ObserveContactFetch("browser")
	return src, nil
}

// EmailExtractor finds a contact address on a company website.
type EmailExtractor struct {
	cfg     Config
	ageGate *Dismisser
	contact ContactFetcher
	logger  *zap.Logger
}

// NewEmailExtractor wires an extractor. A nil contact fetcher falls back to
// BrowserContactFetcher.
func NewEmailExtractor(cfg Config, contact ContactFetcher, logger *zap.Logger) *EmailExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if contact == nil {
		contact = BrowserContactFetcher{}
	}
	return &EmailExtractor{
		cfg:     cfg,
		ageGate: NewDismisser("age_gate", cfg.AgeGateXPaths, cfg.PageDelay, logger),
		contact: contact,
		logger:  logger.Named("extractor"),
	}
}

// Extract loads website, clears an age gate if one is showing, then scans
// the landing page and the guessed contact page for addresses. A contact
// page that fails to load is ignored. ErrNoEmail is returned when no
// acceptable address was found.
func (e *EmailExtractor) Extract(ctx context.Context, page Page, website string) (string, error) {
	if err := page.Navigate(ctx, website); err != nil {
		return "", fmt.Errorf("load website: %w", err)
	}
	e.ageGate.DismissImmediate(ctx, page)

	landing, err := page.Source(ctx)
	if err != nil {
		return "", fmt.Errorf("read website: %w", err)
	}
	var text strings.Builder
	text.WriteString(landing)

	contactURL := ContactURL(website, e.cfg.ContactPath)
	if html, err := e.contact.FetchContact(ctx, page, contactURL); err != nil {
		e.logger.Debug("contact page unavailable", zap.String("url", contactURL), zap.Error(err))
	} else {
		text.WriteString(html)
	}

	email, ok := SelectEmail(FindCandidates(text.String()))
	if !ok {
		return "", ErrNoEmail
	}
	return email, nil
}
