package scraper

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/metrics"
)

// LinkCollector walks a directory category and gathers company profile URLs.
type LinkCollector struct {
	cfg     Config
	cookies *Dismisser
	limiter Waiter
	logger  *zap.Logger
}

// NewLinkCollector wires a collector. limiter may be nil.
func NewLinkCollector(cfg Config, limiter Waiter, logger *zap.Logger) *LinkCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkCollector{
		cfg:     cfg,
		cookies: NewDismisser("cookie", cfg.CookieXPaths, cfg.PageDelay, logger),
		limiter: limiter,
		logger:  logger.Named("collector"),
	}
}

// Collect loads the category root, enumerates its subcategories and pages
// through each, returning every unique profile URL in first-seen order.
//
// A root that fails to load or lists no subcategories aborts with an error.
// Failures inside one subcategory end that subcategory only. When ctx is
// canceled the links gathered so far are returned.
func (c *LinkCollector) Collect(ctx context.Context, page Page) ([]ProfileLink, error) {
	if err := c.navigate(ctx, page, c.cfg.StartURL); err != nil {
		return nil, fmt.Errorf("load category root: %w", err)
	}
	c.cookies.Dismiss(ctx, page)

	subcategories, err := c.subcategories(ctx, page)
	if err != nil {
		return nil, err
	}
	c.logger.Info("subcategories found", zap.Int("count", len(subcategories)))

	links := NewLinkSet()
	for i, sub := range subcategories {
		if ctx.Err() != nil {
			c.logger.Warn("collection canceled", zap.Int("links", links.Len()))
			break
		}
		c.logger.Info("processing subcategory",
			zap.Int("index", i+1),
			zap.Int("total", len(subcategories)),
			zap.String("url", sub),
		)
		c.collectSubcategory(ctx, page, sub, links)
		metrics.SetProfileLinks(links.Len())
	}
	c.logger.Info("link collection finished", zap.Int("links", links.Len()))
	return links.Links(), nil
}

func (c *LinkCollector) subcategories(ctx context.Context, page Page) ([]string, error) {
	if err := page.WaitPresent(ctx, c.cfg.SubcategoryMarker); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSubcategories, err)
	}
	src, err := page.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("read category root: %w", err)
	}
	doc, err := parseDocument(src)
	if err != nil {
		return nil, err
	}
	links := subcategoryLinks(doc, c.cfg.BaseURL, c.cfg.SubcategoryPrefix)
	if len(links) == 0 {
		return nil, ErrNoSubcategories
	}
	return links, nil
}

func (c *LinkCollector) collectSubcategory(ctx context.Context, page Page, sub string, links *LinkSet) {
	logger := c.logger.With(zap.String("subcategory", sub))
	if err := c.navigate(ctx, page, sub); err != nil {
		logger.Warn("subcategory load failed", zap.Error(err))
		return
	}

	for pageNum := 1; ; pageNum++ {
		if c.cfg.MaxPages > 0 && pageNum > c.cfg.MaxPages {
			logger.Info("page cap reached", zap.Int("max_pages", c.cfg.MaxPages))
			return
		}
		if err := page.WaitPresent(ctx, c.cfg.CardSelector); err != nil {
			if errors.Is(err, ErrTimeout) {
				logger.Info("no company cards on page", zap.Int("page", pageNum))
			} else {
				logger.Warn("waiting for company cards failed", zap.Int("page", pageNum), zap.Error(err))
			}
			return
		}
		src, err := page.Source(ctx)
		if err != nil {
			logger.Warn("read listing page failed", zap.Int("page", pageNum), zap.Error(err))
			return
		}
		doc, err := parseDocument(src)
		if err != nil {
			logger.Warn("parse listing page failed", zap.Int("page", pageNum), zap.Error(err))
			return
		}
		metrics.ObserveListingPage()

		cards := companyLinks(doc, c.cfg.CardSelector, c.cfg.BaseURL)
		if len(cards) == 0 {
			logger.Info("no company cards on page", zap.Int("page", pageNum))
			return
		}
		added := 0
		for _, link := range cards {
			if links.Add(link) {
				added++
			}
		}
		logger.Debug("listing page scraped",
			zap.Int("page", pageNum),
			zap.Int("cards", len(cards)),
			zap.Int("new", added),
		)

		switch nextPage(doc, c.cfg.NextSelector) {
		case NextAbsent:
			logger.Info("last page reached", zap.Int("page", pageNum))
			return
		case NextUnknown:
			logger.Warn("pagination state unknown, stopping", zap.Int("page", pageNum))
			return
		}
		if err := page.Click(ctx, c.cfg.NextXPath); err != nil {
			logger.Warn("next page click failed", zap.Int("page", pageNum), zap.Error(err))
			return
		}
		pause(ctx, c.cfg.PageDelay)
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *LinkCollector) navigate(ctx context.Context, page Page, url string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return err
		}
	}
	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}
