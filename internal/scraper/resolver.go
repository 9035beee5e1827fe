package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ProfileResolver reads company details from a directory profile page.
type ProfileResolver struct {
	cfg     Config
	limiter Waiter
	logger  *zap.Logger
}

// NewProfileResolver wires a resolver. limiter may be nil.
func NewProfileResolver(cfg Config, limiter Waiter, logger *zap.Logger) *ProfileResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileResolver{cfg: cfg, limiter: limiter, logger: logger.Named("resolver")}
}

// Resolve opens link, waits for the company name to render and parses the
// profile. A profile without a website link yields ErrNoWebsite.
func (r *ProfileResolver) Resolve(ctx context.Context, page Page, link string) (Profile, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, link); err != nil {
			return Profile{}, err
		}
	}
	if err := page.Navigate(ctx, link); err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if err := page.WaitVisible(ctx, r.cfg.NameSelector); err != nil {
		return Profile{}, fmt.Errorf("wait for company name: %w", err)
	}
	src, err := page.Source(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	doc, err := parseDocument(src)
	if err != nil {
		return Profile{}, err
	}
	profile, err := parseProfile(doc, r.cfg, link)
	if err != nil {
		return profile, err
	}
	r.logger.Debug("profile resolved",
		zap.String("profile", link),
		zap.String("name", profile.Name),
		zap.String("website", profile.Website),
	)
	return profile, nil
}
