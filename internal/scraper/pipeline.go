package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Pipeline is one unit of work: profile link in, CompanyRecord out.
type Pipeline struct {
	resolver  *ProfileResolver
	extractor *EmailExtractor
	websites  URLFilter
	logger    *zap.Logger
}

// NewPipeline wires resolver and extractor over a shared configuration.
func NewPipeline(cfg Config, contact ContactFetcher, limiter Waiter, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver:  NewProfileResolver(cfg, limiter, logger),
		extractor: NewEmailExtractor(cfg, contact, logger),
		logger:    logger.Named("pipeline"),
	}
}

// SkipWebsites makes Process treat websites matched by f as missing.
func (p *Pipeline) SkipWebsites(f URLFilter) *Pipeline {
	p.websites = f
	return p
}

// Process resolves link and extracts an email from the company's website.
// It returns a record only when both steps succeed.
func (p *Pipeline) Process(ctx context.Context, page Page, link string) (CompanyRecord, error) {
	profile, err := p.resolver.Resolve(ctx, page, link)
	if err != nil {
		return CompanyRecord{}, err
	}
	if p.websites != nil && p.websites.BlocksURL(profile.Website) {
		return CompanyRecord{}, fmt.Errorf("website %s skipped: %w", profile.Website, ErrNoWebsite)
	}
	email, err := p.extractor.Extract(ctx, page, profile.Website)
	if err != nil {
		return CompanyRecord{}, err
	}
	p.logger.Info("contact found",
		zap.String("name", profile.Name),
		zap.String("email", email),
	)
	return CompanyRecord{Name: profile.Name, Country: profile.Country, Email: email}, nil
}
