// Package collyfetcher fetches contact pages with a plain HTTP collector and
// falls back to the browser session when the response looks like a
// JavaScript shell.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/metrics"
	"github.com/JakeFAU/contact-crawler/internal/scraper"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// PromotionThreshold is the body size below which script-heavy pages are
	// rendered in the browser.
	PromotionThreshold int
}

// Response is the outcome of a static fetch.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher implements scraper.ContactFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	detector      *Heuristic
	browser       scraper.ContactFetcher
	logger        *zap.Logger
}

var _ scraper.ContactFetcher = (*Fetcher)(nil)

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		detector:      NewHeuristic(cfg.PromotionThreshold),
		browser:       scraper.BrowserContactFetcher{},
		logger:        logger.Named("probe"),
	}
}

// FetchContact fetches url statically and returns the body unless the
// detector asks for rendering or the fetch fails, in which case page renders
// it instead.
func (f *Fetcher) FetchContact(ctx context.Context, page scraper.Page, url string) (string, error) {
	resp, err := f.Fetch(ctx, url)
	switch {
	case err != nil:
		f.logger.Debug("probe failed, rendering in browser", zap.String("url", url), zap.Error(err))
	case f.detector.ShouldPromote(resp):
		f.logger.Debug("probe body needs rendering", zap.String("url", url), zap.Int("bytes", len(resp.Body)))
	default:
		metrics.ObserveContactFetch("probe")
		return string(resp.Body), nil
	}
	html, err := f.browser.FetchContact(ctx, page, url)
	if err != nil {
		return "", err
	}
	metrics.ObserveContactFetch("promoted")
	return html, nil
}

// Fetch executes a single HTTP GET using Colly. Non-2xx responses surface
// as errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Response, error) {
	var (
		result   Response
		fetchErr error
	)
	collector := f.buildCollector(&result, &fetchErr)
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return Response{}, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(result *Response, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)
	f.configureCollectorHooks(collector, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *Response, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*result = Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
