// Package browser launches isolated Chrome sessions through chromedp and
// exposes them as scraper.Page implementations.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/metrics"
	"github.com/JakeFAU/contact-crawler/internal/scraper"
)

const (
	defaultPageLoadTimeout = 45 * time.Second
	defaultWaitTimeout     = 10 * time.Second
	defaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.102 Safari/537.36"
)

// hideWebdriver runs before any page script so navigator.webdriver reads as
// undefined.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// Config controls how sessions are launched.
type Config struct {
	UserAgent       string
	WindowWidth     int
	WindowHeight    int
	PageLoadTimeout time.Duration
	WaitTimeout     time.Duration
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	if c.PageLoadTimeout <= 0 {
		c.PageLoadTimeout = defaultPageLoadTimeout
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = defaultWaitTimeout
	}
	return c
}

// Factory launches one browser process per session.
type Factory struct {
	cfg    Config
	logger *zap.Logger
}

// NewFactory returns a Factory with defaults applied.
func NewFactory(cfg Config, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{cfg: cfg.withDefaults(), logger: logger.Named("browser")}
}

func (f *Factory) allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("enable-logging", false),
		chromedp.WindowSize(f.cfg.WindowWidth, f.cfg.WindowHeight),
		chromedp.UserAgent(f.cfg.UserAgent),
	)
	if f.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ExecPath))
	}
	return opts
}

// NewSession starts a fresh browser, hides the webdriver flag and returns
// its first tab. The caller must Close the session.
func (f *Factory) NewSession(ctx context.Context, headless bool) (scraper.Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), f.allocatorOptions(headless)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	meta := &documentMeta{}
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	// The first Run starts the browser; it must not carry a deadline or the
	// browser dies with it. Parent cancellation is forwarded instead.
	stop := forwardCancel(ctx, cancelTab)
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
	)
	stop()
	if err != nil {
		cancelTab()
		cancelAlloc()
		metrics.ObserveSessionLaunchFailure()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	f.logger.Debug("browser session started", zap.Bool("headless", headless))

	return &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		loadTimeout: f.cfg.PageLoadTimeout,
		waitTimeout: f.cfg.WaitTimeout,
		meta:        meta,
		logger:      f.logger,
	}, nil
}

// Session is a single Chrome tab. Calls are bounded by the configured page
// load or wait timeout and by the caller's context.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	loadTimeout time.Duration
	waitTimeout time.Duration
	meta        *documentMeta
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ scraper.Session = (*Session)(nil)

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.meta.reset()
	return s.run(ctx, "navigate", s.loadTimeout, chromedp.Navigate(url))
}

// WaitPresent waits until css matches a node in the DOM.
func (s *Session) WaitPresent(ctx context.Context, css string) error {
	return s.run(ctx, "wait present", s.waitTimeout, chromedp.WaitReady(css, chromedp.ByQuery))
}

// WaitVisible waits until css matches a visible node.
func (s *Session) WaitVisible(ctx context.Context, css string) error {
	return s.run(ctx, "wait visible", s.waitTimeout, chromedp.WaitVisible(css, chromedp.ByQuery))
}

// Source returns the serialized document.
func (s *Session) Source(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, "read source", s.waitTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Exists reports whether xpath currently matches without waiting for it.
func (s *Session) Exists(ctx context.Context, xpath string) (bool, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, "probe", s.waitTimeout, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// Click waits for xpath to be visible and clicks it.
func (s *Session) Click(ctx context.Context, xpath string) error {
	return s.run(ctx, "click", s.waitTimeout, chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible))
}

// LastStatus returns the HTTP status of the last navigated document, or
// zero when it is unknown.
func (s *Session) LastStatus() int {
	return s.meta.status()
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.cancelTab()
		s.cancelAlloc()
		s.logger.Debug("browser session closed")
	})
	return s.closeErr
}

func (s *Session) run(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	return wrapRunError(runCtx, op, timeout, chromedp.Run(runCtx, actions...))
}

// wrapRunError maps an expired runCtx to scraper.ErrTimeout so callers can
// tell a bounded wait from a browser failure.
func wrapRunError(runCtx context.Context, op string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %s", op, scraper.ErrTimeout, timeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

type documentMeta struct {
	mu         sync.Mutex
	statusCode int
}

func (m *documentMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *documentMeta) reset() {
	m.mu.Lock()
	m.statusCode = 0
	m.mu.Unlock()
}

func (m *documentMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode
}
