package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// fakePage serves canned HTML by URL. Waits succeed when the selector
// matches the current document and time out otherwise.
type fakePage struct {
	mu       sync.Mutex
	pages    map[string]string
	navErr   map[string]error
	present  map[string]bool
	existErr map[string]error
	clicks   map[string]func(p *fakePage) error
	current  string
	visited  []string
	clicked  []string
}

func newFakePage(pages map[string]string) *fakePage {
	return &fakePage{
		pages:    pages,
		navErr:   map[string]error{},
		present:  map[string]bool{},
		existErr: map[string]error{},
		clicks:   map[string]func(p *fakePage) error{},
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	if err := p.navErr[url]; err != nil {
		return err
	}
	if _, ok := p.pages[url]; !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	p.current = url
	return nil
}

func (p *fakePage) WaitPresent(_ context.Context, css string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.match(css)
}

func (p *fakePage) WaitVisible(_ context.Context, css string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.match(css)
}

func (p *fakePage) match(css string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.pages[p.current]))
	if err != nil {
		return err
	}
	if doc.Find(css).Length() == 0 {
		return fmt.Errorf("waiting for %q: %w", css, ErrTimeout)
	}
	return nil
}

func (p *fakePage) Source(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages[p.current], nil
}

func (p *fakePage) Exists(_ context.Context, xpath string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.existErr[xpath]; err != nil {
		return false, err
	}
	return p.present[xpath], nil
}

func (p *fakePage) Click(_ context.Context, xpath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn, ok := p.clicks[xpath]; ok {
		if err := fn(p); err != nil {
			return err
		}
		p.clicked = append(p.clicked, xpath)
		return nil
	}
	if p.present[xpath] {
		p.clicked = append(p.clicked, xpath)
		return nil
	}
	return fmt.Errorf("click %q: %w", xpath, ErrTimeout)
}

func (p *fakePage) Close() error { return nil }

func (p *fakePage) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

func (p *fakePage) Clicked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicked...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StartURL = "https://dir.test/bs/wines"
	cfg.BaseURL = "https://dir.test"
	cfg.PageDelay = 0
	return cfg
}
