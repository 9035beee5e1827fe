package scraper

import "context"

// Page is the browser surface the stages drive. WaitPresent and WaitVisible
// take CSS selectors; Exists and Click take XPath expressions. Waits and
// clicks are bounded by the implementation's wait timeout and report
// ErrTimeout when it elapses.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitPresent(ctx context.Context, css string) error
	WaitVisible(ctx context.Context, css string) error
	Source(ctx context.Context) (string, error)
	// Exists reports whether xpath matches right now, without waiting.
	Exists(ctx context.Context, xpath string) (bool, error)
	// Click waits for xpath to become visible and clicks the first match.
	Click(ctx context.Context, xpath string) error
}

// Session is a Page owned by its own browser instance.
type Session interface {
	Page
	Close() error
}

// SessionFactory launches isolated browser sessions.
type SessionFactory interface {
	NewSession(ctx context.Context, headless bool) (Session, error)
}

// ContactFetcher returns the markup of a guessed contact page. The page is
// the unit's own session and may be used to render the URL.
type ContactFetcher interface {
	FetchContact(ctx context.Context, page Page, url string) (string, error)
}

// Waiter throttles navigation per host.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// URLFilter rejects URLs that should not be visited.
type URLFilter interface {
	BlocksURL(rawURL string) bool
}
