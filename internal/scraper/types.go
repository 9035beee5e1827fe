package scraper

import (
	"errors"
	"time"
)

var (
	// ErrTimeout reports that a bounded wait elapsed before its condition held.
	ErrTimeout = errors.New("timed out")
	// ErrNotFound reports that an element was absent from the current page.
	ErrNotFound = errors.New("element not found")
	// ErrNoSubcategories aborts link collection when the root lists nothing.
	ErrNoSubcategories = errors.New("no subcategory links found")
	// ErrNoWebsite means the profile does not link to a company website.
	ErrNoWebsite = errors.New("profile has no website link")
	// ErrNoEmail means no acceptable address was found on the company site.
	ErrNoEmail = errors.New("no usable email found")
)

// ProfileLink is the absolute URL of one company's profile page in the
// directory.
type ProfileLink = string

// CompanyRecord is the row emitted for every company with a usable email.
type CompanyRecord struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Email   string `json:"email"`
}

// Profile holds the fields read from a directory profile page.
type Profile struct {
	URL     string
	Name    string
	Country string
	Website string
}

// Outcome is the result of an attempt to dismiss an overlay.
type Outcome int

const (
	// OutcomeNotFound means no matching control appeared in time.
	OutcomeNotFound Outcome = iota
	// OutcomeSucceeded means a control was found and clicked.
	OutcomeSucceeded
	// OutcomeFailed means a control was found but interacting with it failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "not_found"
	}
}

// NextState says whether a listing page offers a further page.
type NextState int

const (
	// NextUnknown is returned when the page state could not be read.
	NextUnknown NextState = iota
	// NextAvailable means an enabled next control is present.
	NextAvailable
	// NextAbsent means the control is missing or disabled.
	NextAbsent
)

// Config carries the directory layout and timing knobs shared by the stages.
//
// CSS selectors are evaluated against page source with goquery; XPath
// expressions are handed to the browser for clicks and existence checks.
type Config struct {
	StartURL string
	BaseURL  string

	SubcategoryPrefix string
	SubcategoryMarker string
	CardSelector      string
	NextSelector      string
	NextXPath         string
	NameSelector      string
	FlagSelector      string
	WebsiteSelector   string

	CookieXPaths  []string
	AgeGateXPaths []string

	ContactPath string
	PageDelay   time.Duration
	// MaxPages caps pages visited per subcategory; zero means unbounded.
	MaxPages int
}

// DefaultConfig targets the wine category of the Europages UK directory.
func DefaultConfig() Config {
	return Config{
		StartURL:          "https://www.europages.co.uk/bs/food-related-products/wines",
		BaseURL:           "https://www.europages.co.uk",
		SubcategoryPrefix: "/companies/",
		SubcategoryMarker: `a[href^="/companies/"]`,
		CardSelector:      `a[data-test="company-name"]`,
		NextSelector:      `a:has(img[alt="Next"])`,
		NextXPath:         `//a[.//img[@alt='Next']]`,
		NameSelector:      "a.company-name",
		FlagSelector:      `span[class*="vis-flag"]`,
		WebsiteSelector:   `a:has(span[class*="website-link"])`,
		CookieXPaths: []string{
			`//button[contains(., 'Accept all cookies')]`,
			`//button[@id='onetrust-accept-btn-handler']`,
		},
		AgeGateXPaths: []string{
			`//button[contains(., 'Sí')]`,
			`//button[contains(., 'Yes')]`,
			`//button[contains(., 'Enter')]`,
		},
		ContactPath: "/contact",
		PageDelay:   time.Second,
	}
}
