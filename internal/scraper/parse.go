package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page source: %w", err)
	}
	return doc, nil
}

// resolveURL makes href absolute against base. Absolute hrefs are returned
// unchanged.
func resolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// subcategoryLinks returns the unique subcategory URLs linked from the main
// content of a category root. Only hrefs under prefix on the directory host
// qualify.
func subcategoryLinks(doc *goquery.Document, base, prefix string) []string {
	scope := doc.Find("main").First()
	if scope.Length() == 0 {
		scope = doc.Selection
	}
	baseURL, _ := url.Parse(base)
	links := NewLinkSet()
	scope.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !underPrefix(href, baseURL, prefix) {
			return
		}
		abs, err := resolveURL(base, href)
		if err != nil {
			return
		}
		links.Add(abs)
	})
	return links.Links()
}

func underPrefix(href string, base *url.URL, prefix string) bool {
	if strings.HasPrefix(href, prefix) {
		return true
	}
	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() || base == nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), base.Hostname()) && strings.HasPrefix(u.Path, prefix)
}

// companyLinks returns the profile URLs of every card on a listing page in
// document order.
func companyLinks(doc *goquery.Document, cardSelector, base string) []string {
	var out []string
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok {
			return
		}
		abs, err := resolveURL(base, href)
		if err != nil {
			return
		}
		out = append(out, abs)
	})
	return out
}

// nextPage inspects the listing's next control. A control carrying a
// "disabled" class, a disabled attribute or aria-disabled="true" counts as
// absent. Without a document or selector the state is unknown.
func nextPage(doc *goquery.Document, selector string) NextState {
	if doc == nil || strings.TrimSpace(selector) == "" {
		return NextUnknown
	}
	next := doc.Find(selector).First()
	if next.Length() == 0 {
		return NextAbsent
	}
	if class, _ := next.Attr("class"); strings.Contains(class, "disabled") {
		return NextAbsent
	}
	if _, ok := next.Attr("disabled"); ok {
		return NextAbsent
	}
	if aria, _ := next.Attr("aria-disabled"); strings.EqualFold(aria, "true") {
		return NextAbsent
	}
	return NextAvailable
}

// parseProfile reads name, country and website from a profile page. Country
// is the text of the span following the flag icon, cut at the first comma.
func parseProfile(doc *goquery.Document, cfg Config, profileURL string) (Profile, error) {
	profile := Profile{URL: profileURL}

	name := doc.Find(cfg.NameSelector).First()
	if name.Length() == 0 {
		return profile, fmt.Errorf("company name %q: %w", cfg.NameSelector, ErrNotFound)
	}
	profile.Name = strings.TrimSpace(name.Text())

	country := doc.Find(cfg.FlagSelector).First().NextAllFiltered("span").First()
	if country.Length() == 0 {
		return profile, fmt.Errorf("country after %q: %w", cfg.FlagSelector, ErrNotFound)
	}
	profile.Country = firstField(country.Text())

	website := doc.Find(cfg.WebsiteSelector).First()
	href, _ := website.Attr("href")
	if website.Length() == 0 || strings.TrimSpace(href) == "" {
		return profile, ErrNoWebsite
	}
	abs, err := resolveURL(profileURL, href)
	if err != nil {
		return profile, fmt.Errorf("website href: %w", err)
	}
	profile.Website = abs
	return profile, nil
}

func firstField(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, ','); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
