// Package scraper holds the browser-driven stages of the contact crawler.
//
// A run has two phases. LinkCollector walks the directory: it loads the
// category root, enumerates subcategories and pages through each one,
// accumulating unique company profile URLs. Pipeline then turns a single
// profile URL into a CompanyRecord by resolving the profile (name, country,
// website) and extracting a contact email from the company's own site.
//
// Every stage drives a Page. Implementations live in internal/browser
// (chromedp) and in tests (an in-memory fake), so the parsing and control
// flow here never touch Chrome directly.
package scraper
