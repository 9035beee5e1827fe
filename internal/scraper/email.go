package scraper

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Addresses ending in these are asset filenames such as logo@2x.png.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".bmp"}

// Matched as substrings of the domain, so "mail.com" also rejects gmail.com.
var junkDomains = []string{
	"example.com",
	"wix.com",
	"wixpress.com",
	"sentry.io",
	"cdn.com",
	"googletagmanager.com",
	"domain.com",
	"yourdomain.com",
	"email.com",
	"mail.com",
	"website.com",
	"placeholder.com",
}

var priorityPrefixes = []string{
	"info@",
	"contact@",
	"sales@",
	"export@",
	"office@",
	"admin@",
	"hello@",
	"enquiries@",
	"support@",
}

// Rank orders acceptable addresses.
type Rank int

const (
	// RankOther is any acceptable address.
	RankOther Rank = iota
	// RankPriority is an address whose local part starts with a role prefix.
	RankPriority
)

// Candidate is an acceptable address found in page text.
type Candidate struct {
	Address string
	Rank    Rank
}

// Classify lowercases addr and decides whether it is acceptable and how it
// ranks.
func Classify(addr string) (Rank, bool) {
	addr = strings.ToLower(addr)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(addr, ext) {
			return RankOther, false
		}
	}
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return RankOther, false
	}
	domain := addr[at+1:]
	for _, junk := range junkDomains {
		if strings.Contains(domain, junk) {
			return RankOther, false
		}
	}
	for _, prefix := range priorityPrefixes {
		if strings.HasPrefix(addr, prefix) {
			return RankPriority, true
		}
	}
	return RankOther, true
}

// FindCandidates scans text for email-shaped tokens and returns the
// acceptable ones, lowercased, deduplicated, in order of first appearance.
func FindCandidates(text string) []Candidate {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var out []Candidate
	for _, match := range matches {
		addr := strings.ToLower(match)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		rank, ok := Classify(addr)
		if !ok {
			continue
		}
		out = append(out, Candidate{Address: addr, Rank: rank})
	}
	return out
}

// SelectEmail picks the first priority candidate, falling back to the first
// candidate of any rank.
func SelectEmail(candidates []Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if c.Rank == RankPriority {
			return c.Address, true
		}
	}
	return candidates[0].Address, true
}

// ContactURL guesses the contact page of a website by appending path to the
// site URL with trailing slashes removed.
func ContactURL(website, path string) string {
	if path == "" {
		path = "/contact"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(website, "/") + path
}
