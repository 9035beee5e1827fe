// Package sink persists the run's datasets as CSV: the collected profile
// links checkpoint and the final contacts table.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/contact-crawler/internal/scraper"
)

var (
	// LinksHeader is the single column of the links checkpoint.
	LinksHeader = []string{"url"}
	// ContactsHeader is the fixed column order of the contacts dataset.
	ContactsHeader = []string{"Name", "Country", "Email"}
)

// EncodeLinks writes links under LinksHeader.
func EncodeLinks(w io.Writer, links []string) error {
	rows := make([][]string, 0, len(links))
	for _, link := range links {
		rows = append(rows, []string{link})
	}
	return encode(w, LinksHeader, rows)
}

// WriteLinks writes the links checkpoint to path, creating parent
// directories as needed.
func WriteLinks(path string, links []string) error {
	return writeFile(path, func(w io.Writer) error { return EncodeLinks(w, links) })
}

// DecodeLinks reads a links checkpoint, dropping blanks and repeats.
func DecodeLinks(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	urlIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), LinksHeader[0]) {
			urlIdx = i
			break
		}
	}
	if urlIdx < 0 {
		return nil, fmt.Errorf("missing required column %q", LinksHeader[0])
	}

	links := scraper.NewLinkSet()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if urlIdx >= len(rec) {
			continue
		}
		links.Add(strings.TrimSpace(rec[urlIdx]))
	}
	return links.Links(), nil
}

// ReadLinks loads a links checkpoint from path.
func ReadLinks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open links file: %w", err)
	}
	defer f.Close()
	links, err := DecodeLinks(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return links, nil
}

// DedupeByEmail drops records whose email was already seen, keeping the
// first occurrence.
func DedupeByEmail(records []scraper.CompanyRecord) []scraper.CompanyRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]scraper.CompanyRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.Email]; ok {
			continue
		}
		seen[rec.Email] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// EncodeContacts writes records under ContactsHeader as given.
func EncodeContacts(w io.Writer, records []scraper.CompanyRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Name, rec.Country, rec.Email})
	}
	return encode(w, ContactsHeader, rows)
}

// WriteContacts deduplicates records by email and writes them to path. It
// returns the number of rows written.
func WriteContacts(path string, records []scraper.CompanyRecord) (int, error) {
	unique := DedupeByEmail(records)
	if err := writeFile(path, func(w io.Writer) error { return EncodeContacts(w, unique) }); err != nil {
		return 0, err
	}
	return len(unique), nil
}

func encode(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func writeFile(path string, fill func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := fill(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
