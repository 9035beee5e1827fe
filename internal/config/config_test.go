package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://www.europages.co.uk/bs/food-related-products/wines", cfg.Scraper.StartURL)
	require.Equal(t, 4, cfg.Scraper.Workers)
	require.Equal(t, 45*time.Second, cfg.Scraper.PageLoadTimeout)
	require.Equal(t, 10*time.Second, cfg.Scraper.WaitTimeout)
	require.Equal(t, time.Second, cfg.Scraper.PageDelay)
	require.False(t, cfg.Scraper.CollectorHeadless)
	require.True(t, cfg.Scraper.WorkerHeadless)
	require.Equal(t, ContactFetchBrowser, cfg.Scraper.ContactFetch)
	require.Equal(t, filepath.Join("output", "links_wine.csv"), cfg.LinksPath())
	require.Equal(t, filepath.Join("output", "emails_wine.csv"), cfg.ContactsPath())
	require.Len(t, cfg.Selectors.AgeGateButtons, 3)
	require.Zero(t, cfg.Server.Port)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
scraper:
  start_url: https://dir.test/bs/cheese
  base_url: https://dir.test
  workers: 8
  page_load_timeout: 30s
  wait_timeout: 5s
  page_delay: 250ms
  max_pages: 3
  collector_headless: true
  contact_fetch: probe
  skip_website_hosts:
    - facebook.com
    - "*.wixsite.com"
selectors:
  company_card: "article a.title"
  cookie_buttons:
    - "//button[@id='accept']"
output:
  dir: /tmp/contacts
  contacts_file: cheese.csv
server:
  port: 9090
storage:
  gcs_bucket: crawl-artifacts
  prefix: cheese
pubsub:
  project_id: proj
  topic_name: runs
ratelimit:
  directory_rps: 0.5
  burst: 2
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Scraper.Workers)
	require.Equal(t, 30*time.Second, cfg.Scraper.PageLoadTimeout)
	require.Equal(t, 250*time.Millisecond, cfg.Scraper.PageDelay)
	require.True(t, cfg.Scraper.CollectorHeadless)
	require.Equal(t, ContactFetchProbe, cfg.Scraper.ContactFetch)
	require.Equal(t, []string{"facebook.com", "*.wixsite.com"}, cfg.Scraper.SkipWebsiteHosts)
	require.Equal(t, "/tmp/contacts/cheese.csv", cfg.ContactsPath())
	require.Equal(t, "crawl-artifacts", cfg.Storage.GCSBucket)
	require.Equal(t, 0.5, cfg.RateLimit.DirectoryRPS)

	sc := cfg.ScraperSettings()
	require.Equal(t, "article a.title", sc.CardSelector)
	require.Equal(t, []string{"//button[@id='accept']"}, sc.CookieXPaths)
	require.Equal(t, "a.company-name", sc.NameSelector)
	require.Equal(t, 3, sc.MaxPages)

	bc := cfg.BrowserSettings()
	require.Equal(t, 5*time.Second, bc.WaitTimeout)
	require.Equal(t, 1920, bc.WindowWidth)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONTACTS_SCRAPER_WORKERS", "2")
	t.Setenv("CONTACTS_SCRAPER_WAIT_TIMEOUT", "3s")
	t.Setenv("CONTACTS_DB_DSN", "postgres://localhost/contacts")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Scraper.Workers)
	require.Equal(t, 3*time.Second, cfg.Scraper.WaitTimeout)
	require.Equal(t, "postgres://localhost/contacts", cfg.DB.DSN)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"workers":       func(c *Config) { c.Scraper.Workers = 0 },
		"start url":     func(c *Config) { c.Scraper.StartURL = "" },
		"wait timeout":  func(c *Config) { c.Scraper.WaitTimeout = 0 },
		"contact fetch": func(c *Config) { c.Scraper.ContactFetch = "curl" },
		"storage":       func(c *Config) { c.Storage.GCSBucket = "b"; c.Storage.LocalDir = "/tmp" },
		"pubsub":        func(c *Config) { c.PubSub.ProjectID = "p" },
		"max pages":     func(c *Config) { c.Scraper.MaxPages = -1 },
		"server port":   func(c *Config) { c.Server.Port = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, base.Validate())
}
