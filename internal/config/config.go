// Package config loads and validates contact crawler configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/contact-crawler/internal/browser"
	"github.com/JakeFAU/contact-crawler/internal/scraper"
)

// Contact page fetch modes.
const (
	ContactFetchBrowser = "browser"
	ContactFetchProbe   = "probe"
)

// Config captures all knobs loaded via Viper.
type Config struct {
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ScraperConfig governs browser sessions and the two crawl phases.
type ScraperConfig struct {
	StartURL          string        `mapstructure:"start_url"`
	BaseURL           string        `mapstructure:"base_url"`
	Workers           int           `mapstructure:"workers"`
	PageLoadTimeout   time.Duration `mapstructure:"page_load_timeout"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout"`
	PageDelay         time.Duration `mapstructure:"page_delay"`
	MaxPages          int           `mapstructure:"max_pages"`
	CollectorHeadless bool          `mapstructure:"collector_headless"`
	WorkerHeadless    bool          `mapstructure:"worker_headless"`
	UserAgent         string        `mapstructure:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width"`
	WindowHeight      int           `mapstructure:"window_height"`
	ChromePath        string        `mapstructure:"chrome_path"`
	ContactPath       string        `mapstructure:"contact_path"`
	ContactFetch      string        `mapstructure:"contact_fetch"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	PromotionThresh   int           `mapstructure:"promotion_threshold"`
	// SkipWebsiteHosts lists website hosts never worth visiting, such as
	// social profiles. Patterns follow hostblock.New.
	SkipWebsiteHosts  []string      `mapstructure:"skip_website_hosts"`
}

// SelectorsConfig describes the directory's markup.
type SelectorsConfig struct {
	SubcategoryPrefix string   `mapstructure:"subcategory_prefix"`
	SubcategoryMarker string   `mapstructure:"subcategory_marker"`
	CompanyCard       string   `mapstructure:"company_card"`
	NextButton        string   `mapstructure:"next_button"`
	NextButtonXPath   string   `mapstructure:"next_button_xpath"`
	CompanyName       string   `mapstructure:"company_name"`
	CountryFlag       string   `mapstructure:"country_flag"`
	WebsiteLink       string   `mapstructure:"website_link"`
	CookieButtons     []string `mapstructure:"cookie_buttons"`
	AgeGateButtons    []string `mapstructure:"age_gate_buttons"`
}

// OutputConfig names the CSV datasets.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	LinksFile    string `mapstructure:"links_file"`
	ContactsFile string `mapstructure:"contacts_file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the status server. Port zero disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StorageConfig selects where run artifacts are archived.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the contacts table.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for run completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// RateLimitConfig throttles navigation to the directory host.
type RateLimitConfig struct {
	DirectoryRPS float64 `mapstructure:"directory_rps"`
	Burst        int     `mapstructure:"burst"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := scraper.DefaultConfig()

	v.SetDefault("scraper.start_url", d.StartURL)
	v.SetDefault("scraper.base_url", d.BaseURL)
	v.SetDefault("scraper.workers", 4)
	v.SetDefault("scraper.page_load_timeout", 45*time.Second)
	v.SetDefault("scraper.wait_timeout", 10*time.Second)
	v.SetDefault("scraper.page_delay", d.PageDelay)
	v.SetDefault("scraper.max_pages", 0)
	v.SetDefault("scraper.collector_headless", false)
	v.SetDefault("scraper.worker_headless", true)
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.window_width", 1920)
	v.SetDefault("scraper.window_height", 1080)
	v.SetDefault("scraper.chrome_path", "")
	v.SetDefault("scraper.contact_path", d.ContactPath)
	v.SetDefault("scraper.contact_fetch", ContactFetchBrowser)
	v.SetDefault("scraper.probe_timeout", 15*time.Second)
	v.SetDefault("scraper.promotion_threshold", 2048)
	v.SetDefault("scraper.skip_website_hosts", []string{})

	v.SetDefault("selectors.subcategory_prefix", d.SubcategoryPrefix)
	v.SetDefault("selectors.subcategory_marker", d.SubcategoryMarker)
	v.SetDefault("selectors.company_card", d.CardSelector)
	v.SetDefault("selectors.next_button", d.NextSelector)
	v.SetDefault("selectors.next_button_xpath", d.NextXPath)
	v.SetDefault("selectors.company_name", d.NameSelector)
	v.SetDefault("selectors.country_flag", d.FlagSelector)
	v.SetDefault("selectors.website_link", d.WebsiteSelector)
	v.SetDefault("selectors.cookie_buttons", d.CookieXPaths)
	v.SetDefault("selectors.age_gate_buttons", d.AgeGateXPaths)

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.links_file", "links_wine.csv")
	v.SetDefault("output.contacts_file", "emails_wine.csv")

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("server.port", 0)

	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.prefix", "runs")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "contacts")
	v.SetDefault("db.max_conns", 4)

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")

	v.SetDefault("ratelimit.directory_rps", 0)
	v.SetDefault("ratelimit.burst", 1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scraper.StartURL == "" {
		return fmt.Errorf("scraper.start_url must be set")
	}
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper.base_url must be set")
	}
	if c.Scraper.Workers <= 0 {
		return fmt.Errorf("scraper.workers must be > 0")
	}
	if c.Scraper.PageLoadTimeout <= 0 {
		return fmt.Errorf("scraper.page_load_timeout must be > 0")
	}
	if c.Scraper.WaitTimeout <= 0 {
		return fmt.Errorf("scraper.wait_timeout must be > 0")
	}
	if c.Scraper.MaxPages < 0 {
		return fmt.Errorf("scraper.max_pages must be >= 0")
	}
	switch c.Scraper.ContactFetch {
	case ContactFetchBrowser, ContactFetchProbe:
	default:
		return fmt.Errorf("scraper.contact_fetch must be %q or %q", ContactFetchBrowser, ContactFetchProbe)
	}
	if c.Selectors.CompanyCard == "" || c.Selectors.CompanyName == "" {
		return fmt.Errorf("selectors.company_card and selectors.company_name must be set")
	}
	if c.Output.LinksFile == "" || c.Output.ContactsFile == "" {
		return fmt.Errorf("output.links_file and output.contacts_file must be set")
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	if c.Storage.GCSBucket != "" && c.Storage.LocalDir != "" {
		return fmt.Errorf("storage.gcs_bucket and storage.local_dir are mutually exclusive")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.RateLimit.DirectoryRPS < 0 {
		return fmt.Errorf("ratelimit.directory_rps must be >= 0")
	}
	return nil
}

// ScraperSettings builds the scraping stage configuration.
func (c Config) ScraperSettings() scraper.Config {
	return scraper.Config{
		StartURL:          c.Scraper.StartURL,
		BaseURL:           c.Scraper.BaseURL,
		SubcategoryPrefix: c.Selectors.SubcategoryPrefix,
		SubcategoryMarker: c.Selectors.SubcategoryMarker,
		CardSelector:      c.Selectors.CompanyCard,
		NextSelector:      c.Selectors.NextButton,
		NextXPath:         c.Selectors.NextButtonXPath,
		NameSelector:      c.Selectors.CompanyName,
		FlagSelector:      c.Selectors.CountryFlag,
		WebsiteSelector:   c.Selectors.WebsiteLink,
		CookieXPaths:      c.Selectors.CookieButtons,
		AgeGateXPaths:     c.Selectors.AgeGateButtons,
		ContactPath:       c.Scraper.ContactPath,
		PageDelay:         c.Scraper.PageDelay,
		MaxPages:          c.Scraper.MaxPages,
	}
}

// BrowserSettings builds the session factory configuration.
func (c Config) BrowserSettings() browser.Config {
	return browser.Config{
		UserAgent:       c.Scraper.UserAgent,
		WindowWidth:     c.Scraper.WindowWidth,
		WindowHeight:    c.Scraper.WindowHeight,
		PageLoadTimeout: c.Scraper.PageLoadTimeout,
		WaitTimeout:     c.Scraper.WaitTimeout,
		ExecPath:        c.Scraper.ChromePath,
	}
}

// LinksPath is the links checkpoint location.
func (c Config) LinksPath() string {
	return filepath.Join(c.Output.Dir, c.Output.LinksFile)
}

// ContactsPath is the contacts dataset location.
func (c Config) ContactsPath() string {
	return filepath.Join(c.Output.Dir, c.Output.ContactsFile)
}
