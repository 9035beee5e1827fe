// Package metrics exposes Prometheus collectors for the contact crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	listingPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactcrawler_listing_pages_total",
		Help: "Total number of directory listing pages scraped for profile links.",
	})
	profileLinksCollected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "contactcrawler_profile_links_collected",
		Help: "Number of unique profile links collected in the current run.",
	})
	dismissalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactcrawler_dismissals_total",
		Help: "Overlay dismissal attempts, labeled by overlay kind and outcome.",
	}, []string{"kind", "outcome"})
	unitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactcrawler_units_total",
		Help: "Profile units processed, labeled by outcome.",
	}, []string{"outcome"})
	unitDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "contactcrawler_unit_duration_seconds",
		Help:    "Wall time of one resolve-and-extract unit.",
		Buckets: []float64{1, 2, 5, 10, 20, 45, 90, 180},
	})
	activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "contactcrawler_active_workers",
		Help: "Number of workers currently holding a browser session.",
	})
	sessionLaunchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactcrawler_session_launch_failures_total",
		Help: "Browser sessions that failed to start.",
	})
	contactFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactcrawler_contact_fetches_total",
		Help: "Contact page fetches, labeled by the path that served them.",
	}, []string{"via"})
	contactsWritten = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "contactcrawler_contacts_written",
		Help: "Rows written to the contacts dataset by the last run.",
	})
	rateLimitDelaySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contactcrawler_rate_limit_delay_seconds",
		Help:    "Histogram of rate limit wait durations.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"domain"})
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactcrawler_http_requests_total",
		Help: "Status server requests, labeled by method, route and code.",
	}, []string{"method", "route", "code"})
	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contactcrawler_http_request_duration_seconds",
		Help:    "Histogram of status server latencies, labeled by method and route.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "route"})
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveListingPage counts one scraped listing page.
func ObserveListingPage() {
	listingPagesTotal.Inc()
}

// SetProfileLinks records the size of the collected link set.
func SetProfileLinks(n int) {
	profileLinksCollected.Set(float64(n))
}

// ObserveDismissal counts an overlay dismissal attempt.
func ObserveDismissal(kind, outcome string) {
	dismissalsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveUnit records the outcome and duration of one unit of work.
func ObserveUnit(outcome string, duration time.Duration) {
	unitsTotal.WithLabelValues(outcome).Inc()
	unitDurationSeconds.Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveSessionLaunchFailure counts a browser session that did not start.
func ObserveSessionLaunchFailure() {
	sessionLaunchFailuresTotal.Inc()
}

// ObserveContactFetch counts a contact page fetch served by via
// ("browser", "probe" or "promoted").
func ObserveContactFetch(via string) {
	contactFetchesTotal.WithLabelValues(via).Inc()
}

// SetContactsWritten records the row count of the written dataset.
func SetContactsWritten(n int) {
	contactsWritten.Set(float64(n))
}

// ObserveRateLimitDelay records how long a navigation waited on the limiter.
func ObserveRateLimitDelay(domain string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(SanitizeSite(domain)).Observe(d.Seconds())
}

// ObserveHTTPRequest records one status server request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
