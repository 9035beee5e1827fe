package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	profileURL = "https://dir.test/en/company/acme"
	siteURL    = "https://acme-wines.test/"
	contactURL = "https://acme-wines.test/contact"
)

func companyPage() *fakePage {
	return newFakePage(map[string]string{
		profileURL: profileHTML(siteURL),
		siteURL:    `<footer>Write to jane.doe@acme-wines.test</footer>`,
		contactURL: `<p>Orders: export@acme-wines.test <img src="badge@2x.png"></p>`,
	})
}

func TestPipeline_ProducesRecord(t *testing.T) {
	t.Parallel()

	page := companyPage()
	rec, err := NewPipeline(testConfig(), nil, nil, zap.NewNop()).Process(context.Background(), page, profileURL)
	require.NoError(t, err)
	require.Equal(t, CompanyRecord{Name: "Acme Wines", Country: "France", Email: "export@acme-wines.test"}, rec)
	require.Equal(t, []string{profileURL, siteURL, contactURL}, page.Visited())
}

func TestPipeline_ContactPageFailureUsesLanding(t *testing.T) {
	t.Parallel()

	page := companyPage()
	page.navErr[contactURL] = errors.New("net::ERR_CONNECTION_RESET")

	rec, err := NewPipeline(testConfig(), nil, nil, nil).Process(context.Background(), page, profileURL)
	require.NoError(t, err)
	require.Equal(t, "jane.doe@acme-wines.test", rec.Email)
}

func TestPipeline_NoWebsiteSkipsExternalVisit(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]string{
		profileURL: `<a class="company-name">Acme</a><span class="vis-flag"></span><span>Italy</span>`,
	})
	_, err := NewPipeline(testConfig(), nil, nil, nil).Process(context.Background(), page, profileURL)
	require.ErrorIs(t, err, ErrNoWebsite)
	require.Equal(t, []string{profileURL}, page.Visited())
}

type hostFilter string

func (h hostFilter) BlocksURL(rawURL string) bool {
	return strings.Contains(rawURL, string(h))
}

func TestPipeline_SkippedWebsiteIsNotVisited(t *testing.T) {
	t.Parallel()

	page := companyPage()
	p := NewPipeline(testConfig(), nil, nil, nil).SkipWebsites(hostFilter("acme-wines.test"))
	_, err := p.Process(context.Background(), page, profileURL)
	require.ErrorIs(t, err, ErrNoWebsite)
	require.Equal(t, []string{profileURL}, page.Visited())
}

func TestPipeline_NoEmail(t *testing.T) {
	t.Parallel()

	page := companyPage()
	page.pages[siteURL] = `<p>Call us</p>`
	page.pages[contactURL] = `<p>noreply@sentry.io</p>`

	_, err := NewPipeline(testConfig(), nil, nil, nil).Process(context.Background(), page, profileURL)
	require.ErrorIs(t, err, ErrNoEmail)
}

func TestPipeline_ProfileNameTimeout(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]string{profileURL: `<p>Loading</p>`})
	_, err := NewPipeline(testConfig(), nil, nil, nil).Process(context.Background(), page, profileURL)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestExtract_ClearsAgeGate(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	page := companyPage()
	page.present[cfg.AgeGateXPaths[1]] = true

	email, err := NewEmailExtractor(cfg, nil, nil).Extract(context.Background(), page, siteURL)
	require.NoError(t, err)
	require.Equal(t, "export@acme-wines.test", email)
	require.Equal(t, []string{cfg.AgeGateXPaths[1]}, page.Clicked())
}

type stubContact struct {
	html string
	err  error
	urls []string
}

func (s *stubContact) FetchContact(_ context.Context, _ Page, url string) (string, error) {
	s.urls = append(s.urls, url)
	return s.html, s.err
}

func TestExtract_UsesConfiguredContactFetcher(t *testing.T) {
	t.Parallel()

	page := companyPage()
	contact := &stubContact{html: `<a href="mailto:Info@Acme-Wines.test">mail</a>`}

	email, err := NewEmailExtractor(testConfig(), contact, nil).Extract(context.Background(), page, siteURL)
	require.NoError(t, err)
	require.Equal(t, "info@acme-wines.test", email)
	require.Equal(t, []string{contactURL}, contact.urls)
	require.Equal(t, []string{siteURL}, page.Visited())
}

func TestExtract_WebsiteLoadFailure(t *testing.T) {
	t.Parallel()

	page := companyPage()
	page.navErr[siteURL] = ErrTimeout
	_, err := NewEmailExtractor(testConfig(), nil, nil).Extract(context.Background(), page, siteURL)
	require.ErrorIs(t, err, ErrTimeout)
}

type statusPage struct {
	*fakePage
	status map[string]int
}

func (p statusPage) LastStatus() int {
	return p.status[p.current]
}

func TestBrowserContactFetcher_RejectsErrorStatus(t *testing.T) {
	t.Parallel()

	page := statusPage{fakePage: companyPage(), status: map[string]int{contactURL: 404}}
	_, err := BrowserContactFetcher{}.FetchContact(context.Background(), page, contactURL)
	require.ErrorContains(t, err, "status 404")

	email, err := NewEmailExtractor(testConfig(), nil, nil).Extract(context.Background(), page, siteURL)
	require.NoError(t, err)
	require.Equal(t, "jane.doe@acme-wines.test", email)
}
