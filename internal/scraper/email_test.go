package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindCandidates_ExcludesImageFilenames(t *testing.T) {
	t.Parallel()

	got := FindCandidates(`<img src="logo@2x.png"> <img src="hero@3x.webp"> sales@acme.com`)
	require.Equal(t, []Candidate{{Address: "sales@acme.com", Rank: RankPriority}}, got)
}

func TestFindCandidates_ExcludesJunkDomains(t *testing.T) {
	t.Parallel()

	got := FindCandidates("noreply@sentry.io user@example.com jane@wixpress.com jane.doe@acme.com")
	require.Equal(t, []Candidate{{Address: "jane.doe@acme.com", Rank: RankOther}}, got)
}

func TestFindCandidates_LowercasesAndDedupes(t *testing.T) {
	t.Parallel()

	got := FindCandidates("INFO@Acme.COM info@acme.com Info@ACME.com")
	require.Equal(t, []Candidate{{Address: "info@acme.com", Rank: RankPriority}}, got)
}

func TestClassify_JunkMatchesAsSubstring(t *testing.T) {
	t.Parallel()

	_, ok := Classify("bodega.owner@gmail.com")
	require.False(t, ok, "gmail.com contains mail.com")

	rank, ok := Classify("export@bodega.es")
	require.True(t, ok)
	require.Equal(t, RankPriority, rank)
}

func TestSelectEmail_PriorityWins(t *testing.T) {
	t.Parallel()

	got, ok := SelectEmail(FindCandidates("jane.doe@acme.com hello@acme.com"))
	require.True(t, ok)
	require.Equal(t, "hello@acme.com", got)
}

func TestSelectEmail_FallsBackToOther(t *testing.T) {
	t.Parallel()

	got, ok := SelectEmail(FindCandidates("reach jane.doe@acme.com or bob@acme.com"))
	require.True(t, ok)
	require.Equal(t, "jane.doe@acme.com", got)
}

func TestSelectEmail_NoCandidates(t *testing.T) {
	t.Parallel()

	got, ok := SelectEmail(FindCandidates("icon@2x.png noreply@sentry.io"))
	require.False(t, ok)
	require.Empty(t, got)
}

func TestSelectEmail_FirstSeenOrderIsStable(t *testing.T) {
	t.Parallel()

	text := "contact@b.com info@a.com"
	for i := 0; i < 20; i++ {
		got, _ := SelectEmail(FindCandidates(text))
		require.Equal(t, "contact@b.com", got)
	}
}

func TestContactURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://acme.com":    "https://acme.com/contact",
		"https://acme.com/":   "https://acme.com/contact",
		"https://acme.com///": "https://acme.com/contact",
		"https://acme.com/fr": "https://acme.com/fr/contact",
	}
	for in, want := range cases {
		require.Equal(t, want, ContactURL(in, "/contact"), in)
	}
	require.Equal(t, "https://acme.com/kontakt", ContactURL("https://acme.com", "kontakt"))
}
