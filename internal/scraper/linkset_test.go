package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkSet_KeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	s := NewLinkSet()
	require.True(t, s.Add("https://dir.test/p/b"))
	require.True(t, s.Add("https://dir.test/p/a"))
	require.False(t, s.Add("https://dir.test/p/b"))
	require.False(t, s.Add(""))

	require.Equal(t, 2, s.Len())
	require.Equal(t, []ProfileLink{"https://dir.test/p/b", "https://dir.test/p/a"}, s.Links())
}

func TestLinkSet_LinksReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewLinkSet()
	s.Add("x")
	links := s.Links()
	links[0] = "mutated"
	require.Equal(t, []string{"x"}, s.Links())
}
