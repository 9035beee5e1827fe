package scraper

// LinkSet accumulates profile URLs, ignoring repeats and keeping first-seen
// order. It is not safe for concurrent use.
type LinkSet struct {
	seen  map[ProfileLink]struct{}
	order []ProfileLink
}

// NewLinkSet returns an empty set.
func NewLinkSet() *LinkSet {
	return &LinkSet{seen: make(map[ProfileLink]struct{})}
}

// Add inserts link and reports whether it was new.
func (s *LinkSet) Add(link ProfileLink) bool {
	if link == "" {
		return false
	}
	if _, ok := s.seen[link]; ok {
		return false
	}
	s.seen[link] = struct{}{}
	s.order = append(s.order, link)
	return true
}

// Len returns the number of unique links.
func (s *LinkSet) Len() int {
	return len(s.order)
}

// Links returns a copy of the links in insertion order.
func (s *LinkSet) Links() []ProfileLink {
	out := make([]ProfileLink, len(s.order))
	copy(out, s.order)
	return out
}
