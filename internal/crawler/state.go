package crawler

// crawlState is the mutable state of one Crawl call.
type crawlState struct {
	stack            []string
	visitedBreweries map[string]struct{}
	visitedBeers     map[string]struct{}
	beers            []string
	pages            int
}

func newCrawlState(seed string) *crawlState {
	return &crawlState{
		stack:            []string{seed},
		visitedBreweries: map[string]struct{}{seed: {}},
		visitedBeers:     make(map[string]struct{}),
	}
}

// pop removes and returns the most recently pushed brewery URL.
func (s *crawlState) pop() string {
	last := len(s.stack) - 1
	u := s.stack[last]
	s.stack = s.stack[:last]
	return u
}

// push enqueues an unseen brewery URL and reports whether it was new.
func (s *crawlState) push(u string) bool {
	if _, seen := s.visitedBreweries[u]; seen {
		return false
	}
	s.visitedBreweries[u] = struct{}{}
	s.stack = append(s.stack, u)
	return true
}

// addBeer records an unseen beer link and reports whether it was new.
func (s *crawlState) addBeer(href string) bool {
	if _, seen := s.visitedBeers[href]; seen {
		return false
	}
	s.visitedBeers[href] = struct{}{}
	s.beers = append(s.beers, href)
	return true
}
