package store

import "github.com/jonwraymond/vmcatalog/arm"

func resetPage(st *State, level Level) {
	p := st.Pages[level]
	p.CurrentPage = 1
	if p.ItemsPerPage <= 0 {
		p.ItemsPerPage = DefaultItemsPerPage
	}
	st.Pages[level] = p
}

func resetPages(st *State) {
	for _, l := range Levels {
		resetPage(st, l)
	}
}

// TotalPages returns the page count for n items, at least 1.
func TotalPages(n, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	if n <= 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// PageItems returns the items on page p.
func PageItems[T any](items []T, p Pagination) []T {
	perPage := p.ItemsPerPage
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	page := max(p.CurrentPage, 1)

	start := (page - 1) * perPage
	if start >= len(items) {
		return items[:0]
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

// levelLen returns the filtered item count of level.
func levelLen(st *State, level Level) int {
	switch level {
	case LevelPublishers:
		return len(filterPublishers(st.Publishers, st.SearchQuery))
	case LevelOffers:
		return len(filterOffers(st.Offers, st.SearchQuery))
	case LevelSKUs:
		return len(filterSKUs(st.SKUs, st.SearchQuery))
	default:
		return 0
	}
}

// Page returns the cursor of level.
func (s *Store) Page(level Level) Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Pages[level]
}

// TotalPagesFor returns the page count of level's filtered items.
func (s *Store) TotalPagesFor(level Level) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TotalPages(levelLen(&s.state, level), s.state.Pages[level].ItemsPerPage)
}

// SetItemsPerPage changes the page size of level and returns to page 1.
// Non-positive sizes are ignored.
func (s *Store) SetItemsPerPage(level Level, n int) {
	s.update(func(st *State) ([]Invalidation, bool) {
		p, ok := st.Pages[level]
		if !ok || n <= 0 {
			return nil, false
		}
		p.ItemsPerPage = n
		p.CurrentPage = 1
		st.Pages[level] = p
		return nil, false
	})
}

// SetPage moves level to page. Pages outside [1, total] are ignored.
func (s *Store) SetPage(level Level, page int) {
	s.update(func(st *State) ([]Invalidation, bool) {
		setPage(st, level, func(int) int { return page })
		return nil, false
	})
}

// NextPage advances level by one page if there is one.
func (s *Store) NextPage(level Level) {
	s.update(func(st *State) ([]Invalidation, bool) {
		setPage(st, level, func(cur int) int { return cur + 1 })
		return nil, false
	})
}

// PrevPage moves level back one page if there is one.
func (s *Store) PrevPage(level Level) {
	s.update(func(st *State) ([]Invalidation, bool) {
		setPage(st, level, func(cur int) int { return cur - 1 })
		return nil, false
	})
}

func setPage(st *State, level Level, target func(current int) int) {
	p, ok := st.Pages[level]
	if !ok {
		return
	}
	page := target(p.CurrentPage)
	if page < 1 || page > TotalPages(levelLen(st, level), p.ItemsPerPage) {
		return
	}
	p.CurrentPage = page
	st.Pages[level] = p
}

// VisiblePublishers returns the current page of filtered publishers.
func (s *Store) VisiblePublishers() []arm.Publisher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PageItems(filterPublishers(s.state.Publishers, s.state.SearchQuery), s.state.Pages[LevelPublishers])
}

// VisibleOffers returns the current page of filtered offers.
func (s *Store) VisibleOffers() []arm.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PageItems(filterOffers(s.state.Offers, s.state.SearchQuery), s.state.Pages[LevelOffers])
}

// VisibleSKUs returns the current page of filtered SKUs.
func (s *Store) VisibleSKUs() []arm.SKU {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PageItems(filterSKUs(s.state.SKUs, s.state.SearchQuery), s.state.Pages[LevelSKUs])
}
