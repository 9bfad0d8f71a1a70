package store

import (
	"strings"

	"github.com/jonwraymond/vmcatalog/arm"
)

// SetSearchQuery sets the free-text filter and returns every level to its
// first page.
func (s *Store) SetSearchQuery(q string) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.SearchQuery = q
		resetPages(st)
		return nil, false
	})
}

// FilteredPublishers returns the publishers matching the search query. With
// an empty query the stored slice itself is returned.
func (s *Store) FilteredPublishers() []arm.Publisher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterPublishers(s.state.Publishers, s.state.SearchQuery)
}

// FilteredOffers returns the offers matching the search query.
func (s *Store) FilteredOffers() []arm.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterOffers(s.state.Offers, s.state.SearchQuery)
}

// FilteredSKUs returns the SKUs matching the search query.
func (s *Store) FilteredSKUs() []arm.SKU {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSKUs(s.state.SKUs, s.state.SearchQuery)
}

func filterPublishers(items []arm.Publisher, q string) []arm.Publisher {
	return filter(items, q, func(p arm.Publisher) (string, string) { return p.Name, p.DisplayName })
}

func filterOffers(items []arm.Offer, q string) []arm.Offer {
	return filter(items, q, func(o arm.Offer) (string, string) { return o.Name, o.DisplayName })
}

func filterSKUs(items []arm.SKU, q string) []arm.SKU {
	return filter(items, q, func(s arm.SKU) (string, string) { return s.Name, s.DisplayName })
}

// filter keeps items whose name or display name contains q, ignoring case.
func filter[T any](items []T, q string, fields func(T) (name, displayName string)) []T {
	q = strings.TrimSpace(q)
	if q == "" {
		return items
	}
	q = strings.ToLower(q)

	out := make([]T, 0, len(items))
	for _, item := range items {
		name, display := fields(item)
		if strings.Contains(strings.ToLower(name), q) || strings.Contains(strings.ToLower(display), q) {
			out = append(out, item)
		}
	}
	return out
}
