package store

import (
	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/arm"
)

// clearCatalog drops every catalog level, selection and loaded marker.
func clearCatalog(st *State) {
	st.Publishers = nil
	st.PublishersLoaded = false
	st.SelectedPublisher = ""
	clearOffers(st)
	resetPages(st)
}

// clearOffers drops the offer and SKU levels.
func clearOffers(st *State) {
	st.Offers = nil
	st.OffersLoaded = false
	st.SelectedOffer = ""
	clearSKUs(st)
}

func clearSKUs(st *State) {
	st.SKUs = nil
	st.SKUsLoaded = false
}

// SetPublishers stores a loaded publisher list.
func (s *Store) SetPublishers(list []arm.Publisher) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.Publishers = list
		st.PublishersLoaded = true
		resetPage(st, LevelPublishers)
		return nil, false
	})
}

// SetOffers stores the loaded offers of publisher. The SKU level is cleared.
func (s *Store) SetOffers(list []arm.Offer, publisher string) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.SelectedPublisher = publisher
		st.SelectedOffer = ""
		st.Offers = list
		st.OffersLoaded = true
		clearSKUs(st)
		resetPage(st, LevelOffers)
		resetPage(st, LevelSKUs)
		return nil, false
	})
}

// SetSKUs stores the loaded SKUs of an offer.
func (s *Store) SetSKUs(list []arm.SKU, publisher, offer string) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.SelectedPublisher = publisher
		st.SelectedOffer = offer
		st.SKUs = list
		st.SKUsLoaded = true
		resetPage(st, LevelSKUs)
		return nil, false
	})
}

// SetSKUVersions attaches loaded versions to a SKU of the current list. It
// reports whether the SKU was found.
func (s *Store) SetSKUVersions(sku string, versions []string) (found bool) {
	s.update(func(st *State) ([]Invalidation, bool) {
		for i := range st.SKUs {
			if st.SKUs[i].Name != sku {
				continue
			}
			// Copy so earlier snapshots keep their view.
			next := make([]arm.SKU, len(st.SKUs))
			copy(next, st.SKUs)
			next[i].Versions = versions
			st.SKUs = next
			found = true
			break
		}
		return nil, false
	})
	return found
}

// SelectPublisher selects a publisher. A different publisher clears the offer
// and SKU levels.
func (s *Store) SelectPublisher(name string) {
	s.update(func(st *State) ([]Invalidation, bool) {
		if name == st.SelectedPublisher {
			return nil, false
		}
		st.SelectedPublisher = name
		clearOffers(st)
		return nil, false
	})
}

// SelectOffer selects an offer of the selected publisher. A different offer
// clears the SKU level.
func (s *Store) SelectOffer(name string) error {
	var err error
	s.update(func(st *State) ([]Invalidation, bool) {
		if st.SelectedPublisher == "" {
			err = apierr.NewValidation("select a publisher first")
			return nil, false
		}
		if name == st.SelectedOffer {
			return nil, false
		}
		st.SelectedOffer = name
		clearSKUs(st)
		return nil, false
	})
	return err
}

// ClearPublisher deselects the publisher and clears the offer and SKU levels.
func (s *Store) ClearPublisher() {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.SelectedPublisher = ""
		clearOffers(st)
		return nil, false
	})
}

// ClearAll clears the catalog and its loaded markers. The loading flag is
// kept so a fetch started just before the clear still shows as loading.
func (s *Store) ClearAll() {
	s.update(func(st *State) ([]Invalidation, bool) {
		clearCatalog(st)
		return nil, false
	})
}
