package store

import (
	"maps"

	"github.com/jonwraymond/vmcatalog/arm"
	"github.com/jonwraymond/vmcatalog/auth"
)

// FallbackLocation is selected when no loaded location can be.
const FallbackLocation = arm.DefaultLocation

// DefaultItemsPerPage is the initial page size of every level.
const DefaultItemsPerPage = 24

// Level is a paginated catalog level.
type Level int

const (
	LevelPublishers Level = iota + 1
	LevelOffers
	LevelSKUs
)

// Levels lists every level.
var Levels = []Level{LevelPublishers, LevelOffers, LevelSKUs}

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelPublishers:
		return "publishers"
	case LevelOffers:
		return "offers"
	case LevelSKUs:
		return "skus"
	default:
		return "unknown"
	}
}

// Pagination is the cursor of one level.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
}

func defaultPagination() Pagination {
	return Pagination{CurrentPage: 1, ItemsPerPage: DefaultItemsPerPage}
}

// State is a point-in-time view of a Store.
type State struct {
	Authenticated bool
	User          *auth.User
	AuthError     string

	Subscriptions        []arm.Subscription
	SelectedSubscription string
	Locations            []arm.Location
	SelectedLocation     string

	Publishers        []arm.Publisher
	Offers            []arm.Offer
	SKUs              []arm.SKU
	SelectedPublisher string
	SelectedOffer     string

	// Loaded markers are set only after a successful fetch. An empty, loaded
	// level is a valid state.
	PublishersLoaded bool
	OffersLoaded     bool
	SKUsLoaded       bool

	Loading bool
	Error   string

	SearchQuery string
	Pages       map[Level]Pagination

	// Generation increases whenever a selection change makes in-flight
	// fetches stale.
	Generation uint64
}

func initialState() State {
	pages := make(map[Level]Pagination, len(Levels))
	for _, l := range Levels {
		pages[l] = defaultPagination()
	}
	return State{
		SelectedLocation: FallbackLocation,
		Pages:            pages,
	}
}

func (s State) clone() State {
	s.Pages = maps.Clone(s.Pages)
	return s
}

// SelectedSubscriptionInfo returns the selected subscription, if it is in
// the loaded list.
func (s State) SelectedSubscriptionInfo() (arm.Subscription, bool) {
	for _, sub := range s.Subscriptions {
		if sub.SubscriptionID == s.SelectedSubscription {
			return sub, true
		}
	}
	return arm.Subscription{}, false
}

// Change is the kind of selection change reported to invalidation hooks.
type Change int

const (
	// ChangeTenant is a sign-in as a different identity, or a sign-out.
	ChangeTenant Change = iota + 1
	// ChangeSubscription is a different selected subscription.
	ChangeSubscription
	// ChangeLocation is a different selected location.
	ChangeLocation
)

// String returns the change name.
func (c Change) String() string {
	switch c {
	case ChangeTenant:
		return "tenant"
	case ChangeSubscription:
		return "subscription"
	case ChangeLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Invalidation describes one selection change.
type Invalidation struct {
	Change Change

	// Previous is the old subscription id or location, or the old tenant id
	// for ChangeTenant.
	Previous string

	// Subscription is the subscription selected before the change.
	Subscription string
}

// InvalidationHook is called after a selection change.
type InvalidationHook func(Invalidation)
