package store

import (
	"context"
	"sync"

	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/arm"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/observe"
)

// Option configures a Store.
type Option func(*Store)

// WithPersister saves the persisted subset of the state after every change
// to it.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger observe.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the client state container.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Hooks run synchronously on the mutating goroutine, without the Store's
//     lock held, so they may read the Store.
type Store struct {
	mu    sync.RWMutex
	state State
	hooks []InvalidationHook

	persister Persister
	logger    observe.Logger
}

// New creates a Store in its initial state.
func New(opts ...Option) *Store {
	s := &Store{
		state:  initialState(),
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnInvalidate registers a hook called after selection changes.
func (s *Store) OnInvalidate(hook InvalidationHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Generation returns the current request generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Generation
}

// update applies fn under the lock, then persists and runs hooks for the
// invalidations fn reports.
func (s *Store) update(fn func(st *State) (invalidations []Invalidation, persist bool)) {
	s.mu.Lock()
	invalidations, persist := fn(&s.state)
	if len(invalidations) > 0 {
		s.state.Generation++
	}
	hooks := append([]InvalidationHook(nil), s.hooks...)
	var snapshot Persisted
	if persist {
		snapshot = s.state.persisted()
	}
	s.mu.Unlock()

	if persist && s.persister != nil {
		if err := s.persister.Save(snapshot); err != nil {
			s.logger.Warn(context.Background(), "failed to persist state", observe.Field{Key: "error", Value: err})
		}
	}
	for _, inv := range invalidations {
		for _, hook := range hooks {
			hook(inv)
		}
	}
}

// Login records a successful sign-in and reports whether it was a tenant
// switch. A switch resets the subscription and location selection and the
// catalog in the same update.
func (s *Store) Login(user *auth.User) (switched bool) {
	s.update(func(st *State) ([]Invalidation, bool) {
		prev := st.User
		switched = auth.IsTenantSwitch(prev, user)

		st.Authenticated = true
		st.User = user
		st.AuthError = ""
		if !switched {
			return nil, false
		}

		inv := Invalidation{Change: ChangeTenant, Previous: prev.TenantID, Subscription: st.SelectedSubscription}
		st.Subscriptions = nil
		st.SelectedSubscription = ""
		st.Locations = nil
		st.SelectedLocation = FallbackLocation
		clearCatalog(st)
		return []Invalidation{inv}, true
	})
	return switched
}

// Logout resets the store to its initial state. Hooks and the generation
// counter survive.
func (s *Store) Logout() {
	s.update(func(st *State) ([]Invalidation, bool) {
		var prevTenant string
		if st.User != nil {
			prevTenant = st.User.TenantID
		}
		inv := Invalidation{Change: ChangeTenant, Previous: prevTenant, Subscription: st.SelectedSubscription}

		gen := st.Generation
		*st = initialState()
		st.Generation = gen
		return []Invalidation{inv}, true
	})
}

// SetAuthError records a failed sign-in.
func (s *Store) SetAuthError(msg string) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.AuthError = msg
		return nil, false
	})
}

// SetSubscriptions replaces the subscription list. The first subscription is
// selected when nothing is selected yet or when the selection is not in the
// new list.
func (s *Store) SetSubscriptions(list []arm.Subscription) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.Subscriptions = list
		if inv, ok := ensureValidSubscription(st); ok {
			return []Invalidation{inv}, true
		}
		return nil, true
	})
}

func ensureValidSubscription(st *State) (Invalidation, bool) {
	prev := st.SelectedSubscription
	if prev != "" && hasSubscription(st.Subscriptions, prev) {
		return Invalidation{}, false
	}
	if prev == "" && len(st.Subscriptions) == 0 {
		return Invalidation{}, false
	}

	st.SelectedSubscription = ""
	if len(st.Subscriptions) > 0 {
		st.SelectedSubscription = st.Subscriptions[0].SubscriptionID
	}
	if prev == "" {
		return Invalidation{}, false
	}
	clearCatalog(st)
	return Invalidation{Change: ChangeSubscription, Previous: prev, Subscription: prev}, true
}

// SelectSubscription selects id and returns the previous selection. An id
// that is not in the loaded list is rejected with an Authorization error and
// changes nothing.
func (s *Store) SelectSubscription(id string) (previous string, err error) {
	s.update(func(st *State) ([]Invalidation, bool) {
		previous = st.SelectedSubscription
		if !hasSubscription(st.Subscriptions, id) {
			e := apierr.NewAuthorization("You don't have access to subscription " + id + ".")
			st.Error = e.Message
			err = e
			return nil, false
		}
		if id == previous {
			return nil, false
		}

		st.SelectedSubscription = id
		clearCatalog(st)
		return []Invalidation{{Change: ChangeSubscription, Previous: previous, Subscription: previous}}, true
	})
	return previous, err
}

func hasSubscription(list []arm.Subscription, id string) bool {
	for _, sub := range list {
		if sub.SubscriptionID == id {
			return true
		}
	}
	return false
}

// SetLocations replaces the location list and then makes sure the selected
// location is one of them.
func (s *Store) SetLocations(list []arm.Location) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.Locations = list
		if inv, ok := ensureValidLocation(st); ok {
			return []Invalidation{inv}, true
		}
		return nil, true
	})
}

// EnsureValidLocation falls back to the first loaded location, or
// FallbackLocation, when the selected location is not in the loaded list.
// It reports whether the selection changed.
func (s *Store) EnsureValidLocation() (changed bool) {
	s.update(func(st *State) ([]Invalidation, bool) {
		inv, ok := ensureValidLocation(st)
		changed = ok
		if !ok {
			return nil, false
		}
		return []Invalidation{inv}, true
	})
	return changed
}

func ensureValidLocation(st *State) (Invalidation, bool) {
	if len(st.Locations) == 0 {
		return Invalidation{}, false
	}
	for _, loc := range st.Locations {
		if loc.Name == st.SelectedLocation {
			return Invalidation{}, false
		}
	}

	prev := st.SelectedLocation
	st.SelectedLocation = st.Locations[0].Name
	if st.SelectedLocation == "" {
		st.SelectedLocation = FallbackLocation
	}
	if st.SelectedLocation == prev {
		return Invalidation{}, false
	}
	clearCatalog(st)
	return Invalidation{Change: ChangeLocation, Previous: prev, Subscription: st.SelectedSubscription}, true
}

// SelectLocation selects name. The loaded location list is not consulted.
func (s *Store) SelectLocation(name string) {
	s.update(func(st *State) ([]Invalidation, bool) {
		prev := st.SelectedLocation
		if name == prev {
			return nil, false
		}
		st.SelectedLocation = name
		clearCatalog(st)
		return []Invalidation{{Change: ChangeLocation, Previous: prev, Subscription: st.SelectedSubscription}}, true
	})
}

// SetLoading sets the in-flight flag.
func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.Loading = loading
		return nil, false
	})
}

// SetError records err as its user-facing message. A nil err clears it.
func (s *Store) SetError(err error) {
	s.update(func(st *State) ([]Invalidation, bool) {
		st.Error = apierr.UserMessage(err)
		return nil, false
	})
}
