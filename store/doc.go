// Package store holds the client state of a catalog browsing session.
//
// A Store is created with New and mutated only through its methods. It
// tracks the signed-in user, the subscription and location selection, the
// loaded catalog levels and the derived search and pagination views.
//
// Selection changes that make cached catalog data stale (a tenant switch, a
// different subscription or location) call the registered invalidation hooks
// synchronously, after the state update and before the method returns, so a
// caller can clear caches before it starts the next fetch.
//
// Slices returned by the Store are shared with it and must be treated as
// read-only; the Store always replaces slices and never mutates them.
package store
