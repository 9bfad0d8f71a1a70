// Package session ties the signed-in account, the selection store and the
// ARM clients together.
//
// A Factory builds the clients for the selected subscription with a token
// provider scoped to that subscription's tenant. A Coordinator owns a
// store.Store and a Factory. It sequences every selection change as
// "update state, clear stale cache entries, reload", and drops results of
// loads that a later selection change made stale.
package session
