// Package arm contains the Azure Resource Manager clients used to browse the
// VM Marketplace image catalog.
//
// Every call runs through the same layers, outermost first:
//
//	observe.Middleware   span, metrics, outcome log
//	cache.Loader         catalog lists only; hits never reach the network
//	resilience.Executor  circuit breaker, retry, rate limiter
//	Pipeline             request id, bearer token, HTTP, status classification
//
// SubscriptionClient lists subscriptions and their locations. CatalogClient
// lists publishers, offers and SKUs through three TTL caches and fetches SKU
// versions on demand, falling back across API versions.
//
// All errors returned by exported methods are *apierr.Error.
package arm
