package arm

import (
	"context"

	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/cache"
	"github.com/jonwraymond/vmcatalog/observe"
	"github.com/jonwraymond/vmcatalog/resilience"
)

const catalogAPIVersion = "2023-07-01"

// skuVersionAPIVersions are tried in order until one returns a version list.
var skuVersionAPIVersions = []string{
	"2023-07-01",
	"2023-03-01",
	"2022-11-01",
	"2022-08-01",
}

// CatalogClient browses the VM image catalog of one subscription scope.
//
// Publishers, offers and SKUs are cached per level and keyed by
// subscription-[publisher-[offer-]]location. Concurrent misses for the same
// key share one request. SKU versions are never cached.
//
// Every HTTP attempt, retries included, takes a slot from the client's
// sliding window limiter.
type CatalogClient struct {
	pipeline   *Pipeline
	middleware *observe.Middleware

	// lists runs breaker, retry and limiter; versions runs the limiter only.
	lists    *resilience.Executor
	versions *resilience.Executor

	publishers *cache.Loader[[]Publisher]
	offers     *cache.Loader[[]Offer]
	skus       *cache.Loader[[]SKU]
}

// NewCatalogClient creates a CatalogClient.
func NewCatalogClient(tokens auth.TokenProvider, opts ...Option) *CatalogClient {
	o := buildOptions(opts)

	breaker := o.breakerConfig("catalog")
	limiter := resilience.NewWindowLimiter(o.limiter)

	listOpts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(breaker)),
		resilience.WithRetry(resilience.NewRetry(o.retry)),
		resilience.WithRateLimiter(limiter),
	}
	versionOpts := []resilience.ExecutorOption{
		resilience.WithRateLimiter(limiter),
	}
	if o.timeout > 0 {
		listOpts = append(listOpts, resilience.WithTimeout(o.timeout))
		versionOpts = append(versionOpts, resilience.WithTimeout(o.timeout))
	}

	clock := cache.WithClock(o.now)
	return &CatalogClient{
		pipeline:   newPipeline(tokens, o),
		middleware: o.middleware,
		lists:      resilience.NewExecutor(listOpts...),
		versions:   resilience.NewExecutor(versionOpts...),
		publishers: cache.NewLoader(cache.NewTTLCache[[]Publisher](o.cache.EffectiveTTL(o.cache.PublishersTTL), clock)),
		offers:     cache.NewLoader(cache.NewTTLCache[[]Offer](o.cache.EffectiveTTL(o.cache.OffersTTL), clock)),
		skus:       cache.NewLoader(cache.NewTTLCache[[]SKU](o.cache.EffectiveTTL(o.cache.SKUsTTL), clock)),
	}
}

// CircuitBreaker returns the breaker guarding the list operations.
func (c *CatalogClient) CircuitBreaker() *resilience.CircuitBreaker {
	return c.lists.CircuitBreaker()
}

// RateLimiter returns the client's request window.
func (c *CatalogClient) RateLimiter() *resilience.WindowLimiter {
	return c.lists.RateLimiter()
}

func computePath(subscriptionID, location string) string {
	return "/subscriptions/" + segment(subscriptionID) +
		"/providers/Microsoft.Compute/locations/" + segment(location)
}

func orDefaultLocation(location string) string {
	if location == "" {
		return DefaultLocation
	}
	return location
}

// GetPublishers lists image publishers in location. An empty location means
// DefaultLocation.
func (c *CatalogClient) GetPublishers(ctx context.Context, subscriptionID, location string) ([]Publisher, error) {
	if err := requireArg("subscription id", subscriptionID); err != nil {
		return nil, err
	}
	location = orDefaultLocation(location)

	meta := operationMeta(ctx, "catalog", "publishers", subscriptionID, location)
	path := computePath(subscriptionID, location) + "/publishers"

	return loadList(ctx, c, meta, c.publishers, cache.Key(subscriptionID, location), path,
		func(r namedResource) Publisher {
			return Publisher{Name: r.Name, DisplayName: r.Name, Location: location}
		})
}

// GetOffers lists the offers of publisher.
func (c *CatalogClient) GetOffers(ctx context.Context, subscriptionID, publisher, location string) ([]Offer, error) {
	if err := requireArg("subscription id", subscriptionID); err != nil {
		return nil, err
	}
	if err := requireArg("publisher", publisher); err != nil {
		return nil, err
	}
	location = orDefaultLocation(location)

	meta := operationMeta(ctx, "catalog", "offers", subscriptionID, location)
	path := computePath(subscriptionID, location) +
		"/publishers/" + segment(publisher) + "/artifacttypes/vmimage/offers"

	return loadList(ctx, c, meta, c.offers, cache.Key(subscriptionID, publisher, location), path,
		func(r namedResource) Offer {
			return Offer{Name: r.Name, DisplayName: r.Name, Publisher: publisher, Location: location}
		})
}

// GetSKUs lists the SKUs of an offer. Returned SKUs carry no versions.
func (c *CatalogClient) GetSKUs(ctx context.Context, subscriptionID, publisher, offer, location string) ([]SKU, error) {
	if err := requireArg("subscription id", subscriptionID); err != nil {
		return nil, err
	}
	if err := requireArg("publisher", publisher); err != nil {
		return nil, err
	}
	if err := requireArg("offer", offer); err != nil {
		return nil, err
	}
	location = orDefaultLocation(location)

	meta := operationMeta(ctx, "catalog", "skus", subscriptionID, location)
	path := computePath(subscriptionID, location) +
		"/publishers/" + segment(publisher) +
		"/artifacttypes/vmimage/offers/" + segment(offer) + "/skus"

	return loadList(ctx, c, meta, c.skus, cache.Key(subscriptionID, publisher, offer, location), path,
		func(r namedResource) SKU {
			return SKU{
				Name:        r.Name,
				DisplayName: r.Name,
				Publisher:   publisher,
				Offer:       offer,
				Location:    location,
				Versions:    []string{},
			}
		})
}

// loadList serves key from loader, fetching and mapping path on a miss.
func loadList[T any](
	ctx context.Context,
	c *CatalogClient,
	meta observe.OperationMeta,
	loader *cache.Loader[[]T],
	key, path string,
	mapItem func(namedResource) T,
) ([]T, error) {
	if cached, ok := loader.Cache().Get(key); ok {
		return cached, nil
	}

	var out []T
	err := c.middleware.Run(ctx, meta, func(ctx context.Context) error {
		v, _, err := loader.Load(ctx, key, func(ctx context.Context) ([]T, error) {
			items, err := resilience.Run(ctx, c.lists, func(ctx context.Context) ([]namedResource, error) {
				body, err := c.pipeline.Get(ctx, path, catalogAPIVersion)
				if err != nil {
					return nil, err
				}
				return decodeList[namedResource](body)
			})
			if err != nil {
				return nil, err
			}

			mapped := make([]T, 0, len(items))
			for _, item := range items {
				mapped = append(mapped, mapItem(item))
			}
			return mapped, nil
		})
		out = v
		return err
	})
	if err != nil {
		return nil, apierr.Classify(err)
	}
	return out, nil
}

// GetSKUVersions lists the image versions of a SKU, "latest" first and the
// rest newest first.
//
// API versions are tried newest first. A failed API version, whatever the
// status, moves on to the next one. When every API version fails the result
// is an empty list and a nil error; the failures are logged. Only
// cancellation of ctx is returned as an error.
func (c *CatalogClient) GetSKUVersions(ctx context.Context, subscriptionID, publisher, offer, sku, location string) ([]string, error) {
	for _, arg := range [][2]string{
		{"subscription id", subscriptionID},
		{"publisher", publisher},
		{"offer", offer},
		{"sku", sku},
	} {
		if err := requireArg(arg[0], arg[1]); err != nil {
			return nil, err
		}
	}
	location = orDefaultLocation(location)

	meta := operationMeta(ctx, "catalog", "versions", subscriptionID, location)
	path := computePath(subscriptionID, location) +
		"/publishers/" + segment(publisher) +
		"/artifacttypes/vmimage/offers/" + segment(offer) +
		"/skus/" + segment(sku) + "/versions"

	out := []string{}
	err := c.middleware.Run(ctx, meta, func(ctx context.Context) error {
		logger := c.middleware.Logger().With(meta)

		for _, apiVersion := range skuVersionAPIVersions {
			items, err := resilience.Run(ctx, c.versions, func(ctx context.Context) ([]namedResource, error) {
				body, err := c.pipeline.Get(ctx, path, apiVersion)
				if err != nil {
					return nil, err
				}
				return decodeList[namedResource](body)
			})
			if err == nil {
				names := make([]string, 0, len(items))
				for _, item := range items {
					names = append(names, item.Name)
				}
				SortVersions(names)
				out = names
				return nil
			}

			if ctx.Err() != nil {
				return apierr.Classify(ctx.Err())
			}

			fields := []observe.Field{
				{Key: "api_version", Value: apiVersion},
				{Key: "error", Value: err},
			}
			if e, ok := apierr.As(err); ok && isUnsupportedAPIVersion(e) {
				logger.Debug(ctx, "sku versions not served by api version", fields...)
				continue
			}
			logger.Warn(ctx, "sku versions request failed", fields...)
		}

		logger.Warn(ctx, "sku versions unavailable for every api version")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isUnsupportedAPIVersion(e *apierr.Error) bool {
	return e.StatusCode == 400 || e.StatusCode == 404
}

// ClearCache empties every catalog cache.
func (c *CatalogClient) ClearCache() {
	c.publishers.Clear()
	c.offers.Clear()
	c.skus.Clear()
}

// ClearCacheForSubscription drops the entries of one subscription and
// returns how many were removed.
func (c *CatalogClient) ClearCacheForSubscription(subscriptionID string) int {
	if subscriptionID == "" {
		return 0
	}
	prefix := cache.SubscriptionPrefix(subscriptionID)
	return c.publishers.DeletePrefix(prefix) +
		c.offers.DeletePrefix(prefix) +
		c.skus.DeletePrefix(prefix)
}

// Stats reports the live entries per cache.
func (c *CatalogClient) Stats() CacheStats {
	return CacheStats{
		Publishers: c.publishers.Cache().Len(),
		Offers:     c.offers.Cache().Len(),
		SKUs:       c.skus.Cache().Len(),
	}
}
