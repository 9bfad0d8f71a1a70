package arm

import (
	"context"

	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/observe"
	"github.com/jonwraymond/vmcatalog/resilience"
)

const (
	subscriptionsAPIVersion = "2020-01-01"
	locationsAPIVersion     = "2022-12-01"
)

// SubscriptionClient lists subscriptions and their locations.
//
// Calls go through the client's own circuit breaker and retry policy. There
// is no rate limiter or cache at this level.
type SubscriptionClient struct {
	pipeline   *Pipeline
	executor   *resilience.Executor
	middleware *observe.Middleware
}

// NewSubscriptionClient creates a SubscriptionClient.
func NewSubscriptionClient(tokens auth.TokenProvider, opts ...Option) *SubscriptionClient {
	o := buildOptions(opts)

	breaker := o.breakerConfig("subscriptions")

	execOpts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(breaker)),
		resilience.WithRetry(resilience.NewRetry(o.retry)),
	}
	if o.timeout > 0 {
		execOpts = append(execOpts, resilience.WithTimeout(o.timeout))
	}

	return &SubscriptionClient{
		pipeline:   newPipeline(tokens, o),
		executor:   resilience.NewExecutor(execOpts...),
		middleware: o.middleware,
	}
}

// CircuitBreaker returns the client's breaker.
func (c *SubscriptionClient) CircuitBreaker() *resilience.CircuitBreaker {
	return c.executor.CircuitBreaker()
}

// GetSubscriptions lists the subscriptions the caller can see.
func (c *SubscriptionClient) GetSubscriptions(ctx context.Context) ([]Subscription, error) {
	var out []Subscription
	meta := operationMeta(ctx, "subscriptions", "list", "", "")

	err := c.middleware.Run(ctx, meta, func(ctx context.Context) error {
		items, err := resilience.Run(ctx, c.executor, func(ctx context.Context) ([]subscriptionResource, error) {
			body, err := c.pipeline.Get(ctx, "/subscriptions", subscriptionsAPIVersion)
			if err != nil {
				return nil, err
			}
			return decodeValue[subscriptionResource](body)
		})
		if err != nil {
			return err
		}

		out = make([]Subscription, 0, len(items))
		for _, item := range items {
			out = append(out, item.toSubscription())
		}
		return nil
	})
	return out, err
}

// GetSubscription returns one subscription.
func (c *SubscriptionClient) GetSubscription(ctx context.Context, subscriptionID string) (Subscription, error) {
	if err := requireArg("subscription id", subscriptionID); err != nil {
		return Subscription{}, err
	}

	var out Subscription
	meta := operationMeta(ctx, "subscriptions", "get", subscriptionID, "")

	err := c.middleware.Run(ctx, meta, func(ctx context.Context) error {
		res, err := resilience.Run(ctx, c.executor, func(ctx context.Context) (subscriptionResource, error) {
			var r subscriptionResource
			body, err := c.pipeline.Get(ctx, "/subscriptions/"+segment(subscriptionID), subscriptionsAPIVersion)
			if err != nil {
				return r, err
			}
			if err := decodeObject(body, &r); err != nil {
				return r, err
			}
			return r, nil
		})
		out = res.toSubscription()
		return err
	})
	return out, err
}

// GetLocations lists the regions available to a subscription.
func (c *SubscriptionClient) GetLocations(ctx context.Context, subscriptionID string) ([]Location, error) {
	if err := requireArg("subscription id", subscriptionID); err != nil {
		return nil, err
	}

	var out []Location
	meta := operationMeta(ctx, "subscriptions", "locations", subscriptionID, "")

	err := c.middleware.Run(ctx, meta, func(ctx context.Context) error {
		path := "/subscriptions/" + segment(subscriptionID) + "/locations"
		items, err := resilience.Run(ctx, c.executor, func(ctx context.Context) ([]locationResource, error) {
			body, err := c.pipeline.Get(ctx, path, locationsAPIVersion)
			if err != nil {
				return nil, err
			}
			return decodeValue[locationResource](body)
		})
		if err != nil {
			return err
		}

		out = make([]Location, 0, len(items))
		for _, item := range items {
			out = append(out, Location(item))
		}
		return nil
	})
	return out, err
}
