package console

import (
	"context"

	"github.com/vincense/orderflow/internal/breaker"
	"github.com/vincense/orderflow/pkg/models"
)

// GuardedFetcher wraps a Fetcher with a fail-fast breaker so refetch storms
// against a down store error out immediately instead of queueing.
type GuardedFetcher struct {
	inner Fetcher
	guard *breaker.Breaker
}

func NewGuardedFetcher(inner Fetcher, guard *breaker.Breaker) *GuardedFetcher {
	return &GuardedFetcher{inner: inner, guard: guard}
}

func (g *GuardedFetcher) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order *models.Order
	err := g.guard.Execute(func() error {
		var err error
		order, err = g.inner.GetOrder(ctx, id)
		return err
	})
	return order, err
}

func (g *GuardedFetcher) ListOrders(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	err := g.guard.Execute(func() error {
		var err error
		orders, err = g.inner.ListOrders(ctx)
		return err
	})
	return orders, err
}
