package cache

import (
	"context"
	"errors"

	"billdesk/m/domain"
)

// SearchCache stores catalog search responses keyed by normalized query.
type SearchCache interface {
	Get(ctx context.Context, query string) ([]domain.Product, error)
	Set(ctx context.Context, query string, products []domain.Product) error
	// Invalidate drops every cached response, e.g. after stock moved.
	Invalidate(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")
