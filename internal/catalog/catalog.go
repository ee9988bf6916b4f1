// Package catalog queries the product catalog for the billing counter.
package catalog

import (
	"context"
	"iter"
	"strings"

	"golang.org/x/time/rate"

	"billdesk/m/domain"
)

// Backend is the remote catalog endpoint.
type Backend interface {
	Search(ctx context.Context, query string) ([]domain.ProductSearchResult, error)
}

// Searcher is what the session needs from a catalog.
type Searcher interface {
	Search(ctx context.Context, query string) iter.Seq2[domain.ProductSearchResult, error]
}

// Catalog issues throttled catalog queries.
type Catalog struct {
	backend Backend
	limiter *rate.Limiter
}

// New returns a catalog that sends at most perSecond queries per second.
// A non-positive rate disables throttling.
func New(backend Backend, perSecond float64) *Catalog {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Catalog{backend: backend, limiter: rate.NewLimiter(limit, 1)}
}

// Search returns the products matching query. Nothing is sent until the
// sequence is ranged over, and every range sends a fresh query. A blank query
// yields nothing without contacting the backend. A failed query yields a
// single error.
func (c *Catalog) Search(ctx context.Context, query string) iter.Seq2[domain.ProductSearchResult, error] {
	query = strings.TrimSpace(query)
	return func(yield func(domain.ProductSearchResult, error) bool) {
		if query == "" {
			return
		}
		if err := c.limiter.Wait(ctx); err != nil {
			yield(domain.ProductSearchResult{}, err)
			return
		}
		results, err := c.backend.Search(ctx, query)
		if err != nil {
			yield(domain.ProductSearchResult{}, err)
			return
		}
		for _, r := range results {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Collect drains a search sequence, stopping at the first error.
func Collect(seq iter.Seq2[domain.ProductSearchResult, error]) ([]domain.ProductSearchResult, error) {
	results := []domain.ProductSearchResult{}
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
