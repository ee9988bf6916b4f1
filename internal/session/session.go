// Package session is the root of one operator session at the billing counter.
// It owns the cart and routes operator actions through the catalog, the
// checkout workflow and the history feed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"billdesk/m/domain"
	"billdesk/m/internal/cart"
	"billdesk/m/internal/catalog"
	"billdesk/m/internal/checkout"
	"billdesk/m/internal/history"
	"billdesk/m/internal/render"
)

const (
	msgAddItemsFirst   = "Add items first!"
	msgCheckoutPending = "Checkout already in progress"
)

var ErrNoSuchResult = fmt.Errorf("%w: no such search result", domain.ErrValidation)

// Backend is everything a session needs from the ledger.
type Backend interface {
	catalog.Backend
	checkout.Submitter
	history.Fetcher
	BaseURL() string
}

type Options struct {
	CheckoutTimeout time.Duration
	SearchRate      float64
}

type Session struct {
	store    *cart.Store
	bridge   *render.Bridge
	catalog  catalog.Searcher
	workflow *checkout.Workflow
	feed     *history.Feed

	searchSeq atomic.Uint64
	mu        sync.Mutex
	results   []domain.ProductSearchResult
}

func New(backend Backend, view render.View, opts Options) *Session {
	store := cart.New()
	s := &Session{
		store:   store,
		bridge:  render.NewBridge(store, view),
		catalog: catalog.New(backend, opts.SearchRate),
		feed:    history.NewFeed(backend, backend.BaseURL()),
	}
	s.workflow = checkout.New(store, backend, opts.CheckoutTimeout, s)
	return s
}

// Start draws the empty cart and loads the bill history once.
func (s *Session) Start(ctx context.Context) error {
	s.bridge.RenderCart()
	s.bridge.RenderSearch(render.ClearedFrame())
	return s.RefreshHistory(ctx)
}

// Search shows the products matching query. Results of a search that was
// overtaken by a newer one are dropped.
func (s *Session) Search(ctx context.Context, query string) {
	tag := s.searchSeq.Add(1)
	if strings.TrimSpace(query) == "" {
		s.showResults(tag, nil, render.ClearedFrame())
		return
	}

	results, err := catalog.Collect(s.catalog.Search(ctx, query))
	if err != nil {
		log.Printf("search %q: %v", query, err)
		s.showResults(tag, nil, render.UnavailableFrame())
		return
	}
	s.showResults(tag, results, render.ResultsFrame(results))
}

func (s *Session) showResults(tag uint64, results []domain.ProductSearchResult, frame render.SearchFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tag != s.searchSeq.Load() {
		return
	}
	s.results = results
	s.bridge.RenderSearch(frame)
}

// Results returns the search results currently on screen.
func (s *Session) Results() []domain.ProductSearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProductSearchResult(nil), s.results...)
}

// Select adds the n-th (1-based) shown search result to the cart.
func (s *Session) Select(n int) error {
	s.mu.Lock()
	if n < 1 || n > len(s.results) {
		s.mu.Unlock()
		s.bridge.Notify(render.LevelError, "Error: "+ErrNoSuchResult.Error())
		return ErrNoSuchResult
	}
	product := s.results[n-1]
	s.mu.Unlock()

	return s.dispatch(render.SelectProduct{Product: product})
}

func (s *Session) EditQuantity(id domain.ProductID, raw string) error {
	return s.dispatch(render.EditQuantity{ID: id, Raw: raw})
}

func (s *Session) Remove(id domain.ProductID) error {
	return s.dispatch(render.RemoveItem{ID: id})
}

func (s *Session) dispatch(in render.Intent) error {
	if err := s.bridge.Dispatch(in); err != nil {
		s.bridge.Notify(render.LevelError, "Error: "+err.Error())
		return err
	}
	return nil
}

// ShowCart redraws the cart.
func (s *Session) ShowCart() {
	s.bridge.RenderCart()
}

// Cart projects the current cart without drawing it.
func (s *Session) Cart() render.CartFrame {
	return render.Project(s.store)
}

func (s *Session) CheckoutState() checkout.State {
	return s.workflow.State()
}

// Checkout submits the cart. A saved bill refreshes the history once.
func (s *Session) Checkout(ctx context.Context) error {
	_, err := s.workflow.Submit(ctx)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		s.bridge.Notify(render.LevelError, msgAddItemsFirst)
		return err
	case errors.Is(err, checkout.ErrCheckoutInFlight):
		s.bridge.Notify(render.LevelInfo, msgCheckoutPending)
		return err
	case err != nil:
		return err
	}
	if err := s.RefreshHistory(ctx); err != nil {
		log.Printf("refresh history after checkout: %v", err)
	}
	return nil
}

// CheckoutSucceeded implements checkout.Observer.
func (s *Session) CheckoutSucceeded(res domain.CheckoutResponse) {
	s.bridge.RenderCart()
	msg := "Bill saved successfully!"
	if res.BillNo != "" {
		msg = fmt.Sprintf("Bill %s saved successfully!", res.BillNo)
	}
	s.bridge.Notify(render.LevelSuccess, msg)
}

// CheckoutFailed implements checkout.Observer.
func (s *Session) CheckoutFailed(err error) {
	reason := err.Error()
	var rej *domain.BackendRejection
	if errors.As(err, &rej) && rej.Message != "" {
		reason = rej.Message
	}
	s.bridge.Notify(render.LevelError, "Error: "+reason)
}

// RefreshHistory reloads and redraws the bill history.
func (s *Session) RefreshHistory(ctx context.Context) error {
	table, err := s.feed.Refresh(ctx)
	if err != nil {
		s.bridge.Notify(render.LevelError, "Error: could not load bill history")
		return err
	}
	s.bridge.RenderHistory(table)
	return nil
}
