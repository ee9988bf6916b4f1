// Package render projects cart, search and history state onto a View and
// feeds operator intents back into the cart.
package render

import (
	"fmt"

	"github.com/shopspring/decimal"

	"billdesk/m/domain"
	"billdesk/m/internal/cart"
	"billdesk/m/internal/history"
)

// Row is one visible cart line.
type Row struct {
	ID        domain.ProductID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// CartFrame is a complete picture of the cart. Views replace whatever they
// showed before with it.
type CartFrame struct {
	Rows  []Row
	Total decimal.Decimal
}

type SearchState int

const (
	SearchCleared SearchState = iota
	SearchResults
	SearchEmpty
	SearchUnavailable
)

const (
	msgNoProduct         = "No product found"
	msgSearchUnavailable = "Search unavailable, try again"
)

// SearchFrame is a complete picture of the search results panel.
type SearchFrame struct {
	State   SearchState
	Results []domain.ProductSearchResult
	Message string
}

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

type Notice struct {
	Level Level
	Text  string
}

// View draws frames. Each call fully replaces the corresponding panel.
type View interface {
	RenderCart(CartFrame)
	RenderSearch(SearchFrame)
	RenderHistory(history.Table)
	Notify(Notice)
}

// Intent is a cart mutation requested by the operator.
type Intent interface {
	intent()
}

type SelectProduct struct {
	Product domain.ProductSearchResult
}

type EditQuantity struct {
	ID  domain.ProductID
	Raw string
}

type RemoveItem struct {
	ID domain.ProductID
}

func (SelectProduct) intent() {}
func (EditQuantity) intent()  {}
func (RemoveItem) intent()    {}

// Bridge keeps a View in step with a cart.Store.
type Bridge struct {
	store *cart.Store
	view  View
}

func NewBridge(store *cart.Store, view View) *Bridge {
	return &Bridge{store: store, view: view}
}

// Dispatch applies one intent and redraws the cart. A rejected intent leaves
// the cart as it was and is returned to the caller.
func (b *Bridge) Dispatch(in Intent) error {
	var err error
	switch in := in.(type) {
	case SelectProduct:
		err = b.store.AddOrIncrement(in.Product)
	case EditQuantity:
		b.store.SetQuantity(in.ID, in.Raw)
	case RemoveItem:
		b.store.Remove(in.ID)
	default:
		err = fmt.Errorf("unknown intent %T", in)
	}
	b.RenderCart()
	return err
}

// RenderCart draws the current cart and returns the frame drawn.
func (b *Bridge) RenderCart() CartFrame {
	frame := Project(b.store)
	b.view.RenderCart(frame)
	return frame
}

func (b *Bridge) RenderSearch(frame SearchFrame) {
	b.view.RenderSearch(frame)
}

func (b *Bridge) RenderHistory(table history.Table) {
	b.view.RenderHistory(table)
}

func (b *Bridge) Notify(level Level, text string) {
	b.view.Notify(Notice{Level: level, Text: text})
}

// Project builds a frame from the store without drawing it.
func Project(store *cart.Store) CartFrame {
	items := store.Items()
	frame := CartFrame{Rows: make([]Row, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		line := item.LineTotal()
		frame.Rows = append(frame.Rows, Row{
			ID:        item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: line,
		})
		frame.Total = frame.Total.Add(line)
	}
	return frame
}

// ResultsFrame shows results, or the "no product" state when there are none.
func ResultsFrame(results []domain.ProductSearchResult) SearchFrame {
	if len(results) == 0 {
		return SearchFrame{State: SearchEmpty, Message: msgNoProduct}
	}
	return SearchFrame{State: SearchResults, Results: results}
}

func UnavailableFrame() SearchFrame {
	return SearchFrame{State: SearchUnavailable, Message: msgSearchUnavailable}
}

func ClearedFrame() SearchFrame {
	return SearchFrame{State: SearchCleared}
}
