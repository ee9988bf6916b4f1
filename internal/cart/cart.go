// Package cart holds the operator's in-progress bill.
package cart

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"billdesk/m/domain"
)

// InvalidPriceError reports a selling price that is not a non-negative number.
type InvalidPriceError struct {
	ProductID domain.ProductID
	Raw       string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid selling price %q for product %s", e.Raw, e.ProductID)
}

func (e *InvalidPriceError) Is(target error) bool { return target == domain.ErrValidation }

// Store maps product ids to line items, keeping first-insertion order for display.
type Store struct {
	mu    sync.Mutex
	items map[domain.ProductID]*domain.LineItem
	order []domain.ProductID
}

func New() *Store {
	return &Store{items: make(map[domain.ProductID]*domain.LineItem)}
}

// AddOrIncrement puts one unit of p in the cart. A product already in the cart
// keeps its captured price and gains one unit.
func (s *Store) AddOrIncrement(p domain.ProductSearchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[p.ID]; ok {
		item.Quantity++
		return nil
	}

	price, err := ParsePrice(p.SellingPrice)
	if err != nil {
		return &InvalidPriceError{ProductID: p.ID, Raw: string(p.SellingPrice)}
	}
	s.items[p.ID] = &domain.LineItem{ID: p.ID, Name: p.Name, UnitPrice: price, Quantity: 1}
	s.order = append(s.order, p.ID)
	return nil
}

// SetQuantity applies an operator-typed quantity. Anything that is not a
// positive integer becomes 1. Unknown ids are ignored.
func (s *Store) SetQuantity(id domain.ProductID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[id]; ok {
		item.Quantity = ParseQuantity(raw)
	}
}

// Remove deletes the line for id, if any.
func (s *Store) Remove(id domain.ProductID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Total is recomputed from the current lines on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Items returns a copy of the lines in display order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.LineItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// Snapshot copies the cart into a checkout request. Later cart mutations do
// not affect the returned value.
func (s *Store) Snapshot() domain.CheckoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := domain.CheckoutRequest{Items: make([]domain.CheckoutItem, 0, len(s.order))}
	for _, id := range s.order {
		item := s.items[id]
		req.Items = append(req.Items, domain.CheckoutItem{
			ProductID: item.ID,
			Qty:       item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return req
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.items)
	s.order = nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// ParsePrice reads a catalog selling price.
func ParsePrice(raw domain.Price) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
	if err != nil {
		return decimal.Zero, err
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", price)
	}
	return price, nil
}

// ParseQuantity reads the leading integer of raw, so "2.5" is 2 and "3 pcs"
// is 3. Values without digits, below 1 or out of range give 1.
func ParseQuantity(raw string) int {
	s := strings.TrimSpace(raw)
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		d := int(s[digits] - '0')
		if n > (math.MaxInt32-d)/10 {
			return 1
		}
		n = n*10 + d
	}
	if digits == 0 || negative || n < 1 {
		return 1
	}
	return n
}
