package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductID identifies a catalog product. The ledger issues integer ids but the
// cart only ever uses them as opaque keys.
type ProductID string

// MarshalJSON writes numeric ids as JSON numbers and anything else as a string.
func (id ProductID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ProductID) UnmarshalJSON(data []byte) error {
	raw, err := unquoteScalar(data)
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ProductID(raw)
	return nil
}

// Int64 returns the ledger form of the id.
func (id ProductID) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(id)), 10, 64)
}

// Price is a selling price exactly as the catalog sent it. The cart parses it
// when the product is selected.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	raw, err := unquoteScalar(data)
	if err != nil {
		return fmt.Errorf("selling price: %w", err)
	}
	*p = Price(raw)
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// ProductSearchResult is one catalog hit as seen by the till.
type ProductSearchResult struct {
	ID           ProductID `json:"id"`
	Name         string    `json:"name"`
	SellingPrice Price     `json:"selling_price"`
}

// Product is a catalog row in the ledger.
type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	StockQty     int64           `db:"stock_qty" json:"stock_qty"`
}

// unquoteScalar accepts a JSON string or number and returns its text.
func unquoteScalar(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
