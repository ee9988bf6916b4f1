package domain

import "github.com/shopspring/decimal"

// LineItem is one product in the cart with its captured unit price.
type LineItem struct {
	ID        ProductID       `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
