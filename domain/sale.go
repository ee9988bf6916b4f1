package domain

import "github.com/shopspring/decimal"

// Sale is one ledger row. A bill is every row sharing the same BillNo.
type Sale struct {
	ID             int64           `db:"id" json:"id"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	QtySold        int64           `db:"qty_sold" json:"qty_sold"`
	SaleDate       string          `db:"sale_date" json:"sale_date"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	BillerID       int64           `db:"biller_id" json:"biller_id"`
	BillNo         string          `db:"bill_no" json:"bill_no"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
}

// BillLine is a sale row joined with its product name, used for receipts.
type BillLine struct {
	ProductName string          `db:"product_name" json:"product_name"`
	QtySold     int64           `db:"qty_sold" json:"qty_sold"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	SaleDate    string          `db:"sale_date" json:"sale_date"`
	BillerID    int64           `db:"biller_id" json:"biller_id"`
}

func (l BillLine) UnitPrice() decimal.Decimal {
	if l.QtySold == 0 {
		return decimal.Zero
	}
	return l.TotalAmount.Div(decimal.NewFromInt(l.QtySold)).Round(2)
}
