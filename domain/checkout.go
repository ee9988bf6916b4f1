package domain

import "github.com/shopspring/decimal"

// CheckoutMessageSuccess is the acknowledgment the ledger sends for a saved bill.
const CheckoutMessageSuccess = "success"

type CheckoutItem struct {
	ProductID ProductID       `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CheckoutRequest is the wire body of a checkout. It is always built from a
// cart snapshot, never from live cart state.
type CheckoutRequest struct {
	Items []CheckoutItem `json:"items"`
}

type CheckoutResponse struct {
	Message string  `json:"message"`
	Error   string  `json:"error,omitempty"`
	BillNo  string  `json:"bill_no,omitempty"`
	SaleIDs []int64 `json:"sale_ids,omitempty"`
}

func (r CheckoutResponse) Succeeded() bool {
	return r.Message == CheckoutMessageSuccess
}
