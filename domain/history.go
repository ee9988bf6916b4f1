package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry summarises one finalized bill.
type HistoryEntry struct {
	BillNo    string          `json:"bill_no"`
	CreatedAt time.Time       `json:"created_at"`
	ItemCount int64           `json:"item_count"`
	NetAmount decimal.Decimal `json:"net_amount"`
}
