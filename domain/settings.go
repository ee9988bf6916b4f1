package domain

// ReorderSettings are the shop-wide defaults used by the reorder screens.
type ReorderSettings struct {
	MinStockLevel int `json:"min_stock_level"`
	LeadTimeDays  int `json:"lead_time_days"`
}
