// Package history shows the bills already saved in the ledger.
package history

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"billdesk/m/domain"
)

// Fetcher loads the most recent bills from the ledger.
type Fetcher interface {
	History(ctx context.Context) ([]domain.HistoryEntry, error)
}

// Row is one bill with its derived action links.
type Row struct {
	BillNo    string
	CreatedAt time.Time
	ItemCount int64
	NetAmount decimal.Decimal
	PrintURL  string
	PDFURL    string
}

// Table is a rendered history. Empty tables show a placeholder instead of rows.
type Table struct {
	Rows  []Row
	Empty bool
}

// Feed fetches history fresh on every refresh.
type Feed struct {
	fetcher Fetcher
	base    string
	group   singleflight.Group
}

// NewFeed builds print and export links under baseURL.
func NewFeed(fetcher Fetcher, baseURL string) *Feed {
	return &Feed{fetcher: fetcher, base: strings.TrimRight(baseURL, "/")}
}

// Refresh loads the history. Concurrent callers share one in-flight request;
// a finished result is never reused.
func (f *Feed) Refresh(ctx context.Context) (Table, error) {
	v, err, _ := f.group.Do("history", func() (any, error) {
		return f.fetcher.History(ctx)
	})
	if err != nil {
		return Table{}, err
	}
	return f.table(v.([]domain.HistoryEntry)), nil
}

func (f *Feed) table(entries []domain.HistoryEntry) Table {
	if len(entries) == 0 {
		return Table{Empty: true}
	}
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			BillNo:    e.BillNo,
			CreatedAt: e.CreatedAt,
			ItemCount: e.ItemCount,
			NetAmount: e.NetAmount,
			PrintURL:  f.PrintURL(e.BillNo),
			PDFURL:    f.PDFURL(e.BillNo),
		})
	}
	return Table{Rows: rows}
}

func (f *Feed) PrintURL(billNo string) string {
	return f.base + "/print/" + url.PathEscape(billNo)
}

func (f *Feed) PDFURL(billNo string) string {
	return f.base + "/pdf/" + url.PathEscape(billNo)
}
