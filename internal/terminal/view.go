// Package terminal is a line-oriented front end for the billing counter.
package terminal

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"billdesk/m/internal/history"
	"billdesk/m/internal/render"
)

const timeLayout = "2006-01-02 15:04"

// View prints frames as plain-text tables.
type View struct {
	mu  sync.Mutex
	out io.Writer
}

func NewView(out io.Writer) *View {
	return &View{out: out}
}

func (v *View) RenderCart(frame render.CartFrame) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(frame.Rows) == 0 {
		fmt.Fprintln(v.out, "Cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tItem\tQty\tPrice\tTotal")
	for _, row := range frame.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", row.ID, row.Name, row.Quantity,
			row.UnitPrice.StringFixed(2), row.LineTotal.StringFixed(2))
	}
	tw.Flush()
	fmt.Fprintf(v.out, "Net total: Rs. %s\n", frame.Total.StringFixed(2))
}

func (v *View) RenderSearch(frame render.SearchFrame) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch frame.State {
	case render.SearchCleared:
		return
	case render.SearchResults:
		tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
		for i, r := range frame.Results {
			fmt.Fprintf(tw, "%d)\t%s\tRs. %s\n", i+1, r.Name, r.SellingPrice)
		}
		tw.Flush()
	default:
		fmt.Fprintln(v.out, frame.Message)
	}
}

func (v *View) RenderHistory(table history.Table) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if table.Empty {
		fmt.Fprintln(v.out, "No bills yet.")
		return
	}
	tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Bill No\tDate\tItems\tNet\tPrint\tPDF")
	for _, row := range table.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", row.BillNo, row.CreatedAt.Local().Format(timeLayout),
			row.ItemCount, row.NetAmount.StringFixed(2), row.PrintURL, row.PDFURL)
	}
	tw.Flush()
}

func (v *View) Notify(n render.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch n.Level {
	case render.LevelSuccess:
		fmt.Fprintln(v.out, "OK:", n.Text)
	case render.LevelError:
		fmt.Fprintln(v.out, "!!", n.Text)
	default:
		fmt.Fprintln(v.out, n.Text)
	}
}
