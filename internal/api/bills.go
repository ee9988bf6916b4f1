package api

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"billdesk/m/domain"
)

const historyLimit = 50

var gstRate = decimal.RequireFromString("0.18")

type historyRow struct {
	BillNo    string `db:"bill_no"`
	CreatedAt string `db:"created_at"`
	ItemCount int64  `db:"item_count"`
}

type billAmount struct {
	BillNo      string          `db:"bill_no"`
	TotalAmount decimal.Decimal `db:"total_amount"`
}

// billingHistory lists the newest bills. Amounts are stored as decimal text
// and summed here, never by SQLite, which would add them as floats.
func (h *Handler) billingHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var rows []historyRow
	err := h.db.SelectContext(ctx, &rows, `
		SELECT bill_no, MIN(sale_date) AS created_at, COUNT(*) AS item_count
		FROM sales
		WHERE bill_no IS NOT NULL
		GROUP BY bill_no
		ORDER BY created_at DESC, bill_no DESC
		LIMIT ?`, historyLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch bill history")
		return
	}
	if len(rows) == 0 {
		respondJSON(w, http.StatusOK, []domain.HistoryEntry{})
		return
	}

	billNos := make([]string, len(rows))
	for i, row := range rows {
		billNos[i] = row.BillNo
	}
	amountsQuery, amountsArgs, err := sqlx.In(`SELECT bill_no, total_amount FROM sales WHERE bill_no IN (?)`, billNos)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to prepare bill amounts query")
		return
	}
	amountsQuery = h.db.Rebind(amountsQuery)

	var amounts []billAmount
	if err := h.db.SelectContext(ctx, &amounts, amountsQuery, amountsArgs...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch bill history")
		return
	}
	netByBill := make(map[string]decimal.Decimal, len(rows))
	for _, a := range amounts {
		netByBill[a.BillNo] = netByBill[a.BillNo].Add(a.TotalAmount)
	}

	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		created, err := time.Parse(saleDateLayout, row.CreatedAt)
		if err != nil {
			log.Printf("bill %s has unreadable sale_date %q", row.BillNo, row.CreatedAt)
		}
		entries = append(entries, domain.HistoryEntry{
			BillNo:    row.BillNo,
			CreatedAt: created,
			ItemCount: row.ItemCount,
			NetAmount: netByBill[row.BillNo],
		})
	}
	respondJSON(w, http.StatusOK, entries)
}

// bill is one finalized bill with its tax lines.
type bill struct {
	BillNo     string
	Date       string
	BillerID   int64
	Lines      []domain.BillLine
	Subtotal   decimal.Decimal
	GST        decimal.Decimal
	GrandTotal decimal.Decimal
}

func (h *Handler) loadBill(ctx context.Context, billNo string) (*bill, error) {
	var lines []domain.BillLine
	err := h.db.SelectContext(ctx, &lines, `
		SELECT COALESCE(p.name, 'Unknown') AS product_name, s.qty_sold, s.total_amount, s.sale_date, s.biller_id
		FROM sales s
		LEFT JOIN products p ON s.product_id = p.id
		WHERE s.bill_no = ?
		ORDER BY s.id`, billNo)
	if err != nil || len(lines) == 0 {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.TotalAmount)
	}
	gst := subtotal.Mul(gstRate).Round(2)
	return &bill{
		BillNo:     billNo,
		Date:       lines[0].SaleDate,
		BillerID:   lines[0].BillerID,
		Lines:      lines,
		Subtotal:   subtotal,
		GST:        gst,
		GrandTotal: subtotal.Add(gst).Round(2),
	}, nil
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.BillNo}}</title></head>
<body onload="window.print()">
<h2>Bill No: {{.BillNo}}</h2>
<p>Date: {{.Date}}<br>Biller ID: {{.BillerID}}</p>
<table>
<thead><tr><th>Product</th><th>Qty</th><th>Price</th><th>Total</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.ProductName}}</td><td>{{.QtySold}}</td><td>Rs. {{.UnitPrice.StringFixed 2}}</td><td>Rs. {{.TotalAmount.StringFixed 2}}</td></tr>
{{end}}</tbody>
</table>
<p>Subtotal: Rs. {{.Subtotal.StringFixed 2}}<br>
GST (18%): Rs. {{.GST.StringFixed 2}}<br>
<b>Grand Total: Rs. {{.GrandTotal.StringFixed 2}}</b></p>
</body>
</html>
`))

func (h *Handler) billingPrint(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBill(r.Context(), chi.URLParam(r, "billNo"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load bill")
		return
	}
	if b == nil {
		respondError(w, http.StatusNotFound, "bill not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := receiptTemplate.Execute(w, b); err != nil {
		log.Printf("render receipt %s: %v", b.BillNo, err)
	}
}

// billingInvoice serves the downloadable invoice as plain text.
func (h *Handler) billingInvoice(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBill(r.Context(), chi.URLParam(r, "billNo"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load bill")
		return
	}
	if b == nil {
		respondError(w, http.StatusNotFound, "bill not found")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.txt", b.BillNo))
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "Bill No: %s\nDate: %s\nBiller ID: %d\n\n", b.BillNo, b.Date, b.BillerID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Product\tQty\tPrice\tTotal")
	for _, l := range b.Lines {
		fmt.Fprintf(tw, "%s\t%d\tRs. %s\tRs. %s\n", l.ProductName, l.QtySold, l.UnitPrice().StringFixed(2), l.TotalAmount.StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nSubtotal: Rs. %s\nGST (18%%): Rs. %s\nGrand Total: Rs. %s\n",
		b.Subtotal.StringFixed(2), b.GST.StringFixed(2), b.GrandTotal.StringFixed(2))
}
