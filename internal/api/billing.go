package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"billdesk/m/domain"
	"billdesk/m/internal/cache"
)

// saleDateLayout is fixed width so MIN/ORDER BY on the text column sort by time.
const saleDateLayout = "2006-01-02T15:04:05.000000Z07:00"

const searchLimit = 25

// Catalog search

func (h *Handler) billingSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondJSON(w, http.StatusOK, []domain.Product{})
		return
	}
	ctx := r.Context()

	if h.cache != nil {
		cached, err := h.cache.Get(ctx, query)
		if err == nil {
			respondJSON(w, http.StatusOK, cached)
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("search cache get error: %v", err)
		}
	}

	products := []domain.Product{}
	var err error
	if isDigits(query) {
		id, _ := strconv.ParseInt(query, 10, 64)
		err = h.db.SelectContext(ctx, &products, `SELECT id, name, selling_price, stock_qty FROM products WHERE id = ?`, id)
	} else {
		like := "%" + strings.ToLower(query) + "%"
		err = h.db.SelectContext(ctx, &products, `SELECT id, name, selling_price, stock_qty FROM products WHERE LOWER(name) LIKE ? ORDER BY name LIMIT ?`, like, searchLimit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search products")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, query, products); err != nil {
			log.Printf("search cache set error: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, products)
}

// Checkout

type checkoutItemRequest struct {
	ProductID domain.ProductID `json:"product_id"`
	Qty       int64            `json:"qty"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
}

type checkoutRequest struct {
	Items    []checkoutItemRequest `json:"items"`
	BillerID int64                 `json:"biller_id,omitempty"`
}

type saleLine struct {
	productID int64
	qty       int64
	unitPrice decimal.Decimal
}

func (h *Handler) billingCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		rejectCheckout(w, http.StatusBadRequest, "missing payload")
		return
	}
	if len(req.Items) == 0 {
		rejectCheckout(w, http.StatusBadRequest, "no items")
		return
	}
	ctx := r.Context()

	lines := make([]saleLine, 0, len(req.Items))
	needed := make(map[int64]int64)
	for _, it := range req.Items {
		pid, err := it.ProductID.Int64()
		if err != nil {
			rejectCheckout(w, http.StatusBadRequest, fmt.Sprintf("invalid product_id %q", string(it.ProductID)))
			return
		}
		if it.Qty <= 0 {
			rejectCheckout(w, http.StatusBadRequest, fmt.Sprintf("Invalid qty for product %d", pid))
			return
		}
		if it.UnitPrice.IsNegative() {
			rejectCheckout(w, http.StatusBadRequest, fmt.Sprintf("Invalid unit_price for product %d", pid))
			return
		}
		lines = append(lines, saleLine{productID: pid, qty: it.Qty, unitPrice: it.UnitPrice})
		needed[pid] += it.Qty
	}

	billerID := userIDFromContext(r)
	if billerID <= 0 {
		billerID = req.BillerID
	}
	if billerID <= 0 {
		billerID = 1
	}

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		rejectCheckout(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()

	// Looked up inside the write transaction: a concurrent request with the
	// same key sees this bill once it commits.
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		previous, found, err := billForKey(ctx, tx, key)
		if err != nil {
			rejectCheckout(w, http.StatusInternalServerError, "unable to look up idempotency key")
			return
		}
		if found {
			respondJSON(w, http.StatusOK, previous)
			return
		}
	}

	for pid, qty := range needed {
		var stock int64
		err := tx.GetContext(ctx, &stock, `SELECT stock_qty FROM products WHERE id = ?`, pid)
		if errors.Is(err, sql.ErrNoRows) {
			rejectCheckout(w, http.StatusNotFound, fmt.Sprintf("product %d not found", pid))
			return
		}
		if err != nil {
			rejectCheckout(w, http.StatusInternalServerError, "unable to load stock")
			return
		}
		if qty > stock {
			rejectCheckout(w, http.StatusConflict, fmt.Sprintf("out of stock: product %d", pid))
			return
		}
	}

	now := h.now()
	billNo, err := nextBillNo(ctx, tx, now)
	if err != nil {
		rejectCheckout(w, http.StatusInternalServerError, "unable to allocate bill number")
		return
	}

	var keyArg *string
	if key != "" {
		keyArg = &key
	}
	saleDate := now.UTC().Format(saleDateLayout)
	saleIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		total := line.unitPrice.Mul(decimal.NewFromInt(line.qty))
		res, err := tx.ExecContext(ctx, `
			INSERT INTO sales (product_id, qty_sold, sale_date, total_amount, biller_id, bill_no, idempotency_key)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			line.productID, line.qty, saleDate, total, billerID, billNo, keyArg)
		if err != nil {
			rejectCheckout(w, http.StatusInternalServerError, "unable to record sale")
			return
		}
		id, err := res.LastInsertId()
		if err != nil {
			rejectCheckout(w, http.StatusInternalServerError, "unable to record sale")
			return
		}
		saleIDs = append(saleIDs, id)

		if _, err := tx.ExecContext(ctx, `UPDATE products SET stock_qty = stock_qty - ? WHERE id = ?`, line.qty, line.productID); err != nil {
			rejectCheckout(w, http.StatusInternalServerError, "unable to update stock")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		rejectCheckout(w, http.StatusInternalServerError, "unable to finalize bill")
		return
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Printf("search cache invalidate error: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, domain.CheckoutResponse{
		Message: domain.CheckoutMessageSuccess,
		BillNo:  billNo,
		SaleIDs: saleIDs,
	})
}

// nextBillNo allocates BILL-YYYYMMDD-NNNN, restarting the sequence every day.
func nextBillNo(ctx context.Context, tx *sqlx.Tx, now time.Time) (string, error) {
	prefix := "BILL-" + now.Format("20060102") + "-"

	var last string
	err := tx.GetContext(ctx, &last, `SELECT bill_no FROM sales WHERE bill_no LIKE ? ORDER BY id DESC LIMIT 1`, prefix+"%")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	seq := 1
	if last != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(last, prefix)); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

func billForKey(ctx context.Context, q sqlx.QueryerContext, key string) (domain.CheckoutResponse, bool, error) {
	var rows []domain.Sale
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT id, product_id, qty_sold, sale_date, total_amount, biller_id, bill_no, idempotency_key
		FROM sales
		WHERE idempotency_key = ?
		ORDER BY id`, key)
	if err != nil {
		return domain.CheckoutResponse{}, false, err
	}
	if len(rows) == 0 {
		return domain.CheckoutResponse{}, false, nil
	}
	res := domain.CheckoutResponse{Message: domain.CheckoutMessageSuccess, BillNo: rows[0].BillNo}
	for _, row := range rows {
		res.SaleIDs = append(res.SaleIDs, row.ID)
	}
	return res, true, nil
}

func rejectCheckout(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.CheckoutResponse{Message: "error", Error: message})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
