package seed

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// LoadProducts ingests a name,selling_price,stock_qty CSV into the products
// table, ignoring names that already exist. It returns the number of rows added.
func LoadProducts(db *sqlx.DB, csvPath string) int {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load product catalog %s: %v", csvPath, err)
		return 0
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read product header: %v", err)
		return 0
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Printf("unable to start product transaction: %v", err)
		return 0
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO products (name, selling_price, stock_qty) VALUES (?, ?, ?)`)
	if err != nil {
		log.Printf("unable to prepare product insert: %v", err)
		_ = tx.Rollback()
		return 0
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read product row: %v", err)
			continue
		}
		if len(record) < 3 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil || price.IsNegative() {
			log.Printf("skipping product %s: bad selling price %q", name, record[1])
			continue
		}
		stock, err := strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
		if err != nil || stock < 0 {
			log.Printf("skipping product %s: bad stock %q", name, record[2])
			continue
		}

		res, err := stmt.Exec(name, price, stock)
		if err != nil {
			log.Printf("unable to insert product %s: %v", name, err)
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("unable to commit product seed: %v", err)
		return 0
	}
	log.Printf("seeded product catalog with %d rows", rows)
	return rows
}
