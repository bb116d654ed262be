package database

import (
	"fmt"
	"strconv"
	"strings"

	"ecommerce-dashboard/internal/dataset"
)

// rowColumn keeps the source order of every imported row so that loads
// replay rows in the order the extracts listed them.
const rowColumn = "source_row"

type dialect struct {
	text        string
	integer     string
	decimal     string
	placeholder func(i int) string
	castText    func(col string) string
}

var postgresDialect = dialect{
	text:        "TEXT",
	integer:     "INTEGER",
	decimal:     "NUMERIC",
	placeholder: func(i int) string { return "$" + strconv.Itoa(i) },
	castText:    func(col string) string { return col + "::text" },
}

// MySQL rounds prices past 30 fractional digits
var mysqlDialect = dialect{
	text:        "VARCHAR(255)",
	integer:     "INT",
	decimal:     "DECIMAL(65, 30)",
	placeholder: func(int) string { return "?" },
	castText:    func(col string) string { return "CAST(" + col + " AS CHAR)" },
}

// prices stay text in SQLite, its REAL affinity would round them
var sqliteDialect = dialect{
	text:        "TEXT",
	integer:     "INTEGER",
	decimal:     "TEXT",
	placeholder: func(int) string { return "?" },
	castText:    func(col string) string { return "CAST(" + col + " AS TEXT)" },
}

func (d dialect) columnType(col string) string {
	switch col {
	case "price":
		return d.decimal
	case "order_item_id", "review_score":
		return d.integer
	}
	return d.text
}

func (d dialect) createTable(table dataset.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	fmt.Fprintf(&b, "\t%s %s NOT NULL", rowColumn, d.integer)
	for _, col := range table.Columns() {
		fmt.Fprintf(&b, ",\n\t%s %s", col, d.columnType(col))
	}
	b.WriteString("\n)")
	return b.String()
}

func dropTable(table dataset.Table) string {
	return "DROP TABLE IF EXISTS " + string(table)
}

// selectTable reads every column as text, with NULL as the empty string.
func (d dialect) selectTable(table dataset.Table) string {
	cols := table.Columns()
	exprs := make([]string, len(cols))
	for i, col := range cols {
		exprs[i] = fmt.Sprintf("COALESCE(%s, '') AS %s", d.castText(col), col)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(exprs, ", "), table, rowColumn)
}

// insertRows builds a multi-row insert for n rows.
func (d dialect) insertRows(table dataset.Table, n int) string {
	cols := append([]string{rowColumn}, table.Columns()...)
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))
	arg := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.placeholder(arg))
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func countRows(table dataset.Table) string {
	return "SELECT COUNT(*) FROM " + string(table)
}

// sqlValue maps an empty source value to NULL.
func sqlValue(col, v string) any {
	if v == "" {
		return nil
	}
	switch col {
	case "order_item_id", "review_score":
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return v
}

/*
MongoDB document structure, one collection per table:

orders:                { source_row, order_id, customer_id, order_status,
                         order_purchase_timestamp, order_delivered_customer_date }
order_items:           { source_row, order_id, order_item_id: <int>, product_id,
                         price: <decimal128> }
products:              { source_row, product_id, product_category_name }
category_translations: { source_row, product_category_name,
                         product_category_name_english }
customers:             { source_row, customer_id, customer_state }
reviews:               { source_row, review_id, order_id, review_score: <int> }

Empty source values are left out of the document.
*/
