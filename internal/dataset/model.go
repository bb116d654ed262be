package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Table names one of the six source extracts. The value doubles as the
// table (or collection) name when the dataset lives in a database.
type Table string

const (
	TableOrders               Table = "orders"
	TableOrderItems           Table = "order_items"
	TableProducts             Table = "products"
	TableCategoryTranslations Table = "category_translations"
	TableCustomers            Table = "customers"
	TableReviews              Table = "reviews"
)

// AllTables lists the extracts in load order.
var AllTables = []Table{
	TableOrders,
	TableOrderItems,
	TableProducts,
	TableCategoryTranslations,
	TableCustomers,
	TableReviews,
}

var fileNames = map[Table]string{
	TableOrders:               "orders_dataset.csv",
	TableOrderItems:           "order_items_dataset.csv",
	TableProducts:             "products_dataset.csv",
	TableCategoryTranslations: "product_category_name_translation.csv",
	TableCustomers:            "customers_dataset.csv",
	TableReviews:              "order_reviews_dataset.csv",
}

var columns = map[Table][]string{
	TableOrders:               {"order_id", "customer_id", "order_status", "order_purchase_timestamp", "order_delivered_customer_date"},
	TableOrderItems:           {"order_id", "order_item_id", "product_id", "price"},
	TableProducts:             {"product_id", "product_category_name"},
	TableCategoryTranslations: {"product_category_name", "product_category_name_english"},
	TableCustomers:            {"customer_id", "customer_state"},
	TableReviews:              {"review_id", "order_id", "review_score"},
}

// FileName is the CSV file the table is read from.
func (t Table) FileName() string { return fileNames[t] }

// Columns are the columns the loader requires. Extra columns are ignored.
func (t Table) Columns() []string { return columns[t] }

type Order struct {
	OrderID            string
	CustomerID         string
	Status             string
	PurchaseTimestamp  string
	DeliveredTimestamp string
}

type OrderItem struct {
	OrderID   string
	Seq       int
	ProductID string
	Price     Money
}

type Product struct {
	ProductID    string
	CategoryName string
}

type CategoryTranslation struct {
	CategoryName string
	DisplayName  string
}

type Customer struct {
	CustomerID string
	State      string
}

// Review keeps the score as nil when the source value is missing, not an
// integer, or outside [1,5].
type Review struct {
	ReviewID string
	OrderID  string
	Score    *int
}

// Tables holds the six extracts in source order.
type Tables struct {
	Orders               []Order
	OrderItems           []OrderItem
	Products             []Product
	CategoryTranslations []CategoryTranslation
	Customers            []Customer
	Reviews              []Review
}

// Record is one source row keyed by column name.
type Record map[string]string

func (r Record) get(col string) string { return strings.TrimSpace(r[col]) }

// Append decodes rec and appends it to the given table.
func (t *Tables) Append(table Table, rec Record) error {
	switch table {
	case TableOrders:
		t.Orders = append(t.Orders, Order{
			OrderID:            rec.get("order_id"),
			CustomerID:         rec.get("customer_id"),
			Status:             rec.get("order_status"),
			PurchaseTimestamp:  rec.get("order_purchase_timestamp"),
			DeliveredTimestamp: rec.get("order_delivered_customer_date"),
		})
	case TableOrderItems:
		seq, err := strconv.Atoi(rec.get("order_item_id"))
		if err != nil {
			return fmt.Errorf("order_item_id: %w", err)
		}
		price, err := ParseMoney(rec.get("price"))
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		t.OrderItems = append(t.OrderItems, OrderItem{
			OrderID:   rec.get("order_id"),
			Seq:       seq,
			ProductID: rec.get("product_id"),
			Price:     price,
		})
	case TableProducts:
		t.Products = append(t.Products, Product{
			ProductID:    rec.get("product_id"),
			CategoryName: rec.get("product_category_name"),
		})
	case TableCategoryTranslations:
		t.CategoryTranslations = append(t.CategoryTranslations, CategoryTranslation{
			CategoryName: rec.get("product_category_name"),
			DisplayName:  rec.get("product_category_name_english"),
		})
	case TableCustomers:
		t.Customers = append(t.Customers, Customer{
			CustomerID: rec.get("customer_id"),
			State:      rec.get("customer_state"),
		})
	case TableReviews:
		t.Reviews = append(t.Reviews, Review{
			ReviewID: rec.get("review_id"),
			OrderID:  rec.get("order_id"),
			Score:    parseScore(rec.get("review_score")),
		})
	default:
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}

// Len returns the number of rows loaded into table.
func (t *Tables) Len(table Table) int {
	switch table {
	case TableOrders:
		return len(t.Orders)
	case TableOrderItems:
		return len(t.OrderItems)
	case TableProducts:
		return len(t.Products)
	case TableCategoryTranslations:
		return len(t.CategoryTranslations)
	case TableCustomers:
		return len(t.Customers)
	case TableReviews:
		return len(t.Reviews)
	}
	return 0
}

// Records encodes table back into source rows. Append(table, r) for every
// returned r rebuilds the table.
func (t *Tables) Records(table Table) []Record {
	out := make([]Record, 0, t.Len(table))
	switch table {
	case TableOrders:
		for _, o := range t.Orders {
			out = append(out, Record{
				"order_id":                      o.OrderID,
				"customer_id":                   o.CustomerID,
				"order_status":                  o.Status,
				"order_purchase_timestamp":      o.PurchaseTimestamp,
				"order_delivered_customer_date": o.DeliveredTimestamp,
			})
		}
	case TableOrderItems:
		for _, it := range t.OrderItems {
			out = append(out, Record{
				"order_id":      it.OrderID,
				"order_item_id": strconv.Itoa(it.Seq),
				"product_id":    it.ProductID,
				"price":         it.Price.String(),
			})
		}
	case TableProducts:
		for _, p := range t.Products {
			out = append(out, Record{"product_id": p.ProductID, "product_category_name": p.CategoryName})
		}
	case TableCategoryTranslations:
		for _, c := range t.CategoryTranslations {
			out = append(out, Record{"product_category_name": c.CategoryName, "product_category_name_english": c.DisplayName})
		}
	case TableCustomers:
		for _, c := range t.Customers {
			out = append(out, Record{"customer_id": c.CustomerID, "customer_state": c.State})
		}
	case TableReviews:
		for _, r := range t.Reviews {
			score := ""
			if r.Score != nil {
				score = strconv.Itoa(*r.Score)
			}
			out = append(out, Record{"review_id": r.ReviewID, "order_id": r.OrderID, "review_score": score})
		}
	}
	return out
}

// Values returns the record's values in table.Columns() order.
func (r Record) Values(table Table) []string {
	cols := table.Columns()
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = r[col]
	}
	return out
}

func parseScore(v string) *int {
	if v == "" {
		return nil
	}
	// scores exported through a float column come back as "4.0"
	v = strings.TrimSuffix(v, ".0")
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 5 {
		return nil
	}
	return &n
}
