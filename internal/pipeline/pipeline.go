package pipeline

import (
	"time"

	"ecommerce-dashboard/internal/dataset"
)

// EnrichedLine is one order item joined with its order, customer location,
// product category and review score. Nil pointers are nulls from left joins
// or unparsable timestamps.
type EnrichedLine struct {
	OrderID     string        `json:"order_id"`
	ItemSeq     int           `json:"item_seq"`
	ProductID   string        `json:"product_id"`
	Price       dataset.Money `json:"price"`
	PurchasedAt *time.Time    `json:"purchased_at"`
	Location    *string       `json:"location"`
	Category    *string       `json:"category"`
	ReviewScore *int          `json:"review_score"`
	Delivered   bool          `json:"delivered"`
}

// Year is the calendar year of the purchase, if the timestamp parsed.
func (l EnrichedLine) Year() (int, bool) {
	if l.PurchasedAt == nil {
		return 0, false
	}
	return l.PurchasedAt.Year(), true
}

type Options struct {
	// ExcludeUndelivered drops orders without a customer delivery date.
	ExcludeUndelivered bool `yaml:"exclude_undelivered"`
}

// Stats counts what each join step kept and dropped.
type Stats struct {
	Items               int `json:"items"`
	Lines               int `json:"lines"`
	DroppedNoOrder      int `json:"dropped_no_order"`
	DroppedNoProduct    int `json:"dropped_no_product"`
	DroppedUndelivered  int `json:"dropped_undelivered"`
	MalformedTimestamps int `json:"malformed_timestamps"`
	MissingLocations    int `json:"missing_locations"`
	MissingCategories   int `json:"missing_categories"`
	MissingReviews      int `json:"missing_reviews"`
}

type orderInfo struct {
	purchasedAt *time.Time
	location    *string
	score       *int
	delivered   bool
}

// Build joins the extracts into enriched lines, one per surviving order item,
// in order-item source order. Orders and products are inner joins; customers,
// reviews and category translations are left joins. When a key repeats in a
// lookup table the first row wins.
func Build(t *dataset.Tables, opts Options) ([]EnrichedLine, Stats) {
	var stats Stats

	locations := make(map[string]*string, len(t.Customers))
	for _, c := range t.Customers {
		if _, ok := locations[c.CustomerID]; ok {
			continue
		}
		locations[c.CustomerID] = nonEmpty(c.State)
	}

	scores := make(map[string]*int, len(t.Reviews))
	for _, r := range t.Reviews {
		if _, ok := scores[r.OrderID]; ok {
			continue
		}
		scores[r.OrderID] = r.Score
	}

	orders := make(map[string]orderInfo, len(t.Orders))
	for _, o := range t.Orders {
		if _, ok := orders[o.OrderID]; ok {
			continue
		}
		info := orderInfo{
			location:  locations[o.CustomerID],
			score:     scores[o.OrderID],
			delivered: o.DeliveredTimestamp != "",
		}
		if ts, ok := ParseTimestamp(o.PurchaseTimestamp); ok {
			info.purchasedAt = &ts
		} else {
			stats.MalformedTimestamps++
		}
		orders[o.OrderID] = info
	}

	categories := make(map[string]*string, len(t.Products))
	for _, p := range t.Products {
		if _, ok := categories[p.ProductID]; ok {
			continue
		}
		categories[p.ProductID] = nonEmpty(p.CategoryName)
	}

	translations := make(map[string]*string, len(t.CategoryTranslations))
	for _, ct := range t.CategoryTranslations {
		if _, ok := translations[ct.CategoryName]; ok {
			continue
		}
		translations[ct.CategoryName] = nonEmpty(ct.DisplayName)
	}

	lines := make([]EnrichedLine, 0, len(t.OrderItems))
	for _, item := range t.OrderItems {
		stats.Items++
		order, ok := orders[item.OrderID]
		if !ok {
			stats.DroppedNoOrder++
			continue
		}
		sourceCategory, ok := categories[item.ProductID]
		if !ok {
			stats.DroppedNoProduct++
			continue
		}
		if opts.ExcludeUndelivered && !order.delivered {
			stats.DroppedUndelivered++
			continue
		}

		var category *string
		if sourceCategory != nil {
			category = translations[*sourceCategory]
		}
		if category == nil {
			stats.MissingCategories++
		}
		if order.location == nil {
			stats.MissingLocations++
		}
		if order.score == nil {
			stats.MissingReviews++
		}

		lines = append(lines, EnrichedLine{
			OrderID:     item.OrderID,
			ItemSeq:     item.Seq,
			ProductID:   item.ProductID,
			Price:       item.Price,
			PurchasedAt: order.purchasedAt,
			Location:    order.location,
			Category:    category,
			ReviewScore: order.score,
			Delivered:   order.delivered,
		})
	}
	stats.Lines = len(lines)
	return lines, stats
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
