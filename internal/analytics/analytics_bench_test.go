package analytics

import (
	"fmt"
	"testing"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/pipeline"
)

// syntheticLines builds n lines spread over 70 categories, 27 states and
// three years, roughly the shape of the public marketplace extract.
func syntheticLines(n int) []pipeline.EnrichedLine {
	lines := make([]pipeline.EnrichedLine, n)
	for i := range lines {
		ts := time.Date(2016+i%3, time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC)
		category := fmt.Sprintf("category_%02d", i%70)
		location := fmt.Sprintf("S%02d", i%27)
		score := 1 + i%5
		lines[i] = pipeline.EnrichedLine{
			OrderID:     fmt.Sprintf("order%d", i/2),
			ItemSeq:     1 + i%2,
			ProductID:   fmt.Sprintf("product%d", i%3000),
			Price:       dataset.NewMoney(int64(1+i%500), 0),
			PurchasedAt: &ts,
			Location:    &location,
			Category:    &category,
			ReviewScore: &score,
			Delivered:   i%20 != 0,
		}
	}
	return lines
}

func BenchmarkDispatch(b *testing.B) {
	lines := syntheticLines(100000)
	for _, req := range Catalog(FilterOptions{Years: []int{2017}, Locations: []string{"S01"}}) {
		name := string(req.Mode) + "/" + string(req.Filter)
		if req.Mode == ModeRevenueTrend {
			name = string(req.Mode) + "/" + string(req.Dimension) + "/" + string(req.Granularity)
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Dispatch(lines, req); err != nil {
					b.Fatalf("dispatch failed: %v", err)
				}
			}
		})
	}
}
