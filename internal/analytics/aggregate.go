package analytics

import (
	"slices"
	"strconv"
	"strings"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/pipeline"
)

const (
	// TopN bounds the best-seller table and every chart.
	TopN = 10

	// UnknownLabel labels the bucket of lines without a display category.
	UnknownLabel = "unknown"
)

// Row is one group of a ranked table.
type Row struct {
	Label   string        `json:"label"`
	Unknown bool          `json:"unknown,omitempty"`
	Count   int           `json:"count"`
	Revenue dataset.Money `json:"revenue"`
}

func (r Row) Equal(o Row) bool {
	return r.Label == o.Label && r.Unknown == o.Unknown && r.Count == o.Count && r.Revenue.Equal(o.Revenue)
}

// Filter restricts the lines an aggregation sees. Nil fields do not filter.
type Filter struct {
	Year           *int    `json:"year,omitempty"`
	Location       *string `json:"location,omitempty"`
	MinReviewScore *int    `json:"min_review_score,omitempty"`
}

// Match reports whether l passes every set field of f. Lines with a null
// year, location or score never match a filter on that field.
func (f Filter) Match(l pipeline.EnrichedLine) bool {
	if f.Year != nil {
		year, ok := l.Year()
		if !ok || year != *f.Year {
			return false
		}
	}
	if f.Location != nil && (l.Location == nil || *l.Location != *f.Location) {
		return false
	}
	if f.MinReviewScore != nil && (l.ReviewScore == nil || *l.ReviewScore < *f.MinReviewScore) {
		return false
	}
	return true
}

// Select returns the lines matching f, in input order.
func Select(lines []pipeline.EnrichedLine, f Filter) []pipeline.EnrichedLine {
	out := make([]pipeline.EnrichedLine, 0, len(lines))
	for _, l := range lines {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// TopCategories counts order items per display category and returns the TopN
// best sellers by count.
func TopCategories(lines []pipeline.EnrichedLine, f Filter) []Row {
	rows := group(lines, f, categoryKey)
	slices.SortFunc(rows, byCount)
	if len(rows) > TopN {
		rows = rows[:TopN]
	}
	return rows
}

// RevenueBy sums item prices per group of dim and returns every group, best
// first. Time and location buckets skip lines where the key is null; the
// category bucket keeps them under UnknownLabel.
func RevenueBy(lines []pipeline.EnrichedLine, dim Dimension, gran Granularity, f Filter) []Row {
	var key keyFunc
	switch dim {
	case DimensionLocation:
		key = locationKey
	case DimensionCategory:
		key = categoryKey
	default:
		key = periodKey(gran)
	}
	rows := group(lines, f, key)
	slices.SortFunc(rows, byRevenue)
	return rows
}

// keyFunc returns the group label of a line; ok is false when the line has
// no group and must be skipped.
type keyFunc func(l pipeline.EnrichedLine) (label string, unknown bool, ok bool)

func categoryKey(l pipeline.EnrichedLine) (string, bool, bool) {
	if l.Category == nil {
		return UnknownLabel, true, true
	}
	return *l.Category, false, true
}

func locationKey(l pipeline.EnrichedLine) (string, bool, bool) {
	if l.Location == nil {
		return "", false, false
	}
	return *l.Location, false, true
}

func periodKey(gran Granularity) keyFunc {
	return func(l pipeline.EnrichedLine) (string, bool, bool) {
		if l.PurchasedAt == nil {
			return "", false, false
		}
		return PeriodLabel(*l.PurchasedAt, gran), false, true
	}
}

type groupKey struct {
	label   string
	unknown bool
}

func group(lines []pipeline.EnrichedLine, f Filter, key keyFunc) []Row {
	index := make(map[groupKey]int)
	rows := []Row{}
	for _, l := range lines {
		if !f.Match(l) {
			continue
		}
		label, unknown, ok := key(l)
		if !ok {
			continue
		}
		k := groupKey{label: label, unknown: unknown}
		i, seen := index[k]
		if !seen {
			i = len(rows)
			index[k] = i
			rows = append(rows, Row{Label: label, Unknown: unknown})
		}
		rows[i].Count++
		rows[i].Revenue = rows[i].Revenue.Add(l.Price)
	}
	return rows
}

func byCount(a, b Row) int {
	if a.Count != b.Count {
		return b.Count - a.Count
	}
	return byLabel(a, b)
}

func byRevenue(a, b Row) int {
	if c := b.Revenue.Cmp(a.Revenue); c != 0 {
		return c
	}
	return byLabel(a, b)
}

// known labels sort before the unknown bucket on ties
func byLabel(a, b Row) int {
	if a.Unknown != b.Unknown {
		if a.Unknown {
			return 1
		}
		return -1
	}
	return strings.Compare(a.Label, b.Label)
}

// FilterOptions lists the values the year and location pickers offer.
type FilterOptions struct {
	Years     []int    `json:"years"`
	Locations []string `json:"locations"`
}

// Options collects the distinct non-null years and locations, ascending.
func Options(lines []pipeline.EnrichedLine) FilterOptions {
	years := map[int]struct{}{}
	locations := map[string]struct{}{}
	for _, l := range lines {
		if y, ok := l.Year(); ok {
			years[y] = struct{}{}
		}
		if l.Location != nil {
			locations[*l.Location] = struct{}{}
		}
	}
	opts := FilterOptions{Years: []int{}, Locations: []string{}}
	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	for loc := range locations {
		opts.Locations = append(opts.Locations, loc)
	}
	slices.Sort(opts.Years)
	slices.Sort(opts.Locations)
	return opts
}

func yearLabel(y int) string { return strconv.Itoa(y) }
