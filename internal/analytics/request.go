package analytics

import (
	"errors"
	"fmt"
	"time"

	"ecommerce-dashboard/internal/pipeline"
)

var ErrInvalidRequest = errors.New("invalid request")

// Mode selects one of the two analyses.
type Mode string

const (
	ModeTopProducts  Mode = "top_products"
	ModeRevenueTrend Mode = "revenue_trend"
)

// ProductFilter is the sub-filter of the best-seller analysis.
type ProductFilter string

const (
	FilterNone           ProductFilter = "none"
	FilterYear           ProductFilter = "year"
	FilterLocation       ProductFilter = "location"
	FilterMinReviewScore ProductFilter = "min_score"
)

// Dimension is the grouping of the revenue analysis.
type Dimension string

const (
	DimensionTime     Dimension = "time"
	DimensionLocation Dimension = "location"
	DimensionCategory Dimension = "category"
)

type Granularity string

const (
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// PeriodLabel is the canonical bucket label: "2017-05" or "2017".
func PeriodLabel(ts time.Time, gran Granularity) string {
	if gran == Monthly {
		return ts.Format("2006-01")
	}
	return yearLabel(ts.Year())
}

// Request is one dashboard selection. Only the fields of the chosen mode and
// filter are read.
type Request struct {
	Mode           Mode          `json:"mode"`
	Filter         ProductFilter `json:"filter,omitempty"`
	Year           int           `json:"year,omitempty"`
	Location       string        `json:"location,omitempty"`
	MinReviewScore int           `json:"min_review_score,omitempty"`
	Dimension      Dimension     `json:"dimension,omitempty"`
	Granularity    Granularity   `json:"granularity,omitempty"`
}

// Normalize fills the defaults of unset fields.
func (r Request) Normalize() Request {
	if r.Filter == "" {
		r.Filter = FilterNone
	}
	if r.Mode == ModeRevenueTrend {
		if r.Dimension == "" {
			r.Dimension = DimensionTime
		}
		if r.Dimension == DimensionTime && r.Granularity == "" {
			r.Granularity = Yearly
		}
	}
	return r
}

func (r Request) Validate() error {
	switch r.Mode {
	case ModeTopProducts, ModeRevenueTrend:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}

	switch r.Filter {
	case "", FilterNone:
	case FilterYear:
		if r.Year <= 0 {
			return fmt.Errorf("%w: year filter needs a year", ErrInvalidRequest)
		}
	case FilterLocation:
		if r.Location == "" {
			return fmt.Errorf("%w: location filter needs a location", ErrInvalidRequest)
		}
	case FilterMinReviewScore:
		if r.MinReviewScore < 1 || r.MinReviewScore > 5 {
			return fmt.Errorf("%w: min review score %d outside [1,5]", ErrInvalidRequest, r.MinReviewScore)
		}
	default:
		return fmt.Errorf("%w: unknown filter %q", ErrInvalidRequest, r.Filter)
	}

	if r.Mode != ModeRevenueTrend {
		return nil
	}
	switch r.Dimension {
	case "", DimensionTime, DimensionLocation, DimensionCategory:
	default:
		return fmt.Errorf("%w: unknown dimension %q", ErrInvalidRequest, r.Dimension)
	}
	switch r.Granularity {
	case "", Monthly, Yearly:
	default:
		return fmt.Errorf("%w: unknown granularity %q", ErrInvalidRequest, r.Granularity)
	}
	return nil
}

// LineFilter is the Filter the request's sub-filter selects.
func (r Request) LineFilter() Filter {
	var f Filter
	switch r.Filter {
	case FilterYear:
		year := r.Year
		f.Year = &year
	case FilterLocation:
		loc := r.Location
		f.Location = &loc
	case FilterMinReviewScore:
		score := r.MinReviewScore
		f.MinReviewScore = &score
	}
	return f
}

// Result is a ranked table plus the slice of it a chart shows.
type Result struct {
	Request Request `json:"request"`
	Rows    []Row   `json:"rows"`
	Chart   []Row   `json:"chart"`
}

// Empty reports a valid result with no data to show.
func (r Result) Empty() bool { return len(r.Rows) == 0 }

// Dispatch runs the aggregation the request selects.
func Dispatch(lines []pipeline.EnrichedLine, req Request) (Result, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	var rows []Row
	switch req.Mode {
	case ModeTopProducts:
		rows = TopCategories(lines, req.LineFilter())
	case ModeRevenueTrend:
		rows = RevenueBy(lines, req.Dimension, req.Granularity, req.LineFilter())
	}

	chart := rows
	if len(chart) > TopN {
		chart = chart[:TopN]
	}
	return Result{Request: req, Rows: rows, Chart: chart}, nil
}

// Catalog lists every selection the dashboard offers for the given options:
// best sellers overall, per year, per location and per minimum score, and
// each revenue breakdown.
func Catalog(opts FilterOptions) []Request {
	reqs := []Request{{Mode: ModeTopProducts, Filter: FilterNone}}
	for _, y := range opts.Years {
		reqs = append(reqs, Request{Mode: ModeTopProducts, Filter: FilterYear, Year: y})
	}
	for _, loc := range opts.Locations {
		reqs = append(reqs, Request{Mode: ModeTopProducts, Filter: FilterLocation, Location: loc})
	}
	for score := 1; score <= 5; score++ {
		reqs = append(reqs, Request{Mode: ModeTopProducts, Filter: FilterMinReviewScore, MinReviewScore: score})
	}
	reqs = append(reqs,
		Request{Mode: ModeRevenueTrend, Dimension: DimensionTime, Granularity: Monthly},
		Request{Mode: ModeRevenueTrend, Dimension: DimensionTime, Granularity: Yearly},
		Request{Mode: ModeRevenueTrend, Dimension: DimensionLocation},
		Request{Mode: ModeRevenueTrend, Dimension: DimensionCategory},
	)
	return reqs
}
