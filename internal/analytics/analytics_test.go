package analytics

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func money(t testing.TB, s string) dataset.Money {
	t.Helper()
	m, err := dataset.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func line(t testing.TB, category string, price string, year int, location string) pipeline.EnrichedLine {
	ts := time.Date(year, time.May, 3, 10, 0, 0, 0, time.UTC)
	l := pipeline.EnrichedLine{
		OrderID:     fmt.Sprintf("o-%d", rand.Int()),
		ItemSeq:     1,
		ProductID:   "p-" + category,
		Price:       money(t, price),
		PurchasedAt: &ts,
	}
	if category != "" {
		l.Category = strPtr(category)
	}
	if location != "" {
		l.Location = strPtr(location)
	}
	return l
}

func scenarioLines(t testing.TB) []pipeline.EnrichedLine {
	return []pipeline.EnrichedLine{
		line(t, "Electronics", "100", 2017, "CA"),
		line(t, "Electronics", "50", 2017, "CA"),
		line(t, "Books", "30", 2018, "NY"),
	}
}

func fixtureLines(t *testing.T) []pipeline.EnrichedLine {
	t.Helper()
	tables, err := dataset.LoadDir(context.Background(), "../dataset/testdata/olist")
	require.NoError(t, err)
	lines, _ := pipeline.Build(tables, pipeline.Options{})
	return lines
}

func labels(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}

// assertRows compares rows by value; equal amounts may carry different
// decimal exponents.
func assertRows(t *testing.T, want, got []Row) {
	t.Helper()
	if !assert.Len(t, got, len(want)) {
		return
	}
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "row %d: want %+v (revenue %s), got %+v (revenue %s)",
			i, want[i], want[i].Revenue, got[i], got[i].Revenue)
	}
}

func TestScenario(t *testing.T) {
	lines := scenarioLines(t)

	top := TopCategories(lines, Filter{Year: intPtr(2017)})
	require.Len(t, top, 1)
	assert.Equal(t, "Electronics", top[0].Label)
	assert.Equal(t, 2, top[0].Count)

	rev := RevenueBy(lines, DimensionCategory, "", Filter{})
	require.Len(t, rev, 2)
	assertRows(t, []Row{
		{Label: "Electronics", Count: 2, Revenue: money(t, "150")},
		{Label: "Books", Count: 1, Revenue: money(t, "30")},
	}, rev)
}

func TestTopCategories_Fixture(t *testing.T) {
	lines := fixtureLines(t)

	rows := TopCategories(lines, Filter{})
	assertRows(t, []Row{
		{Label: "electronics", Count: 3, Revenue: money(t, "160")},
		{Label: "books", Count: 1, Revenue: money(t, "30")},
		{Label: UnknownLabel, Unknown: true, Count: 1, Revenue: money(t, "20.5")},
	}, rows)

	rows = TopCategories(lines, Filter{Location: strPtr("MG")})
	assertRows(t, []Row{{Label: UnknownLabel, Unknown: true, Count: 1, Revenue: money(t, "20.5")}}, rows)

	rows = TopCategories(lines, Filter{MinReviewScore: intPtr(4)})
	assertRows(t, []Row{{Label: "electronics", Count: 2, Revenue: money(t, "150")}}, rows)

	rows = TopCategories(lines, Filter{Year: intPtr(2030)})
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestTopCategories_BoundedAndSorted(t *testing.T) {
	var lines []pipeline.EnrichedLine
	for i := 0; i < 15; i++ {
		for j := 0; j <= i; j++ {
			lines = append(lines, line(t, fmt.Sprintf("cat-%02d", i), "1", 2017, "SP"))
		}
	}
	// null categories share one bucket
	for j := 0; j < 4; j++ {
		lines = append(lines, line(t, "", "1", 2017, "SP"))
	}
	rand.Shuffle(len(lines), func(i, j int) { lines[i], lines[j] = lines[j], lines[i] })

	rows := TopCategories(lines, Filter{})
	require.Len(t, rows, TopN)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Count, rows[i].Count)
	}
	assert.Equal(t, "cat-14", rows[0].Label)
	assert.Equal(t, 15, rows[0].Count)
}

func TestTopCategories_UnknownBucketKept(t *testing.T) {
	lines := []pipeline.EnrichedLine{
		line(t, "", "1", 2017, "SP"),
		line(t, "", "2", 2017, "SP"),
		line(t, "toys", "3", 2017, "SP"),
	}
	rows := TopCategories(lines, Filter{})
	require.Len(t, rows, 2)
	assertRows(t, []Row{{Label: UnknownLabel, Unknown: true, Count: 2, Revenue: money(t, "3")}}, rows[:1])

	// a real category literally named "unknown" is a different bucket
	lines = append(lines, line(t, UnknownLabel, "1", 2017, "SP"))
	rows = TopCategories(lines, Filter{})
	require.Len(t, rows, 3)
	assert.Equal(t, []string{UnknownLabel, "toys", UnknownLabel}, labels(rows))
	assert.False(t, rows[2].Unknown)
}

func TestRevenueBy_Fixture(t *testing.T) {
	lines := fixtureLines(t)

	testCases := []struct {
		name string
		dim  Dimension
		gran Granularity
		want []Row
	}{
		{
			name: "yearly",
			dim:  DimensionTime,
			gran: Yearly,
			want: []Row{
				{Label: "2017", Count: 3, Revenue: money(t, "180")},
				{Label: "2018", Count: 1, Revenue: money(t, "20.5")},
			},
		},
		{
			name: "monthly",
			dim:  DimensionTime,
			gran: Monthly,
			want: []Row{
				{Label: "2017-05", Count: 2, Revenue: money(t, "150")},
				{Label: "2017-06", Count: 1, Revenue: money(t, "30")},
				{Label: "2018-01", Count: 1, Revenue: money(t, "20.5")},
			},
		},
		{
			name: "location",
			dim:  DimensionLocation,
			want: []Row{
				{Label: "SP", Count: 2, Revenue: money(t, "150")},
				{Label: "RJ", Count: 1, Revenue: money(t, "30")},
				{Label: "MG", Count: 1, Revenue: money(t, "20.5")},
			},
		},
		{
			name: "category",
			dim:  DimensionCategory,
			want: []Row{
				{Label: "electronics", Count: 3, Revenue: money(t, "160")},
				{Label: "books", Count: 1, Revenue: money(t, "30")},
				{Label: UnknownLabel, Unknown: true, Count: 1, Revenue: money(t, "20.5")},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assertRows(t, tc.want, RevenueBy(lines, tc.dim, tc.gran, Filter{}))
		})
	}
}

func TestRevenueBy_LocationConservation(t *testing.T) {
	lines := fixtureLines(t)
	for i := 0; i < 200; i++ {
		loc := []string{"SP", "RJ", "MG", ""}[i%4]
		lines = append(lines, line(t, "toys", fmt.Sprintf("%d.%02d", i, i%100), 2016+i%3, loc))
	}

	var want dataset.Money
	for _, l := range lines {
		if l.Location != nil {
			want = want.Add(l.Price)
		}
	}
	var got dataset.Money
	for _, r := range RevenueBy(lines, DimensionLocation, "", Filter{}) {
		got = got.Add(r.Revenue)
	}
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestRevenueBy_FinePrecisionSumsExactly(t *testing.T) {
	lines := []pipeline.EnrichedLine{
		line(t, "toys", "58.12345", 2017, "SP"),
		line(t, "toys", "0.1234567", 2017, "SP"),
		line(t, "toys", "0.00001", 2017, "SP"),
		line(t, "books", "58.24691", 2017, "SP"),
	}
	rows := RevenueBy(lines, DimensionCategory, "", Filter{})
	require.Len(t, rows, 2)
	assert.Equal(t, "toys", rows[0].Label)
	assert.Equal(t, "58.2469167", rows[0].Revenue.String())
	assert.Equal(t, "58.24691", rows[1].Revenue.String())
}

func TestRevenueBy_NotTruncated(t *testing.T) {
	var lines []pipeline.EnrichedLine
	for i := 0; i < 27; i++ {
		lines = append(lines, line(t, "toys", "1", 2017, fmt.Sprintf("S%02d", i)))
	}
	assert.Len(t, RevenueBy(lines, DimensionLocation, "", Filter{}), 27)
}

func TestSelect_MinScoreSubset(t *testing.T) {
	var lines []pipeline.EnrichedLine
	for i := 0; i < 100; i++ {
		l := line(t, "toys", "1", 2017+i%2, []string{"SP", "RJ"}[i%2])
		if i%7 != 0 {
			l.ReviewScore = intPtr(1 + i%5)
		}
		lines = append(lines, l)
	}

	for _, base := range []Filter{{}, {Year: intPtr(2017)}, {Location: strPtr("RJ")}} {
		strict := base
		strict.MinReviewScore = intPtr(5)
		loose := base
		loose.MinReviewScore = intPtr(1)

		looseIDs := map[string]bool{}
		for _, l := range Select(lines, loose) {
			looseIDs[l.OrderID] = true
			require.NotNil(t, l.ReviewScore)
		}
		strictLines := Select(lines, strict)
		assert.NotEmpty(t, strictLines)
		for _, l := range strictLines {
			assert.True(t, looseIDs[l.OrderID], "line %s passes score 5 but not score 1", l.OrderID)
		}
	}
}

func TestDispatch(t *testing.T) {
	lines := fixtureLines(t)

	testCases := []struct {
		name   string
		req    Request
		labels []string
		err    bool
	}{
		{name: "top, no filter", req: Request{Mode: ModeTopProducts}, labels: []string{"electronics", "books", UnknownLabel}},
		{name: "top by year", req: Request{Mode: ModeTopProducts, Filter: FilterYear, Year: 2018}, labels: []string{UnknownLabel}},
		{name: "top by location", req: Request{Mode: ModeTopProducts, Filter: FilterLocation, Location: "RJ"}, labels: []string{"books"}},
		{name: "top by score", req: Request{Mode: ModeTopProducts, Filter: FilterMinReviewScore, MinReviewScore: 3}, labels: []string{"electronics", "books"}},
		{name: "revenue default is yearly", req: Request{Mode: ModeRevenueTrend}, labels: []string{"2017", "2018"}},
		{name: "revenue monthly", req: Request{Mode: ModeRevenueTrend, Dimension: DimensionTime, Granularity: Monthly}, labels: []string{"2017-05", "2017-06", "2018-01"}},
		{name: "revenue by location", req: Request{Mode: ModeRevenueTrend, Dimension: DimensionLocation}, labels: []string{"SP", "RJ", "MG"}},
		{name: "empty result is not an error", req: Request{Mode: ModeTopProducts, Filter: FilterLocation, Location: "AM"}, labels: []string{}},
		{name: "unknown mode", req: Request{Mode: "pie"}, err: true},
		{name: "score out of range", req: Request{Mode: ModeTopProducts, Filter: FilterMinReviewScore, MinReviewScore: 6}, err: true},
		{name: "year filter without year", req: Request{Mode: ModeTopProducts, Filter: FilterYear}, err: true},
		{name: "unknown filter", req: Request{Mode: ModeTopProducts, Filter: "colour"}, err: true},
		{name: "unknown dimension", req: Request{Mode: ModeRevenueTrend, Dimension: "weekday"}, err: true},
		{name: "unknown granularity", req: Request{Mode: ModeRevenueTrend, Granularity: "hourly"}, err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Dispatch(lines, tc.req)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.labels, labels(res.Rows))
			assert.Equal(t, len(tc.labels) == 0, res.Empty())
			assert.LessOrEqual(t, len(res.Chart), TopN)
		})
	}
}

func TestDispatch_ChartIsTopOfRows(t *testing.T) {
	var lines []pipeline.EnrichedLine
	for i := 0; i < 25; i++ {
		lines = append(lines, line(t, fmt.Sprintf("cat-%02d", i), fmt.Sprintf("%d", i+1), 2017, "SP"))
	}
	res, err := Dispatch(lines, Request{Mode: ModeRevenueTrend, Dimension: DimensionCategory})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 25)
	assertRows(t, res.Rows[:TopN], res.Chart)
	assert.Equal(t, "cat-24", res.Chart[0].Label)
}

func TestDispatch_Idempotent(t *testing.T) {
	lines := fixtureLines(t)
	snapshot := append([]pipeline.EnrichedLine(nil), lines...)

	for _, req := range Catalog(Options(lines)) {
		first, err := Dispatch(lines, req)
		require.NoError(t, err)
		second, err := Dispatch(lines, req)
		require.NoError(t, err)
		assert.Equal(t, first.Request, second.Request)
		assertRows(t, first.Rows, second.Rows)
		assertRows(t, first.Chart, second.Chart)
	}
	assert.Equal(t, snapshot, lines)
}

func TestOptionsAndCatalog(t *testing.T) {
	opts := Options(fixtureLines(t))
	assert.Equal(t, []int{2017, 2018}, opts.Years)
	assert.Equal(t, []string{"MG", "RJ", "SP"}, opts.Locations)

	reqs := Catalog(opts)
	// overall + 2 years + 3 locations + 5 scores + 4 revenue views
	assert.Len(t, reqs, 15)
	for _, r := range reqs {
		assert.NoError(t, r.Normalize().Validate(), "%+v", r)
	}

	empty := Options(nil)
	assert.NotNil(t, empty.Years)
	assert.NotNil(t, empty.Locations)
}

func TestPeriodLabel(t *testing.T) {
	ts := time.Date(2017, time.May, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2017-05", PeriodLabel(ts, Monthly))
	assert.Equal(t, "2017", PeriodLabel(ts, Yearly))
}
