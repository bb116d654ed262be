package pipeline

import (
	"context"
	"testing"
	"time"

	"ecommerce-dashboard/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func loadFixture(t *testing.T) *dataset.Tables {
	t.Helper()
	tables, err := dataset.LoadDir(context.Background(), "../dataset/testdata/olist")
	require.NoError(t, err)
	return tables
}

func TestBuild_Fixture(t *testing.T) {
	lines, stats := Build(loadFixture(t), Options{})

	require.Len(t, lines, 5)
	assert.Equal(t, Stats{
		Items:               7,
		Lines:               5,
		DroppedNoOrder:      1,
		DroppedNoProduct:    1,
		MalformedTimestamps: 1,
		MissingLocations:    1,
		MissingCategories:   1,
		MissingReviews:      2,
	}, stats)

	first := lines[0]
	assert.Equal(t, "o1", first.OrderID)
	assert.Equal(t, 1, first.ItemSeq)
	assert.Equal(t, "100.00", first.Price.String())
	require.NotNil(t, first.Location)
	assert.Equal(t, "SP", *first.Location)
	require.NotNil(t, first.Category)
	assert.Equal(t, "electronics", *first.Category)
	// duplicate review r4 for o1 is ignored
	assert.Equal(t, intPtr(5), first.ReviewScore)
	year, ok := first.Year()
	assert.True(t, ok)
	assert.Equal(t, 2017, year)
	assert.True(t, first.Delivered)

	// o3: product without a source category, empty review score, not delivered
	o3 := lines[3]
	assert.Equal(t, "o3", o3.OrderID)
	assert.Nil(t, o3.Category)
	assert.Nil(t, o3.ReviewScore)
	assert.False(t, o3.Delivered)

	// o4: unparsable purchase time and unknown customer are kept as nulls
	o4 := lines[4]
	assert.Equal(t, "o4", o4.OrderID)
	assert.Nil(t, o4.PurchasedAt)
	assert.Nil(t, o4.Location)
	_, ok = o4.Year()
	assert.False(t, ok)

	for _, l := range lines {
		assert.NotEmpty(t, l.OrderID)
		assert.NotEmpty(t, l.ProductID)
		assert.NotEqual(t, "o5", l.OrderID)
		assert.NotEqual(t, "p404", l.ProductID)
	}
}

func TestBuild_ExcludeUndelivered(t *testing.T) {
	lines, stats := Build(loadFixture(t), Options{ExcludeUndelivered: true})
	require.Len(t, lines, 4)
	assert.Equal(t, 1, stats.DroppedUndelivered)
	for _, l := range lines {
		assert.True(t, l.Delivered)
	}
}

func TestBuild_Joins(t *testing.T) {
	testCases := []struct {
		name   string
		tables dataset.Tables
		check  func(t *testing.T, lines []EnrichedLine)
	}{
		{
			name: "item without order is dropped",
			tables: dataset.Tables{
				OrderItems: []dataset.OrderItem{{OrderID: "missing", Seq: 1, ProductID: "p1", Price: dataset.NewMoney(10, 0)}},
				Products:   []dataset.Product{{ProductID: "p1", CategoryName: "a"}},
			},
			check: func(t *testing.T, lines []EnrichedLine) { assert.Empty(t, lines) },
		},
		{
			name: "item without product is dropped",
			tables: dataset.Tables{
				Orders:     []dataset.Order{{OrderID: "o1", PurchaseTimestamp: "2017-01-01 00:00:00"}},
				OrderItems: []dataset.OrderItem{{OrderID: "o1", Seq: 1, ProductID: "missing", Price: dataset.NewMoney(10, 0)}},
			},
			check: func(t *testing.T, lines []EnrichedLine) { assert.Empty(t, lines) },
		},
		{
			name: "missing translation keeps the row with a null category",
			tables: dataset.Tables{
				Orders:     []dataset.Order{{OrderID: "o1", PurchaseTimestamp: "2017-01-01 00:00:00"}},
				OrderItems: []dataset.OrderItem{{OrderID: "o1", Seq: 1, ProductID: "p1", Price: dataset.NewMoney(10, 0)}},
				Products:   []dataset.Product{{ProductID: "p1", CategoryName: "untranslated"}},
			},
			check: func(t *testing.T, lines []EnrichedLine) {
				require.Len(t, lines, 1)
				assert.Nil(t, lines[0].Category)
				assert.Nil(t, lines[0].Location)
				assert.Nil(t, lines[0].ReviewScore)
			},
		},
		{
			name: "duplicate order rows do not duplicate items",
			tables: dataset.Tables{
				Orders: []dataset.Order{
					{OrderID: "o1", CustomerID: "c1", PurchaseTimestamp: "2017-01-01 00:00:00"},
					{OrderID: "o1", CustomerID: "c2", PurchaseTimestamp: "2018-01-01 00:00:00"},
				},
				OrderItems: []dataset.OrderItem{{OrderID: "o1", Seq: 1, ProductID: "p1", Price: dataset.NewMoney(10, 0)}},
				Products:   []dataset.Product{{ProductID: "p1"}},
				Customers:  []dataset.Customer{{CustomerID: "c1", State: "SP"}, {CustomerID: "c2", State: "RJ"}},
			},
			check: func(t *testing.T, lines []EnrichedLine) {
				require.Len(t, lines, 1)
				assert.Equal(t, "SP", *lines[0].Location)
				year, _ := lines[0].Year()
				assert.Equal(t, 2017, year)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lines, stats := Build(&tc.tables, Options{})
			assert.Equal(t, len(lines), stats.Lines)
			tc.check(t, lines)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2017, 10, 2, 10, 56, 33, 0, time.UTC)
	for _, in := range []string{
		"2017-10-02 10:56:33",
		"2017-10-02T10:56:33",
		"2017-10-02T10:56:33Z",
		" 2017-10-02 10:56:33 ",
		"10/2/2017 10:56:33",
	} {
		got, ok := ParseTimestamp(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), in)
	}

	got, ok := ParseTimestamp("2017-10-02")
	require.True(t, ok)
	assert.Equal(t, 2017, got.Year())

	for _, in := range []string{"", "not-a-date", "2017-13-45 00:00:00", "02.10.2017"} {
		_, ok := ParseTimestamp(in)
		assert.False(t, ok, in)
	}
}
