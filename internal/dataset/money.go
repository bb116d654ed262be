package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount of any precision. The zero value is 0.
// Compare amounts with Equal or Cmp, not ==.
type Money struct {
	d decimal.Decimal
}

var errNegativeAmount = errors.New("negative amount")

// ParseMoney parses a non-negative decimal string such as "58.90".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w %q", errNegativeAmount, s)
	}
	return Money{d: d}, nil
}

// NewMoney returns value * 10^exp.
func NewMoney(value int64, exp int32) Money {
	return Money{d: decimal.New(value, exp)}
}

// Decimal exposes the amount for drivers with a native decimal type.
func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// String renders the amount with at least two fractional digits and no
// trailing zeros beyond them.
func (m Money) String() string {
	s := m.d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 >= 2 {
		return s
	}
	return m.d.StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := ParseMoney(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
