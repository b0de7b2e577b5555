package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/meridianpay/reconciler/internal/currency"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrNegativeResult   = errors.New("operation would produce a negative amount")
	ErrInvalidFactor    = errors.New("factor must be positive")
	ErrInvalidRatios    = errors.New("ratios must be non-negative with a positive sum")
)

// Money is an immutable amount of a single currency, stored as integer minor
// units. All arithmetic stays in minor units; major-unit floats exist only at
// the presentation boundary.
type Money struct {
	units int64
	cur   currency.Currency
}

// FromMinorUnit builds a Money from an exact count of minor units.
func FromMinorUnit(units int64, code string) (Money, error) {
	cur, err := currency.Lookup(code)
	if err != nil {
		return Money{}, err
	}
	if units < 0 {
		return Money{}, fmt.Errorf("%w: %d %s", ErrNegativeAmount, units, code)
	}
	return Money{units: units, cur: cur}, nil
}

// FromMajorUnit converts a human-entered decimal amount to minor units,
// rounding to the nearest minor unit.
func FromMajorUnit(amount float64, code string) (Money, error) {
	cur, err := currency.Lookup(code)
	if err != nil {
		return Money{}, err
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, fmt.Errorf("invalid amount for %s: %v", code, amount)
	}
	if amount < 0 {
		return Money{}, fmt.Errorf("%w: %v %s", ErrNegativeAmount, amount, code)
	}
	units := int64(math.Round(amount * pow10(cur.Decimals)))
	return Money{units: units, cur: cur}, nil
}

func pow10(n int) float64 {
	return math.Pow(10, float64(n))
}

// MinorUnits returns the amount as integer minor units. This is the canonical
// representation for persistence and comparison.
func (m Money) MinorUnits() int64 { return m.units }

// MajorUnits returns the amount as a major-unit decimal, for display only.
func (m Money) MajorUnits() float64 { return float64(m.units) / pow10(m.cur.Decimals) }

// Currency returns the currency this amount is denominated in.
func (m Money) Currency() currency.Currency { return m.cur }

// IsZero reports whether the amount is zero minor units.
func (m Money) IsZero() bool { return m.units == 0 }

func (m Money) sameCurrency(o Money) error {
	if m.cur.Code != o.cur.Code {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.cur.Code, o.cur.Code)
	}
	return nil
}

// Add returns m + o. Both operands must share a currency.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{units: m.units + o.units, cur: m.cur}, nil
}

// Subtract returns m - o, failing rather than going negative.
func (m Money) Subtract(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	if o.units > m.units {
		return Money{}, fmt.Errorf("%w: %d - %d %s", ErrNegativeResult, m.units, o.units, m.cur.Code)
	}
	return Money{units: m.units - o.units, cur: m.cur}, nil
}

// MultiplyBy scales the amount by a non-negative factor, rounding to the
// nearest minor unit.
func (m Money) MultiplyBy(factor float64) (Money, error) {
	if math.IsNaN(factor) || factor < 0 {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidFactor, factor)
	}
	return Money{units: int64(math.Round(float64(m.units) * factor)), cur: m.cur}, nil
}

// DivideBy divides the amount by a positive factor, rounding to the nearest
// minor unit.
func (m Money) DivideBy(factor float64) (Money, error) {
	if math.IsNaN(factor) || factor <= 0 {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidFactor, factor)
	}
	return Money{units: int64(math.Round(float64(m.units) / factor)), cur: m.cur}, nil
}

// Allocate splits the amount across weighted shares. Every share is floored
// except the last, which absorbs the rounding remainder, so the shares always
// sum exactly to the original amount.
func (m Money) Allocate(ratios []int) ([]Money, error) {
	if len(ratios) == 0 {
		return nil, ErrInvalidRatios
	}
	total := 0
	for _, r := range ratios {
		if r < 0 {
			return nil, fmt.Errorf("%w: ratio %d", ErrInvalidRatios, r)
		}
		total += r
	}
	if total == 0 {
		return nil, ErrInvalidRatios
	}

	shares := make([]Money, len(ratios))
	var allocated int64
	for i, r := range ratios {
		if i == len(ratios)-1 {
			shares[i] = Money{units: m.units - allocated, cur: m.cur}
			break
		}
		units := m.units * int64(r) / int64(total)
		shares[i] = Money{units: units, cur: m.cur}
		allocated += units
	}
	return shares, nil
}

// Distribute splits the amount into n near-equal shares. The remainder minor
// units go to the first shares, one each.
func (m Money) Distribute(n int) ([]Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n=%d", ErrInvalidRatios, n)
	}
	base := m.units / int64(n)
	remainder := m.units % int64(n)

	shares := make([]Money, n)
	for i := range shares {
		units := base
		if int64(i) < remainder {
			units++
		}
		shares[i] = Money{units: units, cur: m.cur}
	}
	return shares, nil
}

// Equals reports whether both amount and currency are identical.
func (m Money) Equals(o Money) bool {
	return m.cur.Code == o.cur.Code && m.units == o.units
}

// GreaterThan reports whether m exceeds o. Both must share a currency.
func (m Money) GreaterThan(o Money) (bool, error) {
	if err := m.sameCurrency(o); err != nil {
		return false, err
	}
	return m.units > o.units, nil
}

// LessThan reports whether m is below o. Both must share a currency.
func (m Money) LessThan(o Money) (bool, error) {
	if err := m.sameCurrency(o); err != nil {
		return false, err
	}
	return m.units < o.units, nil
}

// Format renders the amount with the currency symbol and its natural number
// of decimal places, e.g. "$12.34" or "¥1200".
func (m Money) Format() string {
	return fmt.Sprintf("%s%.*f", m.cur.Symbol, m.cur.Decimals, m.MajorUnits())
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.units, m.cur.Code)
}
