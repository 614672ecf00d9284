package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// FirstYear is the first fiscal year of the planning period
	FirstYear = 2025

	// LastYear is the last fiscal year of the planning period
	LastYear = 2029
)

// Amounts are the planned amounts for the five fiscal years of the
// planning period, in thousands of PLN.
//
// The fields are only exported for gorm and the JSON encoding. Code
// working with a specific year uses For and Set.
type Amounts struct {
	Amount2025 decimal.Decimal `json:"amount2025" gorm:"type:DECIMAL(20,8)" example:"120.5"`
	Amount2026 decimal.Decimal `json:"amount2026" gorm:"type:DECIMAL(20,8)" example:"80"`
	Amount2027 decimal.Decimal `json:"amount2027" gorm:"type:DECIMAL(20,8)" example:"80"`
	Amount2028 decimal.Decimal `json:"amount2028" gorm:"type:DECIMAL(20,8)" example:"0"`
	Amount2029 decimal.Decimal `json:"amount2029" gorm:"type:DECIMAL(20,8)" example:"0"`
}

// Years returns all fiscal years of the planning period in order.
func Years() []int {
	years := make([]int, 0, LastYear-FirstYear+1)
	for y := FirstYear; y <= LastYear; y++ {
		years = append(years, y)
	}
	return years
}

// ValidYear reports if the year is part of the planning period.
func ValidYear(year int) bool {
	return year >= FirstYear && year <= LastYear
}

func (a *Amounts) field(year int) *decimal.Decimal {
	switch year {
	case 2025:
		return &a.Amount2025
	case 2026:
		return &a.Amount2026
	case 2027:
		return &a.Amount2027
	case 2028:
		return &a.Amount2028
	case 2029:
		return &a.Amount2029
	}
	return nil
}

// For returns the amount for the year. Years outside of the
// planning period have an amount of zero.
func (a Amounts) For(year int) decimal.Decimal {
	f := a.field(year)
	if f == nil {
		return decimal.Zero
	}
	return *f
}

// Set sets the amount for a year.
func (a *Amounts) Set(year int, amount decimal.Decimal) error {
	f := a.field(year)
	if f == nil {
		return fmt.Errorf("%w: %d", ErrYearOutOfRange, year)
	}

	if amount.IsNegative() {
		return ErrNegativeAmount
	}

	*f = amount
	return nil
}

// Values returns the amounts in year order.
func (a Amounts) Values() []decimal.Decimal {
	values := make([]decimal.Decimal, 0, LastYear-FirstYear+1)
	for _, y := range Years() {
		values = append(values, a.For(y))
	}
	return values
}

// Max returns the highest yearly amount.
func (a Amounts) Max() decimal.Decimal {
	return decimal.Max(a.Amount2025, a.Amount2026, a.Amount2027, a.Amount2028, a.Amount2029)
}

// Sum returns the sum of all yearly amounts.
func (a Amounts) Sum() decimal.Decimal {
	return decimal.Sum(a.Amount2025, a.Amount2026, a.Amount2027, a.Amount2028, a.Amount2029)
}

// Validate checks that no amount is negative.
func (a Amounts) Validate() error {
	for _, v := range a.Values() {
		if v.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}
