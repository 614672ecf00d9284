package models

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GlobalLimit is the ceiling for the total spending of the ministry
// in a fiscal year, set by the ministry of finance.
type GlobalLimit struct {
	DefaultModel
	Year         int             `json:"year" gorm:"uniqueIndex" example:"2025"`
	TotalLimit   decimal.Decimal `json:"totalLimit" gorm:"type:DECIMAL(20,8)" example:"100000"`
	CurrentTotal decimal.Decimal `json:"currentTotal" gorm:"type:DECIMAL(20,8)" example:"104500"`
	Variance     decimal.Decimal `json:"variance" gorm:"type:DECIMAL(20,8)" example:"4500"` // CurrentTotal - TotalLimit, positive when over the limit
}

func (g *GlobalLimit) BeforeSave(_ *gorm.DB) error {
	if !ValidYear(g.Year) {
		return ErrYearOutOfRange
	}

	if g.TotalLimit.IsNegative() {
		return ErrNegativeAmount
	}

	return nil
}

// GlobalLimitForYear loads the global limit for the year.
func GlobalLimitForYear(db *gorm.DB, year int) (GlobalLimit, error) {
	var limit GlobalLimit
	err := db.Where(&GlobalLimit{Year: year}).First(&limit).Error
	return limit, err
}

// RecalculateGlobalLimit updates the current total and the variance of
// the global limit for the year from the entries.
func RecalculateGlobalLimit(db *gorm.DB, year int) (GlobalLimit, error) {
	limit, err := GlobalLimitForYear(db, year)
	if err != nil {
		return GlobalLimit{}, err
	}

	entries, err := LoadEntries(db)
	if err != nil {
		return GlobalLimit{}, err
	}

	limit.CurrentTotal = SumForYear(entries, year)
	limit.Variance = limit.CurrentTotal.Sub(limit.TotalLimit)

	err = db.Model(&limit).Select("CurrentTotal", "Variance").Updates(&limit).Error
	if err != nil {
		return GlobalLimit{}, err
	}

	return limit, nil
}

// SetGlobalLimit creates or updates the limit for the year and
// recalculates its totals.
func SetGlobalLimit(db *gorm.DB, year int, total decimal.Decimal) (GlobalLimit, error) {
	limit, err := GlobalLimitForYear(db, year)
	if errors.Is(err, ErrResourceNotFound) {
		err = db.Create(&GlobalLimit{Year: year, TotalLimit: total}).Error
		if err != nil {
			return GlobalLimit{}, err
		}
		return RecalculateGlobalLimit(db, year)
	} else if err != nil {
		return GlobalLimit{}, err
	}

	limit.TotalLimit = total
	err = db.Model(&limit).Select("TotalLimit").Updates(&limit).Error
	if err != nil {
		return GlobalLimit{}, err
	}

	return RecalculateGlobalLimit(db, year)
}

// RecalculateGlobalLimits recalculates every stored global limit.
func RecalculateGlobalLimits(db *gorm.DB) error {
	var limits []GlobalLimit
	err := db.Order("year").Find(&limits).Error
	if err != nil {
		return err
	}

	for _, l := range limits {
		_, err := RecalculateGlobalLimit(db, l.Year)
		if err != nil {
			return err
		}
	}

	return nil
}
