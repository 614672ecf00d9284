package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnknownDepartmentCode is the code of the department that collects
// entries which could not be assigned.
const UnknownDepartmentCode = "UNKNOWN"

// Department is an organizational unit of the ministry that submits entries.
type Department struct {
	DefaultModel
	Code         string          `json:"code" gorm:"uniqueIndex" example:"DTC"`
	Name         string          `json:"name" example:"Departament Transformacji Cyfrowej"`
	DirectorName string          `json:"directorName" example:"Jan Kowalski"`
	BudgetLimit  decimal.Decimal `json:"budgetLimit" gorm:"type:DECIMAL(20,8)" example:"15000"`
	EditLocked   bool            `json:"editLocked" example:"false"`
	EditDeadline *time.Time      `json:"editDeadline" example:"2024-08-31T23:59:59Z"`
}

func (d *Department) BeforeSave(_ *gorm.DB) error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.Name = strings.TrimSpace(d.Name)
	d.DirectorName = strings.TrimSpace(d.DirectorName)

	if d.BudgetLimit.IsNegative() {
		return ErrNegativeAmount
	}

	return nil
}

// CanEdit returns nil if entries of the department can be edited at the
// given time. Otherwise, the error describes why not.
func (d Department) CanEdit(now time.Time) error {
	if d.EditLocked {
		return ErrEditsLocked
	}

	if d.EditDeadline != nil && now.After(*d.EditDeadline) {
		return ErrEditDeadlinePassed
	}

	return nil
}

// DepartmentByCode loads the department with the code.
func DepartmentByCode(db *gorm.DB, code string) (Department, error) {
	var d Department
	err := db.Where(&Department{Code: strings.ToUpper(strings.TrimSpace(code))}).First(&d).Error
	return d, err
}
