package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultPart is the budget part of the ministry.
const DefaultPart = 27

// Entry is a single planned expenditure line of the budget.
type Entry struct {
	DefaultModel
	Department   *Department `json:"department,omitempty"`
	DepartmentID *uuid.UUID  `json:"departmentId" example:"0b9b4a67-9a4f-4b3b-8f7b-6d3a3b5f3c11"`

	// Budget classification
	Part            int    `json:"part" example:"27"`
	Division        int    `json:"division" example:"720"`
	Chapter         int    `json:"chapter" example:"72095"`
	Paragraph       int    `json:"paragraph" example:"4300"` // 0 if no paragraph has been assigned
	FinancingSource string `json:"financingSource" example:"0"`
	BZCode          string `json:"bzCode" example:"16.1.2.1"` // Task beneficiary code

	ProjectKind    string `json:"projectKind"`
	Name           string `json:"name" example:"Office licenses"`
	Description    string `json:"description" example:"Renewal of the office suite subscription"`
	Justification  string `json:"justification"`
	InvestmentTask string `json:"investmentTask"`
	Remarks        string `json:"remarks"`

	Stage          string `json:"stage" example:"planowane"`
	ContractStatus string `json:"contractStatus"`
	ContractNumber string `json:"contractNumber"`
	Contractor     string `json:"contractor"`

	Amounts `gorm:"embedded"`

	Priority            Priority       `json:"priority" example:"medium"`
	Status              Status         `json:"status" example:"draft"`
	Obligatory          bool           `json:"obligatory" example:"false"`
	ComplianceValidated bool           `json:"complianceValidated" example:"false"`
	ComplianceWarnings  datatypes.JSON `json:"complianceWarnings" swaggertype:"array,string"`
	OriginalParagraph   int            `json:"originalParagraph"`       // Paragraph before a suggested correction, 0 if there was none
	ImportHash          string         `json:"importHash" gorm:"index"` // SHA256 of the spreadsheet row the entry was imported from
}

func (e *Entry) BeforeSave(_ *gorm.DB) error {
	e.FinancingSource = strings.TrimSpace(e.FinancingSource)
	e.BZCode = strings.TrimSpace(e.BZCode)
	e.ProjectKind = strings.TrimSpace(e.ProjectKind)
	e.Name = strings.TrimSpace(e.Name)
	e.Description = strings.TrimSpace(e.Description)
	e.Justification = strings.TrimSpace(e.Justification)
	e.InvestmentTask = strings.TrimSpace(e.InvestmentTask)
	e.Remarks = strings.TrimSpace(e.Remarks)
	e.Stage = strings.TrimSpace(e.Stage)
	e.ContractStatus = strings.TrimSpace(e.ContractStatus)
	e.ContractNumber = strings.TrimSpace(e.ContractNumber)
	e.Contractor = strings.TrimSpace(e.Contractor)

	if e.Part == 0 {
		e.Part = DefaultPart
	}

	if e.Status == "" {
		e.Status = StatusDraft
	}

	if e.Priority == "" {
		e.Priority = PriorityMedium
	}

	return e.Amounts.Validate()
}

// Title returns the name of the entry, falling back to the description.
func (e Entry) Title() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Description
}

// DepartmentCode returns the code of the department the entry belongs to.
// The department needs to be loaded.
func (e Entry) DepartmentCode() string {
	if e.Department == nil {
		return "N/A"
	}
	return e.Department.Code
}

// SameDepartment reports if both entries belong to the same department.
// Entries without a department belong to the same (missing) department.
func (e Entry) SameDepartment(other Entry) bool {
	if e.DepartmentID == nil || other.DepartmentID == nil {
		return e.DepartmentID == nil && other.DepartmentID == nil
	}
	return *e.DepartmentID == *other.DepartmentID
}

// AppendRemark adds an annotation to the remarks.
func (e *Entry) AppendRemark(remark string) {
	e.Remarks = strings.TrimSpace(fmt.Sprintf("%s %s", e.Remarks, remark))
}

// TransitionTo changes the status if the transition is allowed.
func (e *Entry) TransitionTo(target Status) error {
	current := e.Status
	if current == "" {
		current = StatusDraft
	}

	if !target.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, target)
	}

	if !current.CanTransitionTo(target) {
		return fmt.Errorf("%w: from %s to %s", ErrStatusTransitionForbidden, current, target)
	}

	e.Status = target
	return nil
}

// Warnings returns the stored compliance warnings.
func (e Entry) Warnings() []string {
	warnings := []string{}
	if len(e.ComplianceWarnings) == 0 {
		return warnings
	}

	// Stored by SetWarnings, a decoding failure means there are none
	_ = json.Unmarshal(e.ComplianceWarnings, &warnings)
	return warnings
}

// SetWarnings stores the compliance warnings.
func (e *Entry) SetWarnings(warnings []string) {
	if warnings == nil {
		warnings = []string{}
	}

	b, _ := json.Marshal(warnings)
	e.ComplianceWarnings = datatypes.JSON(b)
}

// EntrySnapshot is the part of an entry recorded in the audit log.
type EntrySnapshot struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Justification  string          `json:"justification"`
	InvestmentTask string          `json:"investmentTask"`
	Remarks        string          `json:"remarks"`
	Paragraph      int             `json:"paragraph"`
	BZCode         string          `json:"bzCode"`
	Priority       Priority        `json:"priority"`
	Status         Status          `json:"status"`
	Obligatory     bool            `json:"obligatory"`
	Amount2025     decimal.Decimal `json:"amount2025"`
	Amount2026     decimal.Decimal `json:"amount2026"`
	Amount2027     decimal.Decimal `json:"amount2027"`
	Amount2028     decimal.Decimal `json:"amount2028"`
	Amount2029     decimal.Decimal `json:"amount2029"`
}

// Snapshot returns the audited values of the entry.
func (e Entry) Snapshot() EntrySnapshot {
	return EntrySnapshot{
		Name:           e.Name,
		Description:    e.Description,
		Justification:  e.Justification,
		InvestmentTask: e.InvestmentTask,
		Remarks:        e.Remarks,
		Paragraph:      e.Paragraph,
		BZCode:         e.BZCode,
		Priority:       e.Priority,
		Status:         e.Status,
		Obligatory:     e.Obligatory,
		Amount2025:     e.Amount2025,
		Amount2026:     e.Amount2026,
		Amount2027:     e.Amount2027,
		Amount2028:     e.Amount2028,
		Amount2029:     e.Amount2029,
	}
}

// Restore sets the audited values from a snapshot. The status is
// not restored, restoring always requires a new review.
func (e *Entry) Restore(s EntrySnapshot) {
	e.Name = s.Name
	e.Description = s.Description
	e.Justification = s.Justification
	e.InvestmentTask = s.InvestmentTask
	e.Remarks = s.Remarks
	e.Paragraph = s.Paragraph
	e.BZCode = s.BZCode
	e.Obligatory = s.Obligatory
	e.Amounts = Amounts{
		Amount2025: s.Amount2025,
		Amount2026: s.Amount2026,
		Amount2027: s.Amount2027,
		Amount2028: s.Amount2028,
		Amount2029: s.Amount2029,
	}

	if s.Priority.Valid() {
		e.Priority = s.Priority
	}
}

// LoadEntries returns all entries matching the conditions with their
// department, oldest first.
func LoadEntries(db *gorm.DB, conds ...any) ([]Entry, error) {
	var entries []Entry

	err := db.Preload("Department").Order("created_at, id").Find(&entries, conds...).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// SumForYear sums the amounts of all entries for the year.
func SumForYear(entries []Entry, year int) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.For(year))
	}
	return sum
}
