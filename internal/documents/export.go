package documents

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Sheet names of the exported workbooks.
const (
	SheetEntries         = "Pozycje budżetowe"
	SheetSummary         = "Podsumowanie"
	SheetDepartments     = "Departamenty"
	SheetPriorities      = "Priorytety"
	SheetRecommendations = "Rekomendacje"
)

// ContentType is the media type of the exported workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// The entry columns use the headers of the submission template so that an
// export can be imported again.
var entryHeaders = []string{
	"ID", "Departament", "Paragraf", "Nazwa zadania",
	"Kwota 2025", "Kwota 2026", "Kwota 2027", "Kwota 2028", "Kwota 2029", "Suma",
	"Priorytet", "Obligatoryjne", "Status", "Źródło finansowania", "BZ",
	"Szczegółowe uzasadnienie", "Uwagi", "Zwalidowane",
}

func yesNo(b bool) string {
	if b {
		return "TAK"
	}
	return "NIE"
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// sheet writes rows to a sheet and sizes the columns to their content.
type sheet struct {
	file   *excelize.File
	name   string
	widths []int
	row    int
}

func newSheet(f *excelize.File, name string, first bool) (*sheet, error) {
	if first {
		err := f.SetSheetName(f.GetSheetName(0), name)
		if err != nil {
			return nil, err
		}
	} else {
		_, err := f.NewSheet(name)
		if err != nil {
			return nil, err
		}
	}

	return &sheet{file: f, name: name}, nil
}

func (s *sheet) add(values ...any) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}

	for i, v := range values {
		if i >= len(s.widths) {
			s.widths = append(s.widths, 0)
		}
		if l := len([]rune(fmt.Sprint(v))); l > s.widths[i] {
			s.widths[i] = l
		}
	}

	return s.file.SetSheetRow(s.name, cell, &values)
}

// finish bolds the header row and sets the column widths.
func (s *sheet) finish() error {
	style, err := s.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	err = s.file.SetRowStyle(s.name, 1, 1, style)
	if err != nil {
		return err
	}

	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}

		err = s.file.SetColWidth(s.name, col, col, float64(min(w+2, 50)))
		if err != nil {
			return err
		}
	}

	return nil
}

func headerRow(headers []string) []any {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}

// EntriesWorkbook exports the entries, optionally of a single department,
// with a summary sheet for the year. The department sheet is only added for
// the full export.
func (g *Generator) EntriesWorkbook(db *gorm.DB, year int, code string) (*excelize.File, error) {
	if !models.ValidYear(year) {
		return nil, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	conds := []any{}
	if code != "" {
		d, err := models.DepartmentByCode(db, code)
		if err != nil {
			return nil, err
		}
		conds = append(conds, "department_id = ?", d.ID)
	}

	entries, err := models.LoadEntries(db, conds...)
	if err != nil {
		return nil, err
	}

	limit := decimal.Zero
	l, err := models.GlobalLimitForYear(db, year)
	if err == nil {
		limit = l.TotalLimit
	} else if !errors.Is(err, models.ErrResourceNotFound) {
		return nil, err
	}

	f := excelize.NewFile()

	s, err := newSheet(f, SheetEntries, true)
	if err != nil {
		return nil, err
	}

	err = s.add(headerRow(entryHeaders)...)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		priority := e.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}

		err = s.add(
			e.ID.String(), e.DepartmentCode(), e.Paragraph, e.Title(),
			number(e.Amount2025), number(e.Amount2026), number(e.Amount2027), number(e.Amount2028), number(e.Amount2029), number(e.Sum()),
			string(priority), yesNo(e.Obligatory), string(e.Status), e.FinancingSource, e.BZCode,
			truncate(e.Justification, 200), e.Remarks, yesNo(e.ComplianceValidated),
		)
		if err != nil {
			return nil, err
		}
	}

	err = s.finish()
	if err != nil {
		return nil, err
	}

	total, obligatory := decimal.Zero, decimal.Zero
	obligatoryCount := 0
	for _, e := range entries {
		total = total.Add(e.For(year))
		if e.Obligatory {
			obligatory = obligatory.Add(e.For(year))
			obligatoryCount++
		}
	}

	s, err = newSheet(f, SheetSummary, false)
	if err != nil {
		return nil, err
	}

	rows := [][]any{
		{"Metryka", "Wartość"},
		{"Liczba pozycji", len(entries)},
		{fmt.Sprintf("Suma %d", year), number(total)},
		{"Pozycje obligatoryjne", obligatoryCount},
		{"Suma obligatoryjna", number(obligatory)},
		{"Limit globalny", number(limit)},
		{"Różnica", number(total.Sub(limit))},
	}
	for _, r := range rows {
		err = s.add(r...)
		if err != nil {
			return nil, err
		}
	}

	err = s.finish()
	if err != nil {
		return nil, err
	}

	if code == "" {
		err = g.departmentSheet(f, db, entries, year)
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}

func (g *Generator) departmentSheet(f *excelize.File, db *gorm.DB, entries []models.Entry, year int) error {
	var departments []models.Department
	err := db.Order("code").Find(&departments).Error
	if err != nil {
		return err
	}

	s, err := newSheet(f, SheetDepartments, false)
	if err != nil {
		return err
	}

	err = s.add("Departament", "Nazwa", "Limit", "Zapotrzebowanie", "Różnica", "Liczba pozycji")
	if err != nil {
		return err
	}

	for _, d := range departments {
		total := decimal.Zero
		count := 0
		for _, e := range entries {
			if e.DepartmentID != nil && *e.DepartmentID == d.ID {
				total = total.Add(e.For(year))
				count++
			}
		}

		err = s.add(d.Code, d.Name, number(d.BudgetLimit), number(total), number(total.Sub(d.BudgetLimit)), count)
		if err != nil {
			return err
		}
	}

	return s.finish()
}

// SummaryWorkbook renders the summary report of the year as a workbook.
func (g *Generator) SummaryWorkbook(db *gorm.DB, year int, now time.Time) (*excelize.File, error) {
	r, err := g.SummaryReport(db, year, now)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()

	s, err := newSheet(f, SheetSummary, true)
	if err != nil {
		return nil, err
	}

	status := "W LIMICIE"
	if r.ExecutiveSummary.IsOverLimit {
		status = "PRZEKROCZENIE LIMITU"
	}

	for _, row := range [][]any{
		{strings.ToUpper(r.ExecutiveSummary.Title), ""},
		{"Limit globalny MF", number(r.ExecutiveSummary.GlobalLimit)},
		{"Łączne zapotrzebowanie", number(r.ExecutiveSummary.TotalRequests)},
		{"Różnica", number(r.ExecutiveSummary.Variance)},
		{"Status", status},
	} {
		err = s.add(row...)
		if err != nil {
			return nil, err
		}
	}

	err = s.finish()
	if err != nil {
		return nil, err
	}

	s, err = newSheet(f, SheetDepartments, false)
	if err != nil {
		return nil, err
	}

	err = s.add("Departament", "Limit", "Zapotrzebowanie", "Różnica", "Pozycji")
	if err != nil {
		return nil, err
	}

	for _, d := range r.DepartmentBreakdown {
		err = s.add(d.Code, number(d.Limit), number(d.Requested), number(d.Variance), d.EntryCount)
		if err != nil {
			return nil, err
		}
	}

	err = s.finish()
	if err != nil {
		return nil, err
	}

	s, err = newSheet(f, SheetPriorities, false)
	if err != nil {
		return nil, err
	}

	err = s.add("Priorytet", "Kwota (tys. PLN)")
	if err != nil {
		return nil, err
	}

	// Most important first
	for i := len(models.Priorities) - 1; i >= 0; i-- {
		p := models.Priorities[i]
		err = s.add(strings.ToUpper(string(p)), number(r.PriorityBreakdown[p]))
		if err != nil {
			return nil, err
		}
	}

	err = s.finish()
	if err != nil {
		return nil, err
	}

	s, err = newSheet(f, SheetRecommendations, false)
	if err != nil {
		return nil, err
	}

	err = s.add("Rekomendacja")
	if err != nil {
		return nil, err
	}

	for _, rec := range r.Recommendations {
		err = s.add(rec)
		if err != nil {
			return nil, err
		}
	}

	return f, s.finish()
}
