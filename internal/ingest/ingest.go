// Package ingest reads the budget submissions of the departments from
// spreadsheets into entries.
package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/ryanuber/go-glob"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Rows counts ingested spreadsheet rows by outcome.
var Rows = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingest_rows_total",
		Help: "How many spreadsheet rows have been ingested, partitioned by format and outcome.",
	},
	[]string{"format", "outcome"},
)

var (
	ErrUnknownFormat      = errors.New("the file must be a .xlsx or .csv file")
	ErrUnrecognizedHeader = errors.New("none of the columns in the header row are known")
	ErrEmptySpreadsheet   = errors.New("the spreadsheet does not contain a header row")
	ErrAlreadyImported    = errors.New("the row has already been imported")
	errNothingToImport    = errors.New("no amounts for the first three years and no name or description")
)

// Format is the format of a spreadsheet.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromFilename determines the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	name = strings.ToLower(filepath.Base(name))

	switch {
	case glob.Glob("*.xlsx", name):
		return FormatXLSX, nil
	case glob.Glob("*.csv", name):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// Result summarizes an ingestion.
type Result struct {
	Processed int      `json:"processed" example:"120"` // Number of data rows
	Created   int      `json:"created" example:"112"`
	Skipped   int      `json:"skipped" example:"8"`
	Warnings  []string `json:"warnings"`
}

type Ingester struct {
	rules       rules.Ingest
	departments []rules.Department
}

func New(r rules.Rules) *Ingester {
	return &Ingester{rules: r.Ingest, departments: r.Departments}
}

// SeedDepartments creates the default departments that do not exist yet
// and returns how many have been created.
func (i *Ingester) SeedDepartments(db *gorm.DB) (int, error) {
	created := 0

	for _, d := range i.departments {
		_, err := models.DepartmentByCode(db, d.Code)
		if err == nil {
			continue
		} else if !errors.Is(err, models.ErrResourceNotFound) {
			return created, err
		}

		err = db.Create(&models.Department{Code: d.Code, Name: d.Name}).Error
		if err != nil {
			return created, err
		}
		created++
	}

	log.Info().Int("created", created).Msg("seeded departments")
	return created, nil
}

// EnsureGlobalLimit sets the global limit for the year, creating it if
// it does not exist.
func EnsureGlobalLimit(db *gorm.DB, year int, limit decimal.Decimal) (models.GlobalLimit, error) {
	return models.SetGlobalLimit(db, year, limit)
}

// IngestFile ingests the spreadsheet at path.
func (i *Ingester) IngestFile(db *gorm.DB, path string) (Result, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return Result{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	return i.Ingest(db, f, format)
}

// Ingest creates entries from the rows of the spreadsheet. Rows that
// cannot be imported are skipped with a warning. Afterwards, the global
// limit of the first year is recalculated.
func (i *Ingester) Ingest(db *gorm.DB, r io.Reader, format Format) (Result, error) {
	rows, err := read(r, format)
	if err != nil {
		return Result{}, err
	}

	if len(rows) == 0 {
		return Result{}, ErrEmptySpreadsheet
	}

	columns := i.columns(rows[0])
	if len(columns) == 0 {
		return Result{}, ErrUnrecognizedHeader
	}

	departments, err := departmentIDs(db)
	if err != nil {
		return Result{}, err
	}

	result := Result{Processed: len(rows) - 1, Warnings: []string{}}

	for idx, row := range rows[1:] {
		// The header is the first row of the sheet
		line := idx + 2

		e, warnings, err := i.entry(row, columns, departments)
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", line, w))
		}

		if errors.Is(err, errNothingToImport) {
			result.Skipped++
			Rows.WithLabelValues(string(format), "skipped").Inc()
			continue
		}

		if err == nil {
			err = create(db, &e)
		}

		if err != nil {
			log.Warn().Err(err).Int("row", line).Msg("skipping row")
			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d: %s", line, err))
			result.Skipped++
			Rows.WithLabelValues(string(format), "failed").Inc()
			continue
		}

		result.Created++
		Rows.WithLabelValues(string(format), "created").Inc()
	}

	_, err = models.RecalculateGlobalLimit(db, models.FirstYear)
	if err != nil && !errors.Is(err, models.ErrResourceNotFound) {
		return result, err
	}

	log.Info().Str("format", string(format)).Int("processed", result.Processed).Int("created", result.Created).Int("skipped", result.Skipped).Msg("ingested spreadsheet")
	return result, nil
}

func create(db *gorm.DB, e *models.Entry) error {
	var count int64
	err := db.Model(&models.Entry{}).Where("import_hash = ?", e.ImportHash).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrAlreadyImported
	}

	return db.Create(e).Error
}

func read(r io.Reader, format Format) ([][]string, error) {
	switch format {
	case FormatXLSX:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return f.GetRows(f.GetSheetName(0))

	case FormatCSV:
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1

		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("could not read the CSV: %w", err)
		}

		if len(rows) > 0 && len(rows[0]) > 0 {
			rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
		}

		return rows, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func departmentIDs(db *gorm.DB) (map[string]uuid.UUID, error) {
	var departments []models.Department
	err := db.Find(&departments).Error
	if err != nil {
		return nil, err
	}

	ids := make(map[string]uuid.UUID, len(departments))
	for _, d := range departments {
		ids[d.Code] = d.ID
	}
	return ids, nil
}

// normalizeHeader folds a header cell and collapses its whitespace.
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(rules.Fold(h)), " ")
}

// columns maps the fields to the index of the first header cell matching
// one of their patterns.
func (i *Ingester) columns(header []string) map[string]int {
	fields := maps.Keys(i.rules.Columns)
	slices.Sort(fields)

	columns := make(map[string]int)
	for idx, cell := range header {
		h := normalizeHeader(cell)
		if h == "" {
			continue
		}

		for _, field := range fields {
			if _, ok := columns[field]; ok {
				continue
			}

			if slices.ContainsFunc(i.rules.Columns[field], func(pattern string) bool { return glob.Glob(pattern, h) }) {
				columns[field] = idx
				break
			}
		}
	}

	return columns
}

func hash(row []string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(strings.Join(row, ","))))
}

// number parses spreadsheet numbers with either decimal separator. Empty
// or unparseable cells are zero.
func number(s string) decimal.Decimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func integer(s string) int {
	return int(number(s).IntPart())
}

func (i *Ingester) text(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}

	runes := []rune(s)
	if len(runes) > i.rules.MaxTextLength {
		return string(runes[:i.rules.MaxTextLength])
	}
	return s
}

// priority classifies the entry by keywords, then by the first year amount.
func (i *Ingester) priority(e models.Entry) models.Priority {
	content := rules.Content(e.Name, e.Description, e.Justification, e.Stage)

	switch {
	case rules.ContainsAny(content, i.rules.ObligatoryKeywords):
		return models.PriorityObligatory
	case rules.ContainsAny(content, i.rules.DiscretionaryKeywords):
		return models.PriorityDiscretionary
	}

	amount := e.For(models.FirstYear)
	switch {
	case amount.GreaterThan(decimal.NewFromFloat(i.rules.HighAmount)):
		return models.PriorityHigh
	case amount.GreaterThan(decimal.NewFromFloat(i.rules.MediumAmount)):
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// entry builds the entry for a row. The warnings do not prevent the import.
func (i *Ingester) entry(row []string, columns map[string]int, departments map[string]uuid.UUID) (models.Entry, []string, error) {
	warnings := []string{}

	cell := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	e := models.Entry{
		Part:           integer(cell("part")),
		Division:       integer(cell("division")),
		Chapter:        integer(cell("chapter")),
		Paragraph:      integer(cell("paragraph")),
		BZCode:         i.text(cell("bz_code")),
		ProjectKind:    i.text(cell("project_kind")),
		Name:           i.text(cell("name")),
		Description:    i.text(cell("description")),
		Justification:  i.text(cell("justification")),
		InvestmentTask: i.text(cell("investment_task")),
		Remarks:        i.text(cell("remarks")),
		Stage:          i.text(cell("stage")),
		ContractStatus: i.text(cell("contract_status")),
		ContractNumber: i.text(cell("contract_number")),
		Contractor:     i.text(cell("contractor")),
		Status:         models.StatusDraft,
		ImportHash:     hash(row),
	}

	source := []rune(i.text(cell("financing_source")))
	if len(source) == 0 {
		source = []rune("0")
	}
	e.FinancingSource = string(source[:min(len(source), i.rules.FinancingSourceLength)])

	for _, year := range models.Years() {
		err := e.Set(year, number(cell("amount"+strconv.Itoa(year))))
		if err != nil {
			return models.Entry{}, warnings, err
		}
	}

	nothing := true
	for _, year := range models.Years()[:3] {
		if !e.For(year).IsZero() {
			nothing = false
		}
	}
	if nothing && e.Name == "" && e.Description == "" {
		return models.Entry{}, warnings, errNothingToImport
	}

	code := strings.ToUpper(strings.TrimSpace(cell("department")))
	id, ok := departments[code]
	if !ok {
		if code != "" {
			warnings = append(warnings, fmt.Sprintf("department %q is unknown, the entry is assigned to %s", code, models.UnknownDepartmentCode))
		}
		id, ok = departments[models.UnknownDepartmentCode]
	}
	if ok {
		e.DepartmentID = &id
	}

	e.Priority = i.priority(e)
	e.Obligatory = e.Priority == models.PriorityObligatory

	return e, warnings, nil
}
