// Package compliance checks entries against the budget classification
// rules and scores them.
package compliance

import (
	"fmt"
	"strings"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Validations counts validated entries by outcome.
var Validations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "compliance_validations_total",
		Help: "How many entries have been validated, partitioned by validity.",
	},
	[]string{"valid"},
)

// Correction is a correction the checker proposes for a field.
type Correction struct {
	Field     string `json:"field" example:"paragraph"`
	Original  string `json:"original" example:"4300"`
	Corrected string `json:"corrected" example:"6060"`
	Reason    string `json:"reason"`
}

// Result is the outcome of validating an entry.
type Result struct {
	IsValid            bool         `json:"isValid"`
	Warnings           []string     `json:"warnings"`
	AutoCorrections    []Correction `json:"autoCorrections"`
	SuggestedParagraph *int         `json:"suggestedParagraph"`
	Score              int          `json:"score" example:"85"`
}

// EntryResult is the result for a specific entry.
type EntryResult struct {
	EntryID uuid.UUID `json:"entryId"`
	Name    string    `json:"name"`
	Result  Result    `json:"validation"`
}

// Summary aggregates the compliance state of all entries.
type Summary struct {
	Total          int     `json:"total" example:"120"`
	Validated      int     `json:"validated" example:"100"`
	WithWarnings   int     `json:"withWarnings" example:"12"`
	ComplianceRate float64 `json:"complianceRate" example:"90"` // Percentage of entries without warnings
}

type Checker struct {
	rules rules.Rules
}

func New(r rules.Rules) *Checker {
	return &Checker{rules: r}
}

// Validate checks a single entry.
func (c *Checker) Validate(e models.Entry) Result {
	r := Result{
		Warnings:        []string{},
		AutoCorrections: []Correction{},
	}
	score := 100

	if suggestion, correction := c.checkParagraph(e, &r); suggestion != 0 {
		r.SuggestedParagraph = &suggestion
		r.AutoCorrections = append(r.AutoCorrections, correction)
		score -= c.rules.Compliance.ParagraphPenalty
	}

	if correction, ok := c.checkBZ(e, &r); ok {
		r.AutoCorrections = append(r.AutoCorrections, correction)
		score -= c.rules.Compliance.BZPenalty
	}

	if c.checkAmounts(e, &r) {
		score -= c.rules.Compliance.AmountPenalty
	}

	score -= c.rules.Compliance.FieldPenalty * c.checkRequiredFields(e, &r)

	r.Score = max(0, min(100, score))
	r.IsValid = r.Score >= c.rules.Compliance.ValidScore

	Validations.WithLabelValues(fmt.Sprint(r.IsValid)).Inc()
	return r
}

// content is the text the keyword checks run on.
func content(e models.Entry) string {
	return rules.Content(e.Name, e.Description, e.Justification, e.InvestmentTask, e.Remarks)
}

// checkParagraph returns the suggested paragraph, or 0 if there is none.
func (c *Checker) checkParagraph(e models.Entry, r *Result) (int, Correction) {
	if e.Paragraph == 0 {
		r.Warnings = append(r.Warnings, "No paragraph assigned. Every entry needs a paragraph of the budget classification")
		return 0, Correction{}
	}

	info, ok := c.rules.ParagraphInfo(e.Paragraph)
	if !ok {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Unknown paragraph %d. Check it against the classification regulation", e.Paragraph))
		return 0, Correction{}
	}

	text := content(e)
	suggested := c.rules.Compliance.InvestmentParagraph

	switch info.Group {
	case rules.GroupCurrent:
		keyword, found := rules.FirstMatch(text, c.rules.Compliance.InvestmentKeywords)
		if !found {
			return 0, Correction{}
		}

		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"Purchases of '%s' are investment purchases (paragraph %d), not '%s' (paragraph %d)",
			keyword, suggested, info.Name, e.Paragraph,
		))

		return suggested, Correction{
			Field:     "paragraph",
			Original:  fmt.Sprint(e.Paragraph),
			Corrected: fmt.Sprint(suggested),
			Reason:    fmt.Sprintf("keyword '%s' indicates an investment purchase", keyword),
		}

	case rules.GroupInvestment:
		if keyword, found := rules.FirstMatch(text, c.rules.Compliance.CurrentKeywords); found {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"'%s' may have to be classified as current expenditure, not investment (consider paragraph 4300 or 4210)", keyword,
			))
		}
	}

	return 0, Correction{}
}

// checkBZ validates the task beneficiary code. It returns a correction if
// the code only needs its separators normalized. Entries without a
// paragraph are not checked, the missing paragraph is reported instead.
func (c *Checker) checkBZ(e models.Entry, r *Result) (Correction, bool) {
	if e.Paragraph == 0 {
		return Correction{}, false
	}

	code := strings.TrimSpace(e.BZCode)
	if slices.Contains(c.rules.Compliance.BZSentinels, strings.ToLower(code)) {
		return Correction{}, false
	}

	pattern := c.rules.Compliance.BZ()
	if pattern.MatchString(code) {
		return Correction{}, false
	}

	normalized := strings.NewReplacer(",", ".", " ", "").Replace(code)
	if pattern.MatchString(normalized) {
		return Correction{
			Field:     "bzCode",
			Original:  code,
			Corrected: normalized,
			Reason:    "separators of the task beneficiary code normalized",
		}, true
	}

	r.Warnings = append(r.Warnings, fmt.Sprintf("The task beneficiary code '%s' may be invalid. Expected format: XX.X.X.X (e.g. 16.1.2.1)", code))
	return Correction{}, false
}

// checkAmounts reports if any amount warning was added.
func (c *Checker) checkAmounts(e models.Entry, r *Result) bool {
	before := len(r.Warnings)
	cfg := c.rules.Compliance

	highest := e.Max()
	if highest.GreaterThan(decimal.NewFromFloat(cfg.HighAmount)) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("High expenditure (%s thousand PLN) needs approval by the management", highest.StringFixed(0)))
	}

	first := e.For(models.FirstYear)
	second := e.For(models.FirstYear + 1)
	if e.Obligatory && first.IsPositive() && second.LessThan(first.Mul(decimal.NewFromFloat(cfg.ObligatoryDropRatio))) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Obligatory task shows a significant drop in funding in %d. Check the data", models.FirstYear+1))
	}

	if e.Paragraph >= cfg.InvestmentRangeStart && first.GreaterThan(decimal.NewFromFloat(cfg.MultiYearMinimum)) {
		later := true
		for _, y := range models.Years()[1:] {
			if !e.For(y).IsZero() {
				later = false
				break
			}
		}

		if later {
			r.Warnings = append(r.Warnings, "Investment without multi-year planning. Consider spreading the expenditure")
		}
	}

	return len(r.Warnings) > before
}

// checkRequiredFields returns the number of missing fields.
func (c *Checker) checkRequiredFields(e models.Entry, r *Result) int {
	missing := 0

	if e.Name == "" && e.Description == "" {
		r.Warnings = append(r.Warnings, "Neither a task name nor a project description is set")
		missing++
	}

	if e.DepartmentID == nil {
		r.Warnings = append(r.Warnings, "The entry is not assigned to a department")
		missing++
	}

	if e.Paragraph >= c.rules.Compliance.InvestmentRangeStart && e.InvestmentTask == "" {
		r.Warnings = append(r.Warnings, "Investment expenditure requires an investment task")
		missing++
	}

	return missing
}

// store persists the validation result on the entry.
func store(tx *gorm.DB, e models.Entry, res Result) error {
	e.ComplianceValidated = true
	e.SetWarnings(res.Warnings)

	if res.SuggestedParagraph != nil && *res.SuggestedParagraph != e.Paragraph {
		e.OriginalParagraph = e.Paragraph
	}

	return tx.Model(&e).Select("ComplianceValidated", "ComplianceWarnings", "OriginalParagraph").Updates(&e).Error
}

// ValidateEntry validates the entry with the ID, stores the result and
// records the validation in the audit log.
func (c *Checker) ValidateEntry(db *gorm.DB, id uuid.UUID) (Result, error) {
	var res Result

	err := models.Transaction(db, func(tx *gorm.DB) error {
		var e models.Entry
		err := tx.Preload("Department").First(&e, id).Error
		if err != nil {
			return err
		}

		res = c.Validate(e)
		err = store(tx, e, res)
		if err != nil {
			return err
		}

		return models.RecordAudit(tx, e.ID, models.AuditValidate, nil, res, fmt.Sprintf("Compliance score %d", res.Score))
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

// ValidateEntries validates the entries without storing anything.
func (c *Checker) ValidateEntries(entries []models.Entry) []EntryResult {
	results := make([]EntryResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, EntryResult{
			EntryID: e.ID,
			Name:    e.Title(),
			Result:  c.Validate(e),
		})
	}
	return results
}

// ValidateAll validates all entries and stores the validated flag and the
// warnings. If a different paragraph is suggested, the current paragraph
// is recorded as the original one.
func (c *Checker) ValidateAll(db *gorm.DB) ([]EntryResult, error) {
	var results []EntryResult

	err := models.Transaction(db, func(tx *gorm.DB) error {
		entries, err := models.LoadEntries(tx)
		if err != nil {
			return err
		}

		results = c.ValidateEntries(entries)
		for i, e := range entries {
			err := store(tx, e, results[i].Result)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("entries", len(results)).Msg("validated all entries")
	return results, nil
}

// Summarize aggregates validation results.
func Summarize(results []EntryResult) Summary {
	s := Summary{Total: len(results), Validated: len(results)}
	for _, r := range results {
		if len(r.Result.Warnings) > 0 {
			s.WithWarnings++
		}
	}

	s.ComplianceRate = rate(s.Total, s.WithWarnings)
	return s
}

// Summary aggregates the stored compliance state.
func (c *Checker) Summary(db *gorm.DB) (Summary, error) {
	entries, err := models.LoadEntries(db)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Total: len(entries)}
	for _, e := range entries {
		if e.ComplianceValidated {
			s.Validated++
		}

		if len(e.Warnings()) > 0 {
			s.WithWarnings++
		}
	}

	s.ComplianceRate = rate(s.Total, s.WithWarnings)
	return s, nil
}

func rate(total, withWarnings int) float64 {
	if total == 0 {
		return 100
	}
	return float64(total-withWarnings) / float64(total) * 100
}

// CanSubmit reports if the result allows submitting the entry.
func (c *Checker) CanSubmit(r Result) bool {
	return r.Score >= c.rules.Compliance.SubmitMinScore
}
