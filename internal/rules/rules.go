// Package rules holds the rule tables of the planner: the budget
// classification, keyword lists, weights, thresholds and growth rates.
//
// A Rules value is read once and never modified afterwards. Components
// receive it in their constructor.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/envelope-zero/planner/internal/models"
	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

var ErrInvalidRules = errors.New("invalid rules")

// Group is the spending group of a paragraph.
type Group string

const (
	GroupInvestment Group = "investment"
	GroupCurrent    Group = "current"
	GroupSubsidy    Group = "subsidy"
)

// Paragraph describes a paragraph of the budget classification.
type Paragraph struct {
	Name     string   `yaml:"name"`
	Group    Group    `yaml:"group"`
	Keywords []string `yaml:"keywords"`
}

type Compliance struct {
	InvestmentKeywords   []string `yaml:"investment_keywords"`
	CurrentKeywords      []string `yaml:"current_keywords"`
	InvestmentParagraph  int      `yaml:"investment_paragraph"`
	InvestmentRangeStart int      `yaml:"investment_range_start"`
	BZPattern            string   `yaml:"bz_pattern"`
	BZSentinels          []string `yaml:"bz_sentinels"`
	HighAmount           float64  `yaml:"high_amount"`
	ObligatoryDropRatio  float64  `yaml:"obligatory_drop_ratio"`
	MultiYearMinimum     float64  `yaml:"multi_year_minimum"`
	ParagraphPenalty     int      `yaml:"paragraph_penalty"`
	BZPenalty            int      `yaml:"bz_penalty"`
	AmountPenalty        int      `yaml:"amount_penalty"`
	FieldPenalty         int      `yaml:"field_penalty"`
	ValidScore           int      `yaml:"valid_score"`
	SubmitMinScore       int      `yaml:"submit_min_score"`

	bz *regexp.Regexp
}

// BZ returns the compiled pattern for task beneficiary codes.
func (c Compliance) BZ() *regexp.Regexp {
	if c.bz == nil {
		return regexp.MustCompile(c.BZPattern)
	}
	return c.bz
}

// Category is a named keyword list.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Rate     float64  `yaml:"rate"`
}

type Conflict struct {
	Categories         []Category `yaml:"categories"`
	SequenceWeight     float64    `yaml:"sequence_weight"`
	CategoryWeight     float64    `yaml:"category_weight"`
	ParagraphWeight    float64    `yaml:"paragraph_weight"`
	Threshold          float64    `yaml:"threshold"`
	DuplicateThreshold float64    `yaml:"duplicate_threshold"`
	OverlapThreshold   float64    `yaml:"overlap_threshold"`
	SavingsRate        float64    `yaml:"savings_rate"`
	SynergyFactor      float64    `yaml:"synergy_factor"`
	ZeroedYears        int        `yaml:"zeroed_years"`
	ZeroAllYears       bool       `yaml:"zero_all_years"`
}

type Optimizer struct {
	PriorityWeights            map[models.Priority]float64 `yaml:"priority_weights"`
	UnknownPriorityWeight      float64                     `yaml:"unknown_priority_weight"`
	ProtectedKeywords          []string                    `yaml:"protected_keywords"`
	DeferrableKeywords         []string                    `yaml:"deferrable_keywords"`
	ProtectedPenalty           float64                     `yaml:"protected_penalty"`
	DeferrableBonus            float64                     `yaml:"deferrable_bonus"`
	SignedMarker               string                      `yaml:"signed_marker"`
	SignedPenalty              float64                     `yaml:"signed_penalty"`
	InProgressMarkers          []string                    `yaml:"in_progress_markers"`
	InProgressPenalty          float64                     `yaml:"in_progress_penalty"`
	PlannedMarkers             []string                    `yaml:"planned_markers"`
	PlannedBonus               float64                     `yaml:"planned_bonus"`
	DeferrablePriorities       []models.Priority           `yaml:"deferrable_priorities"`
	LenientReductionPriorities []models.Priority           `yaml:"lenient_reduction_priorities"`
	LenientReduction           float64                     `yaml:"lenient_reduction"`
	StrictReduction            float64                     `yaml:"strict_reduction"`
}

type Forecast struct {
	Categories             []Category      `yaml:"categories"`
	DefaultRate            float64         `yaml:"default_rate"`
	ConfidenceDecay        float64         `yaml:"confidence_decay"`
	MinConfidence          float64         `yaml:"min_confidence"`
	IncreasingRatio        float64         `yaml:"increasing_ratio"`
	DecreasingRatio        float64         `yaml:"decreasing_ratio"`
	RapidGrowth            float64         `yaml:"rapid_growth"`
	Growth                 float64         `yaml:"growth"`
	Decline                float64         `yaml:"decline"`
	GrowthWarningRatio     float64         `yaml:"growth_warning_ratio"`
	CybersecurityShare     float64         `yaml:"cybersecurity_share"`
	ObligatoryShare        float64         `yaml:"obligatory_share"`
	CyberRiskFromOffset    int             `yaml:"cyber_risk_from_offset"`
	OutlierZ               float64         `yaml:"outlier_z"`
	HighSeverityZ          float64         `yaml:"high_severity_z"`
	JustificationThreshold float64         `yaml:"justification_threshold"`
	MismatchRange          [2]int          `yaml:"mismatch_range"`
	MismatchKeywords       []string        `yaml:"mismatch_keywords"`
	AllocationLimits       map[int]float64 `yaml:"allocation_limits"`
}

type Orchestrator struct {
	CriticalGapPercent         float64 `yaml:"critical_gap_percent"`
	HighGapPercent             float64 `yaml:"high_gap_percent"`
	DeadlineMonths             []int   `yaml:"deadline_months"`
	DeadlinePendingDepartments int     `yaml:"deadline_pending_departments"`
	UnvalidatedEntries         int     `yaml:"unvalidated_entries"`
	TreasuryPart               int     `yaml:"treasury_part"`
}

// SemanticRule flags entries on a paragraph whose text contains one of
// the keywords when the first year amount is above MinAmount.
type SemanticRule struct {
	Keywords      []string `yaml:"keywords"`
	Paragraph     int      `yaml:"paragraph"`
	MinAmount     float64  `yaml:"min_amount"`
	RiskLevel     string   `yaml:"risk_level"`
	LegalCitation string   `yaml:"legal_citation"`
	Reasoning     string   `yaml:"reasoning"`
	Suggestion    string   `yaml:"suggestion"`
}

type Ingest struct {
	ObligatoryKeywords    []string            `yaml:"obligatory_keywords"`
	DiscretionaryKeywords []string            `yaml:"discretionary_keywords"`
	HighAmount            float64             `yaml:"high_amount"`
	MediumAmount          float64             `yaml:"medium_amount"`
	MaxTextLength         int                 `yaml:"max_text_length"`
	FinancingSourceLength int                 `yaml:"financing_source_length"`
	Columns               map[string][]string `yaml:"columns"`
}

type Department struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// LegalBasis is cited in justifications for entries mentioning one of
// the keywords.
type LegalBasis struct {
	Keywords []string `yaml:"keywords"`
	Bases    []string `yaml:"bases"`
}

type Documents struct {
	Sender                string       `yaml:"sender"`
	Organization          string       `yaml:"organization"`
	Signature             string       `yaml:"signature"`
	ReferencePrefix       string       `yaml:"reference_prefix"`
	ReplyDays             int          `yaml:"reply_days"`
	CybersecurityKeywords []string     `yaml:"cybersecurity_keywords"`
	LegalBases            []LegalBasis `yaml:"legal_bases"`
	DefaultLegalBasis     string       `yaml:"default_legal_basis"`
	TableRows             int          `yaml:"table_rows"`
}

// Rules is the complete rule set.
type Rules struct {
	Classification map[int]Paragraph `yaml:"classification"`
	Compliance     Compliance        `yaml:"compliance"`
	Conflict       Conflict          `yaml:"conflict"`
	Optimizer      Optimizer         `yaml:"optimizer"`
	Forecast       Forecast          `yaml:"forecast"`
	Orchestrator   Orchestrator      `yaml:"orchestrator"`
	Semantic       []SemanticRule    `yaml:"semantic"`
	Ingest         Ingest            `yaml:"ingest"`
	Departments    []Department      `yaml:"departments"`
	Documents      Documents         `yaml:"documents"`
}

// Default returns the built-in rule set.
func Default() Rules {
	r, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("built-in rules are invalid: %s", err))
	}
	return r
}

// Load reads a rule set from a YAML file.
func Load(path string) (Rules, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("could not read rules file: %w", err)
	}

	return Parse(content)
}

// Parse decodes and validates a rule set.
func Parse(content []byte) (Rules, error) {
	var r Rules
	err := yaml.Unmarshal(content, &r)
	if err != nil {
		return Rules{}, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	err = r.Validate()
	if err != nil {
		return Rules{}, err
	}

	return r, nil
}

// Validate checks that weights and ranges are consistent and compiles
// the patterns.
func (r *Rules) Validate() error {
	if len(r.Classification) == 0 {
		return fmt.Errorf("%w: the classification table is empty", ErrInvalidRules)
	}

	for code, p := range r.Classification {
		if !slices.Contains([]Group{GroupInvestment, GroupCurrent, GroupSubsidy}, p.Group) {
			return fmt.Errorf("%w: paragraph %d has unknown group %q", ErrInvalidRules, code, p.Group)
		}
	}

	bz, err := regexp.Compile(r.Compliance.BZPattern)
	if err != nil {
		return fmt.Errorf("%w: bz_pattern: %w", ErrInvalidRules, err)
	}
	r.Compliance.bz = bz

	weights := r.Conflict.SequenceWeight + r.Conflict.CategoryWeight + r.Conflict.ParagraphWeight
	if weights < 0.999 || weights > 1.001 {
		return fmt.Errorf("%w: conflict weights sum to %.3f, not 1", ErrInvalidRules, weights)
	}

	if !(r.Conflict.Threshold <= r.Conflict.OverlapThreshold && r.Conflict.OverlapThreshold <= r.Conflict.DuplicateThreshold) {
		return fmt.Errorf("%w: conflict thresholds must be ascending", ErrInvalidRules)
	}

	if r.Conflict.ZeroedYears < 0 || r.Conflict.ZeroedYears > len(models.Years()) {
		return fmt.Errorf("%w: zeroed_years must be between 0 and %d", ErrInvalidRules, len(models.Years()))
	}

	for _, p := range models.Priorities {
		if _, ok := r.Optimizer.PriorityWeights[p]; !ok {
			return fmt.Errorf("%w: priority %s has no weight", ErrInvalidRules, p)
		}
	}

	for _, rate := range []float64{r.Optimizer.LenientReduction, r.Optimizer.StrictReduction, r.Conflict.SavingsRate, r.Conflict.SynergyFactor} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%w: rates must be between 0 and 1", ErrInvalidRules)
		}
	}

	if r.Forecast.MinConfidence <= 0 || r.Forecast.MinConfidence > 1 || r.Forecast.ConfidenceDecay <= 0 {
		return fmt.Errorf("%w: forecast confidence settings are out of range", ErrInvalidRules)
	}

	if r.Forecast.DefaultRate <= 0 {
		return fmt.Errorf("%w: the default growth rate must be positive", ErrInvalidRules)
	}

	for _, c := range r.Forecast.Categories {
		if c.Rate <= 0 {
			return fmt.Errorf("%w: growth rate of %s must be positive", ErrInvalidRules, c.Name)
		}
	}

	if r.Compliance.ValidScore < r.Compliance.SubmitMinScore {
		return fmt.Errorf("%w: the valid score must not be lower than the submission minimum", ErrInvalidRules)
	}

	if !slices.ContainsFunc(r.Departments, func(d Department) bool { return d.Code == models.UnknownDepartmentCode }) {
		return fmt.Errorf("%w: the %s department is missing", ErrInvalidRules, models.UnknownDepartmentCode)
	}

	return nil
}

// ParagraphInfo returns the classification of a paragraph.
func (r Rules) ParagraphInfo(code int) (Paragraph, bool) {
	p, ok := r.Classification[code]
	return p, ok
}

// Fold lowercases text with Polish casing rules.
func Fold(s string) string {
	return cases.Lower(language.Polish).String(s)
}

// Content joins the fields and folds them for keyword matching.
func Content(fields ...string) string {
	return Fold(strings.Join(fields, " "))
}

// FirstMatch returns the first keyword contained in the content.
func FirstMatch(content string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(content, k) {
			return k, true
		}
	}
	return "", false
}

// ContainsAny reports if any keyword is contained in the content.
func ContainsAny(content string, keywords []string) bool {
	_, ok := FirstMatch(content, keywords)
	return ok
}
