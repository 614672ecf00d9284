// Package forecast projects the spending of future years, finds
// anomalous entries and spreads the spending over the planning period.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"gorm.io/gorm"
)

// MaxHorizon is the maximum number of years that can be forecast.
const MaxHorizon = 10

const (
	CategoryCybersecurity = "cybersecurity"
	CategoryOther         = "other"
)

// Trend labels.
const (
	TrendRapidlyIncreasing = "rapidly_increasing"
	TrendIncreasing        = "increasing"
	TrendStable            = "stable"
	TrendDecreasing        = "decreasing"
)

// Anomaly types.
const (
	AnomalyOutlier                = "outlier"
	AnomalyMissingJustification   = "missing_justification"
	AnomalyClassificationMismatch = "classification_mismatch"
)

var ErrInvalidHorizon = errors.New("the number of forecast years must be between 1 and 10")

// YearForecast is the projection for a single year.
type YearForecast struct {
	Year                int                        `json:"year" example:"2026"`
	PredictedTotal      decimal.Decimal            `json:"predictedTotal" example:"108000"`
	Confidence          float64                    `json:"confidence" example:"0.85"`
	Trend               string                     `json:"trend" example:"stable"` // Compared with the base year
	CategoryBreakdown   map[string]decimal.Decimal `json:"categoryBreakdown"`
	DepartmentBreakdown map[string]decimal.Decimal `json:"departmentBreakdown"`
	RiskFactors         []string                   `json:"riskFactors"`
}

// TrendAnalysis describes the growth over the whole horizon.
type TrendAnalysis struct {
	Trend               string  `json:"trend" example:"increasing"`
	TotalGrowthPercent  float64 `json:"totalGrowthPercent" example:"12.4"`
	AnnualGrowthPercent float64 `json:"annualGrowthPercent" example:"6.2"`
	Warning             string  `json:"warning,omitempty"`
}

type Recommendation struct {
	Priority    string `json:"priority" example:"high"`
	Type        string `json:"type" example:"budget_growth"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

// Result is a forecast for the years after the base year.
type Result struct {
	BaseYear        int              `json:"baseYear" example:"2025"`
	BaseTotal       decimal.Decimal  `json:"baseTotal" example:"100000"`
	Forecasts       []YearForecast   `json:"forecasts"`
	TrendAnalysis   TrendAnalysis    `json:"trendAnalysis"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generatedAt"`
}

// Anomaly is a suspicious entry.
type Anomaly struct {
	Type           string    `json:"type" example:"outlier"`
	Severity       string    `json:"severity" example:"medium"`
	EntryID        uuid.UUID `json:"entryId"`
	Task           string    `json:"task"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
}

// YearAllocation is the spending of a year split by deferability.
type YearAllocation struct {
	Year                int             `json:"year" example:"2025"`
	Limit               decimal.Decimal `json:"limit" example:"100000"`
	NonDeferrable       decimal.Decimal `json:"nonDeferrable" example:"70000"`
	DeferrableRequested decimal.Decimal `json:"deferrableRequested" example:"40000"`
	DeferrableAllocated decimal.Decimal `json:"deferrableAllocated" example:"30000"`
	TotalAllocated      decimal.Decimal `json:"totalAllocated" example:"100000"`
	Gap                 decimal.Decimal `json:"gap" example:"10000"`
	Surplus             decimal.Decimal `json:"surplus" example:"0"`
}

// Shift moves spending from one year to the next.
type Shift struct {
	FromYear int             `json:"fromYear" example:"2025"`
	ToYear   int             `json:"toYear" example:"2026"`
	Amount   decimal.Decimal `json:"amount" example:"5000"`
	Reason   string          `json:"reason"`
}

// Allocation is the result of OptimizeAllocation.
type Allocation struct {
	Years           []YearAllocation `json:"years"`
	SuggestedShifts []Shift          `json:"suggestedShifts"`
	Summary         string           `json:"summary"`
}

type Forecaster struct {
	rules rules.Forecast
}

func New(r rules.Rules) *Forecaster {
	return &Forecaster{rules: r.Forecast}
}

// Categorize returns the first category whose keywords match the entry.
func (f *Forecaster) Categorize(e models.Entry) string {
	text := rules.Content(e.Name, e.Description, e.Justification)
	for _, c := range f.rules.Categories {
		if rules.ContainsAny(text, c.Keywords) {
			return c.Name
		}
	}
	return CategoryOther
}

func (f *Forecaster) rate(category string) decimal.Decimal {
	for _, c := range f.rules.Categories {
		if c.Name == category {
			return decimal.NewFromFloat(c.Rate)
		}
	}
	return decimal.NewFromFloat(f.rules.DefaultRate)
}

type baseData struct {
	total        decimal.Decimal
	obligatory   decimal.Decimal
	byCategory   map[string]decimal.Decimal
	byDepartment map[string]decimal.Decimal
}

func (f *Forecaster) base(entries []models.Entry, year int) baseData {
	b := baseData{
		byCategory:   map[string]decimal.Decimal{CategoryOther: decimal.Zero},
		byDepartment: make(map[string]decimal.Decimal),
	}

	for _, c := range f.rules.Categories {
		b.byCategory[c.Name] = decimal.Zero
	}

	for _, e := range entries {
		amount := e.For(year)
		if !amount.IsPositive() {
			continue
		}

		b.total = b.total.Add(amount)
		if e.Obligatory {
			b.obligatory = b.obligatory.Add(amount)
		}

		category := f.Categorize(e)
		b.byCategory[category] = b.byCategory[category].Add(amount)

		code := models.UnknownDepartmentCode
		if e.Department != nil {
			code = e.Department.Code
		}
		b.byDepartment[code] = b.byDepartment[code].Add(amount)
	}

	return b
}

// Forecast projects the stored entries.
func (f *Forecaster) Forecast(db *gorm.DB, baseYear, years int) (Result, error) {
	if !models.ValidYear(baseYear) {
		return Result{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, baseYear)
	}

	if years < 1 || years > MaxHorizon {
		return Result{}, ErrInvalidHorizon
	}

	entries, err := models.LoadEntries(db)
	if err != nil {
		return Result{}, err
	}

	return f.Project(entries, baseYear, years), nil
}

// Project forecasts the years after the base year by growing the amount
// of every category with its rate.
func (f *Forecaster) Project(entries []models.Entry, baseYear, years int) Result {
	b := f.base(entries, baseYear)

	r := Result{
		BaseYear:        baseYear,
		BaseTotal:       b.total,
		Forecasts:       make([]YearForecast, 0, years),
		Recommendations: []Recommendation{},
		GeneratedAt:     time.Now().UTC(),
	}

	for offset := 1; offset <= years; offset++ {
		r.Forecasts = append(r.Forecasts, f.forecastYear(b, baseYear+offset, offset))
	}

	r.TrendAnalysis = f.trend(r.Forecasts)
	r.Recommendations = f.recommendations(b, r.Forecasts)

	return r
}

func (f *Forecaster) forecastYear(b baseData, year, offset int) YearForecast {
	fc := YearForecast{
		Year:                year,
		CategoryBreakdown:   make(map[string]decimal.Decimal),
		DepartmentBreakdown: make(map[string]decimal.Decimal),
		RiskFactors:         []string{},
	}

	total := decimal.Zero
	for category, amount := range b.byCategory {
		growth := f.rate(category).Pow(decimal.NewFromInt(int64(offset)))
		predicted := amount.Mul(growth)
		fc.CategoryBreakdown[category] = predicted.Round(0)
		total = total.Add(predicted)

		if category == CategoryCybersecurity && amount.IsPositive() && offset >= f.rules.CyberRiskFromOffset {
			fc.RiskFactors = append(fc.RiskFactors, fmt.Sprintf(
				"Cybersecurity: fast growth (+%s%%)", growth.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).StringFixed(0),
			))
		}
	}

	fc.PredictedTotal = total.Round(0)
	fc.Confidence = math.Round(math.Max(f.rules.MinConfidence, 1-float64(offset)*f.rules.ConfidenceDecay)*100) / 100

	switch {
	case total.GreaterThan(b.total.Mul(decimal.NewFromFloat(f.rules.IncreasingRatio))):
		fc.Trend = TrendIncreasing
	case total.LessThan(b.total.Mul(decimal.NewFromFloat(f.rules.DecreasingRatio))):
		fc.Trend = TrendDecreasing
	default:
		fc.Trend = TrendStable
	}

	if b.total.IsPositive() {
		for code, amount := range b.byDepartment {
			fc.DepartmentBreakdown[code] = total.Mul(amount).Div(b.total).Round(0)
		}
	}

	return fc
}

// trend classifies the annualized growth between the first and the last
// forecast year.
func (f *Forecaster) trend(forecasts []YearForecast) TrendAnalysis {
	if len(forecasts) == 0 {
		return TrendAnalysis{Trend: "unknown"}
	}

	first := forecasts[0].PredictedTotal
	last := forecasts[len(forecasts)-1].PredictedTotal

	total := 0.0
	if first.IsPositive() {
		total = (last.Div(first).InexactFloat64() - 1) * 100
	}
	annual := total / float64(len(forecasts))

	t := TrendAnalysis{
		TotalGrowthPercent:  math.Round(total*10) / 10,
		AnnualGrowthPercent: math.Round(annual*10) / 10,
	}

	switch {
	case annual > f.rules.RapidGrowth:
		t.Trend = TrendRapidlyIncreasing
		t.Warning = "Spending grows rapidly and needs attention"
	case annual > f.rules.Growth:
		t.Trend = TrendIncreasing
	case annual > f.rules.Decline:
		t.Trend = TrendStable
	default:
		t.Trend = TrendDecreasing
		t.Warning = "Spending decreases, check that no tasks are missing"
	}

	return t
}

func percent(part, whole decimal.Decimal) string {
	return part.Div(whole).Mul(decimal.NewFromInt(100)).StringFixed(0)
}

func (f *Forecaster) recommendations(b baseData, forecasts []YearForecast) []Recommendation {
	recommendations := []Recommendation{}
	if !b.total.IsPositive() {
		return recommendations
	}

	if len(forecasts) > 0 {
		last := forecasts[len(forecasts)-1]
		if last.PredictedTotal.GreaterThan(b.total.Mul(decimal.NewFromFloat(f.rules.GrowthWarningRatio))) {
			recommendations = append(recommendations, Recommendation{
				Priority:    "high",
				Type:        "budget_growth",
				Title:       "Fast growth of spending",
				Description: fmt.Sprintf("The forecast for %d is %s thousand PLN, %s%% of the base year", last.Year, last.PredictedTotal.StringFixed(0), percent(last.PredictedTotal, b.total)),
				Action:      "Negotiate a higher limit with the ministry of finance or identify cuts",
			})
		}
	}

	cyber := b.byCategory[CategoryCybersecurity]
	if cyber.GreaterThan(b.total.Mul(decimal.NewFromFloat(f.rules.CybersecurityShare))) {
		recommendations = append(recommendations, Recommendation{
			Priority:    "medium",
			Type:        "category_concentration",
			Title:       "Concentration on cybersecurity",
			Description: fmt.Sprintf("Cybersecurity makes up %s%% of the budget", percent(cyber, b.total)),
			Action:      "Consider consolidating orders or sharing resources with other units",
		})
	}

	if b.obligatory.Div(b.total).GreaterThan(decimal.NewFromFloat(f.rules.ObligatoryShare)) {
		recommendations = append(recommendations, Recommendation{
			Priority:    "high",
			Type:        "flexibility",
			Title:       "Low budget flexibility",
			Description: fmt.Sprintf("%s%% of the spending are obligatory tasks", percent(b.obligatory, b.total)),
			Action:      "There is little room for negotiation if the budget is cut",
		})
	}

	return recommendations
}

// Anomalies finds suspicious stored entries for the year.
func (f *Forecaster) Anomalies(db *gorm.DB, year int) ([]Anomaly, error) {
	if !models.ValidYear(year) {
		return nil, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	entries, err := models.LoadEntries(db)
	if err != nil {
		return nil, err
	}

	return f.FindAnomalies(entries, year), nil
}

// FindAnomalies finds entries with outlier amounts, high amounts without
// justification and investment paragraphs without investment wording.
func (f *Forecaster) FindAnomalies(entries []models.Entry, year int) []Anomaly {
	anomalies := []Anomaly{}

	var positive []models.Entry
	var amounts []float64
	for _, e := range entries {
		if e.For(year).IsPositive() {
			positive = append(positive, e)
			amounts = append(amounts, e.For(year).InexactFloat64())
		}
	}

	if len(positive) == 0 {
		return anomalies
	}

	for i, e := range positive {
		amount := amounts[i]

		z := score(amounts, i)
		if math.Abs(z) > f.rules.OutlierZ {
			severity := "medium"
			if math.Abs(z) > f.rules.HighSeverityZ {
				severity = "high"
			}

			anomalies = append(anomalies, Anomaly{
				Type:           AnomalyOutlier,
				Severity:       severity,
				EntryID:        e.ID,
				Task:           e.Title(),
				Description:    fmt.Sprintf("The amount %.0f is %.1f standard deviations from the mean", amount, z),
				Recommendation: "Verify the data",
			})
		}

		if amount > f.rules.JustificationThreshold && e.Justification == "" {
			anomalies = append(anomalies, Anomaly{
				Type:           AnomalyMissingJustification,
				Severity:       "medium",
				EntryID:        e.ID,
				Task:           e.Title(),
				Description:    fmt.Sprintf("There is no justification for %.0f thousand PLN", amount),
				Recommendation: "Add a detailed justification",
			})
		}

		if e.Paragraph >= f.rules.MismatchRange[0] && e.Paragraph < f.rules.MismatchRange[1] &&
			!rules.ContainsAny(rules.Fold(e.Title()), f.rules.MismatchKeywords) {
			anomalies = append(anomalies, Anomaly{
				Type:           AnomalyClassificationMismatch,
				Severity:       "low",
				EntryID:        e.ID,
				Task:           e.Title(),
				Description:    fmt.Sprintf("Investment paragraph %d, but no investment wording", e.Paragraph),
				Recommendation: "Check the classification",
			})
		}
	}

	return anomalies
}

// score returns the z-score of values[i] against the population of all
// other values. Including the value itself bounds the score by the square
// root of n-1, which hides single outliers in small sets.
func score(values []float64, i int) float64 {
	if len(values) < 2 {
		return 0
	}

	others := make([]float64, 0, len(values)-1)
	others = append(others, values[:i]...)
	others = append(others, values[i+1:]...)

	mean, std := meanStd(others)
	return (values[i] - mean) / std
}

// meanStd returns the population mean and standard deviation. A standard
// deviation of 0 is returned as 1.
func meanStd(values []float64) (float64, float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	if variance == 0 {
		return mean, 1
	}
	return mean, math.Sqrt(variance)
}

// DefaultLimits returns the configured yearly limits.
func (f *Forecaster) DefaultLimits() map[int]decimal.Decimal {
	limits := make(map[int]decimal.Decimal, len(f.rules.AllocationLimits))
	for year, limit := range f.rules.AllocationLimits {
		limits[year] = decimal.NewFromFloat(limit)
	}
	return limits
}

// OptimizeAllocation spreads the stored entries over the years with the
// limits. If limits is empty, the configured limits are used.
func (f *Forecaster) OptimizeAllocation(db *gorm.DB, limits map[int]decimal.Decimal) (Allocation, error) {
	if len(limits) == 0 {
		limits = f.DefaultLimits()
	}

	for year, limit := range limits {
		if !models.ValidYear(year) {
			return Allocation{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
		}

		if limit.IsNegative() {
			return Allocation{}, models.ErrNegativeAmount
		}
	}

	entries, err := models.LoadEntries(db)
	if err != nil {
		return Allocation{}, err
	}

	return Allocate(entries, limits), nil
}

// Allocate allocates the limit of every year to the non-deferrable entries
// first. Gaps are shifted to the next year with a limit if it has a
// surplus.
func Allocate(entries []models.Entry, limits map[int]decimal.Decimal) Allocation {
	years := maps.Keys(limits)
	sort.Ints(years)

	a := Allocation{
		Years:           make([]YearAllocation, 0, len(years)),
		SuggestedShifts: []Shift{},
	}

	for _, year := range years {
		limit := limits[year]
		y := YearAllocation{Year: year, Limit: limit}

		for _, e := range entries {
			if e.Obligatory || e.Priority == models.PriorityObligatory {
				y.NonDeferrable = y.NonDeferrable.Add(e.For(year))
			} else {
				y.DeferrableRequested = y.DeferrableRequested.Add(e.For(year))
			}
		}

		remaining := limit.Sub(y.NonDeferrable)
		y.DeferrableAllocated = decimal.Min(y.DeferrableRequested, decimal.Max(decimal.Zero, remaining))
		y.TotalAllocated = y.NonDeferrable.Add(y.DeferrableAllocated)
		y.Gap = decimal.Max(decimal.Zero, y.NonDeferrable.Add(y.DeferrableRequested).Sub(limit))
		y.Surplus = decimal.Max(decimal.Zero, remaining.Sub(y.DeferrableRequested))

		a.Years = append(a.Years, y)
	}

	for i := 0; i+1 < len(a.Years); i++ {
		current, next := a.Years[i], a.Years[i+1]
		if !current.Gap.IsPositive() || !next.Surplus.IsPositive() {
			continue
		}

		amount := decimal.Min(current.Gap, next.Surplus)
		a.SuggestedShifts = append(a.SuggestedShifts, Shift{
			FromYear: current.Year,
			ToYear:   next.Year,
			Amount:   amount,
			Reason:   fmt.Sprintf("Shift %s thousand PLN from %d to %d to balance the budget", amount.StringFixed(0), current.Year, next.Year),
		})
	}

	a.Summary = fmt.Sprintf("Optimized the allocation for %d budget years", len(years))
	return a
}
