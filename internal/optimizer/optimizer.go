// Package optimizer compares the planned spending with the global limit
// and proposes which entries to defer or reduce to close the gap.
package optimizer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Applied counts applied suggestions by action.
var Applied = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "optimizer_suggestions_applied_total",
		Help: "How many cut suggestions have been applied, partitioned by action.",
	},
	[]string{"action"},
)

var (
	ErrNoGlobalLimit    = errors.New("there is no global limit for this year")
	ErrNoFollowingYear  = errors.New("the amount cannot be deferred beyond the last year of the planning period")
	ErrInvalidReduction = errors.New("the new amount must be between 0 and the current amount")
	ErrUnknownAction    = errors.New("the action must be one of 'defer' or 'reduce'")
)

// ActionKind is what happens to an entry.
type ActionKind string

const (
	ActionDefer  ActionKind = "defer"
	ActionReduce ActionKind = "reduce"
)

// GapAnalysis compares the planned spending for a year with the limit.
type GapAnalysis struct {
	Year                int                                 `json:"year" example:"2025"`
	GlobalLimit         decimal.Decimal                     `json:"globalLimit" example:"100000"`
	CurrentTotal        decimal.Decimal                     `json:"currentTotal" example:"150000"`
	Variance            decimal.Decimal                     `json:"variance" example:"50000"`
	IsOverLimit         bool                                `json:"isOverLimit" example:"true"`
	OverPercentage      float64                             `json:"overPercentage" example:"50"`
	PriorityBreakdown   map[models.Priority]decimal.Decimal `json:"priorityBreakdown"`
	DepartmentBreakdown map[string]decimal.Decimal          `json:"departmentBreakdown"`
	ObligatoryTotal     decimal.Decimal                     `json:"obligatoryTotal" example:"60000"`
	DiscretionaryTotal  decimal.Decimal                     `json:"discretionaryTotal" example:"5000"`
}

// Suggestion proposes to defer or reduce an entry.
type Suggestion struct {
	EntryID         uuid.UUID       `json:"entryId"`
	Name            string          `json:"name"`
	Department      string          `json:"department" example:"DTC"`
	CurrentAmount   decimal.Decimal `json:"currentAmount" example:"100"`
	SuggestedAmount decimal.Decimal `json:"suggestedAmount" example:"70"`
	Savings         decimal.Decimal `json:"savings" example:"30"`
	Action          ActionKind      `json:"action" example:"reduce"`
	Reason          string          `json:"reason"`
	Priority        models.Priority `json:"priority" example:"medium"`
	DeferralScore   float64         `json:"deferralScore" example:"50"`
	IsDeferrable    bool            `json:"isDeferrable" example:"false"`
}

// ProtectedItem is an obligatory entry that is never cut.
type ProtectedItem struct {
	EntryID uuid.UUID       `json:"entryId"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount" example:"1000"`
	Reason  string          `json:"reason"`
}

// CutPlan is the result of SuggestCuts.
type CutPlan struct {
	GapAnalysis         GapAnalysis     `json:"gapAnalysis"`
	TargetReduction     decimal.Decimal `json:"targetReduction" example:"50000"`
	AchievableReduction decimal.Decimal `json:"achievableReduction" example:"52000"`
	CanMeetTarget       bool            `json:"canMeetTarget" example:"true"`
	Suggestions         []Suggestion    `json:"suggestions"`
	Summary             string          `json:"summary"`
	ProtectedItems      []ProtectedItem `json:"protectedItems"`
}

// Action is a suggestion to apply.
type Action struct {
	Kind      ActionKind       `json:"action" example:"defer"`
	Year      int              `json:"year" example:"2025"`
	NewAmount *decimal.Decimal `json:"newAmount"` // Required for reduce
}

// ApplyResult describes an applied action.
type ApplyResult struct {
	EntryID   uuid.UUID       `json:"entryId"`
	Action    ActionKind      `json:"action" example:"defer"`
	Year      int             `json:"year" example:"2025"`
	OldAmount decimal.Decimal `json:"oldAmount" example:"100"`
	NewAmount decimal.Decimal `json:"newAmount" example:"0"`
	Message   string          `json:"message"`
}

// DepartmentAllocation is the spending of a department compared with
// its budget limit.
type DepartmentAllocation struct {
	DepartmentID uuid.UUID       `json:"departmentId"`
	Code         string          `json:"code" example:"DTC"`
	Name         string          `json:"name"`
	Limit        decimal.Decimal `json:"limit" example:"15000"`
	Total        decimal.Decimal `json:"total" example:"17000"`
	EntryCount   int             `json:"entryCount" example:"12"`
	Variance     decimal.Decimal `json:"variance" example:"2000"`
	IsOverLimit  bool            `json:"isOverLimit" example:"true"`
}

type Optimizer struct {
	rules rules.Optimizer
}

func New(r rules.Rules) *Optimizer {
	return &Optimizer{rules: r.Optimizer}
}

// AnalyzeGap compares the planned spending for the year with its
// global limit.
func (o *Optimizer) AnalyzeGap(db *gorm.DB, year int) (GapAnalysis, error) {
	if !models.ValidYear(year) {
		return GapAnalysis{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	limit, err := models.GlobalLimitForYear(db, year)
	if errors.Is(err, models.ErrResourceNotFound) {
		return GapAnalysis{}, fmt.Errorf("%w: %d", ErrNoGlobalLimit, year)
	} else if err != nil {
		return GapAnalysis{}, err
	}

	entries, err := models.LoadEntries(db)
	if err != nil {
		return GapAnalysis{}, err
	}

	return Gap(entries, year, limit.TotalLimit), nil
}

// Gap calculates the gap analysis for the entries.
func Gap(entries []models.Entry, year int, limit decimal.Decimal) GapAnalysis {
	g := GapAnalysis{
		Year:                year,
		GlobalLimit:         limit,
		CurrentTotal:        models.SumForYear(entries, year),
		PriorityBreakdown:   make(map[models.Priority]decimal.Decimal),
		DepartmentBreakdown: make(map[string]decimal.Decimal),
	}

	for _, p := range models.Priorities {
		g.PriorityBreakdown[p] = decimal.Zero
	}

	for _, e := range entries {
		amount := e.For(year)
		g.PriorityBreakdown[e.Priority] = g.PriorityBreakdown[e.Priority].Add(amount)

		if e.Department != nil {
			g.DepartmentBreakdown[e.Department.Code] = g.DepartmentBreakdown[e.Department.Code].Add(amount)
		}
	}

	g.Variance = g.CurrentTotal.Sub(limit)
	g.IsOverLimit = g.Variance.IsPositive()
	if limit.IsPositive() {
		g.OverPercentage = g.Variance.Div(limit).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	g.ObligatoryTotal = g.PriorityBreakdown[models.PriorityObligatory]
	g.DiscretionaryTotal = g.PriorityBreakdown[models.PriorityDiscretionary]

	return g
}

func content(e models.Entry) string {
	return rules.Content(e.Name, e.Description, e.Justification, e.Remarks)
}

func (o *Optimizer) signed(e models.Entry) bool {
	return strings.Contains(rules.Fold(e.ContractStatus), o.rules.SignedMarker)
}

func (o *Optimizer) inProgress(e models.Entry) bool {
	return rules.ContainsAny(rules.Fold(e.Stage), o.rules.InProgressMarkers)
}

// DeferralScore rates how easily an entry can be deferred, from 0
// (not at all) to 100.
func (o *Optimizer) DeferralScore(e models.Entry) float64 {
	weight, ok := o.rules.PriorityWeights[e.Priority]
	if !ok {
		weight = o.rules.UnknownPriorityWeight
	}
	score := 100 - weight

	text := content(e)
	if rules.ContainsAny(text, o.rules.ProtectedKeywords) {
		score -= o.rules.ProtectedPenalty
	}

	if rules.ContainsAny(text, o.rules.DeferrableKeywords) {
		score += o.rules.DeferrableBonus
	}

	if o.signed(e) {
		score -= o.rules.SignedPenalty
	}

	if o.inProgress(e) {
		score -= o.rules.InProgressPenalty
	} else if rules.ContainsAny(rules.Fold(e.Stage), o.rules.PlannedMarkers) {
		score += o.rules.PlannedBonus
	}

	return max(0, min(100, score))
}

// Deferrable reports if the entry can be moved to the next year as a
// whole.
func (o *Optimizer) Deferrable(e models.Entry) bool {
	if o.signed(e) || o.inProgress(e) {
		return false
	}

	if rules.ContainsAny(content(e), o.rules.ProtectedKeywords) {
		return false
	}

	return slices.Contains(o.rules.DeferrablePriorities, e.Priority)
}

func protected(e models.Entry) bool {
	return e.Obligatory || e.Priority == models.PriorityObligatory
}

// Cuts selects entries until their savings reach the target. The least
// important entries are selected first. The result is sorted by the
// deferral score, highest first.
func (o *Optimizer) Cuts(entries []models.Entry, year int, target decimal.Decimal) ([]Suggestion, decimal.Decimal) {
	candidates := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if !protected(e) && e.For(year).IsPositive() {
			candidates = append(candidates, e)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}

		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}

		return a.ID.String() < b.ID.String()
	})

	suggestions := []Suggestion{}
	savings := decimal.Zero

	for _, e := range candidates {
		if savings.GreaterThanOrEqual(target) {
			break
		}

		s := o.suggest(e, year)
		suggestions = append(suggestions, s)
		savings = savings.Add(s.Savings)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].DeferralScore != suggestions[j].DeferralScore {
			return suggestions[i].DeferralScore > suggestions[j].DeferralScore
		}
		return suggestions[i].EntryID.String() < suggestions[j].EntryID.String()
	})

	return suggestions, savings
}

func (o *Optimizer) suggest(e models.Entry, year int) Suggestion {
	amount := e.For(year)
	priority := e.Priority
	if !priority.Valid() {
		priority = models.PriorityMedium
	}

	s := Suggestion{
		EntryID:       e.ID,
		Name:          e.Title(),
		Department:    e.DepartmentCode(),
		CurrentAmount: amount,
		Priority:      priority,
		DeferralScore: o.DeferralScore(e),
		IsDeferrable:  o.Deferrable(e),
	}

	if s.Name == "" {
		s.Name = "Unnamed"
	}

	if s.IsDeferrable {
		s.Action = ActionDefer
		s.SuggestedAmount = decimal.Zero
		s.Savings = amount
		s.Reason = fmt.Sprintf("Defer to %d, the task is not critical in %d", year+1, year)
		return s
	}

	rate := o.rules.StrictReduction
	if slices.Contains(o.rules.LenientReductionPriorities, priority) {
		rate = o.rules.LenientReduction
	}

	s.Action = ActionReduce
	s.SuggestedAmount = amount.Mul(decimal.NewFromFloat(1 - rate))
	s.Savings = amount.Sub(s.SuggestedAmount)
	s.Reason = fmt.Sprintf("Reduce by %.0f%%, keeping the basic functionality", rate*100)
	return s
}

// SuggestCuts proposes cuts that close the gap between the planned
// spending and the limit of the year. If target is nil or not positive,
// the variance is the target.
func (o *Optimizer) SuggestCuts(db *gorm.DB, year int, target *decimal.Decimal) (CutPlan, error) {
	gap, err := o.AnalyzeGap(db, year)
	if err != nil {
		return CutPlan{}, err
	}

	entries, err := models.LoadEntries(db)
	if err != nil {
		return CutPlan{}, err
	}

	return o.Plan(entries, gap, target), nil
}

// Plan builds the cut plan for a gap analysis.
func (o *Optimizer) Plan(entries []models.Entry, gap GapAnalysis, target *decimal.Decimal) CutPlan {
	plan := CutPlan{
		GapAnalysis:    gap,
		Suggestions:    []Suggestion{},
		ProtectedItems: protectedItems(entries, gap.Year),
	}

	if !gap.IsOverLimit {
		plan.CanMeetTarget = true
		plan.Summary = "The budget is within the limit, no cuts are needed"
		return plan
	}

	plan.TargetReduction = gap.Variance
	if target != nil && target.IsPositive() {
		plan.TargetReduction = *target
	}

	plan.Suggestions, plan.AchievableReduction = o.Cuts(entries, gap.Year, plan.TargetReduction)
	plan.CanMeetTarget = plan.AchievableReduction.GreaterThanOrEqual(plan.TargetReduction)
	plan.Summary = summary(plan)

	return plan
}

func summary(p CutPlan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Budget optimization for %d\n\n", p.GapAnalysis.Year)
	fmt.Fprintf(&b, "Over the limit by: %s thousand PLN\n", p.GapAnalysis.Variance.StringFixed(0))
	fmt.Fprintf(&b, "Reduction target: %s thousand PLN\n", p.TargetReduction.StringFixed(0))
	fmt.Fprintf(&b, "Achievable reduction: %s thousand PLN\n\n", p.AchievableReduction.StringFixed(0))

	if p.CanMeetTarget {
		b.WriteString("The reduction target can be met\n")
	} else {
		fmt.Fprintf(&b, "%s thousand PLN are missing to meet the target\n", p.TargetReduction.Sub(p.AchievableReduction).StringFixed(0))
		b.WriteString("The management needs to decide on obligatory tasks\n")
	}

	b.WriteString("\nTop suggestions:\n")
	for i, s := range p.Suggestions[:min(3, len(p.Suggestions))] {
		verb := "Reduce"
		if s.Action == ActionDefer {
			verb = "Defer"
		}

		name := []rune(s.Name)
		if len(name) > 50 {
			name = append(name[:50], '…')
		}

		fmt.Fprintf(&b, "%d. %s '%s', saving %s thousand PLN\n", i+1, verb, string(name), s.Savings.StringFixed(0))
	}

	return strings.TrimSpace(b.String())
}

func protectedItems(entries []models.Entry, year int) []ProtectedItem {
	items := []ProtectedItem{}
	for _, e := range entries {
		if protected(e) && e.For(year).IsPositive() {
			items = append(items, ProtectedItem{
				EntryID: e.ID,
				Name:    e.Title(),
				Amount:  e.For(year),
				Reason:  "Obligatory task or legal requirement",
			})
		}
	}
	return items
}

// Apply defers or reduces the amount of an entry for a year. The entry
// needs a revision afterwards.
func (o *Optimizer) Apply(db *gorm.DB, entryID uuid.UUID, a Action) (ApplyResult, error) {
	if !models.ValidYear(a.Year) {
		return ApplyResult{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, a.Year)
	}

	result := ApplyResult{EntryID: entryID, Action: a.Kind, Year: a.Year}

	err := models.Transaction(db, func(tx *gorm.DB) error {
		var e models.Entry
		err := tx.First(&e, entryID).Error
		if err != nil {
			return err
		}

		before := e.Snapshot()
		result.OldAmount = e.For(a.Year)

		var audit models.AuditAction
		switch a.Kind {
		case ActionDefer:
			if a.Year == models.LastYear {
				return ErrNoFollowingYear
			}

			next := a.Year + 1
			if err := e.Set(next, e.For(next).Add(result.OldAmount)); err != nil {
				return err
			}

			if err := e.Set(a.Year, decimal.Zero); err != nil {
				return err
			}

			result.NewAmount = decimal.Zero
			e.AppendRemark(fmt.Sprintf("[deferred from %d]", a.Year))
			audit = models.AuditDefer

		case ActionReduce:
			if a.NewAmount == nil || a.NewAmount.IsNegative() || a.NewAmount.GreaterThan(result.OldAmount) {
				return ErrInvalidReduction
			}

			if err := e.Set(a.Year, *a.NewAmount); err != nil {
				return err
			}

			result.NewAmount = *a.NewAmount
			e.AppendRemark(fmt.Sprintf("[reduced from %s to %s]", result.OldAmount, result.NewAmount))
			audit = models.AuditReduce

		default:
			return ErrUnknownAction
		}

		if err := e.TransitionTo(models.StatusNeedsRevision); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&e).Error; err != nil {
			return err
		}

		if err := models.RecordAudit(tx, e.ID, audit, before, e.Snapshot(), e.Remarks); err != nil {
			return err
		}

		return models.RecalculateGlobalLimits(tx)
	})
	if err != nil {
		return ApplyResult{}, err
	}

	Applied.WithLabelValues(string(a.Kind)).Inc()
	result.Message = fmt.Sprintf("Applied %s to entry %s", a.Kind, entryID)
	log.Info().Str("entry", entryID.String()).Str("action", string(a.Kind)).Int("year", a.Year).Msg("applied suggestion")

	return result, nil
}

// DepartmentAllocation compares the spending of every department that has
// entries with its budget limit. Departments furthest over their limit
// come first.
func (o *Optimizer) DepartmentAllocation(db *gorm.DB, year int) ([]DepartmentAllocation, error) {
	if !models.ValidYear(year) {
		return nil, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	entries, err := models.LoadEntries(db, "department_id IS NOT NULL")
	if err != nil {
		return nil, err
	}

	return Allocation(entries, year), nil
}

// Allocation groups the entries by department. Entries without a
// loaded department are ignored.
func Allocation(entries []models.Entry, year int) []DepartmentAllocation {
	byID := make(map[uuid.UUID]*DepartmentAllocation)
	for _, e := range entries {
		if e.Department == nil {
			continue
		}

		a, ok := byID[e.Department.ID]
		if !ok {
			a = &DepartmentAllocation{
				DepartmentID: e.Department.ID,
				Code:         e.Department.Code,
				Name:         e.Department.Name,
				Limit:        e.Department.BudgetLimit,
			}
			byID[e.Department.ID] = a
		}

		a.Total = a.Total.Add(e.For(year))
		a.EntryCount++
	}

	allocations := make([]DepartmentAllocation, 0, len(byID))
	for _, a := range byID {
		a.Variance = a.Total.Sub(a.Limit)
		a.IsOverLimit = a.Variance.IsPositive()
		allocations = append(allocations, *a)
	}

	sort.Slice(allocations, func(i, j int) bool {
		if !allocations[i].Variance.Equal(allocations[j].Variance) {
			return allocations[i].Variance.GreaterThan(allocations[j].Variance)
		}
		return allocations[i].Code < allocations[j].Code
	})

	return allocations
}
