// Package orchestrator determines the phase of the budget workflow and
// runs the checkers that are relevant for it.
package orchestrator

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/envelope-zero/planner/internal/compliance"
	"github.com/envelope-zero/planner/internal/conflict"
	"github.com/envelope-zero/planner/internal/documents"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/optimizer"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Steps counts executed workflow steps.
var Steps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orchestrator_steps_total",
		Help: "How many workflow steps have been executed, partitioned by step.",
	},
	[]string{"step"},
)

var ErrUnknownStep = errors.New("the step must be one of 'full_analysis', 'prepare_treasury_export' or 'leadership_briefing'")

// Phase is the phase of the budget workflow.
type Phase string

const (
	PhaseCollection   Phase = "collection"
	PhaseCutting      Phase = "cutting"
	PhaseApproval     Phase = "approval"
	PhaseFinalization Phase = "finalization"
)

// Workflow steps that can be executed.
const (
	StepFullAnalysis       = "full_analysis"
	StepTreasuryExport     = "prepare_treasury_export"
	StepLeadershipBriefing = "leadership_briefing"
)

const (
	IssueObligatoryExceedsLimit = "OBLIGATORY_EXCEEDS_LIMIT"

	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// State is the aggregated state of the workflow for a year.
type State struct {
	Phase                Phase           `json:"phase" example:"cutting"`
	Year                 int             `json:"year" example:"2025"`
	GlobalLimit          decimal.Decimal `json:"globalLimit" example:"100000"`
	TotalRequests        decimal.Decimal `json:"totalRequests" example:"120000"`
	Variance             decimal.Decimal `json:"variance" example:"20000"`
	DepartmentsCompleted []string        `json:"departmentsCompleted"`
	DepartmentsPending   []string        `json:"departmentsPending"`
	ObligatoryTotal      decimal.Decimal `json:"obligatoryTotal" example:"60000"`
	UnvalidatedEntries   int             `json:"unvalidatedEntries" example:"12"`
}

// Issue is a problem that blocks the workflow.
type Issue struct {
	Type              string `json:"type" example:"OBLIGATORY_EXCEEDS_LIMIT"`
	Severity          string `json:"severity" example:"CRITICAL"`
	Message           string `json:"message"`
	RecommendedAction string `json:"recommendedAction"`
}

// RecommendedAction is an action that the analysis recommends.
type RecommendedAction struct {
	Action   string   `json:"action" example:"send_reminders"`
	Targets  []string `json:"targets"`
	Priority string   `json:"priority" example:"high"`
}

// Risk is a single item of the risk assessment.
type Risk struct {
	Type        string `json:"type" example:"budget_gap"`
	Level       string `json:"level" example:"high"`
	Description string `json:"description"`
	Mitigation  string `json:"mitigation"`
}

type RiskAssessment struct {
	OverallLevel string `json:"overallLevel" example:"low"`
	Items        []Risk `json:"items"`
}

// DepartmentStatus is the progress of a department.
type DepartmentStatus struct {
	Name           string          `json:"name"`
	Total          decimal.Decimal `json:"total" example:"17000"`
	Limit          decimal.Decimal `json:"limit" example:"15000"`
	Variance       decimal.Decimal `json:"variance" example:"2000"`
	Status         string          `json:"status" example:"over"` // "over" or "within"
	EntryCount     int             `json:"entryCount" example:"12"`
	DraftCount     int             `json:"draftCount" example:"3"`
	SubmittedCount int             `json:"submittedCount" example:"9"`
}

// Outputs are the results of the checkers run for the phase.
type Outputs struct {
	CutPlan    *optimizer.CutPlan  `json:"cutPlan,omitempty"`
	Compliance *compliance.Summary `json:"compliance,omitempty"`
	Conflicts  []conflict.Finding  `json:"conflicts,omitempty"`
}

// Analysis describes the situation of the workflow.
type Analysis struct {
	Timestamp          time.Time                   `json:"timestamp"`
	State              State                       `json:"state"`
	Summary            string                      `json:"summary"`
	CriticalIssues     []Issue                     `json:"criticalIssues"`
	RecommendedActions []RecommendedAction         `json:"recommendedActions"`
	Outputs            Outputs                     `json:"outputs"`
	DepartmentStatus   map[string]DepartmentStatus `json:"departmentStatus"`
	RiskAssessment     RiskAssessment              `json:"riskAssessment"`
}

// NextAction is a step that should be taken next. Lower priorities
// come first.
type NextAction struct {
	Priority      int    `json:"priority" example:"1"`
	Action        string `json:"action" example:"Generate cut suggestions"`
	Description   string `json:"description"`
	Endpoint      string `json:"endpoint" example:"/v1/optimization/suggest-cuts"`
	Method        string `json:"method" example:"GET"` // HTTP method to use with the endpoint
	Automated     bool   `json:"automated" example:"true"`
	RequiresHuman bool   `json:"requiresHuman" example:"false"`
}

type Meta struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Year        int       `json:"year" example:"2025"`
	Phase       Phase     `json:"phase" example:"approval"`
}

type KPIs struct {
	TotalRequests       decimal.Decimal `json:"totalRequests" example:"120000"`
	GlobalLimit         decimal.Decimal `json:"globalLimit" example:"100000"`
	Variance            decimal.Decimal `json:"variance" example:"20000"`
	VariancePercent     float64         `json:"variancePercent" example:"20"`
	DepartmentsComplete int             `json:"departmentsComplete" example:"10"`
	DepartmentsPending  int             `json:"departmentsPending" example:"5"`
}

type Insights struct {
	Summary             string      `json:"summary"`
	RiskLevel           string      `json:"riskLevel" example:"high"`
	CriticalIssuesCount int         `json:"criticalIssuesCount" example:"0"`
	TopRecommendation   *NextAction `json:"topRecommendation"`
}

// Dashboard is everything the dashboard of the budget office shows.
type Dashboard struct {
	Meta                Meta                        `json:"meta"`
	KPIs                KPIs                        `json:"kpis"`
	Insights            Insights                    `json:"insights"`
	NextActions         []NextAction                `json:"nextActions"`
	DepartmentBreakdown map[string]DepartmentStatus `json:"departmentBreakdown"`
	RiskAssessment      RiskAssessment              `json:"riskAssessment"`
}

type ConflictOutput struct {
	Detected []conflict.Finding `json:"detected"`
	Summary  conflict.Summary   `json:"summary"`
}

// StepResult is the result of an executed workflow step. Only the outputs
// of the step are set.
type StepResult struct {
	Step         string                   `json:"step" example:"full_analysis"`
	Status       string                   `json:"status" example:"completed"`
	Invoked      []string                 `json:"invoked"`
	Compliance   *compliance.Summary      `json:"compliance,omitempty"`
	Optimization *optimizer.CutPlan       `json:"optimization,omitempty"`
	Conflicts    *ConflictOutput          `json:"conflicts,omitempty"`
	Situation    *Analysis                `json:"situation,omitempty"`
	Treasury     *documents.Treasury      `json:"treasury,omitempty"`
	Briefing     *documents.SummaryReport `json:"briefing,omitempty"`
	NextSteps    []NextAction             `json:"nextSteps"`
}

type Orchestrator struct {
	rules      rules.Orchestrator
	compliance *compliance.Checker
	conflicts  *conflict.Detector
	optimizer  *optimizer.Optimizer
	documents  *documents.Generator
}

func New(r rules.Rules) *Orchestrator {
	return &Orchestrator{
		rules:      r.Orchestrator,
		compliance: compliance.New(r),
		conflicts:  conflict.New(r),
		optimizer:  optimizer.New(r),
		documents:  documents.New(r),
	}
}

// snapshot is everything an analysis needs from the store.
type snapshot struct {
	state       State
	limit       decimal.Decimal
	entries     []models.Entry
	departments []models.Department
}

func (o *Orchestrator) load(db *gorm.DB, year int) (snapshot, error) {
	if !models.ValidYear(year) {
		return snapshot{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	s := snapshot{limit: decimal.Zero}

	l, err := models.GlobalLimitForYear(db, year)
	if err == nil {
		s.limit = l.TotalLimit
	} else if !errors.Is(err, models.ErrResourceNotFound) {
		return snapshot{}, err
	}

	s.entries, err = models.LoadEntries(db)
	if err != nil {
		return snapshot{}, err
	}

	err = db.Order("code").Find(&s.departments).Error
	if err != nil {
		return snapshot{}, err
	}

	s.state = State{
		Year:                 year,
		GlobalLimit:          s.limit,
		TotalRequests:        models.SumForYear(s.entries, year),
		DepartmentsCompleted: []string{},
		DepartmentsPending:   []string{},
		ObligatoryTotal:      decimal.Zero,
	}
	s.state.Variance = s.state.TotalRequests.Sub(s.limit)

	for _, e := range s.entries {
		if e.Obligatory {
			s.state.ObligatoryTotal = s.state.ObligatoryTotal.Add(e.For(year))
		}

		if !e.ComplianceValidated {
			s.state.UnvalidatedEntries++
		}
	}

	for _, d := range s.departments {
		if completed(d, s.entries) {
			s.state.DepartmentsCompleted = append(s.state.DepartmentsCompleted, d.Code)
		} else {
			s.state.DepartmentsPending = append(s.state.DepartmentsPending, d.Code)
		}
	}

	s.state.Phase = phase(s.state)
	return s, nil
}

// completed reports if all entries of the department have been handed in.
// A department without entries counts as completed.
func completed(d models.Department, entries []models.Entry) bool {
	for _, e := range entries {
		if e.DepartmentID != nil && *e.DepartmentID == d.ID && !e.Status.Done() {
			return false
		}
	}
	return true
}

func phase(s State) Phase {
	switch {
	case len(s.DepartmentsPending) > len(s.DepartmentsCompleted):
		return PhaseCollection
	case s.TotalRequests.GreaterThan(s.GlobalLimit):
		return PhaseCutting
	case len(s.DepartmentsPending) == 0:
		return PhaseFinalization
	default:
		return PhaseApproval
	}
}

// Analyze determines the phase of the workflow for the year and runs the
// checkers for it. Nothing is persisted.
func (o *Orchestrator) Analyze(db *gorm.DB, year int, now time.Time) (Analysis, error) {
	s, err := o.load(db, year)
	if err != nil {
		return Analysis{}, err
	}

	return o.analyze(s, now), nil
}

func (o *Orchestrator) analyze(s snapshot, now time.Time) Analysis {
	state := s.state

	a := Analysis{
		Timestamp:          now,
		State:              state,
		CriticalIssues:     []Issue{},
		RecommendedActions: []RecommendedAction{},
		DepartmentStatus:   departmentStatus(s),
	}

	switch state.Phase {
	case PhaseCollection:
		a.Summary = fmt.Sprintf("Collection phase. %d departments have not handed in their entries yet.", len(state.DepartmentsPending))
		a.RecommendedActions = append(a.RecommendedActions, RecommendedAction{
			Action:   "send_reminders",
			Targets:  state.DepartmentsPending,
			Priority: RiskHigh,
		})

	case PhaseCutting:
		a.Summary = fmt.Sprintf("CRITICAL PHASE: budget cuts. The limit is exceeded by %s thousand PLN.", state.Variance.StringFixed(0))

		plan := o.optimizer.Plan(s.entries, optimizer.Gap(s.entries, state.Year, s.limit), nil)
		a.Outputs.CutPlan = &plan

		if state.ObligatoryTotal.GreaterThan(state.GlobalLimit) {
			a.CriticalIssues = append(a.CriticalIssues, Issue{
				Type:              IssueObligatoryExceedsLimit,
				Severity:          "CRITICAL",
				Message:           fmt.Sprintf("Obligatory tasks (%s) exceed the limit (%s)!", state.ObligatoryTotal.StringFixed(0), state.GlobalLimit.StringFixed(0)),
				RecommendedAction: "Negotiate a higher limit with the ministry of finance",
			})
		}

	case PhaseApproval:
		a.Summary = "Approval phase. The budget is within the limit."

		summary := compliance.Summarize(o.compliance.ValidateEntries(s.entries))
		a.Outputs.Compliance = &summary
		a.Outputs.Conflicts = o.conflicts.Find(s.entries, state.Year)

	case PhaseFinalization:
		a.Summary = "Finalization phase. All departments have handed in their entries and the budget is within the limit."
	}

	a.RiskAssessment = o.assessRisks(state, now)

	log.Debug().Int("year", state.Year).Str("phase", string(state.Phase)).Str("risk", a.RiskAssessment.OverallLevel).Msg("analyzed workflow")
	return a
}

func departmentStatus(s snapshot) map[string]DepartmentStatus {
	status := make(map[string]DepartmentStatus)

	for _, d := range s.departments {
		ds := DepartmentStatus{Name: d.Name, Total: decimal.Zero, Limit: d.BudgetLimit}

		for _, e := range s.entries {
			if e.DepartmentID == nil || *e.DepartmentID != d.ID {
				continue
			}

			ds.EntryCount++
			ds.Total = ds.Total.Add(e.For(s.state.Year))

			switch e.Status {
			case models.StatusDraft:
				ds.DraftCount++
			case models.StatusSubmitted:
				ds.SubmittedCount++
			}
		}

		if ds.EntryCount == 0 {
			continue
		}

		ds.Variance = ds.Total.Sub(ds.Limit)
		ds.Status = "within"
		if ds.Total.GreaterThan(ds.Limit) {
			ds.Status = "over"
		}

		status[d.Code] = ds
	}

	return status
}

// gapPercent is the variance in percent of the limit. Without a limit,
// any variance counts as 100%.
func gapPercent(s State) float64 {
	if !s.GlobalLimit.IsPositive() {
		return 100
	}
	return s.Variance.Div(s.GlobalLimit).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

func (o *Orchestrator) assessRisks(s State, now time.Time) RiskAssessment {
	r := RiskAssessment{OverallLevel: RiskLow, Items: []Risk{}}

	if s.Variance.IsPositive() {
		percent := gapPercent(s)

		if percent > o.rules.CriticalGapPercent {
			r.OverallLevel = RiskCritical
			r.Items = append(r.Items, Risk{
				Type:        "budget_gap",
				Level:       RiskCritical,
				Description: fmt.Sprintf("The limit is exceeded by %.0f%%", percent),
				Mitigation:  "Immediate cuts or negotiations with the ministry of finance are required",
			})
		} else if percent > o.rules.HighGapPercent {
			r.OverallLevel = RiskHigh
			r.Items = append(r.Items, Risk{
				Type:        "budget_gap",
				Level:       RiskHigh,
				Description: fmt.Sprintf("The limit is exceeded by %.0f%%", percent),
				Mitigation:  "Review the tasks with low priority",
			})
		}
	}

	if slices.Contains(o.rules.DeadlineMonths, int(now.Month())) && len(s.DepartmentsPending) > o.rules.DeadlinePendingDepartments {
		r.Items = append(r.Items, Risk{
			Type:        "deadline",
			Level:       RiskHigh,
			Description: fmt.Sprintf("%d departments have not handed in their entries during the submission period", len(s.DepartmentsPending)),
			Mitigation:  "Send reminders with a 48 hour deadline",
		})
	}

	if s.UnvalidatedEntries > o.rules.UnvalidatedEntries {
		r.Items = append(r.Items, Risk{
			Type:        "compliance",
			Level:       RiskMedium,
			Description: fmt.Sprintf("%d entries have not been validated", s.UnvalidatedEntries),
			Mitigation:  "Run the compliance validation",
		})
	}

	return r
}

// NextActions returns the actions that should be taken next, most
// important first.
func (o *Orchestrator) NextActions(db *gorm.DB, year int, now time.Time) ([]NextAction, error) {
	a, err := o.Analyze(db, year, now)
	if err != nil {
		return nil, err
	}

	return nextActions(a), nil
}

func nextActions(a Analysis) []NextAction {
	actions := []NextAction{}

	switch a.State.Phase {
	case PhaseCollection:
		pending := a.State.DepartmentsPending
		actions = append(actions, NextAction{
			Priority:    1,
			Action:      "Send reminders",
			Description: fmt.Sprintf("Pending departments: %s", strings.Join(pending[:min(5, len(pending))], ", ")),
			Endpoint:    "/v1/departments",
			Method:      http.MethodGet,
			Automated:   true,
		})

	case PhaseCutting:
		actions = append(actions,
			NextAction{
				Priority:    1,
				Action:      "Generate cut suggestions",
				Description: fmt.Sprintf("Required reduction: %s thousand PLN", a.State.Variance.StringFixed(0)),
				Endpoint:    "/v1/optimization/suggest-cuts",
				Method:      http.MethodGet,
				Automated:   true,
			},
			NextAction{
				Priority:    2,
				Action:      "Review priorities",
				Description: "Check the classification of obligatory and discretionary tasks",
				Endpoint:    "/v1/entries?priority=discretionary",
				Method:      http.MethodGet,
			},
		)
	}

	actions = append(actions, NextAction{
		Priority:    3,
		Action:      "Validate compliance",
		Description: "Check the budget classification of all entries",
		Endpoint:    "/v1/compliance/validate",
		Method:      http.MethodPost,
		Automated:   true,
	})

	for _, issue := range a.CriticalIssues {
		if issue.Type == IssueObligatoryExceedsLimit {
			actions = append(actions, NextAction{
				Priority:      0,
				Action:        "CRITICAL: negotiate with the ministry of finance",
				Description:   issue.Message,
				RequiresHuman: true,
			})
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority < actions[j].Priority
	})

	return actions
}

// Dashboard aggregates the analysis of the year for the dashboard.
func (o *Orchestrator) Dashboard(db *gorm.DB, year int, now time.Time) (Dashboard, error) {
	a, err := o.Analyze(db, year, now)
	if err != nil {
		return Dashboard{}, err
	}

	actions := nextActions(a)
	s := a.State

	d := Dashboard{
		Meta: Meta{GeneratedAt: now, Year: year, Phase: s.Phase},
		KPIs: KPIs{
			TotalRequests:       s.TotalRequests,
			GlobalLimit:         s.GlobalLimit,
			Variance:            s.Variance,
			DepartmentsComplete: len(s.DepartmentsCompleted),
			DepartmentsPending:  len(s.DepartmentsPending),
		},
		Insights: Insights{
			Summary:             a.Summary,
			RiskLevel:           a.RiskAssessment.OverallLevel,
			CriticalIssuesCount: len(a.CriticalIssues),
		},
		NextActions:         actions[:min(5, len(actions))],
		DepartmentBreakdown: a.DepartmentStatus,
		RiskAssessment:      a.RiskAssessment,
	}

	if s.GlobalLimit.IsPositive() {
		d.KPIs.VariancePercent = s.Variance.Div(s.GlobalLimit).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	if len(actions) > 0 {
		d.Insights.TopRecommendation = &actions[0]
	}

	return d, nil
}

// Execute runs a workflow step for the year.
func (o *Orchestrator) Execute(db *gorm.DB, step string, year int, now time.Time) (StepResult, error) {
	if !models.ValidYear(year) {
		return StepResult{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	r := StepResult{Step: step, Status: "completed", Invoked: []string{}, NextSteps: []NextAction{}}

	switch step {
	case StepFullAnalysis:
		err := o.fullAnalysis(db, year, now, &r)
		if err != nil {
			return StepResult{}, err
		}

	case StepTreasuryExport:
		t, err := o.documents.Treasury(db, year)
		if err != nil {
			return StepResult{}, err
		}
		r.Invoked = append(r.Invoked, "documents")
		r.Treasury = &t

	case StepLeadershipBriefing:
		b, err := o.documents.SummaryReport(db, year, now)
		if err != nil {
			return StepResult{}, err
		}
		r.Invoked = append(r.Invoked, "documents")
		r.Briefing = &b

	default:
		return StepResult{}, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}

	Steps.WithLabelValues(step).Inc()
	log.Info().Str("step", step).Int("year", year).Strs("invoked", r.Invoked).Msg("executed workflow step")

	return r, nil
}

// fullAnalysis validates all entries, proposes cuts and detects conflicts.
// Validation results and conflicts are persisted.
func (o *Orchestrator) fullAnalysis(db *gorm.DB, year int, now time.Time, r *StepResult) error {
	_, err := o.compliance.ValidateAll(db)
	if err != nil {
		return err
	}

	summary, err := o.compliance.Summary(db)
	if err != nil {
		return err
	}
	r.Invoked = append(r.Invoked, "compliance")
	r.Compliance = &summary

	plan, err := o.optimizer.SuggestCuts(db, year, nil)
	if err == nil {
		r.Optimization = &plan
	} else if !errors.Is(err, optimizer.ErrNoGlobalLimit) {
		return err
	} else {
		log.Info().Int("year", year).Msg("no global limit, skipping cut suggestions")
	}
	r.Invoked = append(r.Invoked, "optimization")

	detected, err := o.conflicts.Detect(db, year)
	if err != nil {
		return err
	}

	conflicts, err := o.conflicts.Summary(db)
	if err != nil {
		return err
	}
	r.Invoked = append(r.Invoked, "conflict")
	r.Conflicts = &ConflictOutput{Detected: detected, Summary: conflicts}

	s, err := o.load(db, year)
	if err != nil {
		return err
	}

	situation := o.analyze(s, now)
	r.Situation = &situation
	r.NextSteps = nextActions(situation)

	return nil
}
