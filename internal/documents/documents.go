// Package documents generates the formal letters and reports of the
// budget office as structured payloads and spreadsheet exports.
package documents

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/optimizer"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// Document types.
const (
	TypeLimitLetter     = "limit_notification"
	TypeCutNotification = "cut_notification"
	TypeSummaryReport   = "summary_report"
)

var printer = message.NewPrinter(language.English)

// thousands formats an amount without decimals and with grouped digits.
func thousands(d decimal.Decimal) string {
	return printer.Sprintf("%.0f", d.InexactFloat64())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type Metadata struct {
	DocumentType   string    `json:"documentType" example:"limit_notification"`
	GeneratedAt    time.Time `json:"generatedAt"`
	DepartmentCode string    `json:"departmentCode,omitempty" example:"DTC"`
	DepartmentName string    `json:"departmentName,omitempty"`
	Year           int       `json:"year" example:"2025"`
}

type Header struct {
	Sender    string `json:"sender"`
	Date      string `json:"date" example:"02.09.2024"`
	Reference string `json:"reference" example:"BBF-2024/DTC/09"`
	Recipient string `json:"recipient"`
}

// Content is the text of a letter. Body holds one element per paragraph.
type Content struct {
	Title     string   `json:"title"`
	Opening   string   `json:"opening"`
	Body      []string `json:"body"`
	Closing   string   `json:"closing"`
	Signature string   `json:"signature"`
}

// BudgetRow is a line of the budget table attached to a letter.
type BudgetRow struct {
	Number     int             `json:"number" example:"1"`
	Name       string          `json:"name"`
	Paragraph  int             `json:"paragraph" example:"4300"`
	Amount     decimal.Decimal `json:"amount" example:"120"`
	Priority   models.Priority `json:"priority" example:"medium"`
	Status     models.Status   `json:"status" example:"draft"`
	Obligatory bool            `json:"obligatory"`
}

type PriorityTotal struct {
	Count int             `json:"count" example:"3"`
	Total decimal.Decimal `json:"total" example:"450"`
}

type LimitAttachments struct {
	BudgetTable       []BudgetRow                       `json:"budgetTable"`
	PriorityBreakdown map[models.Priority]PriorityTotal `json:"priorityBreakdown"`
}

type LimitData struct {
	AssignedLimit   decimal.Decimal `json:"assignedLimit" example:"15000"`
	CurrentRequests decimal.Decimal `json:"currentRequests" example:"16500"`
	Variance        decimal.Decimal `json:"variance" example:"1500"`
	IsOverLimit     bool            `json:"isOverLimit"`
	EntryCount      int             `json:"entryCount" example:"12"`
}

// LimitLetter notifies a department about its spending limit.
type LimitLetter struct {
	Metadata    Metadata         `json:"metadata"`
	Header      Header           `json:"header"`
	Content     Content          `json:"content"`
	Attachments LimitAttachments `json:"attachments"`
	Data        LimitData        `json:"data"`
}

type CutRow struct {
	Number        int             `json:"number" example:"1"`
	Name          string          `json:"name"`
	Action        string          `json:"action" example:"Deferral"`
	AmountBefore  decimal.Decimal `json:"amountBefore" example:"100"`
	AmountAfter   decimal.Decimal `json:"amountAfter" example:"70"`
	Savings       decimal.Decimal `json:"savings" example:"30"`
	Justification string          `json:"justification"`
}

type CutSummary struct {
	TotalCuts     decimal.Decimal `json:"totalCuts" example:"30"`
	ItemsAffected int             `json:"itemsAffected" example:"1"`
}

// CutNotification informs a department about the cuts to its entries.
type CutNotification struct {
	Metadata  Metadata   `json:"metadata"`
	Header    Header     `json:"header"`
	Content   Content    `json:"content"`
	CutsTable []CutRow   `json:"cutsTable"`
	Summary   CutSummary `json:"summary"`
}

type Classification struct {
	Part      int             `json:"part" example:"27"`
	Paragraph int             `json:"paragraph" example:"6060"`
	Type      string          `json:"type" example:"investment"`
	Priority  models.Priority `json:"priority" example:"high"`
}

type FinancialSummary struct {
	Amounts         models.Amounts  `json:"amounts"`
	FirstThreeYears decimal.Decimal `json:"firstThreeYears" example:"240"`
}

// Justification argues for funding an entry.
type Justification struct {
	EntryID          uuid.UUID        `json:"entryId"`
	Title            string           `json:"title"`
	Department       string           `json:"department" example:"DC"`
	Classification   Classification   `json:"classification"`
	FinancialSummary FinancialSummary `json:"financialSummary"`
	Narrative        []string         `json:"narrative"`
	LegalBasis       []string         `json:"legalBasis"`
	RiskIfNotFunded  string           `json:"riskIfNotFunded"`
}

type ExecutiveSummary struct {
	Title           string          `json:"title"`
	GlobalLimit     decimal.Decimal `json:"globalLimit" example:"100000"`
	TotalRequests   decimal.Decimal `json:"totalRequests" example:"104500"`
	Variance        decimal.Decimal `json:"variance" example:"4500"`
	IsOverLimit     bool            `json:"isOverLimit"`
	DepartmentCount int             `json:"departmentCount" example:"15"`
}

type DepartmentRow struct {
	Code        string          `json:"code" example:"DTC"`
	Name        string          `json:"name"`
	Limit       decimal.Decimal `json:"limit" example:"15000"`
	Requested   decimal.Decimal `json:"requested" example:"16500"`
	Variance    decimal.Decimal `json:"variance" example:"1500"`
	EntryCount  int             `json:"entryCount" example:"12"`
	IsOverLimit bool            `json:"isOverLimit"`
}

// SummaryReport is the briefing on the whole budget of a year.
type SummaryReport struct {
	Metadata            Metadata                            `json:"metadata"`
	ExecutiveSummary    ExecutiveSummary                    `json:"executiveSummary"`
	DepartmentBreakdown []DepartmentRow                     `json:"departmentBreakdown"`
	PriorityBreakdown   map[models.Priority]decimal.Decimal `json:"priorityBreakdown"`
	Recommendations     []string                            `json:"recommendations"`
}

type TreasuryRow struct {
	Part          int             `json:"part" example:"27"`
	Division      int             `json:"division" example:"720"`
	Chapter       int             `json:"chapter" example:"72095"`
	Paragraph     int             `json:"paragraph" example:"4300"`
	Project       string          `json:"project"`
	Amount        decimal.Decimal `json:"amount" example:"120"`
	Justification string          `json:"justification"`
}

// Treasury is the approved budget in the layout of the treasury system.
type Treasury struct {
	Year         int             `json:"year" example:"2025"`
	Part         int             `json:"part" example:"27"`
	Organization string          `json:"organization"`
	EntryCount   int             `json:"entryCount" example:"80"`
	Total        decimal.Decimal `json:"total" example:"98000"`
	Rows         []TreasuryRow   `json:"rows"`
}

type Generator struct {
	rules rules.Documents
	part  int
}

func New(r rules.Rules) *Generator {
	return &Generator{rules: r.Documents, part: r.Orchestrator.TreasuryPart}
}

func (g *Generator) header(prefix, recipient string, now time.Time) Header {
	return Header{
		Sender:    fmt.Sprintf("%s\n%s", g.rules.Sender, g.rules.Organization),
		Date:      now.Format("02.01.2006"),
		Reference: fmt.Sprintf("%s-%d/%s/%02d", prefix, now.Year(), recipient, now.Month()),
	}
}

func departmentEntries(db *gorm.DB, d models.Department, year int) ([]models.Entry, error) {
	entries, err := models.LoadEntries(db, "department_id = ?", d.ID)
	if err != nil {
		return nil, err
	}

	positive := []models.Entry{}
	for _, e := range entries {
		if e.For(year).IsPositive() {
			positive = append(positive, e)
		}
	}
	return positive, nil
}

// LimitLetter notifies the department about its limit for the year. If
// limit is nil or not positive, the stored limit of the department is used.
func (g *Generator) LimitLetter(db *gorm.DB, code string, year int, limit *decimal.Decimal, now time.Time) (LimitLetter, error) {
	if !models.ValidYear(year) {
		return LimitLetter{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	d, err := models.DepartmentByCode(db, code)
	if err != nil {
		return LimitLetter{}, err
	}

	entries, err := departmentEntries(db, d, year)
	if err != nil {
		return LimitLetter{}, err
	}

	assigned := d.BudgetLimit
	if limit != nil && limit.IsPositive() {
		assigned = *limit
	}

	total := models.SumForYear(entries, year)
	variance := total.Sub(assigned)

	header := g.header(g.rules.ReferencePrefix, d.Code, now)
	header.Recipient = fmt.Sprintf("Director\n%s", d.Name)

	return LimitLetter{
		Metadata: Metadata{
			DocumentType:   TypeLimitLetter,
			GeneratedAt:    now,
			DepartmentCode: d.Code,
			DepartmentName: d.Name,
			Year:           year,
		},
		Header: header,
		Content: Content{
			Title:     fmt.Sprintf("Notification of the spending limit for %d", year),
			Opening:   "Dear Director,",
			Body:      g.limitBody(d, year, assigned, total, variance, entries),
			Closing:   "Yours sincerely,",
			Signature: g.rules.Signature,
		},
		Attachments: LimitAttachments{
			BudgetTable:       budgetTable(entries, year),
			PriorityBreakdown: priorityBreakdown(entries, year),
		},
		Data: LimitData{
			AssignedLimit:   assigned,
			CurrentRequests: total,
			Variance:        variance,
			IsOverLimit:     variance.IsPositive(),
			EntryCount:      len(entries),
		},
	}, nil
}

func (g *Generator) limitBody(d models.Department, year int, assigned, total, variance decimal.Decimal, entries []models.Entry) []string {
	body := []string{
		fmt.Sprintf("Following the letter of the ministry of finance, the spending limit of %s for %d is **%s thousand PLN**.", d.Name, year, thousands(assigned)),
	}

	if variance.IsPositive() {
		over := ""
		if assigned.IsPositive() {
			over = fmt.Sprintf(" (%s%%)", variance.Div(assigned).Mul(decimal.NewFromInt(100)).StringFixed(1))
		}

		body = append(body,
			fmt.Sprintf("Your requests of **%s thousand PLN** exceed the limit by **%s thousand PLN**%s.", thousands(total), thousands(variance), over),
			fmt.Sprintf("Please review the requests and name the tasks to defer or reduce within %d working days.", g.rules.ReplyDays),
		)
	} else {
		body = append(body, fmt.Sprintf("Your requests of **%s thousand PLN** are within the limit. The remaining reserve is **%s thousand PLN**.", thousands(total), thousands(variance.Abs())))
	}

	obligatory := decimal.Zero
	count := 0
	for _, e := range entries {
		if e.Obligatory {
			obligatory = obligatory.Add(e.For(year))
			count++
		}
	}

	if count > 0 {
		body = append(body, fmt.Sprintf("Obligatory tasks required by law of **%s thousand PLN** (%d entries) must be funded first.", thousands(obligatory), count))
	}

	body = append(body, fmt.Sprintf("The final agreements must be made by the end of August %d.", year-1))
	return body
}

func budgetTable(entries []models.Entry, year int) []BudgetRow {
	sorted := make([]models.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].For(year).GreaterThan(sorted[j].For(year))
	})

	rows := make([]BudgetRow, 0, len(sorted))
	for i, e := range sorted {
		name := e.Title()
		if name == "" {
			name = "Unnamed"
		}

		rows = append(rows, BudgetRow{
			Number:     i + 1,
			Name:       truncate(name, 80),
			Paragraph:  e.Paragraph,
			Amount:     e.For(year),
			Priority:   e.Priority,
			Status:     e.Status,
			Obligatory: e.Obligatory,
		})
	}
	return rows
}

func priorityBreakdown(entries []models.Entry, year int) map[models.Priority]PriorityTotal {
	breakdown := make(map[models.Priority]PriorityTotal, len(models.Priorities))
	for _, p := range models.Priorities {
		breakdown[p] = PriorityTotal{Total: decimal.Zero}
	}

	for _, e := range entries {
		t, ok := breakdown[e.Priority]
		if !ok {
			continue
		}
		t.Count++
		t.Total = t.Total.Add(e.For(year))
		breakdown[e.Priority] = t
	}
	return breakdown
}

// CutNotification informs the department about the cuts to its entries.
func (g *Generator) CutNotification(db *gorm.DB, code string, year int, cuts []optimizer.Suggestion, now time.Time) (CutNotification, error) {
	if !models.ValidYear(year) {
		return CutNotification{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	d, err := models.DepartmentByCode(db, code)
	if err != nil {
		return CutNotification{}, err
	}

	n := CutNotification{
		Metadata: Metadata{
			DocumentType:   TypeCutNotification,
			GeneratedAt:    now,
			DepartmentCode: d.Code,
			DepartmentName: d.Name,
			Year:           year,
		},
		Header:    g.header(g.rules.ReferencePrefix+"-CUT", d.Code, now),
		CutsTable: make([]CutRow, 0, len(cuts)),
	}
	n.Header.Recipient = fmt.Sprintf("Director\n%s", d.Name)

	deferred, reduced := decimal.Zero, decimal.Zero
	var deferredCount, reducedCount int

	for i, c := range cuts {
		action := "Reduction"
		if c.Action == optimizer.ActionDefer {
			action = "Deferral"
			deferred = deferred.Add(c.Savings)
			deferredCount++
		} else {
			reduced = reduced.Add(c.Savings)
			reducedCount++
		}

		n.CutsTable = append(n.CutsTable, CutRow{
			Number:        i + 1,
			Name:          truncate(c.Name, 60),
			Action:        action,
			AmountBefore:  c.CurrentAmount,
			AmountAfter:   c.SuggestedAmount,
			Savings:       c.Savings,
			Justification: c.Reason,
		})
	}

	n.Summary = CutSummary{TotalCuts: deferred.Add(reduced), ItemsAffected: len(cuts)}

	body := []string{fmt.Sprintf("Following the agreements on the spending limit for %d, the budget of %s needs to be corrected.", year, d.Name)}
	if deferredCount > 0 {
		body = append(body, fmt.Sprintf("**Tasks deferred to %d:** %d entries of **%s thousand PLN** in total. The funds will be planned for the following budget year.", year+1, deferredCount, thousands(deferred)))
	}
	if reducedCount > 0 {
		body = append(body, fmt.Sprintf("**Tasks reduced:** %d entries saving **%s thousand PLN**. The reductions keep the basic functionality.", reducedCount, thousands(reduced)))
	}
	body = append(body,
		fmt.Sprintf("The corrections total **%s thousand PLN**.", thousands(n.Summary.TotalCuts)),
		"Please contact the budget office within 5 working days with any questions or objections.",
	)

	n.Content = Content{
		Title:     fmt.Sprintf("Correction of the budget for %d", year),
		Opening:   "Dear Director,",
		Body:      body,
		Closing:   "Yours sincerely,",
		Signature: g.rules.Signature,
	}

	return n, nil
}

// Justification builds the funding justification of an entry.
func (g *Generator) Justification(db *gorm.DB, id uuid.UUID) (Justification, error) {
	var e models.Entry
	err := db.Preload("Department").First(&e, id).Error
	if err != nil {
		return Justification{}, err
	}

	investment := e.Paragraph >= 6000
	cybersecurity := rules.ContainsAny(rules.Fold(e.Name), g.rules.CybersecurityKeywords)

	title := e.Title()
	if title == "" {
		title = "Budget task"
	}

	kind := "current"
	if investment {
		kind = "investment"
	}

	return Justification{
		EntryID:    e.ID,
		Title:      title,
		Department: e.DepartmentCode(),
		Classification: Classification{
			Part:      e.Part,
			Paragraph: e.Paragraph,
			Type:      kind,
			Priority:  e.Priority,
		},
		FinancialSummary: FinancialSummary{
			Amounts:         e.Amounts,
			FirstThreeYears: decimal.Sum(e.Amount2025, e.Amount2026, e.Amount2027),
		},
		Narrative:       g.narrative(e, kind, cybersecurity),
		LegalBasis:      g.legalBasis(e),
		RiskIfNotFunded: risk(e, cybersecurity),
	}, nil
}

func (g *Generator) narrative(e models.Entry, kind string, cybersecurity bool) []string {
	parts := []string{
		fmt.Sprintf("The task %q is %s spending in part %d of the state budget (Informatization).", e.Title(), kind, g.part),
	}

	if e.Justification != "" {
		parts = append(parts, fmt.Sprintf("**Scope:** %s", truncate(e.Justification, 500)))
	}

	if e.Obligatory {
		parts = append(parts, "**Obligatory:** The task is required by law and is necessary to comply with regulatory requirements.")
	} else if cybersecurity {
		parts = append(parts, "**Strategic priority:** The task concerns cybersecurity and is part of the priorities of the national cybersecurity system and the NIS2 directive.")
	}

	if e.ContractStatus != "" {
		parts = append(parts, fmt.Sprintf("**Contract status:** %s", e.ContractStatus))
		if e.Contractor != "" {
			parts = append(parts, fmt.Sprintf("Contract concluded with: %s", e.Contractor))
		}
	}

	return parts
}

func (g *Generator) legalBasis(e models.Entry) []string {
	content := rules.Content(e.Name, e.Description)

	bases := []string{}
	for _, l := range g.rules.LegalBases {
		if rules.ContainsAny(content, l.Keywords) {
			bases = append(bases, l.Bases...)
		}
	}

	if len(bases) == 0 {
		bases = append(bases, g.rules.DefaultLegalBasis)
	}
	return bases
}

func risk(e models.Entry, cybersecurity bool) string {
	switch {
	case e.Obligatory:
		return "HIGH - Not funding the task may violate the law and lead to sanctions."
	case cybersecurity:
		return "HIGH - Not funding the task increases the exposure to cyber attacks and may violate the NIS2 requirements."
	case e.Priority == models.PriorityHigh:
		return "MEDIUM - A delay may affect the strategic goals of the ministry."
	default:
		return "LOW - The task can be deferred without significant impact."
	}
}

// SummaryReport builds the briefing on the budget of the year. Only
// entries assigned to a department are counted.
func (g *Generator) SummaryReport(db *gorm.DB, year int, now time.Time) (SummaryReport, error) {
	if !models.ValidYear(year) {
		return SummaryReport{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	limit := decimal.Zero
	l, err := models.GlobalLimitForYear(db, year)
	if err == nil {
		limit = l.TotalLimit
	} else if !errors.Is(err, models.ErrResourceNotFound) {
		return SummaryReport{}, err
	}

	entries, err := models.LoadEntries(db, "department_id IS NOT NULL")
	if err != nil {
		return SummaryReport{}, err
	}

	r := SummaryReport{
		Metadata: Metadata{
			DocumentType: TypeSummaryReport,
			GeneratedAt:  now,
			Year:         year,
		},
		DepartmentBreakdown: departmentRows(entries, year),
		PriorityBreakdown:   make(map[models.Priority]decimal.Decimal, len(models.Priorities)),
	}

	for _, p := range models.Priorities {
		r.PriorityBreakdown[p] = decimal.Zero
	}

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.For(year))
		if _, ok := r.PriorityBreakdown[e.Priority]; ok {
			r.PriorityBreakdown[e.Priority] = r.PriorityBreakdown[e.Priority].Add(e.For(year))
		}
	}

	r.ExecutiveSummary = ExecutiveSummary{
		Title:           fmt.Sprintf("Summary of the budget for %d", year),
		GlobalLimit:     limit,
		TotalRequests:   total,
		Variance:        total.Sub(limit),
		IsOverLimit:     total.GreaterThan(limit),
		DepartmentCount: len(r.DepartmentBreakdown),
	}
	r.Recommendations = recommendations(r.ExecutiveSummary.Variance, r.PriorityBreakdown)

	return r, nil
}

// departmentRows aggregates the entries by department, ordered by code.
func departmentRows(entries []models.Entry, year int) []DepartmentRow {
	rows := map[uuid.UUID]*DepartmentRow{}
	for _, e := range entries {
		if e.Department == nil {
			continue
		}

		row, ok := rows[e.Department.ID]
		if !ok {
			row = &DepartmentRow{Code: e.Department.Code, Name: e.Department.Name, Limit: e.Department.BudgetLimit}
			rows[e.Department.ID] = row
		}
		row.Requested = row.Requested.Add(e.For(year))
		row.EntryCount++
	}

	result := make([]DepartmentRow, 0, len(rows))
	for _, row := range rows {
		row.Variance = row.Requested.Sub(row.Limit)
		row.IsOverLimit = row.Variance.IsPositive()
		result = append(result, *row)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	return result
}

func recommendations(variance decimal.Decimal, priorities map[models.Priority]decimal.Decimal) []string {
	recs := []string{}

	if variance.IsPositive() {
		recs = append(recs, fmt.Sprintf("The budget exceeds the limit by %s thousand PLN. A reduction or a higher limit negotiated with the ministry of finance is required.", thousands(variance)))

		discretionary := priorities[models.PriorityDiscretionary]
		if discretionary.GreaterThanOrEqual(variance) {
			recs = append(recs, fmt.Sprintf("Deferring discretionary spending can close the gap (%s thousand PLN available).", thousands(discretionary)))
		} else {
			recs = append(recs, fmt.Sprintf("Discretionary spending (%s thousand PLN) does not close the gap. Higher priority tasks need decisions.", thousands(discretionary)))
		}
	} else {
		recs = append(recs, fmt.Sprintf("The budget is within the limit with a reserve of %s thousand PLN.", thousands(variance.Abs())))
	}

	if obligatory := priorities[models.PriorityObligatory]; obligatory.IsPositive() {
		recs = append(recs, fmt.Sprintf("Obligatory tasks: %s thousand PLN must be funded.", thousands(obligatory)))
	}

	return recs
}

// Treasury returns the approved entries in the layout of the treasury
// system.
func (g *Generator) Treasury(db *gorm.DB, year int) (Treasury, error) {
	if !models.ValidYear(year) {
		return Treasury{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	entries, err := models.LoadEntries(db, "status = ?", models.StatusApproved)
	if err != nil {
		return Treasury{}, err
	}

	t := Treasury{
		Year:         year,
		Part:         g.part,
		Organization: g.rules.Organization,
		EntryCount:   len(entries),
		Total:        models.SumForYear(entries, year),
		Rows:         make([]TreasuryRow, 0, len(entries)),
	}

	for _, e := range entries {
		part := e.Part
		if part == 0 {
			part = g.part
		}

		t.Rows = append(t.Rows, TreasuryRow{
			Part:          part,
			Division:      e.Division,
			Chapter:       e.Chapter,
			Paragraph:     e.Paragraph,
			Project:       e.Title(),
			Amount:        e.For(year),
			Justification: e.Justification,
		})
	}

	return t, nil
}
