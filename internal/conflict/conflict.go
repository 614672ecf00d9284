// Package conflict finds entries of different departments that request
// the same thing and resolves such conflicts.
package conflict

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Detected counts detected conflicts by type.
var Detected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "conflict_detections_total",
		Help: "How many conflicting entry pairs have been detected, partitioned by conflict type.",
	},
	[]string{"type"},
)

var (
	ErrUnknownAction      = errors.New("the resolution action must be one of 'consolidate' or 'keep_both'")
	ErrKeepEntryNotInPair = errors.New("the entry to keep must be one of the conflicting entries")
	ErrAlreadyResolved    = errors.New("the conflict has already been resolved")
)

// Resolution actions.
const (
	ActionConsolidate = "consolidate"
	ActionKeepBoth    = "keep_both"
)

// maxNameLength is the length names are truncated to in findings.
const maxNameLength = 100

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Finding describes a pair of similar entries.
type Finding struct {
	ConflictID       *uuid.UUID          `json:"conflictId"` // Set when the finding has been stored
	EntryAID         uuid.UUID           `json:"entryAId"`
	EntryAName       string              `json:"entryAName"`
	EntryADepartment string              `json:"entryADepartment" example:"DTC"`
	EntryAAmount     decimal.Decimal     `json:"entryAAmount" example:"120"`
	EntryBID         uuid.UUID           `json:"entryBId"`
	EntryBName       string              `json:"entryBName"`
	EntryBDepartment string              `json:"entryBDepartment" example:"DSI"`
	EntryBAmount     decimal.Decimal     `json:"entryBAmount" example:"80"`
	Similarity       float64             `json:"similarity" example:"0.87"`
	Type             models.ConflictType `json:"type" example:"duplicate"`
	SuggestedAction  string              `json:"suggestedAction"`
	PotentialSavings decimal.Decimal     `json:"potentialSavings" example:"30"`
	CombinedAmount   decimal.Decimal     `json:"combinedAmount" example:"200"`
	Message          string              `json:"message"`
}

// Involves reports if the entry is one of the pair.
func (f Finding) Involves(id uuid.UUID) bool {
	return f.EntryAID == id || f.EntryBID == id
}

// Resolution is the decision on a conflict.
type Resolution struct {
	Action      string     `json:"action" example:"consolidate"`
	KeepEntryID *uuid.UUID `json:"keepEntryId"` // Required for consolidate
	Notes       string     `json:"notes"`
}

// Summary aggregates the stored conflicts.
type Summary struct {
	Total    int                         `json:"total" example:"12"`
	Pending  int                         `json:"pending" example:"4"`
	Resolved int                         `json:"resolved" example:"8"`
	ByType   map[models.ConflictType]int `json:"byType"`
}

type Detector struct {
	rules rules.Conflict
}

func New(r rules.Rules) *Detector {
	return &Detector{rules: r.Conflict}
}

// normalize returns the folded text of an entry with all punctuation
// removed and whitespace collapsed.
func normalize(e models.Entry) string {
	content := rules.Content(e.Name, e.Description, e.Justification)
	content = nonWord.ReplaceAllString(content, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(content, " "))
}

// categories returns the names of all categories the content matches.
func (d *Detector) categories(content string) map[string]bool {
	tags := make(map[string]bool)
	for _, c := range d.rules.Categories {
		if rules.ContainsAny(content, c.Keywords) {
			tags[c.Name] = true
		}
	}
	return tags
}

// jaccard is the overlap of two tag sets. It is 0 if either set is empty.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	union := len(b)
	for tag := range a {
		if b[tag] {
			intersection++
		} else {
			union++
		}
	}

	return float64(intersection) / float64(union)
}

// ratio is the character level sequence similarity. The arguments are
// ordered first so that the result does not depend on their order.
func ratio(a, b string) float64 {
	if b < a {
		a, b = b, a
	}

	if a == "" && b == "" {
		return 1
	}

	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// Similarity scores how similar two entries are, between 0 and 1.
func (d *Detector) Similarity(a, b models.Entry) float64 {
	contentA, contentB := normalize(a), normalize(b)

	paragraph := 0.0
	if a.Paragraph == b.Paragraph {
		paragraph = 1
	}

	return ratio(contentA, contentB)*d.rules.SequenceWeight +
		jaccard(d.categories(contentA), d.categories(contentB))*d.rules.CategoryWeight +
		paragraph*d.rules.ParagraphWeight
}

// Classify returns the type of conflict and the suggested action for
// a similarity.
func (d *Detector) Classify(similarity float64) (models.ConflictType, string) {
	switch {
	case similarity >= d.rules.DuplicateThreshold:
		return models.ConflictDuplicate, "Merge both entries into one joint order"
	case similarity >= d.rules.OverlapThreshold:
		return models.ConflictOverlap, "Consider consolidating both entries under one department"
	default:
		return models.ConflictSemanticSimilar, "Check for possible synergies"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

func (d *Detector) finding(a, b models.Entry, similarity float64, year int) Finding {
	if b.ID.String() < a.ID.String() {
		a, b = b, a
	}

	conflictType, action := d.Classify(similarity)
	amountA, amountB := a.For(year), b.For(year)
	combined := amountA.Add(amountB)
	savings := combined.Mul(decimal.NewFromFloat(d.rules.SavingsRate))

	return Finding{
		EntryAID:         a.ID,
		EntryAName:       truncate(a.Title(), maxNameLength),
		EntryADepartment: a.DepartmentCode(),
		EntryAAmount:     amountA,
		EntryBID:         b.ID,
		EntryBName:       truncate(b.Title(), maxNameLength),
		EntryBDepartment: b.DepartmentCode(),
		EntryBAmount:     amountB,
		Similarity:       round(similarity, 2),
		Type:             conflictType,
		SuggestedAction:  action,
		PotentialSavings: savings.Round(2),
		CombinedAmount:   combined,
		Message: fmt.Sprintf(
			"Departments %s and %s requested similar things. Consolidating them could save about %s thousand PLN",
			a.DepartmentCode(), b.DepartmentCode(), savings.StringFixed(0),
		),
	}
}

type scored struct {
	finding    Finding
	similarity float64
}

// find returns the findings together with the unrounded similarity.
func (d *Detector) find(entries []models.Entry, year int) []scored {
	candidates := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.For(year).IsPositive() {
			candidates = append(candidates, e)
		}
	}

	var found []scored
	for i, a := range candidates {
		for _, b := range candidates[i+1:] {
			if a.SameDepartment(b) {
				continue
			}

			similarity := d.Similarity(a, b)
			if similarity < d.rules.Threshold {
				continue
			}

			found = append(found, scored{d.finding(a, b, similarity, year), similarity})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].similarity != found[j].similarity {
			return found[i].similarity > found[j].similarity
		}

		if found[i].finding.EntryAID != found[j].finding.EntryAID {
			return found[i].finding.EntryAID.String() < found[j].finding.EntryAID.String()
		}

		return found[i].finding.EntryBID.String() < found[j].finding.EntryBID.String()
	})

	return found
}

// Find returns all pairs of entries from different departments with a
// positive amount in the year whose similarity reaches the threshold.
// The most similar pairs come first.
func (d *Detector) Find(entries []models.Entry, year int) []Finding {
	found := d.find(entries, year)

	findings := make([]Finding, 0, len(found))
	for _, f := range found {
		findings = append(findings, f.finding)
	}
	return findings
}

// Detect finds conflicts between the stored entries for the year and
// stores them. Known pairs are updated, their resolution is kept.
func (d *Detector) Detect(db *gorm.DB, year int) ([]Finding, error) {
	if !models.ValidYear(year) {
		return nil, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, year)
	}

	entries, err := models.LoadEntries(db)
	if err != nil {
		return nil, err
	}

	found := d.find(entries, year)
	findings := make([]Finding, 0, len(found))

	err = models.Transaction(db, func(tx *gorm.DB) error {
		for _, f := range found {
			c := models.Conflict{
				EntryAID:   f.finding.EntryAID,
				EntryBID:   f.finding.EntryBID,
				Similarity: f.similarity,
				Type:       f.finding.Type,
			}

			if err := models.UpsertConflict(tx, &c); err != nil {
				return err
			}

			f.finding.ConflictID = &c.ID
			findings = append(findings, f.finding)
			Detected.WithLabelValues(string(c.Type)).Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("year", year).Int("conflicts", len(findings)).Msg("detected conflicts")
	return findings, nil
}

// Resolve resolves a stored conflict.
//
// Consolidating moves the amounts of the other entry to the kept entry,
// reduced by the synergy factor. The removed entry keeps its amounts only
// for the years that are not zeroed.
func (d *Detector) Resolve(db *gorm.DB, id uuid.UUID, r Resolution) (models.Conflict, error) {
	if r.Action != ActionConsolidate && r.Action != ActionKeepBoth {
		return models.Conflict{}, ErrUnknownAction
	}

	var c models.Conflict
	err := models.Transaction(db, func(tx *gorm.DB) error {
		err := tx.First(&c, id).Error
		if err != nil {
			return err
		}

		if c.ResolutionStatus == models.ResolutionResolved {
			return ErrAlreadyResolved
		}

		if r.Action == ActionConsolidate {
			if r.KeepEntryID == nil || !c.Involves(*r.KeepEntryID) {
				return ErrKeepEntryNotInPair
			}

			err = d.consolidate(tx, *r.KeepEntryID, c.Other(*r.KeepEntryID), r.Notes)
			if err != nil {
				return err
			}
		}

		c.ResolutionStatus = models.ResolutionResolved
		c.ResolutionNotes = r.Notes
		if c.ResolutionNotes == "" {
			c.ResolutionNotes = r.Action
		}

		return tx.Model(&c).Select("ResolutionStatus", "ResolutionNotes").Updates(&c).Error
	})
	if err != nil {
		return models.Conflict{}, err
	}

	log.Info().Str("conflict", id.String()).Str("action", r.Action).Msg("resolved conflict")
	return c, nil
}

func (d *Detector) consolidate(tx *gorm.DB, keepID, removeID uuid.UUID, notes string) error {
	var keep, remove models.Entry
	if err := tx.First(&keep, keepID).Error; err != nil {
		return err
	}

	if err := tx.First(&remove, removeID).Error; err != nil {
		return err
	}

	keepBefore, removeBefore := keep.Snapshot(), remove.Snapshot()
	factor := decimal.NewFromFloat(d.rules.SynergyFactor)

	zeroed := d.rules.ZeroedYears
	if d.rules.ZeroAllYears {
		zeroed = len(models.Years())
	}

	for i, year := range models.Years() {
		err := keep.Set(year, keep.For(year).Add(remove.For(year)).Mul(factor))
		if err != nil {
			return err
		}

		if i < zeroed {
			err = remove.Set(year, decimal.Zero)
			if err != nil {
				return err
			}
		}
	}

	keep.AppendRemark(fmt.Sprintf("[CONSOLIDATED from entry %s]", remove.ID))
	remove.AppendRemark(fmt.Sprintf("[MOVED to entry %s]", keep.ID))

	for _, e := range []*models.Entry{&keep, &remove} {
		if err := tx.Omit(clause.Associations).Save(e).Error; err != nil {
			return err
		}
	}

	if err := models.RecordAudit(tx, keep.ID, models.AuditConsolidate, keepBefore, keep.Snapshot(), notes); err != nil {
		return err
	}

	if err := models.RecordAudit(tx, remove.ID, models.AuditConsolidate, removeBefore, remove.Snapshot(), notes); err != nil {
		return err
	}

	return models.RecalculateGlobalLimits(tx)
}

// Summary counts the stored conflicts.
func (d *Detector) Summary(db *gorm.DB) (Summary, error) {
	var conflicts []models.Conflict
	err := db.Find(&conflicts).Error
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Total: len(conflicts), ByType: make(map[models.ConflictType]int)}
	for _, c := range conflicts {
		s.ByType[c.Type]++

		if c.ResolutionStatus == models.ResolutionResolved {
			s.Resolved++
		} else {
			s.Pending++
		}
	}

	return s, nil
}

// List returns the stored conflicts, optionally filtered by resolution status.
func (d *Detector) List(db *gorm.DB, status models.ResolutionStatus) ([]models.Conflict, error) {
	var conflicts []models.Conflict

	query := db.Order("similarity DESC, created_at")
	if status != "" {
		query = query.Where(&models.Conflict{ResolutionStatus: status})
	}

	err := query.Find(&conflicts).Error
	if err != nil {
		return nil, err
	}

	return conflicts, nil
}
