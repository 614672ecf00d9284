package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConflictType classifies how similar two entries are.
type ConflictType string

const (
	ConflictDuplicate       ConflictType = "duplicate"
	ConflictOverlap         ConflictType = "overlap"
	ConflictSemanticSimilar ConflictType = "semantic_similar"
)

// ResolutionStatus is the state of a conflict.
type ResolutionStatus string

const (
	ResolutionPending  ResolutionStatus = "pending"
	ResolutionResolved ResolutionStatus = "resolved"
)

// Conflict is a pair of entries from different departments that are
// similar enough to be redundant spending.
//
// The pair is unordered, EntryAID is always the lower of both IDs.
type Conflict struct {
	DefaultModel
	EntryA           *Entry           `json:"-" gorm:"foreignKey:EntryAID"`
	EntryAID         uuid.UUID        `json:"entryAId" gorm:"column:entry_a_id;uniqueIndex:conflict_pair"`
	EntryB           *Entry           `json:"-" gorm:"foreignKey:EntryBID"`
	EntryBID         uuid.UUID        `json:"entryBId" gorm:"column:entry_b_id;uniqueIndex:conflict_pair"`
	Similarity       float64          `json:"similarity" example:"0.87"`
	Type             ConflictType     `json:"type" example:"duplicate"`
	ResolutionStatus ResolutionStatus `json:"resolutionStatus" example:"pending"`
	ResolutionNotes  string           `json:"resolutionNotes"`
}

// PairKey orders two entry IDs canonically.
func PairKey(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

func (c *Conflict) BeforeSave(_ *gorm.DB) error {
	if c.EntryAID == c.EntryBID {
		return ErrConflictEntriesIdentical
	}

	c.EntryAID, c.EntryBID = PairKey(c.EntryAID, c.EntryBID)

	if c.ResolutionStatus == "" {
		c.ResolutionStatus = ResolutionPending
	}

	return nil
}

// Involves reports if the entry is one of the pair.
func (c Conflict) Involves(id uuid.UUID) bool {
	return c.EntryAID == id || c.EntryBID == id
}

// Other returns the ID of the other entry of the pair.
func (c Conflict) Other(id uuid.UUID) uuid.UUID {
	if c.EntryAID == id {
		return c.EntryBID
	}
	return c.EntryAID
}

// UpsertConflict stores the conflict. If the pair is already known, only
// the similarity and the type are updated, the resolution is kept.
func UpsertConflict(db *gorm.DB, c *Conflict) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_a_id"}, {Name: "entry_b_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"similarity", "type", "updated_at"}),
	}).Create(c).Error
	if err != nil {
		return err
	}

	// On update, the generated ID is not the stored one
	var stored Conflict
	err = db.Where("entry_a_id = ? AND entry_b_id = ?", c.EntryAID, c.EntryBID).First(&stored).Error
	if err != nil {
		return err
	}

	*c = stored
	return nil
}
