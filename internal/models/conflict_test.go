package models_test

import (
	"github.com/envelope-zero/planner/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestPairKeySymmetric() {
	a, b := uuid.New(), uuid.New()

	x1, y1 := models.PairKey(a, b)
	x2, y2 := models.PairKey(b, a)
	assert.Equal(suite.T(), x1, x2)
	assert.Equal(suite.T(), y1, y2)
	assert.Less(suite.T(), x1.String(), y1.String())
}

func (suite *TestSuiteStandard) TestUpsertConflict() {
	a := suite.createTestEntry(models.Entry{Name: "A"})
	b := suite.createTestEntry(models.Entry{Name: "B"})

	first := models.Conflict{EntryAID: b.ID, EntryBID: a.ID, Similarity: 0.65, Type: models.ConflictSemanticSimilar}
	require.Nil(suite.T(), models.UpsertConflict(models.DB, &first))
	assert.Equal(suite.T(), models.ResolutionPending, first.ResolutionStatus)
	assert.True(suite.T(), first.Involves(a.ID))
	assert.Equal(suite.T(), b.ID, first.Other(a.ID))

	// Resolve it, then detect the same pair again in the other order
	first.ResolutionStatus = models.ResolutionResolved
	require.Nil(suite.T(), models.DB.Save(&first).Error)

	second := models.Conflict{EntryAID: a.ID, EntryBID: b.ID, Similarity: 0.9, Type: models.ConflictDuplicate}
	require.Nil(suite.T(), models.UpsertConflict(models.DB, &second))

	assert.Equal(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), 0.9, second.Similarity)
	assert.Equal(suite.T(), models.ConflictDuplicate, second.Type)
	assert.Equal(suite.T(), models.ResolutionResolved, second.ResolutionStatus)

	var count int64
	models.DB.Model(&models.Conflict{}).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *TestSuiteStandard) TestConflictPairNotUnique() {
	a := suite.createTestEntry(models.Entry{Name: "A"})
	b := suite.createTestEntry(models.Entry{Name: "B"})

	require.Nil(suite.T(), models.DB.Create(&models.Conflict{EntryAID: a.ID, EntryBID: b.ID}).Error)
	err := models.DB.Create(&models.Conflict{EntryAID: b.ID, EntryBID: a.ID}).Error
	assert.ErrorIs(suite.T(), err, models.ErrConflictPairNotUnique)
}

func (suite *TestSuiteStandard) TestConflictSameEntry() {
	a := suite.createTestEntry(models.Entry{Name: "A"})
	err := models.DB.Create(&models.Conflict{EntryAID: a.ID, EntryBID: a.ID}).Error
	assert.ErrorIs(suite.T(), err, models.ErrConflictEntriesIdentical)
}
