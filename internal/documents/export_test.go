package documents_test

import (
	"github.com/envelope-zero/planner/internal/documents"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestEntriesWorkbook() {
	d := suite.createDepartment("DTC", 100)
	suite.createTestEntry(models.Entry{DepartmentID: &d.ID, Name: "Desks", Obligatory: true, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(40)}})
	suite.createTestEntry(models.Entry{Name: "Posters", Amounts: models.Amounts{Amount2025: decimal.NewFromInt(10)}})

	g := documents.New(rules.Default())

	f, err := g.EntriesWorkbook(models.DB, 2025, "")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), []string{documents.SheetEntries, documents.SheetSummary, documents.SheetDepartments}, f.GetSheetList())

	header, err := f.GetCellValue(documents.SheetEntries, "D1")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), "Nazwa zadania", header)

	name, err := f.GetCellValue(documents.SheetEntries, "D2")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), "Desks", name)

	obligatory, err := f.GetCellValue(documents.SheetEntries, "L2")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), "TAK", obligatory)

	count, err := f.GetCellValue(documents.SheetSummary, "B2")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), "2", count)

	department, err := f.GetCellValue(documents.SheetDepartments, "A2")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), "DTC", department)

	f, err = g.EntriesWorkbook(models.DB, 2025, "DTC")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), []string{documents.SheetEntries, documents.SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(documents.SheetEntries)
	require.Nil(suite.T(), err)
	assert.Len(suite.T(), rows, 2)
}

func (suite *TestSuiteStandard) TestEntriesWorkbookErrors() {
	g := documents.New(rules.Default())

	_, err := g.EntriesWorkbook(models.DB, 2024, "")
	assert.ErrorIs(suite.T(), err, models.ErrYearOutOfRange)

	_, err = g.EntriesWorkbook(models.DB, 2025, "NOPE")
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestSummaryWorkbook() {
	d := suite.createDepartment("DTC", 100)
	suite.createTestEntry(models.Entry{DepartmentID: &d.ID, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(150)}})

	f, err := documents.New(rules.Default()).SummaryWorkbook(models.DB, 2025, now)
	require.Nil(suite.T(), err)

	assert.Equal(suite.T(), []string{
		documents.SheetSummary,
		documents.SheetDepartments,
		documents.SheetPriorities,
		documents.SheetRecommendations,
	}, f.GetSheetList())

	priorities, err := f.GetRows(documents.SheetPriorities)
	require.Nil(suite.T(), err)
	assert.Len(suite.T(), priorities, len(models.Priorities)+1)

	code, err := f.GetCellValue(documents.SheetDepartments, "A2")
	require.Nil(suite.T(), err)
	assert.Equal(suite.T(), "DTC", code)
}
