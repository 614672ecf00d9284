package models_test

import (
	"strings"
	"testing"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestEntryTrimWhitespace() {
	name := "  Server room \t"
	remarks := " checked "

	entry := suite.createTestEntry(models.Entry{
		Name:    name,
		Remarks: remarks,
	})

	assert.Equal(suite.T(), strings.TrimSpace(name), entry.Name)
	assert.Equal(suite.T(), strings.TrimSpace(remarks), entry.Remarks)
}

func (suite *TestSuiteStandard) TestEntryDefaults() {
	entry := suite.createTestEntry(models.Entry{Name: "Defaults"})

	assert.Equal(suite.T(), models.DefaultPart, entry.Part)
	assert.Equal(suite.T(), models.StatusDraft, entry.Status)
	assert.Equal(suite.T(), models.PriorityMedium, entry.Priority)
}

func (suite *TestSuiteStandard) TestEntryNegativeAmount() {
	err := models.DB.Create(&models.Entry{Amounts: models.Amounts{Amount2027: decimal.NewFromInt(-5)}}).Error
	assert.ErrorIs(suite.T(), err, models.ErrNegativeAmount)
}

func (suite *TestSuiteStandard) TestEntryWarnings() {
	entry := models.Entry{}
	assert.Equal(suite.T(), []string{}, entry.Warnings())

	entry.SetWarnings([]string{"first", "second"})
	entry = suite.createTestEntry(entry)

	var stored models.Entry
	assert.Nil(suite.T(), models.DB.First(&stored, entry.ID).Error)
	assert.Equal(suite.T(), []string{"first", "second"}, stored.Warnings())
}

func (suite *TestSuiteStandard) TestLoadEntries() {
	department := suite.createTestDepartment(models.Department{Code: "dtc", Name: "Digital"})
	suite.createTestEntry(models.Entry{Name: "A", DepartmentID: &department.ID, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(10)}})
	suite.createTestEntry(models.Entry{Name: "B", Amounts: models.Amounts{Amount2025: decimal.NewFromInt(15)}})

	entries, err := models.LoadEntries(models.DB)
	assert.Nil(suite.T(), err)
	assert.Len(suite.T(), entries, 2)
	assert.Equal(suite.T(), "DTC", entries[0].DepartmentCode())
	assert.Equal(suite.T(), "N/A", entries[1].DepartmentCode())
	assert.True(suite.T(), decimal.NewFromInt(25).Equal(models.SumForYear(entries, 2025)))

	entries, err = models.LoadEntries(models.DB, &models.Entry{DepartmentID: &department.ID})
	assert.Nil(suite.T(), err)
	assert.Len(suite.T(), entries, 1)
}

func (suite *TestSuiteStandard) TestEntryUnknownDepartment() {
	id := suite.createTestDepartment(models.Department{Code: "GONE"}).ID
	models.DB.Unscoped().Delete(&models.Department{}, id)

	err := models.DB.Create(&models.Entry{DepartmentID: &id}).Error
	assert.ErrorIs(suite.T(), err, models.ErrDepartmentDoesNotExist)
}

func (suite *TestSuiteStandard) TestEntrySnapshotRestore() {
	entry := models.Entry{
		Name:      "Before",
		Paragraph: 4300,
		Priority:  models.PriorityHigh,
		Status:    models.StatusSubmitted,
		Amounts:   models.Amounts{Amount2025: decimal.NewFromInt(100)},
	}
	snapshot := entry.Snapshot()

	entry.Name = "After"
	entry.Paragraph = 6060
	entry.Priority = models.PriorityLow
	entry.Amount2025 = decimal.Zero
	entry.Status = models.StatusNeedsRevision

	entry.Restore(snapshot)
	assert.Equal(suite.T(), "Before", entry.Name)
	assert.Equal(suite.T(), 4300, entry.Paragraph)
	assert.Equal(suite.T(), models.PriorityHigh, entry.Priority)
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(entry.Amount2025))
	assert.Equal(suite.T(), models.StatusNeedsRevision, entry.Status, "status must not be restored")
}

func (suite *TestSuiteStandard) TestEntryHelpers() {
	a := models.Entry{Description: "only a description"}
	assert.Equal(suite.T(), "only a description", a.Title())

	a.AppendRemark("[first]")
	a.AppendRemark("[second]")
	assert.Equal(suite.T(), "[first] [second]", a.Remarks)

	d1 := suite.createTestDepartment(models.Department{Code: "D1"})
	d2 := suite.createTestDepartment(models.Department{Code: "D2"})

	tests := []struct {
		name string
		a, b *models.Department
		same bool
	}{
		{"Both without department", nil, nil, true},
		{"One without department", &d1, nil, false},
		{"Different departments", &d1, &d2, false},
		{"Same department", &d2, &d2, true},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			var x, y models.Entry
			if tt.a != nil {
				x.DepartmentID = &tt.a.ID
			}
			if tt.b != nil {
				y.DepartmentID = &tt.b.ID
			}
			assert.Equal(t, tt.same, x.SameDepartment(y))
			assert.Equal(t, tt.same, y.SameDepartment(x))
		})
	}
}
