package optimizer_test

import (
	"testing"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/optimizer"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestAnalyzeGapNoLimit() {
	_, err := optimizer.New(rules.Default()).AnalyzeGap(models.DB, 2025)
	assert.ErrorIs(suite.T(), err, optimizer.ErrNoGlobalLimit)

	_, err = optimizer.New(rules.Default()).SuggestCuts(models.DB, 2025, nil)
	assert.ErrorIs(suite.T(), err, optimizer.ErrNoGlobalLimit)
}

func (suite *TestSuiteStandard) TestSuggestCutsEndToEnd() {
	department := suite.createTestDepartment("DTC")

	suite.createTestEntry(models.Entry{DepartmentID: &department.ID, Name: "Salaries", Priority: models.PriorityObligatory, Obligatory: true, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(60)}})
	suite.createTestEntry(models.Entry{DepartmentID: &department.ID, Name: "Nowe biurka", Priority: models.PriorityMedium, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(50)}})
	suite.createTestEntry(models.Entry{DepartmentID: &department.ID, Name: "Szkolenie", Priority: models.PriorityLow, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(40)}})

	_, err := models.SetGlobalLimit(models.DB, 2025, decimal.NewFromInt(100))
	require.Nil(suite.T(), err)

	o := optimizer.New(rules.Default())
	plan, err := o.SuggestCuts(models.DB, 2025, nil)
	require.Nil(suite.T(), err)

	assert.True(suite.T(), decimal.NewFromInt(50).Equal(plan.GapAnalysis.Variance))
	assert.True(suite.T(), decimal.NewFromInt(50).Equal(plan.TargetReduction))
	assert.True(suite.T(), plan.AchievableReduction.GreaterThanOrEqual(decimal.NewFromInt(50)))
	assert.True(suite.T(), decimal.NewFromInt(55).Equal(plan.AchievableReduction), plan.AchievableReduction.String())
	assert.True(suite.T(), plan.CanMeetTarget)
	assert.True(suite.T(), decimal.NewFromInt(150).Equal(plan.GapAnalysis.DepartmentBreakdown["DTC"]))

	require.Len(suite.T(), plan.Suggestions, 2)
	for _, s := range plan.Suggestions {
		assert.NotEqual(suite.T(), "Salaries", s.Name)
	}
	assert.Equal(suite.T(), "Szkolenie", plan.Suggestions[0].Name)
	assert.Equal(suite.T(), 95.0, plan.Suggestions[0].DeferralScore)
	assert.Equal(suite.T(), "Nowe biurka", plan.Suggestions[1].Name)
	assert.Equal(suite.T(), 70.0, plan.Suggestions[1].DeferralScore)
}

func (suite *TestSuiteStandard) TestApplyDefer() {
	e := suite.createTestEntry(models.Entry{
		Name: "Posters",
		Amounts: models.Amounts{
			Amount2025: decimal.NewFromInt(40),
			Amount2026: decimal.NewFromInt(5),
		},
	})
	_, err := models.SetGlobalLimit(models.DB, 2025, decimal.NewFromInt(100))
	require.Nil(suite.T(), err)

	result, err := optimizer.New(rules.Default()).Apply(models.DB, e.ID, optimizer.Action{Kind: optimizer.ActionDefer, Year: 2025})
	require.Nil(suite.T(), err)
	assert.True(suite.T(), decimal.NewFromInt(40).Equal(result.OldAmount))
	assert.True(suite.T(), result.NewAmount.IsZero())

	var stored models.Entry
	require.Nil(suite.T(), models.DB.First(&stored, e.ID).Error)
	assert.True(suite.T(), stored.Amount2025.IsZero())
	assert.True(suite.T(), decimal.NewFromInt(45).Equal(stored.Amount2026))
	assert.Equal(suite.T(), models.StatusNeedsRevision, stored.Status)
	assert.Contains(suite.T(), stored.Remarks, "[deferred from 2025]")

	var logs []models.AuditLog
	require.Nil(suite.T(), models.DB.Where(&models.AuditLog{EntryID: e.ID, Action: models.AuditDefer}).Find(&logs).Error)
	require.Len(suite.T(), logs, 1)
	previous, err := logs[0].Previous()
	require.Nil(suite.T(), err)
	assert.True(suite.T(), decimal.NewFromInt(40).Equal(previous.Amount2025))

	limit, err := models.GlobalLimitForYear(models.DB, 2025)
	require.Nil(suite.T(), err)
	assert.True(suite.T(), limit.CurrentTotal.IsZero())
}

func (suite *TestSuiteStandard) TestApplyReduce() {
	e := suite.createTestEntry(models.Entry{Name: "Servers", Amounts: models.Amounts{Amount2027: decimal.NewFromInt(100)}})

	amount := decimal.NewFromInt(70)
	result, err := optimizer.New(rules.Default()).Apply(models.DB, e.ID, optimizer.Action{Kind: optimizer.ActionReduce, Year: 2027, NewAmount: &amount})
	require.Nil(suite.T(), err)
	assert.True(suite.T(), amount.Equal(result.NewAmount))

	var stored models.Entry
	require.Nil(suite.T(), models.DB.First(&stored, e.ID).Error)
	assert.True(suite.T(), amount.Equal(stored.Amount2027))
	assert.Equal(suite.T(), models.StatusNeedsRevision, stored.Status)
	assert.Contains(suite.T(), stored.Remarks, "[reduced from 100 to 70]")
}

func (suite *TestSuiteStandard) TestApplyErrors() {
	e := suite.createTestEntry(models.Entry{Name: "Servers", Amounts: models.Amounts{Amount2025: decimal.NewFromInt(100), Amount2029: decimal.NewFromInt(1)}})

	negative := decimal.NewFromInt(-1)
	tooHigh := decimal.NewFromInt(101)

	tests := []struct {
		name   string
		id     uuid.UUID
		action optimizer.Action
		err    error
	}{
		{"Defer from the last year", e.ID, optimizer.Action{Kind: optimizer.ActionDefer, Year: 2029}, optimizer.ErrNoFollowingYear},
		{"Reduce without amount", e.ID, optimizer.Action{Kind: optimizer.ActionReduce, Year: 2025}, optimizer.ErrInvalidReduction},
		{"Reduce to a negative amount", e.ID, optimizer.Action{Kind: optimizer.ActionReduce, Year: 2025, NewAmount: &negative}, optimizer.ErrInvalidReduction},
		{"Reduce to a higher amount", e.ID, optimizer.Action{Kind: optimizer.ActionReduce, Year: 2025, NewAmount: &tooHigh}, optimizer.ErrInvalidReduction},
		{"Unknown action", e.ID, optimizer.Action{Kind: "cancel", Year: 2025}, optimizer.ErrUnknownAction},
		{"Year out of range", e.ID, optimizer.Action{Kind: optimizer.ActionDefer, Year: 2024}, models.ErrYearOutOfRange},
		{"Entry does not exist", uuid.New(), optimizer.Action{Kind: optimizer.ActionDefer, Year: 2025}, models.ErrResourceNotFound},
	}

	o := optimizer.New(rules.Default())
	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			_, err := o.Apply(models.DB, tt.id, tt.action)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	var stored models.Entry
	require.Nil(suite.T(), models.DB.First(&stored, e.ID).Error)
	assert.Equal(suite.T(), models.StatusDraft, stored.Status, "failed actions must not change the entry")
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(stored.Amount2025))
}

func (suite *TestSuiteStandard) TestDepartmentAllocation() {
	over := models.Department{Code: "DTC", BudgetLimit: decimal.NewFromInt(100)}
	under := models.Department{Code: "DSI", BudgetLimit: decimal.NewFromInt(100)}
	require.Nil(suite.T(), models.DB.Create(&over).Error)
	require.Nil(suite.T(), models.DB.Create(&under).Error)

	suite.createTestEntry(models.Entry{DepartmentID: &under.ID, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(20)}})
	suite.createTestEntry(models.Entry{DepartmentID: &over.ID, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(100)}})
	suite.createTestEntry(models.Entry{DepartmentID: &over.ID, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(50)}})
	suite.createTestEntry(models.Entry{Amounts: models.Amounts{Amount2025: decimal.NewFromInt(1000)}})

	allocations, err := optimizer.New(rules.Default()).DepartmentAllocation(models.DB, 2025)
	require.Nil(suite.T(), err)
	require.Len(suite.T(), allocations, 2)

	assert.Equal(suite.T(), "DTC", allocations[0].Code)
	assert.Equal(suite.T(), 2, allocations[0].EntryCount)
	assert.True(suite.T(), decimal.NewFromInt(50).Equal(allocations[0].Variance))
	assert.True(suite.T(), allocations[0].IsOverLimit)

	assert.Equal(suite.T(), "DSI", allocations[1].Code)
	assert.True(suite.T(), decimal.NewFromInt(-80).Equal(allocations[1].Variance))
	assert.False(suite.T(), allocations[1].IsOverLimit)
}
