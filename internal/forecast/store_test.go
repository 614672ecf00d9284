package forecast_test

import (
	"testing"

	"github.com/envelope-zero/planner/internal/forecast"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestForecast() {
	department := suite.createTestDepartment("DTC")
	suite.createTestEntry(models.Entry{DepartmentID: &department.ID, Name: "Wynagrodzenia", Amounts: models.Amounts{Amount2025: decimal.NewFromInt(100)}})

	r, err := forecast.New(rules.Default()).Forecast(models.DB, 2025, 3)
	require.Nil(suite.T(), err)
	require.Len(suite.T(), r.Forecasts, 3)
	assert.True(suite.T(), decimal.NewFromInt(103).Equal(r.Forecasts[0].DepartmentBreakdown["DTC"]))
}

func (suite *TestSuiteStandard) TestForecastErrors() {
	f := forecast.New(rules.Default())

	tests := []struct {
		name  string
		year  int
		years int
		err   error
	}{
		{"Base year before the planning period", 2024, 3, models.ErrYearOutOfRange},
		{"Base year after the planning period", 2030, 3, models.ErrYearOutOfRange},
		{"No years", 2025, 0, forecast.ErrInvalidHorizon},
		{"Too many years", 2025, forecast.MaxHorizon + 1, forecast.ErrInvalidHorizon},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			_, err := f.Forecast(models.DB, tt.year, tt.years)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func (suite *TestSuiteStandard) TestAnomalies() {
	e := suite.createTestEntry(models.Entry{Name: "Data center", Amounts: models.Amounts{Amount2026: decimal.NewFromInt(20000)}})

	f := forecast.New(rules.Default())

	anomalies, err := f.Anomalies(models.DB, 2026)
	require.Nil(suite.T(), err)
	require.Len(suite.T(), anomalies, 1)
	assert.Equal(suite.T(), e.ID, anomalies[0].EntryID)

	anomalies, err = f.Anomalies(models.DB, 2025)
	require.Nil(suite.T(), err)
	assert.Empty(suite.T(), anomalies)

	_, err = f.Anomalies(models.DB, 2031)
	assert.ErrorIs(suite.T(), err, models.ErrYearOutOfRange)
}

func (suite *TestSuiteStandard) TestOptimizeAllocation() {
	suite.createTestEntry(models.Entry{Name: "Posters", Priority: models.PriorityLow, Amounts: models.Amounts{Amount2025: decimal.NewFromInt(120000)}})

	f := forecast.New(rules.Default())

	a, err := f.OptimizeAllocation(models.DB, nil)
	require.Nil(suite.T(), err)
	require.Len(suite.T(), a.Years, 4)
	assert.Equal(suite.T(), 2025, a.Years[0].Year)
	assert.Equal(suite.T(), 2028, a.Years[3].Year)
	assert.True(suite.T(), decimal.NewFromInt(20000).Equal(a.Years[0].Gap))

	require.Len(suite.T(), a.SuggestedShifts, 1)
	assert.True(suite.T(), decimal.NewFromInt(20000).Equal(a.SuggestedShifts[0].Amount))

	_, err = f.OptimizeAllocation(models.DB, map[int]decimal.Decimal{2030: decimal.NewFromInt(1)})
	assert.ErrorIs(suite.T(), err, models.ErrYearOutOfRange)

	_, err = f.OptimizeAllocation(models.DB, map[int]decimal.Decimal{2025: decimal.NewFromInt(-1)})
	assert.ErrorIs(suite.T(), err, models.ErrNegativeAmount)
}
