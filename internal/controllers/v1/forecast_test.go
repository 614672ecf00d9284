package v1_test

import (
	"net/http"
	"testing"

	v1 "github.com/envelope-zero/planner/internal/controllers/v1"
	"github.com/envelope-zero/planner/internal/forecast"
	"github.com/envelope-zero/planner/test"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestForecast() {
	createTestBudget(suite.T())

	r := test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/forecast", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[forecast.Result]
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), 2025, response.Data.BaseYear)
	assert.True(suite.T(), decimal.NewFromInt(180).Equal(response.Data.BaseTotal), response.Data.BaseTotal.String())
	require.Len(suite.T(), response.Data.Forecasts, 5, "the default horizon is five years")
	assert.Equal(suite.T(), 2026, response.Data.Forecasts[0].Year)
	assert.Equal(suite.T(), 2030, response.Data.Forecasts[4].Year)

	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/forecast?years=2", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Len(suite.T(), response.Data.Forecasts, 2)
}

func (suite *TestSuiteStandard) TestForecastFails() {
	tests := []struct {
		name  string
		query string
	}{
		{"Horizon too long", "?years=11"},
		{"Horizon zero", "?years=0"},
		{"Horizon not a number", "?years=abc"},
		{"Year out of range", "?year=2031"},
		{"Year not a number", "?year=next"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, "http://example.com/v1/forecast"+tt.query, "")
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
		})
	}
}

func (suite *TestSuiteStandard) TestForecastAnomalies() {
	r := test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/forecast/anomalies", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[[]forecast.Anomaly]
	test.DecodeResponse(suite.T(), &r, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Empty(suite.T(), *response.Data, "there are no entries")

	e := createTestEntry(suite.T(), v1.EntryEditable{Name: "Serwery", Paragraph: 4300, Amount2025: decimal.NewFromInt(20000)})

	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/forecast/anomalies?year=2025", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)

	var found bool
	for _, a := range *response.Data {
		if a.Type == forecast.AnomalyMissingJustification && a.EntryID == e.Data.ID {
			found = true
		}
	}
	assert.True(suite.T(), found, "a high amount without justification is an anomaly: %v", *response.Data)

	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/forecast/anomalies?year=2024", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestForecastAllocation() {
	createTestBudget(suite.T())

	r := test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/forecast/allocation", map[string]int{"2025": 100, "2026": 100})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[forecast.Allocation]
	test.DecodeResponse(suite.T(), &r, &response)
	require.Len(suite.T(), response.Data.Years, 2)

	y := response.Data.Years[0]
	assert.Equal(suite.T(), 2025, y.Year)
	assert.True(suite.T(), decimal.NewFromInt(30).Equal(y.NonDeferrable), y.NonDeferrable.String())
	assert.True(suite.T(), decimal.NewFromInt(70).Equal(y.DeferrableAllocated), y.DeferrableAllocated.String())
	assert.True(suite.T(), decimal.NewFromInt(80).Equal(y.Gap), y.Gap.String())

	require.Len(suite.T(), response.Data.SuggestedShifts, 1)
	shift := response.Data.SuggestedShifts[0]
	assert.Equal(suite.T(), 2025, shift.FromYear)
	assert.Equal(suite.T(), 2026, shift.ToYear)
	assert.True(suite.T(), decimal.NewFromInt(80).Equal(shift.Amount), shift.Amount.String())

	// Without a body, the configured limits are used
	r = test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/forecast/allocation", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Len(suite.T(), response.Data.Years, 4)
}

func (suite *TestSuiteStandard) TestForecastAllocationFails() {
	tests := []struct {
		name string
		body any
	}{
		{"Year out of range", map[string]int{"2030": 10}},
		{"Negative limit", map[string]int{"2025": -10}},
		{"Invalid body", `{"2025": "a lot"}`},
		{"Year not a number", `{"next": 10}`},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodPost, "http://example.com/v1/forecast/allocation", tt.body)
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
		})
	}
}
