package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	v1 "github.com/envelope-zero/planner/internal/controllers/v1"
	"github.com/envelope-zero/planner/internal/documents"
	"github.com/envelope-zero/planner/internal/optimizer"
	"github.com/envelope-zero/planner/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestDocumentLimitLetter() {
	createTestBudget(suite.T())

	r := test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/documents/limit-letter/dtc", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[documents.LimitLetter]
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), documents.TypeLimitLetter, response.Data.Metadata.DocumentType)
	assert.Equal(suite.T(), "DTC", response.Data.Metadata.DepartmentCode)
	assert.True(suite.T(), decimal.NewFromInt(150).Equal(response.Data.Data.AssignedLimit), response.Data.Data.AssignedLimit.String())
	assert.True(suite.T(), decimal.NewFromInt(180).Equal(response.Data.Data.CurrentRequests), response.Data.Data.CurrentRequests.String())
	assert.True(suite.T(), response.Data.Data.IsOverLimit)
	assert.Equal(suite.T(), 3, response.Data.Data.EntryCount)
	assert.Len(suite.T(), response.Data.Attachments.BudgetTable, 3)
	assert.NotEmpty(suite.T(), response.Data.Content.Body)

	// An explicit limit overrides the stored one
	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/documents/limit-letter/DTC?limit=200&year=2025", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	assert.True(suite.T(), decimal.NewFromInt(200).Equal(response.Data.Data.AssignedLimit), response.Data.Data.AssignedLimit.String())
	assert.False(suite.T(), response.Data.Data.IsOverLimit)

	// No entries have amounts for 2029
	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/documents/limit-letter/DTC?year=2029", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), 0, response.Data.Data.EntryCount)
}

func (suite *TestSuiteStandard) TestDocumentLimitLetterFails() {
	createTestDepartment(suite.T(), v1.DepartmentCreate{Code: "DTC"})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"Unknown department", "/DSI", http.StatusNotFound},
		{"Limit not a number", "/DTC?limit=abc", http.StatusBadRequest},
		{"Year out of range", "/DTC?year=2024", http.StatusBadRequest},
		{"Year not a number", "/DTC?year=soon", http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, "http://example.com/v1/documents/limit-letter"+tt.path, "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestDocumentCutNotification() {
	low, medium, _ := createTestBudget(suite.T())

	// Without cuts in the body, the suggested cuts are used
	r := test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/documents/cut-notification/DTC", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[documents.CutNotification]
	test.DecodeResponse(suite.T(), &r, &response)
	require.Len(suite.T(), response.Data.CutsTable, 1)
	assert.Equal(suite.T(), low.Data.Name, response.Data.CutsTable[0].Name)
	assert.Equal(suite.T(), "Deferral", response.Data.CutsTable[0].Action)
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(response.Data.Summary.TotalCuts), response.Data.Summary.TotalCuts.String())
	assert.Equal(suite.T(), 1, response.Data.Summary.ItemsAffected)

	body := v1.CutNotificationBody{
		Cuts: []optimizer.Suggestion{
			{
				EntryID:         medium.Data.ID,
				Name:            medium.Data.Name,
				Department:      "DTC",
				CurrentAmount:   decimal.NewFromInt(50),
				SuggestedAmount: decimal.NewFromInt(20),
				Savings:         decimal.NewFromInt(30),
				Action:          optimizer.ActionReduce,
			},
		},
	}

	r = test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/documents/cut-notification/DTC", body)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	require.Len(suite.T(), response.Data.CutsTable, 1)
	assert.Equal(suite.T(), "Reduction", response.Data.CutsTable[0].Action)
	assert.True(suite.T(), decimal.NewFromInt(30).Equal(response.Data.Summary.TotalCuts), response.Data.Summary.TotalCuts.String())

	r = test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/documents/cut-notification/DSI", body)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	r = test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/documents/cut-notification/DTC", `{"cuts": "all of them"}`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestDocumentCutNotificationNoLimit() {
	createTestDepartment(suite.T(), v1.DepartmentCreate{Code: "DTC"})

	r := test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/documents/cut-notification/DTC", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestDocumentJustification() {
	e := createTestEntry(suite.T(), v1.EntryEditable{Name: "Rozbudowa serwerowni", Paragraph: 6060, InvestmentTask: "Serwerownia", Amount2025: decimal.NewFromInt(100), Amount2026: decimal.NewFromInt(50)})

	r := test.Request(co, suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/documents/justification/%s", e.Data.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[documents.Justification]
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), e.Data.ID, response.Data.EntryID)
	assert.Equal(suite.T(), "investment", response.Data.Classification.Type)
	assert.True(suite.T(), decimal.NewFromInt(150).Equal(response.Data.FinancialSummary.FirstThreeYears), response.Data.FinancialSummary.FirstThreeYears.String())
	assert.NotEmpty(suite.T(), response.Data.Narrative)

	r = test.Request(co, suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/documents/justification/%s", uuid.New()), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)

	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/documents/justification/not-an-id", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestDocumentSummaryReport() {
	createTestBudget(suite.T())

	r := test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/documents/summary-report", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[documents.SummaryReport]
	test.DecodeResponse(suite.T(), &r, &response)
	s := response.Data.ExecutiveSummary
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(s.GlobalLimit), s.GlobalLimit.String())
	assert.True(suite.T(), decimal.NewFromInt(180).Equal(s.TotalRequests), s.TotalRequests.String())
	assert.True(suite.T(), s.IsOverLimit)
	assert.Equal(suite.T(), 1, s.DepartmentCount)
	require.Len(suite.T(), response.Data.DepartmentBreakdown, 1)
	assert.Equal(suite.T(), "DTC", response.Data.DepartmentBreakdown[0].Code)

	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/documents/summary-report?year=2030", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestDocumentTreasury() {
	approved := createTestEntry(suite.T(), cleanEntry(suite.T()))
	createTestEntry(suite.T(), cleanEntry(suite.T()))

	submitEntry(suite.T(), approved.Data.ID)
	r := test.Request(co, suite.T(), http.MethodPost, approved.Data.Links.Self+"/approve", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/documents/treasury", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[documents.Treasury]
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), 1, response.Data.EntryCount, "only approved entries are exported")
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(response.Data.Total), response.Data.Total.String())
	require.Len(suite.T(), response.Data.Rows, 1)
	assert.Equal(suite.T(), 4300, response.Data.Rows[0].Paragraph)
	assert.Equal(suite.T(), 27, response.Data.Rows[0].Part, "the default part is used when none is set")
}
