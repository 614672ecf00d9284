package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/envelope-zero/planner/internal/conflict"
	v1 "github.com/envelope-zero/planner/internal/controllers/v1"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDuplicates creates the same entry in two departments.
func createTestDuplicates(t *testing.T) (v1.EntryResponse, v1.EntryResponse) {
	dtc := createTestDepartment(t, v1.DepartmentCreate{Code: "DTC"})
	dsi := createTestDepartment(t, v1.DepartmentCreate{Code: "DSI"})

	a := createTestEntry(t, v1.EntryEditable{
		DepartmentID: &dtc.Data.ID,
		Name:         "Licencje Microsoft Office",
		Paragraph:    4300,
		Amount2025:   decimal.NewFromInt(100),
	})

	b := createTestEntry(t, v1.EntryEditable{
		DepartmentID: &dsi.Data.ID,
		Name:         "Licencje Microsoft Office",
		Paragraph:    4300,
		Amount2025:   decimal.NewFromInt(50),
	})

	return a, b
}

func detectTestConflicts(t *testing.T) []conflict.Finding {
	r := test.Request(co, t, http.MethodPost, "http://example.com/v1/conflicts/detect", "")
	test.AssertHTTPStatus(t, &r, http.StatusOK)

	var response v1.Response[[]conflict.Finding]
	test.DecodeResponse(t, &r, &response)
	return *response.Data
}

func (suite *TestSuiteStandard) TestConflictsDetect() {
	a, b := createTestDuplicates(suite.T())

	findings := detectTestConflicts(suite.T())
	require.Len(suite.T(), findings, 1)
	require.NotNil(suite.T(), findings[0].ConflictID)
	assert.True(suite.T(), findings[0].Involves(a.Data.ID))
	assert.True(suite.T(), findings[0].Involves(b.Data.ID))
	assert.Equal(suite.T(), models.ConflictDuplicate, findings[0].Type)

	// Detecting again does not store the pair twice
	detectTestConflicts(suite.T())

	tests := []struct {
		name   string
		query  string
		status int
		len    int
	}{
		{"All", "", http.StatusOK, 1},
		{"Pending", "?status=pending", http.StatusOK, 1},
		{"Resolved", "?status=resolved", http.StatusOK, 0},
		{"Invalid status", "?status=open", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, "http://example.com/v1/conflicts"+tt.query, "")
			test.AssertHTTPStatus(t, &r, tt.status)

			var response v1.Response[[]models.Conflict]
			test.DecodeResponse(t, &r, &response)
			if tt.status != http.StatusOK {
				assert.NotNil(t, response.Error)
				return
			}
			assert.Len(t, *response.Data, tt.len)
		})
	}

	for _, query := range []string{"?year=2031", "?year=last"} {
		r := test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/conflicts/detect"+query, "")
		test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
	}
}

func (suite *TestSuiteStandard) TestConflictsResolve() {
	a, b := createTestDuplicates(suite.T())
	setTestLimit(suite.T(), 2025, 100)

	findings := detectTestConflicts(suite.T())
	require.Len(suite.T(), findings, 1)
	path := fmt.Sprintf("http://example.com/v1/conflicts/%s/resolve", *findings[0].ConflictID)

	r := test.Request(co, suite.T(), http.MethodPost, path, conflict.Resolution{Action: conflict.ActionConsolidate, KeepEntryID: &a.Data.ID, Notes: "One contract"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[models.Conflict]
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), models.ResolutionResolved, response.Data.ResolutionStatus)

	r = test.Request(co, suite.T(), http.MethodGet, b.Data.Links.Self, "")
	var removed v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &removed)
	assert.True(suite.T(), removed.Data.Amount2025.IsZero())
	assert.Contains(suite.T(), removed.Data.Remarks, "[MOVED to entry "+a.Data.ID.String()+"]")

	// The totals of the limit are recalculated
	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/limits/2025", "")
	var limit v1.Response[models.GlobalLimit]
	test.DecodeResponse(suite.T(), &r, &limit)
	r = test.Request(co, suite.T(), http.MethodGet, a.Data.Links.Self, "")
	var kept v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &kept)
	assert.True(suite.T(), kept.Data.Amount2025.Equal(limit.Data.CurrentTotal), "limit: %s, kept: %s", limit.Data.CurrentTotal, kept.Data.Amount2025)

	r = test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/conflicts/summary", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var summary v1.Response[conflict.Summary]
	test.DecodeResponse(suite.T(), &r, &summary)
	assert.Equal(suite.T(), 1, summary.Data.Total)
	assert.Equal(suite.T(), 1, summary.Data.Resolved)
	assert.Equal(suite.T(), 0, summary.Data.Pending)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"Already resolved", path, conflict.Resolution{Action: conflict.ActionKeepBoth}, http.StatusBadRequest},
		{"Does not exist", fmt.Sprintf("http://example.com/v1/conflicts/%s/resolve", uuid.New()), conflict.Resolution{Action: conflict.ActionKeepBoth}, http.StatusNotFound},
		{"Not a UUID", "http://example.com/v1/conflicts/first/resolve", conflict.Resolution{Action: conflict.ActionKeepBoth}, http.StatusBadRequest},
		{"No body", path, "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodPost, tt.path, tt.body)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestConflictsResolveInvalid() {
	createTestDuplicates(suite.T())
	findings := detectTestConflicts(suite.T())
	require.Len(suite.T(), findings, 1)
	path := fmt.Sprintf("http://example.com/v1/conflicts/%s/resolve", *findings[0].ConflictID)

	other := uuid.New()
	tests := []struct {
		name       string
		resolution conflict.Resolution
	}{
		{"Unknown action", conflict.Resolution{Action: "merge"}},
		{"No entry to keep", conflict.Resolution{Action: conflict.ActionConsolidate}},
		{"Entry to keep not in pair", conflict.Resolution{Action: conflict.ActionConsolidate, KeepEntryID: &other}},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodPost, path, tt.resolution)
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
		})
	}

	r := test.Request(co, suite.T(), http.MethodPost, path, conflict.Resolution{Action: conflict.ActionKeepBoth})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[models.Conflict]
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), models.ResolutionResolved, response.Data.ResolutionStatus)
}

func (suite *TestSuiteStandard) TestConflictResolveDBClosed() {
	suite.CloseDB()

	r := test.Request(co, suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/conflicts/%s/resolve", uuid.New()), conflict.Resolution{Action: conflict.ActionKeepBoth})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusInternalServerError)

	var response v1.Response[models.Conflict]
	test.DecodeResponse(suite.T(), &r, &response)
	require.NotNil(suite.T(), response.Error)
	assert.Equal(suite.T(), models.ErrGeneral.Error(), *response.Error)
}
