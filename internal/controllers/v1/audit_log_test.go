package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	v1 "github.com/envelope-zero/planner/internal/controllers/v1"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestAuditLogs() {
	submitted := createTestEntry(suite.T(), cleanEntry(suite.T()))
	createTestEntry(suite.T(), cleanEntry(suite.T()))
	// Submitting stores the validation result and the submission
	submitEntry(suite.T(), submitted.Data.ID)

	tests := []struct {
		name  string
		query string
		len   int
		total int64
	}{
		{"All", "", 4, 4},
		{"Action in lower case", "?action=submit", 1, 1},
		{"Action", "?action=CREATE", 2, 2},
		{"Entry", fmt.Sprintf("?entry=%s", submitted.Data.ID), 3, 3},
		{"Entry and action", fmt.Sprintf("?entry=%s&action=validate", submitted.Data.ID), 1, 1},
		{"Limit", "?limit=1", 1, 4},
		{"Offset", "?offset=3", 1, 4},
		{"Offset beyond the end", "?offset=5", 0, 4},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, "http://example.com/v1/audit-logs"+tt.query, "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.AuditLogListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.len)
			require.NotNil(t, response.Pagination)
			assert.Equal(t, tt.total, response.Pagination.Total)
			assert.Equal(t, tt.len, response.Pagination.Count)
		})
	}

	// Newest records first
	r := test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/audit-logs?limit=1", "")
	var response v1.AuditLogListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	require.Len(suite.T(), response.Data, 1)
	assert.Equal(suite.T(), models.AuditSubmit, response.Data[0].Action)
}

func (suite *TestSuiteStandard) TestAuditLogsFails() {
	tests := []struct {
		name  string
		query string
	}{
		{"Entry is not an ID", "?entry=abc"},
		{"Offset is negative", "?offset=-1"},
		{"Limit is not a number", "?limit=many"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, "http://example.com/v1/audit-logs"+tt.query, "")
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
		})
	}
}
