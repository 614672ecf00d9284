package v1_test

import (
	"fmt"
	"net/http"
	"testing"

	v1 "github.com/envelope-zero/planner/internal/controllers/v1"
	"github.com/envelope-zero/planner/test"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestRoot() {
	r := test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.RootResponse
	test.DecodeResponse(suite.T(), &r, &response)

	l := response.Links
	for name, link := range map[string]string{
		"entries":      l.Entries,
		"departments":  l.Departments,
		"limits":       l.Limits,
		"compliance":   l.Compliance,
		"conflicts":    l.Conflicts,
		"optimization": l.Optimization,
		"forecast":     l.Forecast,
		"orchestrator": l.Orchestrator,
		"documents":    l.Documents,
		"export":       l.Export,
		"import":       l.Import,
		"audit-logs":   l.AuditLogs,
		"stats":        l.Stats,
	} {
		assert.Equal(suite.T(), "http://example.com/v1/"+name, link)
	}
}

func (suite *TestSuiteStandard) TestOptions() {
	d := createTestDepartment(suite.T(), v1.DepartmentCreate{Code: "DTC"})
	e := createTestEntry(suite.T(), v1.EntryEditable{DepartmentID: &d.Data.ID, Name: "Licenses"})

	tests := []struct {
		path  string
		allow string
	}{
		{"", "OPTIONS, GET"},
		{"/entries", "OPTIONS, GET, POST"},
		{fmt.Sprintf("/entries/%s", e.Data.ID), "OPTIONS, GET, PATCH"},
		{fmt.Sprintf("/entries/%s/submit", e.Data.ID), "OPTIONS, POST"},
		{fmt.Sprintf("/entries/%s/approve", e.Data.ID), "OPTIONS, POST"},
		{fmt.Sprintf("/entries/%s/reject", e.Data.ID), "OPTIONS, POST"},
		{fmt.Sprintf("/entries/%s/history", e.Data.ID), "OPTIONS, GET"},
		{fmt.Sprintf("/entries/%s/compare", e.Data.ID), "OPTIONS, GET"},
		{"/departments", "OPTIONS, GET, POST"},
		{"/departments/DTC", "OPTIONS, GET, PATCH"},
		{"/departments/DTC/entries", "OPTIONS, GET"},
		{"/departments/DTC/can-edit", "OPTIONS, GET"},
		{"/departments/DTC/lock", "OPTIONS, POST"},
		{"/departments/DTC/unlock", "OPTIONS, POST"},
		{"/departments/DTC/submit", "OPTIONS, POST"},
		{"/limits", "OPTIONS, GET"},
		{"/limits/2025", "OPTIONS, GET, PUT"},
		{"/compliance/summary", "OPTIONS, GET"},
		{"/compliance/validate", "OPTIONS, POST"},
		{fmt.Sprintf("/compliance/validate/%s", e.Data.ID), "OPTIONS, POST"},
		{fmt.Sprintf("/compliance/semantic/%s", e.Data.ID), "OPTIONS, POST"},
		{"/conflicts", "OPTIONS, GET"},
		{"/conflicts/summary", "OPTIONS, GET"},
		{"/conflicts/detect", "OPTIONS, POST"},
		{"/optimization/gap-analysis", "OPTIONS, GET"},
		{"/optimization/suggest-cuts", "OPTIONS, GET"},
		{fmt.Sprintf("/optimization/apply/%s", e.Data.ID), "OPTIONS, POST"},
		{"/optimization/department-allocation", "OPTIONS, GET"},
		{"/forecast", "OPTIONS, GET"},
		{"/forecast/anomalies", "OPTIONS, GET"},
		{"/forecast/allocation", "OPTIONS, POST"},
		{"/orchestrator/analysis", "OPTIONS, GET"},
		{"/orchestrator/next-actions", "OPTIONS, GET"},
		{"/orchestrator/dashboard", "OPTIONS, GET"},
		{"/orchestrator/execute/full_analysis", "OPTIONS, POST"},
		{"/documents/limit-letter/DTC", "OPTIONS, GET"},
		{"/documents/cut-notification/DTC", "OPTIONS, POST"},
		{fmt.Sprintf("/documents/justification/%s", e.Data.ID), "OPTIONS, GET"},
		{"/documents/summary-report", "OPTIONS, GET"},
		{"/documents/treasury", "OPTIONS, GET"},
		{"/export/entries", "OPTIONS, GET"},
		{"/export/summary", "OPTIONS, GET"},
		{"/import", "OPTIONS, POST"},
		{"/audit-logs", "OPTIONS, GET"},
		{"/stats", "OPTIONS, GET"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.path, func(t *testing.T) {
			r := test.Request(co, t, http.MethodOptions, "http://example.com/v1"+tt.path, "")
			test.AssertHTTPStatus(t, &r, http.StatusNoContent)
			assert.Equal(t, tt.allow, r.Header().Get("allow"))
		})
	}
}

func (suite *TestSuiteStandard) TestOptionsNotFound() {
	id := uuid.New()
	tests := []string{
		fmt.Sprintf("/entries/%s", id),
		fmt.Sprintf("/entries/%s/submit", id),
		"/departments/XYZ",
	}

	for _, path := range tests {
		suite.T().Run(path, func(t *testing.T) {
			r := test.Request(co, t, http.MethodOptions, "http://example.com/v1"+path, "")
			test.AssertHTTPStatus(t, &r, http.StatusNotFound)
		})
	}
}
