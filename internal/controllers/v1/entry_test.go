package v1_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	v1 "github.com/envelope-zero/planner/internal/controllers/v1"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanEntry returns an entry that passes all compliance checks.
func cleanEntry(t *testing.T) v1.EntryEditable {
	d := createTestDepartment(t, v1.DepartmentCreate{})

	return v1.EntryEditable{
		DepartmentID: &d.Data.ID,
		Name:         "Office consulting",
		Paragraph:    4300,
		Amount2025:   decimal.NewFromInt(100),
	}
}

// lowScoreEntry returns an entry with a compliance score of 45.
func lowScoreEntry() v1.EntryEditable {
	return v1.EntryEditable{
		Justification: "Zakup serwera",
		Paragraph:     4300,
		BZCode:        "16,1,2,1",
		Amount2025:    decimal.NewFromInt(60000),
	}
}

func submitEntry(t *testing.T, id uuid.UUID, expectedStatus ...int) v1.SubmitResponse {
	if len(expectedStatus) == 0 {
		expectedStatus = append(expectedStatus, http.StatusOK)
	}

	r := test.Request(co, t, http.MethodPost, fmt.Sprintf("http://example.com/v1/entries/%s/submit", id), "")
	test.AssertHTTPStatus(t, &r, expectedStatus...)

	var response v1.SubmitResponse
	test.DecodeResponse(t, &r, &response)
	return response
}

func entryHistory(t *testing.T, id uuid.UUID) []models.AuditLog {
	r := test.Request(co, t, http.MethodGet, fmt.Sprintf("http://example.com/v1/entries/%s/history", id), "")
	test.AssertHTTPStatus(t, &r, http.StatusOK)

	var response v1.AuditLogListResponse
	test.DecodeResponse(t, &r, &response)
	return response.Data
}

// auditRecord returns the first record of the entry history with the action.
func auditRecord(t *testing.T, id uuid.UUID, action models.AuditAction) models.AuditLog {
	for _, record := range entryHistory(t, id) {
		if record.Action == action {
			return record
		}
	}

	require.FailNow(t, "no audit record found", "action: %s", action)
	return models.AuditLog{}
}

// TestEntriesDBClosed verifies that errors are processed correctly when
// the database is closed.
func (suite *TestSuiteStandard) TestEntriesDBClosed() {
	tests := []struct {
		name string             // Name of the test
		test func(t *testing.T) // Code to run
	}{
		{
			"Creation fails",
			func(t *testing.T) {
				createTestEntry(t, v1.EntryEditable{Name: "Licenses", Amount2025: decimal.NewFromInt(10)}, http.StatusInternalServerError)
			},
		},
		{
			"GET fails",
			func(t *testing.T) {
				recorder := test.Request(co, t, http.MethodGet, "http://example.com/v1/entries", "")
				test.AssertHTTPStatus(t, &recorder, http.StatusInternalServerError)

				var response v1.EntryListResponse
				test.DecodeResponse(t, &recorder, &response)
				assert.Contains(t, *response.Error, models.ErrGeneral.Error())
			},
		},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			suite.CloseDB()

			tt.test(t)
		})
	}
}

func (suite *TestSuiteStandard) TestEntriesCreate() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	assert.Equal(suite.T(), models.StatusDraft, e.Data.Status)
	assert.Equal(suite.T(), models.PriorityMedium, e.Data.Priority)
	assert.Equal(suite.T(), models.DefaultPart, e.Data.Part)
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(e.Data.TotalAmount))
	assert.Equal(suite.T(), fmt.Sprintf("http://example.com/v1/entries/%s", e.Data.ID), e.Data.Links.Self)

	require.NotNil(suite.T(), e.Data.Compliance)
	assert.Equal(suite.T(), 100, e.Data.Compliance.Score)
	assert.True(suite.T(), e.Data.Compliance.IsValid)

	// The result of the check is returned, but not stored
	assert.False(suite.T(), e.Data.ComplianceValidated)

	low := createTestEntry(suite.T(), lowScoreEntry())
	require.NotNil(suite.T(), low.Data.Compliance)
	assert.Equal(suite.T(), 45, low.Data.Compliance.Score)
	assert.False(suite.T(), low.Data.Compliance.IsValid)
	require.NotNil(suite.T(), low.Data.Compliance.SuggestedParagraph)
	assert.Equal(suite.T(), 6060, *low.Data.Compliance.SuggestedParagraph)

	history := entryHistory(suite.T(), e.Data.ID)
	require.Len(suite.T(), history, 1)
	assert.Equal(suite.T(), models.AuditCreate, history[0].Action)
}

func (suite *TestSuiteStandard) TestEntriesCreateFails() {
	missing := uuid.New()
	locked := createTestDepartment(suite.T(), v1.DepartmentCreate{DepartmentEditable: v1.DepartmentEditable{EditLocked: true}})

	past := time.Now().Add(-time.Hour)
	expired := createTestDepartment(suite.T(), v1.DepartmentCreate{DepartmentEditable: v1.DepartmentEditable{EditDeadline: &past}})

	tests := []struct {
		name   string
		entry  v1.EntryEditable
		status int
		err    string
	}{
		{"Negative amount", v1.EntryEditable{Name: "Negative", Amount2026: decimal.NewFromInt(-1)}, http.StatusBadRequest, models.ErrNegativeAmount.Error()},
		{"Invalid priority", v1.EntryEditable{Name: "Priority", Priority: "urgent"}, http.StatusBadRequest, models.ErrInvalidPriority.Error()},
		{"Department does not exist", v1.EntryEditable{Name: "Missing", DepartmentID: &missing}, http.StatusNotFound, "there is no department"},
		{"Department locked", v1.EntryEditable{Name: "Locked", DepartmentID: &locked.Data.ID}, http.StatusForbidden, models.ErrEditsLocked.Error()},
		{"Deadline passed", v1.EntryEditable{Name: "Expired", DepartmentID: &expired.Data.ID}, http.StatusForbidden, models.ErrEditDeadlinePassed.Error()},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodPost, "http://example.com/v1/entries", []v1.EntryEditable{tt.entry})
			test.AssertHTTPStatus(t, &r, tt.status)

			var response v1.EntryCreateResponse
			test.DecodeResponse(t, &r, &response)
			require.Len(t, response.Data, 1)
			assert.Contains(t, *response.Data[0].Error, tt.err)
		})
	}

	r := test.Request(co, suite.T(), http.MethodPost, "http://example.com/v1/entries", `[{ "name": 2 }]`)
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestEntriesGetFilter() {
	dtc := createTestDepartment(suite.T(), v1.DepartmentCreate{Code: "dtc"})
	dsi := createTestDepartment(suite.T(), v1.DepartmentCreate{Code: "DSI"})

	createTestEntry(suite.T(), v1.EntryEditable{
		DepartmentID: &dtc.Data.ID,
		Name:         "Office licenses",
		Paragraph:    4300,
		Amount2025:   decimal.NewFromInt(100),
		Priority:     models.PriorityHigh,
	})

	createTestEntry(suite.T(), v1.EntryEditable{
		DepartmentID: &dtc.Data.ID,
		Name:         "Firewall",
		Paragraph:    6060,
		Amount2025:   decimal.NewFromInt(1000),
		Obligatory:   true,
	})

	createTestEntry(suite.T(), v1.EntryEditable{
		DepartmentID:  &dsi.Data.ID,
		Name:          "Training",
		Justification: "Security awareness for all staff",
		Paragraph:     4700,
		Amount2026:    decimal.NewFromInt(50),
	})

	tests := []struct {
		name  string
		query string
		len   int
	}{
		{"All", "", 3},
		{"Department code", "department=DTC", 2},
		{"Department code lower case", "department=dsi", 1},
		{"Department ID", fmt.Sprintf("departmentId=%s", dsi.Data.ID), 1},
		{"Paragraph", "paragraph=6060", 1},
		{"Priority", "priority=high", 1},
		{"Status", "status=draft", 3},
		{"Obligatory", "obligatory=true", 1},
		{"Not obligatory", "obligatory=false", 2},
		{"Search name", "search=office", 1},
		{"Search justification", "search=awareness", 1},
		{"Search without match", "search=nothing", 0},
		{"Limit", "limit=2", 2},
		{"Offset", "offset=2", 1},
		{"Department and paragraph", "department=DTC&paragraph=4300", 1},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, fmt.Sprintf("http://example.com/v1/entries?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusOK)

			var response v1.EntryListResponse
			test.DecodeResponse(t, &r, &response)
			assert.Len(t, response.Data, tt.len, "Request ID: %s", r.Header().Get("x-request-id"))
			assert.Equal(t, tt.len, response.Pagination.Count)
		})
	}

	r := test.Request(co, suite.T(), http.MethodGet, "http://example.com/v1/entries?limit=1", "")
	var response v1.EntryListResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), int64(3), response.Pagination.Total)
	assert.Equal(suite.T(), 1, response.Pagination.Limit)
}

func (suite *TestSuiteStandard) TestEntriesGetFilterInvalid() {
	tests := []struct {
		name  string
		query string
	}{
		{"Status", "status=done"},
		{"Priority", "priority=urgent"},
		{"Department ID", "departmentId=DTC"},
		{"Paragraph", "paragraph=four"},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, fmt.Sprintf("http://example.com/v1/entries?%s", tt.query), "")
			test.AssertHTTPStatus(t, &r, http.StatusBadRequest)
		})
	}
}

func (suite *TestSuiteStandard) TestEntryGet() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	r := test.Request(co, suite.T(), http.MethodGet, e.Data.Links.Self, "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), e.Data.ID, response.Data.ID)
	require.NotNil(suite.T(), response.Data.Department)
	assert.Equal(suite.T(), e.Data.Department.Code, response.Data.Department.Code)

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"Not a UUID", "not-a-uuid", http.StatusBadRequest},
		{"Does not exist", uuid.NewString(), http.StatusNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, fmt.Sprintf("http://example.com/v1/entries/%s", tt.id), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestEntryUpdate() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	r := test.Request(co, suite.T(), http.MethodPatch, e.Data.Links.Self, map[string]any{
		"name":       "Office consulting services",
		"amount2026": "250",
	})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), "Office consulting services", response.Data.Name)
	assert.True(suite.T(), decimal.NewFromInt(250).Equal(response.Data.Amount2026))

	// Fields that are not sent stay unchanged
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(response.Data.Amount2025))
	assert.Equal(suite.T(), 4300, response.Data.Paragraph)
	require.NotNil(suite.T(), response.Data.Compliance)

	update := auditRecord(suite.T(), e.Data.ID, models.AuditUpdate)
	assert.Contains(suite.T(), update.Notes, "Name")

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"Negative amount", map[string]any{"amount2025": "-5"}, http.StatusBadRequest},
		{"Invalid priority", map[string]any{"priority": "urgent"}, http.StatusBadRequest},
		{"Broken body", `{ "name": 2 }`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodPatch, e.Data.Links.Self, tt.body)
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestEntryUpdateLocked() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	r := test.Request(co, suite.T(), http.MethodPost, fmt.Sprintf("http://example.com/v1/departments/%s/lock", e.Data.Department.Code), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	r = test.Request(co, suite.T(), http.MethodPatch, e.Data.Links.Self, map[string]any{"name": "Changed"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusForbidden)

	var response v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), models.ErrEditsLocked.Error(), *response.Error)

	submitEntry(suite.T(), e.Data.ID, http.StatusForbidden)
}

func (suite *TestSuiteStandard) TestEntrySubmit() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	response := submitEntry(suite.T(), e.Data.ID)
	assert.Equal(suite.T(), models.StatusSubmitted, response.Data.Status)
	assert.Equal(suite.T(), 100, response.Data.Score)
	assert.Empty(suite.T(), response.Data.Errors)
	assert.Empty(suite.T(), response.Data.Reason)

	r := test.Request(co, suite.T(), http.MethodGet, e.Data.Links.Self, "")
	var entry v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &entry)
	assert.Equal(suite.T(), models.StatusSubmitted, entry.Data.Status)
	assert.True(suite.T(), entry.Data.ComplianceValidated)

	submit := auditRecord(suite.T(), e.Data.ID, models.AuditSubmit)
	assert.Contains(suite.T(), submit.Notes, "100")
}

func (suite *TestSuiteStandard) TestEntrySubmitFails() {
	low := createTestEntry(suite.T(), lowScoreEntry())

	response := submitEntry(suite.T(), low.Data.ID, http.StatusBadRequest)
	assert.Contains(suite.T(), *response.Error, "compliance validation failed")
	assert.Equal(suite.T(), 45, response.Data.Score)
	assert.Equal(suite.T(), models.StatusDraft, response.Data.Status)
	assert.NotEmpty(suite.T(), response.Data.Errors)
	assert.Equal(suite.T(), *response.Error, response.Data.Reason)

	// Entries without amounts score fine, but cannot be submitted
	empty := cleanEntry(suite.T())
	empty.Amount2025 = decimal.Zero
	e := createTestEntry(suite.T(), empty)

	response = submitEntry(suite.T(), e.Data.ID, http.StatusBadRequest)
	assert.Contains(suite.T(), *response.Error, "required fields are missing")
	assert.Equal(suite.T(), 100, response.Data.Score)
	assert.Equal(suite.T(), []string{"no amounts are set for the first three years"}, response.Data.Errors)
	assert.Equal(suite.T(), "the entry cannot be submitted, required fields are missing", response.Data.Reason)

	submitEntry(suite.T(), uuid.New(), http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestEntryApproveReject() {
	approved := createTestEntry(suite.T(), cleanEntry(suite.T()))
	rejected := createTestEntry(suite.T(), cleanEntry(suite.T()))
	draft := createTestEntry(suite.T(), cleanEntry(suite.T()))

	submitEntry(suite.T(), approved.Data.ID)
	submitEntry(suite.T(), rejected.Data.ID)

	r := test.Request(co, suite.T(), http.MethodPost, approved.Data.Links.Self+"/approve", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), models.StatusApproved, response.Data.Status)

	r = test.Request(co, suite.T(), http.MethodPost, rejected.Data.Links.Self+"/reject", v1.ReasonBody{Reason: "Duplicates the DSI request"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), models.StatusRejected, response.Data.Status)
	assert.Equal(suite.T(), "[REJECTED: Duplicates the DSI request]", response.Data.Remarks)

	reject := auditRecord(suite.T(), rejected.Data.ID, models.AuditReject)
	assert.Equal(suite.T(), "Rejected: Duplicates the DSI request", reject.Notes)

	// Draft entries need to be submitted first
	r = test.Request(co, suite.T(), http.MethodPost, draft.Data.Links.Self+"/reject", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Contains(suite.T(), *response.Error, models.ErrStatusTransitionForbidden.Error())

	r = test.Request(co, suite.T(), http.MethodPost, draft.Data.Links.Self+"/approve", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestEntryRejectWithoutReason() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))
	submitEntry(suite.T(), e.Data.ID)

	r := test.Request(co, suite.T(), http.MethodPost, e.Data.Links.Self+"/reject", "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), "[REJECTED: no reason given]", response.Data.Remarks)
}

func (suite *TestSuiteStandard) TestEntryHistory() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	r := test.Request(co, suite.T(), http.MethodPatch, e.Data.Links.Self, map[string]any{"name": "Renamed"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	submitEntry(suite.T(), e.Data.ID)

	history := entryHistory(suite.T(), e.Data.ID)
	actions := make([]models.AuditAction, 0, len(history))
	for _, record := range history {
		assert.Equal(suite.T(), e.Data.ID, record.EntryID)
		actions = append(actions, record.Action)
	}

	// Submitting validates the entry first
	assert.ElementsMatch(suite.T(), []models.AuditAction{
		models.AuditCreate,
		models.AuditUpdate,
		models.AuditValidate,
		models.AuditSubmit,
	}, actions)

	r = test.Request(co, suite.T(), http.MethodGet, fmt.Sprintf("http://example.com/v1/entries/%s/history", uuid.New()), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestEntryRestore() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	r := test.Request(co, suite.T(), http.MethodPatch, e.Data.Links.Self, map[string]any{"name": "Renamed", "amount2025": "900"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	update := auditRecord(suite.T(), e.Data.ID, models.AuditUpdate)

	r = test.Request(co, suite.T(), http.MethodPost, fmt.Sprintf("%s/restore/%s", e.Data.Links.Self, update.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.EntryResponse
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), "Office consulting", response.Data.Name)
	assert.True(suite.T(), decimal.NewFromInt(100).Equal(response.Data.Amount2025))
	assert.Equal(suite.T(), models.StatusDraft, response.Data.Status)

	restore := auditRecord(suite.T(), e.Data.ID, models.AuditRestore)
	assert.True(suite.T(), strings.HasPrefix(restore.Notes, "Restored the version from before"))

	// Restoring a reviewed entry requires a new review
	submitEntry(suite.T(), e.Data.ID)
	r = test.Request(co, suite.T(), http.MethodPost, fmt.Sprintf("%s/restore/%s", e.Data.Links.Self, update.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)
	test.DecodeResponse(suite.T(), &r, &response)
	assert.Equal(suite.T(), models.StatusNeedsRevision, response.Data.Status)
	assert.False(suite.T(), response.Data.ComplianceValidated)
}

func (suite *TestSuiteStandard) TestEntryRestoreFails() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))
	other := createTestEntry(suite.T(), cleanEntry(suite.T()))

	create := auditRecord(suite.T(), e.Data.ID, models.AuditCreate)
	otherCreate := auditRecord(suite.T(), other.Data.ID, models.AuditCreate)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"Created without previous values", fmt.Sprintf("%s/restore/%s", e.Data.Links.Self, create.ID), http.StatusBadRequest},
		{"Record of another entry", fmt.Sprintf("%s/restore/%s", e.Data.Links.Self, otherCreate.ID), http.StatusNotFound},
		{"Record does not exist", fmt.Sprintf("%s/restore/%s", e.Data.Links.Self, uuid.New()), http.StatusNotFound},
		{"Not a UUID", fmt.Sprintf("%s/restore/latest", e.Data.Links.Self), http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodPost, tt.path, "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}

func (suite *TestSuiteStandard) TestEntryCompare() {
	e := createTestEntry(suite.T(), cleanEntry(suite.T()))

	r := test.Request(co, suite.T(), http.MethodPatch, e.Data.Links.Self, map[string]any{"name": "Renamed"})
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	create := auditRecord(suite.T(), e.Data.ID, models.AuditCreate)
	update := auditRecord(suite.T(), e.Data.ID, models.AuditUpdate)

	r = test.Request(co, suite.T(), http.MethodGet, fmt.Sprintf("%s/compare?a=%s&b=%s", e.Data.Links.Self, create.ID, update.ID), "")
	test.AssertHTTPStatus(suite.T(), &r, http.StatusOK)

	var response v1.Response[v1.Comparison]
	test.DecodeResponse(suite.T(), &r, &response)
	require.NotNil(suite.T(), response.Data)
	assert.Equal(suite.T(), models.AuditCreate, response.Data.VersionA)
	assert.Equal(suite.T(), models.AuditUpdate, response.Data.VersionB)
	require.Len(suite.T(), response.Data.Differences, 1)
	assert.Equal(suite.T(), "name", response.Data.Differences[0].Field)
	assert.Equal(suite.T(), "Office consulting", response.Data.Differences[0].VersionA)
	assert.Equal(suite.T(), "Renamed", response.Data.Differences[0].VersionB)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"No records", "", http.StatusBadRequest},
		{"Only one record", fmt.Sprintf("a=%s", create.ID), http.StatusBadRequest},
		{"Record does not exist", fmt.Sprintf("a=%s&b=%s", create.ID, uuid.New()), http.StatusNotFound},
		{"Not a UUID", "a=first&b=second", http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			r := test.Request(co, t, http.MethodGet, fmt.Sprintf("%s/compare?%s", e.Data.Links.Self, tt.query), "")
			test.AssertHTTPStatus(t, &r, tt.status)
		})
	}
}
