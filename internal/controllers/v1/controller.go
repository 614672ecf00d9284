package v1

import (
	"net/http"
	"time"

	"github.com/envelope-zero/planner/internal/compliance"
	"github.com/envelope-zero/planner/internal/conflict"
	"github.com/envelope-zero/planner/internal/documents"
	"github.com/envelope-zero/planner/internal/forecast"
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/ingest"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/optimizer"
	"github.com/envelope-zero/planner/internal/orchestrator"
	"github.com/envelope-zero/planner/internal/rules"
	"github.com/envelope-zero/planner/internal/semantic"
	"github.com/gin-gonic/gin"
)

// Controller holds the components the handlers of the v1 API use.
type Controller struct {
	Rules        rules.Rules
	Compliance   *compliance.Checker
	Conflicts    *conflict.Detector
	Optimizer    *optimizer.Optimizer
	Forecaster   *forecast.Forecaster
	Orchestrator *orchestrator.Orchestrator
	Documents    *documents.Generator
	Semantic     *semantic.Checker
	Ingester     *ingest.Ingester

	// Now returns the current time. Deadlines and generated documents use it.
	Now func() time.Time
}

// New creates a controller with all components configured from the rules.
func New(r rules.Rules, s *semantic.Checker) Controller {
	if s == nil {
		s = semantic.NewChecker(semantic.NewRuleAdvisor(r))
	}

	return Controller{
		Rules:        r,
		Compliance:   compliance.New(r),
		Conflicts:    conflict.New(r),
		Optimizer:    optimizer.New(r),
		Forecaster:   forecast.New(r),
		Orchestrator: orchestrator.New(r),
		Documents:    documents.New(r),
		Semantic:     s,
		Ingester:     ingest.New(r),
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers all v1 routes on the group.
func (co Controller) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", Get)
	r.OPTIONS("", Options)

	co.RegisterEntryRoutes(r.Group("/entries"))
	co.RegisterDepartmentRoutes(r.Group("/departments"))
	co.RegisterLimitRoutes(r.Group("/limits"))
	co.RegisterComplianceRoutes(r.Group("/compliance"))
	co.RegisterConflictRoutes(r.Group("/conflicts"))
	co.RegisterOptimizationRoutes(r.Group("/optimization"))
	co.RegisterForecastRoutes(r.Group("/forecast"))
	co.RegisterOrchestratorRoutes(r.Group("/orchestrator"))
	co.RegisterDocumentRoutes(r.Group("/documents"))
	co.RegisterExportRoutes(r.Group("/export"))
	co.RegisterImportRoutes(r.Group("/import"))
	RegisterAuditLogRoutes(r.Group("/audit-logs"))
	co.RegisterStatsRoutes(r.Group("/stats"))
}

type RootResponse struct {
	Links Links `json:"links"` // Links for the v1 API
}

type Links struct {
	Entries      string `json:"entries" example:"https://example.com/api/v1/entries"`           // URL of Entry collection endpoint
	Departments  string `json:"departments" example:"https://example.com/api/v1/departments"`   // URL of Department collection endpoint
	Limits       string `json:"limits" example:"https://example.com/api/v1/limits"`             // URL of Global Limit collection endpoint
	Compliance   string `json:"compliance" example:"https://example.com/api/v1/compliance"`     // URL of the compliance endpoints
	Conflicts    string `json:"conflicts" example:"https://example.com/api/v1/conflicts"`       // URL of Conflict collection endpoint
	Optimization string `json:"optimization" example:"https://example.com/api/v1/optimization"` // URL of the optimization endpoints
	Forecast     string `json:"forecast" example:"https://example.com/api/v1/forecast"`         // URL of the forecast endpoint
	Orchestrator string `json:"orchestrator" example:"https://example.com/api/v1/orchestrator"` // URL of the workflow endpoints
	Documents    string `json:"documents" example:"https://example.com/api/v1/documents"`       // URL of the document endpoints
	Export       string `json:"export" example:"https://example.com/api/v1/export"`             // URL of the spreadsheet exports
	Import       string `json:"import" example:"https://example.com/api/v1/import"`             // URL of the import endpoint
	AuditLogs    string `json:"auditLogs" example:"https://example.com/api/v1/audit-logs"`      // URL of Audit Log collection endpoint
	Stats        string `json:"stats" example:"https://example.com/api/v1/stats"`               // URL of the dashboard statistics
}

// Get returns the link list for v1
//
//	@Summary		v1 API
//	@Description	Returns general information about the v1 API
//	@Tags			v1
//	@Success		200	{object}	RootResponse
//	@Router			/v1 [get]
func Get(c *gin.Context) {
	url := c.GetString(string(models.DBContextURL))

	c.JSON(http.StatusOK, RootResponse{
		Links: Links{
			Entries:      url + "/v1/entries",
			Departments:  url + "/v1/departments",
			Limits:       url + "/v1/limits",
			Compliance:   url + "/v1/compliance",
			Conflicts:    url + "/v1/conflicts",
			Optimization: url + "/v1/optimization",
			Forecast:     url + "/v1/forecast",
			Orchestrator: url + "/v1/orchestrator",
			Documents:    url + "/v1/documents",
			Export:       url + "/v1/export",
			Import:       url + "/v1/import",
			AuditLogs:    url + "/v1/audit-logs",
			Stats:        url + "/v1/stats",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v1
//	@Success		204
//	@Router			/v1 [options]
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}

// year returns the year query parameter, defaulting to the first year
// of the planning period.
func year(c *gin.Context) (int, bool) {
	y, err := httputil.Year(c, models.FirstYear)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), httpError{Error: s})
		return 0, false
	}

	return y, true
}
